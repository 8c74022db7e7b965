// cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatih/color"

	"github.com/chrisglass/windmobile/internal/holder"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	goodColor   = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	badColor    = color.New(color.FgRed)
	labelColor  = color.New(color.Bold)
)

// printMu serializes console output from listener goroutines.
var printMu sync.Mutex

// logLine prints a log line coloured by level. Debug lines go through Debug.
func logLine(level, msg string) {
	if level == "debug" {
		Debug("%s", msg)
		return
	}
	printMu.Lock()
	defer printMu.Unlock()
	switch level {
	case "success":
		goodColor.Printf("  ✓ %s\n", msg)
	case "warning":
		warnColor.Printf("  ! %s\n", msg)
	case "error":
		badColor.Printf("  ✗ %s\n", msg)
	default:
		fmt.Printf("  %s\n", msg)
	}
}

// runOnce refreshes h with param and waits for the resulting notification.
// A failure is returned as "source: error".
func runOnce[P, R any](ctx context.Context, h *holder.Holder[P, R], param P) (R, error) {
	type outcome struct {
		result R
		err    error
	}
	done := make(chan outcome, 1)
	unsubResult := h.OnResultChanged(func(r R) {
		select {
		case done <- outcome{result: r}:
		default:
		}
	})
	defer unsubResult()
	unsubError := h.OnError(func(source string, err error) {
		select {
		case done <- outcome{err: fmt.Errorf("%s: %w", source, err)}:
		default:
		}
	})
	defer unsubError()

	h.Refresh(param)

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// printEvent prints one holder notification, formatting results with format.
func printEvent[R any](ev holder.Event[R], format func(R) string) {
	printMu.Lock()
	defer printMu.Unlock()
	ts := ev.Timestamp.Local().Format("15:04:05")
	switch ev.Type {
	case holder.EventResult:
		fmt.Printf("%s %s %s\n", ts, labelColor.Sprint(ev.Holder), format(ev.Result))
	case holder.EventError:
		fmt.Printf("%s %s %s\n", ts, labelColor.Sprint(ev.Holder),
			badColor.Sprintf("%s failed: %v", ev.Source, ev.Err))
	}
}
