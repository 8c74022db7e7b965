package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/chrisglass/windmobile/internal/holder"
	"github.com/chrisglass/windmobile/internal/stations"
	"github.com/chrisglass/windmobile/internal/worker"
)

func init() {
	color.NoColor = true
}

func TestRunOnce(t *testing.T) {
	var task worker.Task[int, int] = func(ctx context.Context, n int) (int, error) {
		if n < 0 {
			return 0, worker.Fail("network", errors.New("timeout"))
		}
		return n * 2, nil
	}
	h := holder.New(worker.Factory("double", task, worker.JobConfig{}), holder.WithName("double"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := runOnce(ctx, h, 21)
	if err != nil || got != 42 {
		t.Errorf("runOnce(21) = %d, %v; want 42, nil", got, err)
	}

	for h.IsBusy() {
		time.Sleep(5 * time.Millisecond)
	}
	_, err = runOnce(ctx, h, -1)
	if err == nil || err.Error() != "network: timeout" {
		t.Errorf("runOnce(-1) error = %v, want \"network: timeout\"", err)
	}
	if n, errs := h.Listeners(); n != 0 || errs != 0 {
		t.Errorf("Listeners() = %d, %d; want listeners removed", n, errs)
	}
}

func TestRunOnceContextDone(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	task := worker.NoParam(func(ctx context.Context) (int, error) {
		<-block
		return 1, nil
	})
	h := holder.New(worker.Factory("blocked", task, worker.JobConfig{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := runOnce(ctx, h, holder.None{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("runOnce() error = %v, want DeadlineExceeded", err)
	}
}

func TestStationSummary(t *testing.T) {
	tests := []struct {
		name string
		st   *stations.Station
		want string
	}{
		{"nil", nil, "no data"},
		{"no message", &stations.Station{ShortName: "Dents"}, "Dents: no measurement"},
		{
			"with message",
			&stations.Station{Name: "Mont Tendre", LastMessage: &stations.Message{WindAverage: 12, WindMax: 20, WindDirection: 270, Temperature: 4}},
			"Mont Tendre: 12 km/h (max 20) from W",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stationSummary(tt.st); !strings.HasPrefix(got, tt.want) {
				t.Errorf("stationSummary() = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestStatusText(t *testing.T) {
	for _, s := range []string{stations.StatusGreen, stations.StatusOrange, stations.StatusRed, "unknown"} {
		if got := statusText(s); got != s {
			t.Errorf("statusText(%q) = %q with colors disabled", s, got)
		}
	}
}
