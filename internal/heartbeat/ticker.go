// Package heartbeat keeps registered holders fresh by refreshing them on a
// fixed interval.
//
//	Ticker ──(start, then every interval)──▶ holder.Refresh
//	       ◀── Trigger(name) ── user / HTTP (rate limited)
//
// Refreshes of a holder that is still busy are dropped by the holder itself.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/chrisglass/windmobile/internal/holder"
)

var (
	// ErrUnknownRefresher is returned by Trigger for an unregistered name
	ErrUnknownRefresher = errors.New("unknown refresher")

	// ErrThrottled is returned by Trigger when the manual refresh rate is exceeded
	ErrThrottled = errors.New("refresh throttled")
)

type refresher struct {
	refresh func()
	busy    func() bool
	limiter *rate.Limiter
}

// Ticker periodically refreshes registered holders.
type Ticker struct {
	interval     time.Duration
	triggerRPS   float64
	triggerBurst int
	logFn        func(level, msg string)

	mu         sync.Mutex
	refreshers map[string]*refresher
	ticks      int
}

// TickerConfig holds configuration for the heartbeat ticker.
type TickerConfig struct {
	// Interval is the time between refreshes (default: 60s)
	Interval time.Duration

	// TriggerRPS limits manual refreshes per holder (default: 0.2)
	TriggerRPS float64

	// TriggerBurst is the burst allowed for manual refreshes (default: 1)
	TriggerBurst int

	// LogFn is an optional callback for logging
	LogFn func(level, msg string)
}

// NewTicker creates a new heartbeat ticker.
func NewTicker(cfg TickerConfig) *Ticker {
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.TriggerRPS == 0 {
		cfg.TriggerRPS = 0.2
	}
	if cfg.TriggerBurst == 0 {
		cfg.TriggerBurst = 1
	}
	return &Ticker{
		interval:     cfg.Interval,
		triggerRPS:   cfg.TriggerRPS,
		triggerBurst: cfg.TriggerBurst,
		logFn:        cfg.LogFn,
		refreshers:   make(map[string]*refresher),
	}
}

// Add registers refresh under name. busy is optional.
func (t *Ticker) Add(name string, refresh func(), busy func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refreshers[name] = &refresher{
		refresh: refresh,
		busy:    busy,
		limiter: rate.NewLimiter(rate.Limit(t.triggerRPS), t.triggerBurst),
	}
}

// AddHolder registers h under its name. param supplies the parameter of each
// refresh.
func AddHolder[P, R any](t *Ticker, h *holder.Holder[P, R], param func() P) {
	t.Add(h.Name(), func() { h.Refresh(param()) }, h.IsBusy)
}

// Names returns the registered names, sorted.
func (t *Ticker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.refreshers))
	for name := range t.refreshers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ticks returns the number of completed refresh rounds.
func (t *Ticker) Ticks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ticks
}

// log outputs a message through logFn if set.
func (t *Ticker) log(level, format string, args ...any) {
	if t.logFn != nil {
		t.logFn(level, fmt.Sprintf(format, args...))
	}
}

// Start refreshes every registered holder immediately and then once per
// interval. This method blocks until the context is cancelled.
func (t *Ticker) Start(ctx context.Context) error {
	t.refreshAll()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.refreshAll()
		}
	}
}

// Trigger refreshes the named holder now, subject to the manual refresh rate.
func (t *Ticker) Trigger(name string) error {
	t.mu.Lock()
	r, ok := t.refreshers[name]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRefresher, name)
	}
	if !r.limiter.Allow() {
		return fmt.Errorf("%w: %s", ErrThrottled, name)
	}
	t.log("info", "heartbeat: manual refresh of %s", name)
	r.refresh()
	return nil
}

func (t *Ticker) refreshAll() {
	for _, name := range t.Names() {
		t.mu.Lock()
		r := t.refreshers[name]
		t.mu.Unlock()

		if r.busy != nil && r.busy() {
			t.log("debug", "heartbeat: %s still busy, skipping", name)
			continue
		}
		r.refresh()
	}

	t.mu.Lock()
	t.ticks++
	t.mu.Unlock()
}
