// Package holder wraps a background job and keeps its last known state.
//
// A Holder owns a single, lazily created Job. Callers ask it to Refresh with a
// parameter; the Holder starts the job only when the job is idle, so at most
// one execution is ever in flight. The outcome of each execution is cached
// (LastResult, LastError) and re-published to the Holder's own listeners.
//
// Lifecycle:
//
//	Uninitialized ──Refresh──▶ Idle ──Refresh──▶ Running
//	                            ▲                   │
//	                            └──completed/error──┘
//
// The Holder never blocks on the job and never cancels it. How the work
// actually runs (goroutine, pool, callback-driven I/O) belongs to the Job.
package holder

import (
	"fmt"
	"reflect"
	"sync"
)

// Job is the unit of asynchronous work driven by a Holder.
type Job[P, R any] interface {
	// IsBusy reports whether an execution is in progress.
	IsBusy() bool

	// Execute starts an execution with the given parameter and returns
	// immediately. It is only called while IsBusy reports false.
	Execute(param P)

	// OnCompleted registers the handler invoked when an execution succeeds.
	OnCompleted(fn func(result R))

	// OnError registers the handler invoked when an execution fails.
	// source names the operation inside the job that failed.
	OnError(fn func(source string, err error))
}

// None is the parameter type for jobs that take no parameter.
type None = struct{}

// Factory creates the Job a Holder drives. It is called at most once.
type Factory[P, R any] func() Job[P, R]

// Holder caches the last result and last error of a Job and notifies
// listeners when either changes.
type Holder[P, R any] struct {
	name    string
	factory Factory[P, R]
	logFn   func(level, msg string)

	mu        sync.Mutex
	job       Job[P, R]
	starting  bool
	running   bool
	result    R
	hasResult bool
	lastErr   error

	results *listeners[func(R)]
	errors  *listeners[func(string, error)]
}

// Option configures a Holder.
type Option func(*options)

type options struct {
	name  string
	logFn func(level, msg string)
}

// WithName sets the name used in log messages and by integrations.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogFn sets the callback used for log messages (e.g. recovered listener
// panics). If unset, messages are discarded.
func WithLogFn(fn func(level, msg string)) Option {
	return func(o *options) { o.logFn = fn }
}

// New creates a Holder. The factory is stored; no job is created until the
// first Refresh.
func New[P, R any](factory Factory[P, R], opts ...Option) *Holder[P, R] {
	o := options{name: "holder"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Holder[P, R]{
		name:    o.name,
		factory: factory,
		logFn:   o.logFn,
		results: newListeners[func(R)](),
		errors:  newListeners[func(string, error)](),
	}
}

// Name returns the holder name.
func (h *Holder[P, R]) Name() string {
	return h.name
}

// LoadLastResult seeds the cached result, typically from a persisted snapshot
// when the application resumes. Listeners are notified only if the result is
// present (see isAbsent). The job is not touched.
func (h *Holder[P, R]) LoadLastResult(result R) {
	present := !isAbsent(result)

	h.mu.Lock()
	h.result = result
	h.hasResult = present
	h.mu.Unlock()

	if present {
		h.fireResult(result)
	}
}

// ClearLastResult resets the cached result to absent without notifying.
func (h *Holder[P, R]) ClearLastResult() {
	var zero R
	h.mu.Lock()
	h.result = zero
	h.hasResult = false
	h.mu.Unlock()
}

// Refresh starts the job with param if it is idle. A Refresh issued while the
// job is running is dropped: it is not queued and not retried. The outcome is
// only observable through listeners and the cached state.
func (h *Holder[P, R]) Refresh(param P) {
	h.mu.Lock()
	job := h.ensureJob()
	if h.starting || h.running || job.IsBusy() {
		h.mu.Unlock()
		h.log("debug", "%s: refresh dropped, job busy", h.name)
		return
	}
	// starting covers the window between the busy check and Execute, which
	// runs unlocked so a job that completes synchronously can call back in.
	// running stays set until the outcome is cached.
	h.starting = true
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.starting = false
		h.mu.Unlock()
	}()
	job.Execute(param)
}

// IsBusy reports whether the job is running. It is false until the job has
// been created and does not create it. Once it reports false after an
// execution, LastResult and LastError reflect that execution.
func (h *Holder[P, R]) IsBusy() bool {
	return h.State() == StateRunning
}

// State returns the current lifecycle state.
func (h *Holder[P, R]) State() State {
	h.mu.Lock()
	job, inFlight := h.job, h.starting || h.running
	h.mu.Unlock()
	switch {
	case job == nil:
		return StateUninitialized
	case inFlight || job.IsBusy():
		return StateRunning
	default:
		return StateIdle
	}
}

// LastResult returns the most recent result and whether one is present.
func (h *Holder[P, R]) LastResult() (R, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.hasResult
}

// LastError returns the most recent job error. A later success does not
// clear it.
func (h *Holder[P, R]) LastError() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// OnResultChanged registers fn to be called whenever the cached result is
// updated. It returns a function that removes the registration.
//
// Listeners see changes in the order they were made by a single goroutine.
// A LoadLastResult racing a job completion may be delivered in either order,
// and LastResult then holds whichever write happened last.
func (h *Holder[P, R]) OnResultChanged(fn func(result R)) (unsubscribe func()) {
	return h.results.add(fn)
}

// OnError registers fn to be called whenever the job reports a failure. It
// returns a function that removes the registration.
func (h *Holder[P, R]) OnError(fn func(source string, err error)) (unsubscribe func()) {
	return h.errors.add(fn)
}

// ensureJob creates the job and wires its handlers. Callers hold h.mu.
func (h *Holder[P, R]) ensureJob() Job[P, R] {
	if h.job != nil {
		return h.job
	}
	job := h.factory()
	job.OnCompleted(h.handleCompleted)
	job.OnError(h.handleError)
	h.job = job
	h.log("debug", "%s: job created", h.name)
	return job
}

func (h *Holder[P, R]) handleCompleted(result R) {
	h.mu.Lock()
	h.result = result
	h.hasResult = true
	h.running = false
	h.mu.Unlock()

	h.fireResult(result)
}

func (h *Holder[P, R]) handleError(source string, err error) {
	h.mu.Lock()
	h.lastErr = err
	h.running = false
	h.mu.Unlock()

	h.log("warning", "%s: %s failed: %v", h.name, source, err)
	for _, fn := range h.errors.snapshot() {
		h.safeCall(func() { fn(source, err) })
	}
}

func (h *Holder[P, R]) fireResult(result R) {
	for _, fn := range h.results.snapshot() {
		h.safeCall(func() { fn(result) })
	}
}

// safeCall runs a listener, recovering a panic so the remaining listeners
// still see the notification.
func (h *Holder[P, R]) safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.log("error", "%s: listener panicked: %v", h.name, r)
		}
	}()
	fn()
}

func (h *Holder[P, R]) log(level, format string, args ...any) {
	if h.logFn != nil {
		h.logFn(level, fmt.Sprintf(format, args...))
	}
}

// isAbsent reports whether v is the nil value of a nillable type. Values of
// non-nillable types are always present.
func isAbsent[R any](v R) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
