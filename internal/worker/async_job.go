// Package worker provides Job implementations that run a task in the
// background for a holder.Holder.
//
// Architecture:
//
//	Holder.Refresh → AsyncJob.Execute → goroutine: Task(ctx, param)
//	                                         │
//	                      OnCompleted(result) ◀┴▶ OnError(source, err)
//
// An AsyncJob owns its own goroutine per execution. It enforces its own
// single-flight rule (a concurrent Execute is ignored) and an optional
// per-run timeout; there is no cancellation from the outside.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/chrisglass/windmobile/internal/holder"
)

// AsyncJob runs a Task on a goroutine and reports the outcome through the
// handlers registered by its Holder.
type AsyncJob[P, R any] struct {
	name    string
	task    Task[P, R]
	timeout time.Duration
	logFn   func(level, msg string)

	busy atomic.Bool
	wg   sync.WaitGroup

	mu          sync.Mutex
	onCompleted func(R)
	onError     func(string, error)
	lastRun     Run
	runs        int
}

// Run describes one execution of an AsyncJob.
type Run struct {
	// ID uniquely identifies this execution
	ID string

	// StartedAt is when the task started
	StartedAt time.Time

	// Duration is how long the task took (zero while running)
	Duration time.Duration

	// Failed reports whether the execution ended with an error
	Failed bool
}

// JobConfig holds configuration for an AsyncJob.
type JobConfig struct {
	// Timeout bounds a single execution. Zero means no timeout.
	Timeout time.Duration

	// LogFn is called for log messages (optional)
	LogFn func(level, msg string)
}

// NewAsyncJob creates a job named name that runs task on each Execute.
// The name is used as the error source when the task does not supply one.
func NewAsyncJob[P, R any](name string, task Task[P, R], cfg JobConfig) *AsyncJob[P, R] {
	return &AsyncJob[P, R]{
		name:    name,
		task:    task,
		timeout: cfg.Timeout,
		logFn:   cfg.LogFn,
	}
}

// Factory returns a holder.Factory producing a new AsyncJob.
func Factory[P, R any](name string, task Task[P, R], cfg JobConfig) holder.Factory[P, R] {
	return func() holder.Job[P, R] {
		return NewAsyncJob(name, task, cfg)
	}
}

// Ensure AsyncJob implements holder.Job
var _ holder.Job[holder.None, int] = (*AsyncJob[holder.None, int])(nil)

// Name returns the job name.
func (j *AsyncJob[P, R]) Name() string {
	return j.name
}

// IsBusy reports whether an execution is in progress.
func (j *AsyncJob[P, R]) IsBusy() bool {
	return j.busy.Load()
}

// OnCompleted sets the success handler.
func (j *AsyncJob[P, R]) OnCompleted(fn func(result R)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onCompleted = fn
}

// OnError sets the failure handler.
func (j *AsyncJob[P, R]) OnError(fn func(source string, err error)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onError = fn
}

// Execute starts the task in the background and returns immediately. If an
// execution is already running the call is ignored.
func (j *AsyncJob[P, R]) Execute(param P) {
	if !j.busy.CompareAndSwap(false, true) {
		j.log("debug", "%s: already running, execute ignored", j.name)
		return
	}

	run := Run{ID: uuid.New().String(), StartedAt: time.Now()}
	j.mu.Lock()
	j.lastRun = run
	j.runs++
	j.mu.Unlock()

	j.wg.Add(1)
	go j.run(run, param)
}

func (j *AsyncJob[P, R]) run(run Run, param P) {
	defer j.wg.Done()

	j.log("debug", "%s: run %s started", j.name, shortID(run.ID))
	result, err := j.invoke(param)
	run.Duration = time.Since(run.StartedAt)
	run.Failed = err != nil

	j.mu.Lock()
	j.lastRun = run
	onCompleted, onError := j.onCompleted, j.onError
	j.mu.Unlock()

	// Busy is cleared before the handlers run so a handler may refresh again.
	// holder.Holder stays busy until it has cached the outcome.
	j.busy.Store(false)

	if err != nil {
		source := j.name
		var taskErr *TaskError
		if errors.As(err, &taskErr) && taskErr.Source != "" {
			source = taskErr.Source
			err = taskErr.Err
		}
		j.log("debug", "%s: run %s failed (%v): %v", j.name, shortID(run.ID), run.Duration, err)
		if onError != nil {
			onError(source, err)
		}
		return
	}

	j.log("debug", "%s: run %s completed (%v)", j.name, shortID(run.ID), run.Duration)
	if onCompleted != nil {
		onCompleted(result)
	}
}

// invoke runs the task, converting a panic into an error.
func (j *AsyncJob[P, R]) invoke(param P) (result R, err error) {
	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			j.log("error", "%s: task panicked: %v\n%s", j.name, r, debug.Stack())
			err = fmt.Errorf("panic in job %s: %v", j.name, r)
		}
	}()
	return j.task(ctx, param)
}

// Wait blocks until no execution is in flight.
func (j *AsyncJob[P, R]) Wait() {
	j.wg.Wait()
}

// LastRun returns the most recent execution and whether one has started.
func (j *AsyncJob[P, R]) LastRun() (Run, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun, j.runs > 0
}

// Runs returns the number of executions started.
func (j *AsyncJob[P, R]) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func (j *AsyncJob[P, R]) log(level, format string, args ...any) {
	if j.logFn != nil {
		j.logFn(level, fmt.Sprintf(format, args...))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
