package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chrisglass/windmobile/internal/holder"
)

// recorder captures holder notifications for verification.
type recorder[R any] struct {
	mu      sync.Mutex
	results []R
	sources []string
	errs    []error
}

func (r *recorder[R]) attach(h *holder.Holder[holder.None, R]) {
	h.OnResultChanged(func(v R) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.results = append(r.results, v)
	})
	h.OnError(func(source string, err error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.sources = append(r.sources, source)
		r.errs = append(r.errs, err)
	})
}

func (r *recorder[R]) counts() (results, errs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results), len(r.errs)
}

// newHolder builds a holder over an AsyncJob and returns both.
func newHolder[R any](t *testing.T, name string, task Task[holder.None, R], cfg JobConfig) (*holder.Holder[holder.None, R], func() *AsyncJob[holder.None, R]) {
	t.Helper()
	var job *AsyncJob[holder.None, R]
	h := holder.New(func() holder.Job[holder.None, R] {
		job = NewAsyncJob(name, task, cfg)
		return job
	}, holder.WithName(name))
	return h, func() *AsyncJob[holder.None, R] { return job }
}

func TestAsyncJobSuccess(t *testing.T) {
	h, job := newHolder(t, "answer", NoParam(func(ctx context.Context) (int, error) {
		return 42, nil
	}), JobConfig{})

	rec := &recorder[int]{}
	rec.attach(h)

	h.Refresh(holder.None{})
	job().Wait()

	if r, ok := h.LastResult(); !ok || r != 42 {
		t.Errorf("LastResult() = %d, %v; want 42, true", r, ok)
	}
	if results, errs := rec.counts(); results != 1 || errs != 0 {
		t.Errorf("notifications = %d results, %d errors; want 1, 0", results, errs)
	}
	if rec.results[0] != 42 {
		t.Errorf("notified %d, want 42", rec.results[0])
	}
	if h.IsBusy() {
		t.Error("IsBusy() = true after completion")
	}
}

func TestAsyncJobFailureWithSource(t *testing.T) {
	timeout := errors.New("timeout")
	h, job := newHolder(t, "stationlist", NoParam(func(ctx context.Context) (*string, error) {
		return nil, Fail("network", timeout)
	}), JobConfig{})

	rec := &recorder[*string]{}
	rec.attach(h)

	h.Refresh(holder.None{})
	job().Wait()

	if h.LastError() != timeout {
		t.Errorf("LastError() = %v, want %v", h.LastError(), timeout)
	}
	if _, ok := h.LastResult(); ok {
		t.Error("LastResult present after failure")
	}
	if results, errs := rec.counts(); results != 0 || errs != 1 {
		t.Fatalf("notifications = %d results, %d errors; want 0, 1", results, errs)
	}
	if rec.sources[0] != "network" || rec.errs[0] != timeout {
		t.Errorf("error event = (%s, %v), want (network, timeout)", rec.sources[0], rec.errs[0])
	}
}

func TestAsyncJobPlainErrorUsesJobName(t *testing.T) {
	h, job := newHolder(t, "nodestatus", NoParam(func(ctx context.Context) (int, error) {
		return 0, errors.New("collector offline")
	}), JobConfig{})

	rec := &recorder[int]{}
	rec.attach(h)

	h.Refresh(holder.None{})
	job().Wait()

	if len(rec.sources) != 1 || rec.sources[0] != "nodestatus" {
		t.Errorf("sources = %v, want [nodestatus]", rec.sources)
	}
}

func TestAsyncJobSingleFlight(t *testing.T) {
	release := make(chan struct{})
	var executions atomic.Int32

	h, job := newHolder(t, "slow", NoParam(func(ctx context.Context) (int, error) {
		executions.Add(1)
		<-release
		return 1, nil
	}), JobConfig{})

	h.Refresh(holder.None{})
	h.Refresh(holder.None{})

	if !h.IsBusy() {
		t.Error("IsBusy() = false while task blocked")
	}

	close(release)
	job().Wait()

	if executions.Load() != 1 {
		t.Errorf("task executed %d times for two quick refreshes, want 1", executions.Load())
	}
	if job().Runs() != 1 {
		t.Errorf("Runs() = %d, want 1", job().Runs())
	}
}

func TestAsyncJobDirectExecuteWhileBusy(t *testing.T) {
	release := make(chan struct{})
	var executions atomic.Int32

	job := NewAsyncJob("direct", NoParam(func(ctx context.Context) (int, error) {
		executions.Add(1)
		<-release
		return 0, nil
	}), JobConfig{})

	job.Execute(holder.None{})
	job.Execute(holder.None{})
	close(release)
	job.Wait()

	if executions.Load() != 1 {
		t.Errorf("task executed %d times, want 1", executions.Load())
	}
}

func TestAsyncJobTimeout(t *testing.T) {
	h, job := newHolder(t, "stuck", NoParam(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}), JobConfig{Timeout: 20 * time.Millisecond})

	h.Refresh(holder.None{})
	job().Wait()

	if !errors.Is(h.LastError(), context.DeadlineExceeded) {
		t.Errorf("LastError() = %v, want deadline exceeded", h.LastError())
	}
	run, ok := job().LastRun()
	if !ok || !run.Failed {
		t.Errorf("LastRun() = %+v, %v; want failed run", run, ok)
	}
}

func TestAsyncJobPanicBecomesError(t *testing.T) {
	h, job := newHolder(t, "buggy", NoParam(func(ctx context.Context) (int, error) {
		panic("nil station")
	}), JobConfig{})

	h.Refresh(holder.None{})
	job().Wait()

	if h.LastError() == nil {
		t.Fatal("LastError() = nil after panicking task")
	}
	if h.IsBusy() {
		t.Error("job still busy after panic")
	}
}

func TestAsyncJobRunMetadata(t *testing.T) {
	job := NewAsyncJob("meta", NoParam(func(ctx context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	}), JobConfig{})

	if _, ok := job.LastRun(); ok {
		t.Error("LastRun() reported a run before Execute")
	}

	job.Execute(holder.None{})
	job.Wait()

	run, ok := job.LastRun()
	if !ok {
		t.Fatal("LastRun() reported no run")
	}
	if run.ID == "" {
		t.Error("run ID is empty")
	}
	if run.Duration <= 0 {
		t.Errorf("Duration = %v, want > 0", run.Duration)
	}
	if run.Failed {
		t.Error("run marked failed")
	}
}

func TestAsyncJobParam(t *testing.T) {
	var got string
	var job *AsyncJob[string, int]
	h := holder.New(func() holder.Job[string, int] {
		job = NewAsyncJob("param", func(ctx context.Context, id string) (int, error) {
			got = id
			return len(id), nil
		}, JobConfig{})
		return job
	})

	h.Refresh("jdc-1001")
	job.Wait()

	if got != "jdc-1001" {
		t.Errorf("task received %q, want %q", got, "jdc-1001")
	}
	if r, _ := h.LastResult(); r != 8 {
		t.Errorf("LastResult() = %d, want 8", r)
	}
}

func TestTaskError(t *testing.T) {
	base := errors.New("refused")
	err := Fail("network", base)

	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatal("Fail did not produce a TaskError")
	}
	if taskErr.Source != "network" {
		t.Errorf("Source = %q, want network", taskErr.Source)
	}
	if !errors.Is(err, base) {
		t.Error("TaskError does not unwrap to the cause")
	}
	if err.Error() != "network: refused" {
		t.Errorf("Error() = %q", err.Error())
	}
	if Fail("network", nil) != nil {
		t.Error("Fail(nil) should return nil")
	}
}

func TestFactory(t *testing.T) {
	factory := Factory("f", NoParam(func(ctx context.Context) (int, error) { return 1, nil }), JobConfig{})
	job, ok := factory().(*AsyncJob[holder.None, int])
	if !ok {
		t.Fatal("Factory did not produce an AsyncJob")
	}
	if job.Name() != "f" {
		t.Errorf("Name() = %q, want f", job.Name())
	}
}

func TestHolderIdleImpliesOutcomeCached(t *testing.T) {
	var task Task[int, int] = func(ctx context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errors.New("odd")
		}
		return n, nil
	}
	h := holder.New(Factory("parity", task, JobConfig{}))

	for i := 0; i < 500; i++ {
		h.Refresh(i)
		for h.IsBusy() {
			runtime.Gosched()
		}
		if i%2 == 1 {
			if err := h.LastError(); err == nil {
				t.Fatalf("iteration %d: LastError() = nil after the holder went idle", i)
			}
			continue
		}
		if r, ok := h.LastResult(); !ok || r != i {
			t.Fatalf("iteration %d: LastResult() = %d, %v after the holder went idle", i, r, ok)
		}
	}
}
