package worker

import (
	"context"
	"fmt"
)

// Task is the work performed by an AsyncJob on each execution.
type Task[P, R any] func(ctx context.Context, param P) (R, error)

// TaskError tags an error with the name of the operation that produced it.
// AsyncJob reports Source as the error source instead of the job name.
type TaskError struct {
	Source string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// Fail wraps err with source. A nil err returns nil.
func Fail(source string, err error) error {
	if err == nil {
		return nil
	}
	return &TaskError{Source: source, Err: err}
}

// NoParam adapts a parameterless function into a Task.
func NoParam[R any](fn func(ctx context.Context) (R, error)) Task[struct{}, R] {
	return func(ctx context.Context, _ struct{}) (R, error) {
		return fn(ctx)
	}
}
