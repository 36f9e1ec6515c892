package loop

import (
	"context"
	"sync/atomic"
)

// TaskFunc is the body of a task. It runs holding the loop and may suspend
// through tc.
type TaskFunc func(tc Ctx) error

// Task is a handle to a spawned task.
type Task struct {
	name   string
	loop   *Loop
	ctx    context.Context
	cancel context.CancelFunc

	done chan struct{}
	err  error

	// observed tasks have their result consumed by the caller, failures are
	// not logged by the loop.
	observed atomic.Bool
}

func (t *Task) Name() string { return t.name }

// Done is closed when the task has finished or was abandoned.
func (t *Task) Done() <-chan struct{} { return t.done }

// Err returns the task result once Done is closed, nil before.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Cancel cancels the task's context. The task keeps running until it observes
// the cancellation.
func (t *Task) Cancel() { t.cancel() }

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}
