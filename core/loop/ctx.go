package loop

import (
	"context"
	"log/slog"
	"time"
)

// Ctx is handed to every task. Its context is cancelled when the task is
// cancelled or the loop stops.
//
// Await, Sleep and Yield must only be called from the task's own goroutine.
type Ctx interface {
	context.Context
	Log() *slog.Logger
	Loop() *Loop
	Task() *Task

	// Spawn schedules a new task on the same loop.
	Spawn(name string, f TaskFunc) *Task

	// Await releases the loop, runs f and reacquires the loop. If the loop
	// stopped meanwhile, Await returns ErrStopped and the task must return.
	Await(f func(ctx context.Context) error) error

	// Sleep suspends the task for d.
	Sleep(d time.Duration) error

	// Yield lets every other runnable task run once before continuing.
	Yield() error
}

type taskCtx struct {
	context.Context
	log     *slog.Logger
	loop    *Loop
	task    *Task
	holding bool
}

func (tc *taskCtx) Log() *slog.Logger { return tc.log }
func (tc *taskCtx) Loop() *Loop       { return tc.loop }
func (tc *taskCtx) Task() *Task       { return tc.task }

func (tc *taskCtx) Spawn(name string, f TaskFunc) *Task {
	return tc.loop.Spawn(name, f)
}

func (tc *taskCtx) Await(f func(ctx context.Context) error) error {
	if !tc.holding {
		return f(tc.Context)
	}

	tc.holding = false
	tc.loop.release()

	err := f(tc.Context)

	wake, qerr := tc.loop.enqueue(false)
	if qerr != nil {
		return qerr
	}
	if werr := tc.loop.wait(wake); werr != nil {
		return werr
	}
	tc.holding = true
	return err
}

func (tc *taskCtx) Sleep(d time.Duration) error {
	return tc.Await(func(ctx context.Context) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	})
}

func (tc *taskCtx) Yield() error {
	return tc.Await(func(context.Context) error { return nil })
}

var _ Ctx = (*taskCtx)(nil)
