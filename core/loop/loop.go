package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

type OnPanic func(recovered any, stack []byte, task string)

type Options struct {
	Name    string
	Logger  *slog.Logger
	Metrics Metrics
	OnPanic OnPanic
}

type state int

const (
	stateIdle state = iota
	stateRunning
	stateStopped
)

// Loop is a cooperative scheduler. At most one of its tasks runs at any time.
type Loop struct {
	name    string
	log     *slog.Logger
	metrics Metrics
	onPanic OnPanic

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state state
	busy  bool            // a task holds the loop
	ready []chan struct{} // tasks waiting for the loop, FIFO
	done  chan struct{}   // closed by Stop

	tasks     sync.WaitGroup
	waitOnce  sync.Once
	tasksDone chan struct{} // closed once every task goroutine returned
	live      atomic.Int32
}

func New(opts Options) *Loop {
	if opts.Name == "" {
		opts.Name = "loop"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	log := opts.Logger.With(slog.String("loop", opts.Name))
	if opts.OnPanic == nil {
		opts.OnPanic = func(recovered any, stack []byte, task string) {
			log.Error("task panicked", slog.String("task", task), slog.Any("recovered", recovered), slog.String("stack", string(stack)))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		name:      opts.Name,
		log:       log,
		metrics:   opts.Metrics,
		onPanic:   opts.OnPanic,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		tasksDone: make(chan struct{}),
	}
}

func (l *Loop) Name() string { return l.name }

// Done is closed once the loop is stopped.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Spawn schedules f as a new task. Spawn never blocks; the task starts once the
// loop is running and every task spawned before it had its turn. Spawning on a
// stopped loop returns a task that already failed with ErrStopped.
func (l *Loop) Spawn(name string, f TaskFunc) *Task {
	ctx, cancel := context.WithCancel(l.ctx)
	t := &Task{
		name:   name,
		loop:   l,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	wake, err := l.enqueue(true)
	if err != nil {
		cancel()
		t.finish(err)
		return t
	}

	l.metrics.TaskInflight(l.name, int(l.live.Add(1)))
	go l.runTask(t, wake, f)
	return t
}

// RunUntilComplete runs the loop until main finished and stops it afterwards,
// abandoning every other task. It returns main's error, or ErrStopped if the
// loop was stopped before main finished.
func (l *Loop) RunUntilComplete(main *Task) error {
	if main.loop != l {
		return ErrForeignTask
	}
	main.observed.Store(true)

	if err := l.start(); err != nil {
		return err
	}

	select {
	case <-main.Done():
	case <-l.done:
	}
	l.Stop()

	select {
	case <-main.Done():
		return main.Err()
	default:
		return ErrStopped
	}
}

// RunForever runs the loop until Stop is called.
func (l *Loop) RunForever() error {
	if err := l.start(); err != nil {
		return err
	}
	<-l.done
	return nil
}

// Stop stops the loop. Tasks waiting for their turn are abandoned, suspended
// tasks have their context cancelled. A task holding the loop runs on until
// its next suspension point. Stop is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state == stateStopped {
		l.mu.Unlock()
		return
	}
	l.state = stateStopped
	abandoned := len(l.ready)
	l.ready = nil
	close(l.done)
	l.mu.Unlock()

	l.cancel()
	l.log.Debug("loop stopped", slog.Int("abandoned", abandoned))
}

// Wait blocks until the loop stopped and every task goroutine has returned,
// or ctx is done. All calls share one watcher goroutine, which stays until the
// last abandoned task returns.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-l.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// no task is tracked after Stop, so the WaitGroup only counts down now
	l.waitOnce.Do(func() {
		go func() {
			l.tasks.Wait()
			close(l.tasksDone)
		}()
	})

	select {
	case <-l.tasksDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- internals ----

func (l *Loop) start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case stateRunning:
		return ErrAlreadyRunning
	case stateStopped:
		return ErrStopped
	}
	l.state = stateRunning
	if !l.busy {
		l.handoffLocked()
	}
	l.log.Debug("loop started", slog.Int("ready", len(l.ready)))
	return nil
}

// enqueue registers a task that wants the loop. The returned channel is
// closed when the loop is handed over. Tracked waiters are new tasks.
func (l *Loop) enqueue(track bool) (chan struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == stateStopped {
		return nil, ErrStopped
	}

	wake := make(chan struct{})
	if l.state == stateRunning && !l.busy {
		l.busy = true
		close(wake)
	} else {
		l.ready = append(l.ready, wake)
	}
	if track {
		l.tasks.Add(1)
	}
	return wake, nil
}

// wait blocks until the loop was handed over through wake.
func (l *Loop) wait(wake chan struct{}) error {
	select {
	case <-wake:
	case <-l.done:
		// a handoff may have raced with Stop
		select {
		case <-wake:
			l.release()
		default:
		}
		return ErrStopped
	}

	if l.stopped() {
		l.release()
		return ErrStopped
	}
	return nil
}

// release hands the loop to the next waiting task, if any.
func (l *Loop) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handoffLocked()
}

func (l *Loop) handoffLocked() {
	if l.state != stateRunning || len(l.ready) == 0 {
		l.busy = false
		return
	}
	next := l.ready[0]
	l.ready[0] = nil
	l.ready = l.ready[1:]
	l.busy = true
	close(next)
}

func (l *Loop) stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateStopped
}

func (l *Loop) runTask(t *Task, wake chan struct{}, f TaskFunc) {
	defer l.tasks.Done()

	tc := &taskCtx{
		Context: t.ctx,
		log:     l.log.With(slog.String("task", t.name)),
		loop:    l,
		task:    t,
	}

	var err error
	defer func() {
		t.cancel()
		l.metrics.TaskInflight(l.name, int(l.live.Add(-1)))
		t.finish(err)
		l.reportFailure(t, err)
	}()

	if err = l.wait(wake); err != nil {
		return
	}
	tc.holding = true

	err = l.call(tc, f)

	if tc.holding {
		tc.holding = false
		l.release()
	}
}

func (l *Loop) call(tc *taskCtx, f TaskFunc) (err error) {
	defer l.metrics.TaskDuration().ObserveDuration()

	defer func() {
		if r := recover(); r != nil {
			l.metrics.TaskCompleted(false)
			l.metrics.TaskPanic(l.name)
			l.onPanic(r, debug.Stack(), tc.task.name)
			err = fmt.Errorf("%w: %s: %v", ErrTaskPanicked, tc.task.name, r)
		}
	}()

	err = f(tc)
	l.metrics.TaskCompleted(err == nil)
	return err
}

// reportFailure logs task errors nobody is going to look at.
func (l *Loop) reportFailure(t *Task, err error) {
	switch {
	case err == nil,
		t.observed.Load(),
		errors.Is(err, ErrStopped),
		errors.Is(err, ErrTaskPanicked),
		errors.Is(err, context.Canceled):
		return
	}
	l.log.Error("task failed", slog.String("task", t.name), slog.Any("error", err))
}
