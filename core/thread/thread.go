package thread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/hastic-zzz/analytics/core/channel"
	"github.com/hastic-zzz/analytics/core/loop"
)

type Options struct {
	// Name identifies the thread in logs and metrics. Defaults to thread-<id>.
	Name string

	// RunUntilComplete stops the thread once RunThread returned. Pending and
	// future messages are dropped. When false the thread keeps dispatching
	// messages until it is stopped.
	RunUntilComplete bool

	// Channels is the shared context the thread connects its endpoint with.
	Channels *channel.Context
	Address  string
	Kind     channel.Kind

	Logger  *slog.Logger
	Metrics Metrics
	OnPanic loop.OnPanic

	// MaxInflightHandlers caps the number of live OnMessageToThread tasks.
	// The receive loop stops receiving while the cap is reached.
	// If 0 or negative, it is unlimited.
	MaxInflightHandlers int

	// DrainTimeout bounds how long a stopping thread waits for abandoned
	// task goroutines to return. Defaults to one second.
	DrainTimeout time.Duration
}

// Thread hosts a Behavior on its own goroutine with its own loop.
type Thread struct {
	name     string
	opts     Options
	behavior Behavior
	log      *slog.Logger
	metrics  Metrics

	mu    sync.Mutex
	state State

	// set by the driver goroutine before Start returns
	loop     *loop.Loop
	endpoint *channel.Endpoint
	recvTask *loop.Task
	mainTask *loop.Task

	drainCtx    context.Context
	drainCancel context.CancelFunc
	slots       chan struct{}

	handlersMu sync.Mutex
	handlers   map[*loop.Task]struct{}

	// tail of the blocked sends, only touched while holding the loop
	lastSend chan struct{}

	done chan struct{}
	err  error
}

// New validates opts and creates a thread in state Created.
func New(opts Options, b Behavior) (*Thread, error) {
	if b == nil {
		return nil, ErrNilBehavior
	}
	if opts.Channels == nil {
		return nil, ErrNilChannels
	}
	if _, err := channel.ParseAddress(opts.Address); err != nil {
		return nil, err
	}
	if err := opts.Kind.Validate(); err != nil {
		return nil, err
	}

	if opts.Name == "" {
		opts.Name = fmt.Sprintf("thread-%s", gonanoid.Must(6))
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopMetrics()
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = time.Second
	}

	t := &Thread{
		name:     opts.Name,
		opts:     opts,
		behavior: b,
		log:      opts.Logger.With(slog.String("thread", opts.Name)),
		metrics:  opts.Metrics,
		state:    StateCreated,
		handlers: make(map[*loop.Task]struct{}),
		done:     make(chan struct{}),
	}
	t.drainCtx, t.drainCancel = context.WithCancel(context.Background())
	if opts.MaxInflightHandlers > 0 {
		t.slots = make(chan struct{}, opts.MaxInflightHandlers)
	}
	return t, nil
}

func (t *Thread) Name() string { return t.name }

func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed when the thread stopped.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Err returns why the thread stopped: RunThread's error in completion mode,
// the connect error if Start failed. Nil while running.
func (t *Thread) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Start launches the thread. It returns once the thread connected its
// endpoint; a connect failure is returned here.
func (t *Thread) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateCreated {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyStarted, t.name, t.state)
	}

	started := make(chan error, 1)
	go t.run(started)

	if err := <-started; err != nil {
		t.state = StateStopped
		return fmt.Errorf("start %s: %w", t.name, err)
	}
	t.state = StateRunning
	return nil
}

// Stop stops the thread abruptly: queued messages are dropped and unfinished
// tasks are abandoned. It waits until the thread is gone. Stop is idempotent.
func (t *Thread) Stop() {
	t.mu.Lock()
	switch t.state {
	case StateCreated:
		t.state = StateStopped
		close(t.done)
	case StateRunning, StateStopping:
		t.state = StateStopping
		l := t.loop
		t.mu.Unlock()
		l.Stop()
		<-t.done
		return
	}
	t.mu.Unlock()
	<-t.done
}

// Shutdown stops the thread gracefully. It stops receiving, closes the
// endpoint so the peer's sends fail, dispatches the messages that were already
// queued, waits for every handler, then cancels RunThread and waits for it.
// If ctx ends first the thread is stopped like Stop and ctx's error returned.
func (t *Thread) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case StateCreated:
		t.state = StateStopped
		close(t.done)
	case StateRunning:
		t.state = StateStopping
		t.beginShutdown()
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		t.log.Warn("shutdown timed out, stopping", slog.Any("error", ctx.Err()))
		t.Stop()
		return ctx.Err()
	}
}

// ---- internals ----

func (t *Thread) run(started chan<- error) {
	defer close(t.done)

	l := loop.New(loop.Options{
		Name:    t.name,
		Logger:  t.opts.Logger,
		Metrics: t.metrics,
		OnPanic: t.opts.OnPanic,
	})

	ep, err := t.opts.Channels.Connect(t.opts.Kind, t.opts.Address)
	if err != nil {
		l.Stop()
		t.err = err
		started <- err
		return
	}

	t.loop = l
	t.endpoint = ep
	t.recvTask = l.Spawn("receive", t.receiveLoop)
	t.mainTask = l.Spawn("run_thread", func(tc loop.Ctx) error {
		return t.behavior.RunThread(t.threadCtx(tc))
	})
	started <- nil

	t.metrics.ThreadRunning(t.name, true)
	t.log.Debug("thread started",
		slog.String("addr", t.opts.Address),
		slog.Bool("run_until_complete", t.opts.RunUntilComplete),
	)

	if t.opts.RunUntilComplete {
		err = l.RunUntilComplete(t.mainTask)
	} else {
		err = l.RunForever()
	}

	_ = ep.Close()
	t.drainCancel()

	ctx, cancel := context.WithTimeout(context.Background(), t.opts.DrainTimeout)
	if werr := l.Wait(ctx); werr != nil {
		t.log.Warn("abandoned tasks did not return", slog.Duration("timeout", t.opts.DrainTimeout))
	}
	cancel()

	t.metrics.ThreadRunning(t.name, false)
	t.mu.Lock()
	t.state = StateStopped
	t.mu.Unlock()
	t.err = err

	t.log.Debug("thread stopped", slog.Any("error", err))
}

// receiveLoop dispatches every inbound message to a new handler task. It
// only ends when the loop stops, the peer goes away or a shutdown drains it.
func (t *Thread) receiveLoop(tc loop.Ctx) error {
	for {
		var msg string
		err := tc.Await(func(ctx context.Context) (err error) {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			stop := context.AfterFunc(t.drainCtx, cancel)
			defer stop()

			msg, err = t.endpoint.Recv(ctx)
			return err
		})
		if err != nil {
			return t.endReceive(tc, err)
		}

		if err := t.dispatch(tc, msg); err != nil {
			return err
		}
	}
}

func (t *Thread) endReceive(tc loop.Ctx, err error) error {
	switch {
	case errors.Is(err, loop.ErrStopped):
		return err
	case t.drainCtx.Err() != nil:
		return t.drain(tc)
	case errors.Is(err, channel.ErrPeerGone):
		tc.Log().Debug("peer closed, receive loop ends")
		return nil
	default:
		return fmt.Errorf("receive: %w", err)
	}
}

// drain closes the endpoint and dispatches what was already queued.
func (t *Thread) drain(tc loop.Ctx) error {
	_ = t.endpoint.Close()

	n := 0
	for {
		msg, ok := t.endpoint.TryRecv()
		if !ok {
			break
		}
		if err := t.dispatch(tc, msg); err != nil {
			return err
		}
		n++
	}
	tc.Log().Debug("receive loop drained", slog.Int("messages", n))
	return nil
}

func (t *Thread) dispatch(tc loop.Ctx, msg string) error {
	t.metrics.MessageReceived(t.name)
	t.metrics.MailboxDepth(t.name, t.endpoint.Len())

	if t.slots != nil {
		err := tc.Await(func(ctx context.Context) error {
			select {
			case t.slots <- struct{}{}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return err
		}
	}

	task := tc.Spawn("on_message", func(tc loop.Ctx) error {
		defer t.untrack(tc.Task())
		if t.slots != nil {
			defer func() { <-t.slots }()
		}
		defer t.metrics.HandlerDuration(t.name).ObserveDuration()

		err := t.behavior.OnMessageToThread(t.threadCtx(tc), msg)
		t.metrics.HandlerProcessed(t.name, err == nil)
		return err
	})

	// The dispatcher holds the loop, so a task that is already done was never
	// started.
	select {
	case <-task.Done():
		if t.slots != nil {
			<-t.slots
		}
		return task.Err()
	default:
		t.track(task)
		return nil
	}
}

func (t *Thread) beginShutdown() {
	t.log.Debug("shutting down")
	t.drainCancel()

	t.loop.Spawn("shutdown", func(tc loop.Ctx) error {
		err := tc.Await(func(ctx context.Context) error {
			return waitFor(ctx, t.recvTask.Done())
		})
		if err != nil {
			return err
		}

		pending := t.liveHandlers()
		err = tc.Await(func(ctx context.Context) error {
			for _, h := range pending {
				if err := waitFor(ctx, h.Done()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		t.mainTask.Cancel()
		err = tc.Await(func(ctx context.Context) error {
			return waitFor(ctx, t.mainTask.Done())
		})
		if err != nil {
			return err
		}

		tc.Loop().Stop()
		return nil
	})
}

// send delivers message without suspending when the channel has room and
// nothing is queued ahead of it. Otherwise it waits behind the previous
// blocked send, so messages leave in the order the tasks sent them.
func (t *Thread) send(tc loop.Ctx, message string) error {
	prev := t.lastSend
	if prev == nil || isClosed(prev) {
		ok, err := t.endpoint.TrySend(message)
		if err != nil || ok {
			return err
		}
	}

	mine := make(chan struct{})
	t.lastSend = mine
	return tc.Await(func(ctx context.Context) error {
		defer close(mine)
		if prev != nil {
			if err := waitFor(ctx, prev); err != nil {
				return err
			}
		}
		return t.endpoint.Send(ctx, message)
	})
}

func (t *Thread) track(task *loop.Task) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	t.handlers[task] = struct{}{}
}

func (t *Thread) untrack(task *loop.Task) {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	delete(t.handlers, task)
}

func (t *Thread) liveHandlers() []*loop.Task {
	t.handlersMu.Lock()
	defer t.handlersMu.Unlock()
	out := make([]*loop.Task, 0, len(t.handlers))
	for h := range t.handlers {
		out = append(out, h)
	}
	return out
}

func (t *Thread) threadCtx(tc loop.Ctx) Ctx {
	return &threadCtx{Ctx: tc, t: t}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func waitFor(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type threadCtx struct {
	loop.Ctx
	t *Thread
}

func (tc *threadCtx) ThreadName() string { return tc.t.name }

func (tc *threadCtx) Channels() *channel.Context { return tc.t.opts.Channels }

func (tc *threadCtx) SendMessageFromThread(message string) error {
	if err := tc.t.send(tc, message); err != nil {
		return fmt.Errorf("send from %s: %w", tc.t.name, err)
	}
	tc.t.metrics.MessageSent(tc.t.name)
	return nil
}

var _ Ctx = (*threadCtx)(nil)
