package actor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hastic-zzz/analytics/core/channel"
	"github.com/hastic-zzz/analytics/core/thread"
)

// ThreadAddr is where an actor and its worker meet. Every actor has its own
// channel context, so the same address is reused by all of them.
const ThreadAddr = "inproc://actor-thread"

// Actor is a worker thread plus the spawner's end of its channel. The embedded
// Thread provides Start, Stop, Shutdown, Done, Err, State and Name.
type Actor struct {
	*thread.Thread

	chans    *channel.Context
	endpoint *channel.Endpoint
}

// New creates the actor and binds its endpoint. The worker is not started.
func New(b thread.Behavior, opts ...Option) (*Actor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	chans := channel.NewContext(channel.ContextOptions{
		HighWaterMark: o.highWaterMark,
		Logger:        o.logger,
	})

	ep, err := chans.Bind(channel.Pair, ThreadAddr)
	if err != nil {
		_ = chans.Close()
		return nil, fmt.Errorf("bind actor endpoint: %w", err)
	}

	th, err := thread.New(thread.Options{
		Name:                o.name,
		RunUntilComplete:    o.completionMode,
		Channels:            chans,
		Address:             ThreadAddr,
		Kind:                channel.Pair,
		Logger:              o.logger,
		Metrics:             o.metrics,
		OnPanic:             o.onPanic,
		MaxInflightHandlers: o.maxInflight,
		DrainTimeout:        o.drainTimeout,
	}, b)
	if err != nil {
		_ = chans.Close()
		return nil, err
	}

	return &Actor{
		Thread:   th,
		chans:    chans,
		endpoint: ep,
	}, nil
}

// Spawn creates and starts an actor.
func Spawn(b thread.Behavior, opts ...Option) (*Actor, error) {
	a, err := New(b, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.Start(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Channels returns the actor's private channel context. The worker sees the
// same context through thread.Ctx.Channels, so both sides can open further
// pairs on it. Addresses other than ThreadAddr are free.
func (a *Actor) Channels() *channel.Context { return a.chans }

// PutMessageToThread queues message for the worker's OnMessageToThread. It
// returns once the mailbox accepted the message; it cannot wait for the
// handler, which runs independently on the worker. After the worker stopped
// it fails with channel.ErrPeerGone.
func (a *Actor) PutMessageToThread(ctx context.Context, message string) error {
	if err := a.endpoint.Send(ctx, message); err != nil {
		return fmt.Errorf("put to %s: %w", a.Name(), err)
	}
	return nil
}

// RecvMessageFromThread returns the next message the worker sent with
// SendMessageFromThread. Messages sent before the worker stopped can still be
// received; after that it fails with channel.ErrPeerGone.
func (a *Actor) RecvMessageFromThread(ctx context.Context) (string, error) {
	msg, err := a.endpoint.Recv(ctx)
	if err != nil {
		return "", fmt.Errorf("recv from %s: %w", a.Name(), err)
	}
	return msg, nil
}

// Close stops the worker and releases the actor's channel context. Pending
// messages in both directions are dropped.
func (a *Actor) Close() {
	a.Stop()
	_ = a.chans.Close()
}
