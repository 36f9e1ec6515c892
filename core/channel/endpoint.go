package channel

import (
	"context"
	"log/slog"
	"sync"
)

// Endpoint is one side of a pair. Send and Recv may be called from any
// goroutine, but an endpoint is meant to be owned by a single worker.
type Endpoint struct {
	chans  *Context
	addr   string
	kind   Kind
	binder bool

	in  *inbox // closed by this endpoint
	out *inbox // closed by the peer

	closeOnce sync.Once
}

func (e *Endpoint) Addr() string { return e.addr }
func (e *Endpoint) Kind() Kind   { return e.kind }

// Len returns the number of inbound messages waiting to be received.
func (e *Endpoint) Len() int { return len(e.in.ch) }

// Send enqueues msg for the peer. It returns once the queue accepted the
// message, not once the peer processed it. A nil error means the message is
// in the peer's queue: the peer either receives it or drains it after Close.
func (e *Endpoint) Send(ctx context.Context, msg string) error {
	if isDone(e.in.done) {
		return ErrClosed
	}
	if !e.out.enter() {
		return ErrPeerGone
	}
	defer e.out.leave()

	select {
	case e.out.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.in.done:
		return ErrClosed
	case <-e.out.done:
		return ErrPeerGone
	}
}

// TrySend enqueues msg only if the queue has room right now.
func (e *Endpoint) TrySend(msg string) (bool, error) {
	if isDone(e.in.done) {
		return false, ErrClosed
	}
	if !e.out.enter() {
		return false, ErrPeerGone
	}
	defer e.out.leave()

	select {
	case e.out.ch <- msg:
		return true, nil
	default:
		return false, nil
	}
}

// Recv returns the next inbound message, suspending until one is available.
// After the peer closed, buffered messages are still delivered before
// ErrPeerGone is returned.
func (e *Endpoint) Recv(ctx context.Context) (string, error) {
	if isDone(e.in.done) {
		return "", ErrClosed
	}

	select {
	case msg := <-e.in.ch:
		return msg, nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-e.in.done:
		return "", ErrClosed
	case <-e.out.done:
		select {
		case msg := <-e.in.ch:
			return msg, nil
		default:
			return "", ErrPeerGone
		}
	}
}

// TryRecv returns a buffered message without waiting. It keeps working after
// Close so the owner can drain what was already accepted.
func (e *Endpoint) TryRecv() (string, bool) {
	select {
	case msg := <-e.in.ch:
		return msg, true
	default:
		return "", false
	}
}

// Close closes the endpoint. The peer's sends fail from now on; Close returns
// once sends that were already under way have settled, so a TryRecv loop
// after Close sees every message the peer was told was accepted. Close is
// idempotent.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() {
		e.in.close()
		e.chans.release(e)
		e.chans.log.Debug("endpoint closed", slog.String("addr", e.addr), slog.Bool("binder", e.binder))
	})
	return nil
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
