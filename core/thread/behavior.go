package thread

import (
	"github.com/hastic-zzz/analytics/core/channel"
	"github.com/hastic-zzz/analytics/core/loop"
)

// Behavior is what a concrete worker thread does. Both methods run as tasks on
// the thread's loop and may suspend through tc.
type Behavior interface {
	// OnMessageToThread is called once per inbound message, each call in its
	// own task. A handler that suspends does not hold up message reception.
	OnMessageToThread(tc Ctx, message string) error

	// RunThread is the thread's primary job. In completion mode the thread
	// stops when it returns.
	RunThread(tc Ctx) error
}

// Ctx is the task context handed to a Behavior.
type Ctx interface {
	loop.Ctx

	ThreadName() string

	// Channels is the context the thread's own endpoint lives in. Behaviors
	// may bind or connect further endpoints with it.
	Channels() *channel.Context

	// SendMessageFromThread sends message to whatever is connected at the
	// other end of the thread's channel. It suspends until the channel
	// accepted the message.
	SendMessageFromThread(message string) error
}

// Funcs adapts plain functions to a Behavior. Nil functions do nothing.
type Funcs struct {
	OnMessage func(tc Ctx, message string) error
	Run       func(tc Ctx) error
}

func (f Funcs) OnMessageToThread(tc Ctx, message string) error {
	if f.OnMessage == nil {
		return nil
	}
	return f.OnMessage(tc, message)
}

func (f Funcs) RunThread(tc Ctx) error {
	if f.Run == nil {
		return nil
	}
	return f.Run(tc)
}

var _ Behavior = Funcs{}
