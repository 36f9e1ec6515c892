// Package actor runs a thread.Behavior on its own worker and gives the
// spawning goroutine a private, bidirectional mailbox to it.
//
// Each Actor owns a private channel context. It binds its end of the pair
// before the worker starts, so the worker always finds the rendezvous.
//
//	type pinger struct{}
//
//	func (pinger) RunThread(tc thread.Ctx) error { return nil }
//
//	func (pinger) OnMessageToThread(tc thread.Ctx, msg string) error {
//	    return tc.SendMessageFromThread("pong: " + msg)
//	}
//
//	a, err := actor.Spawn(pinger{}, actor.WithCompletionMode(false))
//	if err != nil {
//	    return err
//	}
//	defer a.Stop()
//
//	_ = a.PutMessageToThread(ctx, "ping")
//	reply, _ := a.RecvMessageFromThread(ctx) // "pong: ping"
//
// PutMessageToThread is fire-and-forget: it returns once the message is
// queued, the handler runs later and independently on the worker. Messages
// keep their order per direction; the two directions are unrelated streams.
package actor
