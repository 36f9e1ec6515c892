// Package thread hosts a worker with its own cooperative loop and talks to it
// only through an in-process channel.
//
// On Start a [Thread] creates a fresh [loop.Loop], connects a
// [channel.Endpoint] to the configured address and runs two tasks on the loop:
//
//   - a receive loop that spawns one [Behavior.OnMessageToThread] task per
//     inbound message
//   - the background task [Behavior.RunThread]
//
// With Options.RunUntilComplete the thread stops as soon as RunThread returns,
// dropping whatever was not handled yet. Otherwise it keeps dispatching until
// [Thread.Stop] or [Thread.Shutdown] is called.
//
// Handlers talk back through [Ctx.SendMessageFromThread]:
//
//	echo := thread.Funcs{
//	    OnMessage: func(tc thread.Ctx, msg string) error {
//	        return tc.SendMessageFromThread(strings.ToUpper(msg))
//	    },
//	}
//	th, err := thread.New(thread.Options{Channels: chans, Address: "inproc://echo"}, echo)
//
// Most users want the actor package, which owns the other end of the
// channel.
package thread
