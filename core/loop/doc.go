// Package loop provides a single-threaded cooperative scheduler.
//
// A [Loop] runs any number of tasks, but only one of them holds the loop at a
// time. A task keeps the loop until it suspends through its [Ctx]:
//
//   - [Ctx.Await] releases the loop, runs a blocking operation and then queues
//     up to get the loop back
//   - [Ctx.Sleep] and [Ctx.Yield] are Await shortcuts
//
// Everything between two suspension points runs without interference from the
// other tasks of the same loop, so state owned by a loop needs no locks.
// Different loops run in parallel.
//
// Runnable tasks get the loop in FIFO order, so tasks start in the order they
// were spawned.
//
// # Running
//
//	l := loop.New(loop.Options{Name: "worker"})
//	main := l.Spawn("main", func(tc loop.Ctx) error {
//	    tc.Spawn("ticker", tick)
//	    return tc.Sleep(time.Second)
//	})
//	err := l.RunUntilComplete(main) // stops once main returns
//
// [Loop.RunForever] keeps running until [Loop.Stop] is called. Stopping
// abandons every task that has not finished: waiting tasks never run again and
// suspended tasks get [ErrStopped] from Await.
//
// # Failures
//
// A task that returns an error or panics never takes the loop down. Panics are
// recovered and reported through [Options.OnPanic]; errors of tasks nobody
// waits on are logged.
package loop
