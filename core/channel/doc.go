// Package channel provides ordered, reliable, point-to-point in-process message
// channels between exactly two endpoints.
//
// A [Context] is a registry of addresses. One side binds an address, the other
// side connects to it, and from then on the two [Endpoint] values exchange text
// messages in FIFO order per direction:
//
//	chans := channel.NewContext(channel.ContextOptions{})
//	defer chans.Close()
//
//	a, err := chans.Bind(channel.Pair, "inproc://jobs")
//	if err != nil {
//	    return err
//	}
//	b, err := chans.Connect(channel.Pair, "inproc://jobs")
//	if err != nil {
//	    return err
//	}
//
//	_ = a.Send(ctx, "hello")
//	msg, _ := b.Recv(ctx) // "hello"
//
// Each direction is an independent queue bounded by the context's high-water
// mark. Send suspends while the queue is full. Binding creates both queues, so
// the binder may send before the peer has connected.
//
// Closing an endpoint makes the peer's sends fail with [ErrPeerGone]. The peer
// can still receive everything that was buffered before the close.
package channel
