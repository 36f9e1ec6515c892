package channel

import "sync"

// inbox is one direction of a pair. Only the receiving endpoint closes it.
//
// Senders register before enqueueing and close waits for them, so once close
// returned every accepted message is in ch and nothing else will be.
type inbox struct {
	ch   chan string
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	senders sync.WaitGroup
}

func newInbox(hwm int) *inbox {
	return &inbox{
		ch:   make(chan string, hwm),
		done: make(chan struct{}),
	}
}

// enter registers a sender. It fails once the inbox is closed; callers must
// call leave after a successful enter.
func (b *inbox) enter() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.senders.Add(1)
	return true
}

func (b *inbox) leave() { b.senders.Done() }

// close wakes blocked senders and waits until they returned.
func (b *inbox) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	b.senders.Wait()
}
