package channel

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultHighWaterMark is the per-direction queue capacity used when
// ContextOptions.HighWaterMark is not set.
const DefaultHighWaterMark = 1000

type ContextOptions struct {
	// HighWaterMark caps the number of messages queued per direction.
	// Send suspends while the queue is full.
	HighWaterMark int
	Logger        *slog.Logger
}

// Context owns a set of addresses and creates endpoints bound or connected to
// them. It is safe for concurrent use.
type Context struct {
	mu     sync.Mutex
	log    *slog.Logger
	hwm    int
	closed bool
	pipes  map[string]*pipe
}

// pipe is the rendezvous behind one bound address.
type pipe struct {
	addr      string
	bound     *Endpoint
	connected *Endpoint

	// both directions exist from bind time on
	toBinder    *inbox
	toConnector *inbox
}

func NewContext(opts ContextOptions) *Context {
	if opts.HighWaterMark <= 0 {
		opts.HighWaterMark = DefaultHighWaterMark
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Context{
		log:   opts.Logger.With(slog.String("component", "channel")),
		hwm:   opts.HighWaterMark,
		pipes: make(map[string]*pipe),
	}
}

// Bind creates an endpoint that owns addr until it is closed. The peer may
// connect later; messages sent before that are buffered.
func (c *Context) Bind(kind Kind, addr string) (*Endpoint, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseAddress(addr); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrContextClosed
	}
	if _, ok := c.pipes[addr]; ok {
		return nil, fmt.Errorf("bind %s: %w", addr, ErrAddressInUse)
	}

	p := &pipe{
		addr:        addr,
		toBinder:    newInbox(c.hwm),
		toConnector: newInbox(c.hwm),
	}
	p.bound = &Endpoint{
		chans:  c,
		addr:   addr,
		kind:   kind,
		in:     p.toBinder,
		out:    p.toConnector,
		binder: true,
	}
	c.pipes[addr] = p

	c.log.Debug("bound", slog.String("addr", addr), slog.String("kind", kind.String()))
	return p.bound, nil
}

// Connect creates the second endpoint of the pair bound at addr.
func (c *Context) Connect(kind Kind, addr string) (*Endpoint, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseAddress(addr); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrContextClosed
	}
	p, ok := c.pipes[addr]
	if !ok {
		return nil, fmt.Errorf("connect %s: %w", addr, ErrConnectionRefused)
	}
	if p.bound.kind != kind {
		return nil, fmt.Errorf("connect %s: %w: bound as %s", addr, ErrUnsupportedKind, p.bound.kind)
	}
	if p.connected != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, ErrAlreadyConnected)
	}

	p.connected = &Endpoint{
		chans: c,
		addr:  addr,
		kind:  kind,
		in:    p.toConnector,
		out:   p.toBinder,
	}

	c.log.Debug("connected", slog.String("addr", addr))
	return p.connected, nil
}

// Close terminates the context and closes every endpoint it created.
// Close is idempotent.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	endpoints := make([]*Endpoint, 0, 2*len(c.pipes))
	for addr, p := range c.pipes {
		endpoints = append(endpoints, p.bound)
		if p.connected != nil {
			endpoints = append(endpoints, p.connected)
		}
		delete(c.pipes, addr)
	}
	c.mu.Unlock()

	for _, e := range endpoints {
		_ = e.Close()
	}

	c.log.Debug("closed")
	return nil
}

// release frees the address of a closing binder. Connected endpoints keep the
// pair occupied: a pair is never re-connected.
func (c *Context) release(e *Endpoint) {
	if !e.binder {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pipes[e.addr]; ok && p.bound == e {
		delete(c.pipes, e.addr)
	}
}
