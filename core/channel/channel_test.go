package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestPair(t *testing.T, opts ContextOptions) (*Context, *Endpoint, *Endpoint) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	c := NewContext(opts)
	t.Cleanup(func() { _ = c.Close() })

	a, err := c.Bind(Pair, "inproc://test")
	require.NoError(t, err)
	b, err := c.Connect(Pair, "inproc://test")
	require.NoError(t, err)
	return c, a, b
}

func TestParseAddress(t *testing.T) {
	name, err := ParseAddress("inproc://worker-1")
	require.NoError(t, err)
	require.Equal(t, "worker-1", name)

	for _, addr := range []string{"", "inproc://", "tcp://localhost:1", "inproc://a b", "worker"} {
		_, err := ParseAddress(addr)
		require.ErrorIs(t, err, ErrInvalidAddress, addr)
	}
}

func TestContext_bind_connect_errors(t *testing.T) {
	c := NewContext(ContextOptions{})
	defer c.Close()

	_, err := c.Connect(Pair, "inproc://nobody")
	require.ErrorIs(t, err, ErrConnectionRefused)

	_, err = c.Bind(Pair, "not-an-address")
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = c.Bind(Kind(7), "inproc://x")
	require.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = c.Bind(Pair, "inproc://x")
	require.NoError(t, err)
	_, err = c.Bind(Pair, "inproc://x")
	require.ErrorIs(t, err, ErrAddressInUse)

	_, err = c.Connect(Pair, "inproc://x")
	require.NoError(t, err)
	_, err = c.Connect(Pair, "inproc://x")
	require.ErrorIs(t, err, ErrAlreadyConnected)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.Bind(Pair, "inproc://y")
	require.ErrorIs(t, err, ErrContextClosed)
}

func TestContext_rebind_after_close(t *testing.T) {
	c := NewContext(ContextOptions{})
	defer c.Close()

	a, err := c.Bind(Pair, "inproc://x")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = c.Bind(Pair, "inproc://x")
	require.NoError(t, err)
}

func TestEndpoint_fifo(t *testing.T) {
	const n = 10_000
	_, a, b := newTestPair(t, ContextOptions{HighWaterMark: 64})

	go func() {
		for i := 0; i < n; i++ {
			if err := a.Send(t.Context(), fmt.Sprintf("m%d", i)); err != nil {
				return
			}
		}
	}()

	for i := 0; i < n; i++ {
		msg, err := b.Recv(t.Context())
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("m%d", i), msg)
	}
}

func TestEndpoint_directions_are_independent(t *testing.T) {
	_, a, b := newTestPair(t, ContextOptions{})

	require.NoError(t, a.Send(t.Context(), "to-b"))
	require.NoError(t, b.Send(t.Context(), "to-a"))

	msg, err := a.Recv(t.Context())
	require.NoError(t, err)
	require.Equal(t, "to-a", msg)

	msg, err = b.Recv(t.Context())
	require.NoError(t, err)
	require.Equal(t, "to-b", msg)

	_, ok := a.TryRecv()
	require.False(t, ok)
}

func TestEndpoint_send_before_connect(t *testing.T) {
	c := NewContext(ContextOptions{})
	defer c.Close()

	a, err := c.Bind(Pair, "inproc://early")
	require.NoError(t, err)
	require.NoError(t, a.Send(t.Context(), "early"))

	b, err := c.Connect(Pair, "inproc://early")
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())

	msg, err := b.Recv(t.Context())
	require.NoError(t, err)
	require.Equal(t, "early", msg)
}

func TestEndpoint_backpressure(t *testing.T) {
	_, a, _ := newTestPair(t, ContextOptions{HighWaterMark: 2})

	require.NoError(t, a.Send(t.Context(), "1"))
	require.NoError(t, a.Send(t.Context(), "2"))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Send(ctx, "3"), context.DeadlineExceeded)
}

func TestEndpoint_peer_closed(t *testing.T) {
	_, a, b := newTestPair(t, ContextOptions{})

	require.NoError(t, a.Send(t.Context(), "last"))
	require.NoError(t, a.Close())

	require.ErrorIs(t, b.Send(t.Context(), "x"), ErrPeerGone)

	msg, err := b.Recv(t.Context())
	require.NoError(t, err)
	require.Equal(t, "last", msg)

	_, err = b.Recv(t.Context())
	require.ErrorIs(t, err, ErrPeerGone)

	require.ErrorIs(t, a.Send(t.Context(), "x"), ErrClosed)
	_, err = a.Recv(t.Context())
	require.ErrorIs(t, err, ErrClosed)
}

func TestEndpoint_close_unblocks_recv(t *testing.T) {
	c, _, b := newTestPair(t, ContextOptions{})

	var wg sync.WaitGroup
	wg.Add(1)
	var recvErr error
	go func() {
		defer wg.Done()
		_, recvErr = b.Recv(context.Background())
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Close())
	wg.Wait()
	require.Error(t, recvErr)
}

func TestEndpoint_tryrecv_after_close(t *testing.T) {
	_, a, b := newTestPair(t, ContextOptions{})

	require.NoError(t, a.Send(t.Context(), "buffered"))
	require.NoError(t, b.Close())

	msg, ok := b.TryRecv()
	require.True(t, ok)
	require.Equal(t, "buffered", msg)
}

func TestEndpoint_trysend(t *testing.T) {
	_, a, b := newTestPair(t, ContextOptions{HighWaterMark: 1})

	ok, err := a.TrySend("1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.TrySend("2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, b.Close())
	_, err = a.TrySend("3")
	require.ErrorIs(t, err, ErrPeerGone)
}

func TestEndpoint_accepted_sends_survive_close(t *testing.T) {
	for iter := 0; iter < 200; iter++ {
		_, a, b := newTestPair(t, ContextOptions{HighWaterMark: 8})

		var (
			mu       sync.Mutex
			accepted = map[string]bool{}
			wg       sync.WaitGroup
		)
		for s := 0; s < 4; s++ {
			wg.Add(1)
			go func(s int) {
				defer wg.Done()
				for i := 0; ; i++ {
					msg := fmt.Sprintf("%d-%d", s, i)
					// recorded first, the receiver may see it before Send returns
					mu.Lock()
					accepted[msg] = true
					mu.Unlock()
					if err := a.Send(t.Context(), msg); err != nil {
						mu.Lock()
						delete(accepted, msg)
						mu.Unlock()
						return
					}
				}
			}(s)
		}

		// receive a little, then close and drain like a shutting down worker
		for i := 0; i < 5; i++ {
			msg, err := b.Recv(t.Context())
			require.NoError(t, err)
			mu.Lock()
			delete(accepted, msg)
			mu.Unlock()
		}
		require.NoError(t, b.Close())

		var drained []string
		for {
			msg, ok := b.TryRecv()
			if !ok {
				break
			}
			drained = append(drained, msg)
		}
		wg.Wait()

		mu.Lock()
		for _, msg := range drained {
			delete(accepted, msg)
		}
		require.Empty(t, accepted, "iteration %d: accepted but never drained", iter)
		mu.Unlock()
	}
}
