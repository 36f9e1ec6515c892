package sf

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unit struct{ id string }

func TestSingleflight_shares_result(t *testing.T) {
	s := New[unit]()

	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*unit, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := s.Do("k", func() (*unit, error) {
				calls.Add(1)
				<-release
				return &unit{id: "k"}, nil
			})
			assert.NoError(t, err)
			results[i] = u
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, u := range results {
		require.Same(t, results[0], u)
	}
}

func TestSingleflight_error(t *testing.T) {
	s := New[unit]()
	boom := errors.New("boom")

	u, err := s.Do("k", func() (*unit, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.Nil(t, u)

	// not cached
	u, err = s.Do("k", func() (*unit, error) { return &unit{id: "again"}, nil })
	require.NoError(t, err)
	require.Equal(t, "again", u.id)
}
