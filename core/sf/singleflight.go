package sf

import "golang.org/x/sync/singleflight"

// Singleflight deduplicates concurrent calls with the same key. Only the
// first caller runs fn; the others wait and share its result.
type Singleflight[T any] struct {
	group singleflight.Group
}

// Do runs fn for key unless a call for key is already in flight, in which
// case it waits for that call and returns its result.
func (s *Singleflight[T]) Do(key string, fn func() (*T, error)) (*T, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func New[T any]() *Singleflight[T] {
	return &Singleflight[T]{}
}
