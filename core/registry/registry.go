// Package registry keeps one actor per key, spawned on first use.
//
// Typical use-case: one analytics worker per analytic unit, where messages
// for a unit must stay in order but different units run side by side.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hastic-zzz/analytics/core/actor"
	"github.com/hastic-zzz/analytics/core/sf"
)

var (
	ErrClosed     = errors.New("registry: closed")
	ErrEmptyKey   = errors.New("registry: empty key")
	ErrNilFactory = errors.New("registry: nil factory")
)

// Factory returns a started actor for key.
type Factory func(key string) (*actor.Actor, error)

type Options struct {
	Factory Factory
	Logger  *slog.Logger

	// ShutdownTimeout bounds each actor's graceful shutdown on Remove and
	// Close. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// Registry maps keys to actors. An actor whose thread has stopped is
// replaced on the next Get.
type Registry struct {
	factory Factory
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	actors map[string]*actor.Actor
	order  []string // insertion order of keys
	closed bool

	create *sf.Singleflight[actor.Actor]
}

func New(opts Options) (*Registry, error) {
	if opts.Factory == nil {
		return nil, ErrNilFactory
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Registry{
		factory: opts.Factory,
		log:     opts.Logger.With(slog.String("component", "registry")),
		timeout: opts.ShutdownTimeout,
		actors:  make(map[string]*actor.Actor),
		create:  sf.New[actor.Actor](),
	}, nil
}

// Get returns the actor for key, spawning it if needed. Concurrent first
// calls for the same key share one spawn.
func (r *Registry) Get(key string) (*actor.Actor, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	a, ok := r.actors[key]
	r.mu.Unlock()
	if ok && !isDone(a) {
		return a, nil
	}

	return r.create.Do(key, func() (*actor.Actor, error) {
		return r.spawn(key)
	})
}

// Put sends message to key's actor.
func (r *Registry) Put(ctx context.Context, key, message string) error {
	a, err := r.Get(key)
	if err != nil {
		return err
	}
	return a.PutMessageToThread(ctx, message)
}

// Remove shuts key's actor down gracefully and forgets it. Unknown keys are
// ignored.
func (r *Registry) Remove(ctx context.Context, key string) error {
	r.mu.Lock()
	a, ok := r.actors[key]
	if ok {
		r.forgetLocked(key)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return r.shutdown(ctx, key, a)
}

// Keys returns the registered keys in the order they were first spawned.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actors)
}

// Close stops accepting keys and shuts every actor down concurrently. It
// returns the first shutdown error. Close is idempotent.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	actors := r.actors
	r.actors = map[string]*actor.Actor{}
	r.order = nil
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for key, a := range actors {
		g.Go(func() error {
			return r.shutdown(gctx, key, a)
		})
	}
	return g.Wait()
}

func (r *Registry) spawn(key string) (*actor.Actor, error) {
	r.mu.Lock()
	if old, ok := r.actors[key]; ok {
		if !isDone(old) {
			r.mu.Unlock()
			return old, nil
		}
		r.forgetLocked(key)
		r.log.Debug("replacing stopped actor", slog.String("key", key), slog.Any("error", old.Err()))
		old.Close()
	}
	r.mu.Unlock()

	a, err := r.factory(key)
	if err != nil {
		return nil, fmt.Errorf("spawn actor %q: %w", key, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		a.Close()
		return nil, ErrClosed
	}
	r.actors[key] = a
	r.order = append(r.order, key)
	r.log.Debug("actor spawned", slog.String("key", key), slog.String("thread", a.Name()))
	return a, nil
}

func (r *Registry) shutdown(ctx context.Context, key string, a *actor.Actor) error {
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		r.log.Warn("actor shutdown timed out", slog.String("key", key), slog.Any("error", err))
		return fmt.Errorf("shutdown actor %q: %w", key, err)
	}
	return nil
}

func (r *Registry) forgetLocked(key string) {
	delete(r.actors, key)
	r.order = slices.DeleteFunc(r.order, func(k string) bool { return k == key })
}

func isDone(a *actor.Actor) bool {
	select {
	case <-a.Done():
		return true
	default:
		return false
	}
}
