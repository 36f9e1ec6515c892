package actor

import (
	"log/slog"
	"time"

	"github.com/hastic-zzz/analytics/core/loop"
	"github.com/hastic-zzz/analytics/core/thread"
)

// Option configures an Actor.
type Option func(*options)

type options struct {
	name           string
	completionMode bool
	logger         *slog.Logger
	metrics        thread.Metrics
	onPanic        loop.OnPanic
	highWaterMark  int
	maxInflight    int
	drainTimeout   time.Duration
}

func defaultOptions() options {
	return options{completionMode: true}
}

// WithCompletionMode selects whether the worker stops once RunThread returned
// (true, the default) or keeps handling messages until stopped (false).
func WithCompletionMode(enabled bool) Option {
	return func(o *options) { o.completionMode = enabled }
}

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.logger = log }
}

func WithMetrics(m thread.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithOnPanic sets the hook called when a handler or RunThread panics.
func WithOnPanic(f loop.OnPanic) Option {
	return func(o *options) { o.onPanic = f }
}

// WithHighWaterMark sets the per-direction mailbox capacity.
func WithHighWaterMark(n int) Option {
	return func(o *options) { o.highWaterMark = n }
}

// WithMaxInflightHandlers caps concurrently live handler tasks.
func WithMaxInflightHandlers(n int) Option {
	return func(o *options) { o.maxInflight = n }
}

// WithDrainTimeout bounds the wait for abandoned tasks when the worker stops.
func WithDrainTimeout(d time.Duration) Option {
	return func(o *options) { o.drainTimeout = d }
}
