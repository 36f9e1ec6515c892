package thread

import (
	"github.com/hastic-zzz/analytics/core/loop"
	"github.com/hastic-zzz/analytics/core/metrics"
)

// Metrics defines the metrics of a worker thread and its loop.
// All methods are thread-safe.
type Metrics interface {
	loop.Metrics

	ThreadRunning(thread string, running bool)

	// Messages
	MessageReceived(thread string)
	MessageSent(thread string)
	MailboxDepth(thread string, depth int)

	// Handlers
	HandlerDuration(thread string) metrics.Timer
	HandlerProcessed(thread string, success bool)
}

type nopMetrics struct {
	loop.Metrics
}

func (nopMetrics) ThreadRunning(string, bool)           {}
func (nopMetrics) MessageReceived(string)               {}
func (nopMetrics) MessageSent(string)                   {}
func (nopMetrics) MailboxDepth(string, int)             {}
func (nopMetrics) HandlerDuration(string) metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) HandlerProcessed(string, bool)        {}

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{Metrics: loop.NopMetrics()} }
