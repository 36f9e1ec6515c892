package loop

import "github.com/hastic-zzz/analytics/core/metrics"

// Metrics defines the scheduler metrics. All methods are thread-safe.
type Metrics interface {
	TaskInflight(loop string, count int)
	TaskDuration() metrics.Timer
	TaskCompleted(success bool)
	TaskPanic(loop string)
}

type nopMetrics struct{}

func (nopMetrics) TaskInflight(string, int)    {}
func (nopMetrics) TaskDuration() metrics.Timer { return metrics.NopTimer() }
func (nopMetrics) TaskCompleted(bool)          {}
func (nopMetrics) TaskPanic(string)            {}

// NopMetrics returns a no-op Metrics implementation.
func NopMetrics() Metrics { return nopMetrics{} }
