package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hastic-zzz/analytics/core/metrics"
	"github.com/hastic-zzz/analytics/core/thread"
)

// threadMetrics implements thread.Metrics using Prometheus.
type threadMetrics struct {
	running          *prometheus.GaugeVec
	messagesReceived *prometheus.CounterVec
	messagesSent     *prometheus.CounterVec
	mailboxDepth     *prometheus.GaugeVec
	handlerDuration  *prometheus.HistogramVec
	handlersTotal    *prometheus.CounterVec

	taskInflight *prometheus.GaugeVec
	taskDuration prometheus.Histogram
	tasksTotal   *prometheus.CounterVec
	taskPanics   *prometheus.CounterVec
}

// NewThreadMetrics registers the thread and loop metrics with reg. One
// instance is meant to be shared by every thread of a process; threads are
// told apart by the thread label.
func NewThreadMetrics(reg prometheus.Registerer) thread.Metrics {
	m := &threadMetrics{
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "analytics_thread_running",
			Help: "1 while the worker thread is running",
		}, []string{"thread"}),

		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_thread_messages_received_total",
			Help: "Messages received by the worker thread",
		}, []string{"thread"}),

		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_thread_messages_sent_total",
			Help: "Messages sent from the worker thread",
		}, []string{"thread"}),

		mailboxDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "analytics_thread_mailbox_depth",
			Help: "Inbound messages queued when the last one was received",
		}, []string{"thread"}),

		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analytics_thread_handler_duration_seconds",
			Help:    "Message handler run time in seconds",
			Buckets: defaultBuckets,
		}, []string{"thread"}),

		handlersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_thread_handlers_total",
			Help: "Message handlers completed",
		}, []string{"thread", "success"}),

		taskInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "analytics_loop_tasks_inflight",
			Help: "Live tasks on the loop",
		}, []string{"loop"}),

		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analytics_loop_task_duration_seconds",
			Help:    "Task run time in seconds, suspensions included",
			Buckets: defaultBuckets,
		}),

		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_loop_tasks_total",
			Help: "Tasks completed",
		}, []string{"success"}),

		taskPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analytics_loop_task_panics_total",
			Help: "Tasks that panicked",
		}, []string{"loop"}),
	}

	reg.MustRegister(
		m.running,
		m.messagesReceived,
		m.messagesSent,
		m.mailboxDepth,
		m.handlerDuration,
		m.handlersTotal,
		m.taskInflight,
		m.taskDuration,
		m.tasksTotal,
		m.taskPanics,
	)

	return m
}

func (m *threadMetrics) ThreadRunning(name string, running bool) {
	v := 0.0
	if running {
		v = 1
	}
	m.running.WithLabelValues(name).Set(v)
}

func (m *threadMetrics) MessageReceived(name string) {
	m.messagesReceived.WithLabelValues(name).Inc()
}

func (m *threadMetrics) MessageSent(name string) {
	m.messagesSent.WithLabelValues(name).Inc()
}

func (m *threadMetrics) MailboxDepth(name string, depth int) {
	m.mailboxDepth.WithLabelValues(name).Set(float64(depth))
}

func (m *threadMetrics) HandlerDuration(name string) metrics.Timer {
	return newTimer(m.handlerDuration.WithLabelValues(name))
}

func (m *threadMetrics) HandlerProcessed(name string, success bool) {
	m.handlersTotal.WithLabelValues(name, boolToStr(success)).Inc()
}

func (m *threadMetrics) TaskInflight(loop string, count int) {
	m.taskInflight.WithLabelValues(loop).Set(float64(count))
}

func (m *threadMetrics) TaskDuration() metrics.Timer {
	return newTimer(m.taskDuration)
}

func (m *threadMetrics) TaskCompleted(success bool) {
	m.tasksTotal.WithLabelValues(boolToStr(success)).Inc()
}

func (m *threadMetrics) TaskPanic(loop string) {
	m.taskPanics.WithLabelValues(loop).Inc()
}

var _ thread.Metrics = (*threadMetrics)(nil)
