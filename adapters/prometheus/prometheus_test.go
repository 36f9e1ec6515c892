package prometheus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hastic-zzz/analytics/core/actor"
	"github.com/hastic-zzz/analytics/core/thread"
)

func TestNewThreadMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewThreadMetrics(reg)
	require.NotNil(t, m)

	m.ThreadRunning("t1", true)
	m.MessageReceived("t1")
	m.MessageReceived("t1")
	m.MessageSent("t1")
	m.MailboxDepth("t1", 7)
	m.HandlerDuration("t1").ObserveDuration()
	m.HandlerProcessed("t1", true)
	m.HandlerProcessed("t1", false)

	m.TaskInflight("t1", 3)
	m.TaskDuration().ObserveDuration()
	m.TaskCompleted(true)
	m.TaskPanic("t1")

	tm := m.(*threadMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.running.WithLabelValues("t1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(tm.messagesReceived.WithLabelValues("t1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.messagesSent.WithLabelValues("t1")))
	assert.Equal(t, 7.0, testutil.ToFloat64(tm.mailboxDepth.WithLabelValues("t1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.handlersTotal.WithLabelValues("t1", "false")))
	assert.Equal(t, 3.0, testutil.ToFloat64(tm.taskInflight.WithLabelValues("t1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.taskPanics.WithLabelValues("t1")))

	m.ThreadRunning("t1", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(tm.running.WithLabelValues("t1")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	assert.True(t, names["analytics_thread_handler_duration_seconds"])
	assert.True(t, names["analytics_loop_task_duration_seconds"])
	assert.True(t, names["analytics_loop_tasks_total"])
}

func TestThreadMetrics_actor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewThreadMetrics(reg)

	a, err := actor.Spawn(thread.Funcs{
		OnMessage: func(tc thread.Ctx, msg string) error {
			return tc.SendMessageFromThread(msg)
		},
		Run: func(tc thread.Ctx) error {
			return tc.Await(func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			})
		},
	},
		actor.WithName("metered"),
		actor.WithCompletionMode(false),
		actor.WithMetrics(m),
		actor.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	for range 3 {
		require.NoError(t, a.PutMessageToThread(ctx, "hi"))
		_, err := a.RecvMessageFromThread(ctx)
		require.NoError(t, err)
	}

	tm := m.(*threadMetrics)
	assert.Equal(t, 1.0, testutil.ToFloat64(tm.running.WithLabelValues("metered")))
	assert.Equal(t, 3.0, testutil.ToFloat64(tm.messagesReceived.WithLabelValues("metered")))
	// counted once the send returned, which may be after the peer got it
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(tm.messagesSent.WithLabelValues("metered")) == 3
	}, time.Second, 5*time.Millisecond)

	a.Stop()
	assert.Equal(t, 0.0, testutil.ToFloat64(tm.running.WithLabelValues("metered")))
}

func TestBoolToStr(t *testing.T) {
	assert.Equal(t, "true", boolToStr(true))
	assert.Equal(t, "false", boolToStr(false))
}
