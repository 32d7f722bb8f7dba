package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWidgetMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWidgetMetrics(reg)

	m.ObserveSend("ok", 0.2)
	m.ObserveSend("ok", 0.1)
	m.ObserveSend("error", 1.5)
	m.ObservePoll("ok")
	m.ObserveHandoff("user_request", "operator")
	m.ObserveReset()
	m.ObserveAdminReply("ok")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.sendsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sendsTotal.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.pollsTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.handoffTotal.WithLabelValues("user_request", "operator")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resetsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.adminRepliesTotal.WithLabelValues("ok")))
}

func TestWidgetMetrics_NilReceiverSafe(t *testing.T) {
	var m *WidgetMetrics
	m.ObserveSend("ok", 0)
	m.ObservePoll("ok")
	m.ObserveHandoff("reset", "ai")
	m.ObserveReset()
	m.ObserveAdminReply("error")
}
