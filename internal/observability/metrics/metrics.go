package metrics

import "github.com/prometheus/client_golang/prometheus"

// WidgetMetrics exposes counters for the chat widget and admin console
// flows. A nil receiver is safe everywhere so wiring stays optional.
type WidgetMetrics struct {
	sendsTotal        *prometheus.CounterVec
	pollsTotal        *prometheus.CounterVec
	handoffTotal      *prometheus.CounterVec
	resetsTotal       prometheus.Counter
	adminRepliesTotal *prometheus.CounterVec
	sendLatency       prometheus.Histogram
}

func NewWidgetMetrics(reg prometheus.Registerer) *WidgetMetrics {
	m := &WidgetMetrics{
		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "widget",
			Name:      "sends_total",
			Help:      "Total chat sends by outcome",
		}, []string{"status"}),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "widget",
			Name:      "polls_total",
			Help:      "Total poll requests by outcome",
		}, []string{"status"}),
		handoffTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "widget",
			Name:      "handoff_transitions_total",
			Help:      "Handoff mode transitions by reason",
		}, []string{"reason", "to"}),
		resetsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "widget",
			Name:      "hard_resets_total",
			Help:      "Total hard session resets",
		}),
		adminRepliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webchat",
			Subsystem: "admin",
			Name:      "replies_total",
			Help:      "Total operator replies by outcome",
		}, []string{"status"}),
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "webchat",
			Subsystem: "widget",
			Name:      "send_latency_seconds",
			Help:      "Latency of chat sends",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.sendsTotal, m.pollsTotal, m.handoffTotal, m.resetsTotal, m.adminRepliesTotal, m.sendLatency)
	return m
}

func (m *WidgetMetrics) ObserveSend(status string, seconds float64) {
	if m == nil {
		return
	}
	m.sendsTotal.WithLabelValues(status).Inc()
	m.sendLatency.Observe(seconds)
}

func (m *WidgetMetrics) ObservePoll(status string) {
	if m == nil {
		return
	}
	m.pollsTotal.WithLabelValues(status).Inc()
}

func (m *WidgetMetrics) ObserveHandoff(reason, to string) {
	if m == nil {
		return
	}
	m.handoffTotal.WithLabelValues(reason, to).Inc()
}

func (m *WidgetMetrics) ObserveReset() {
	if m == nil {
		return
	}
	m.resetsTotal.Inc()
}

func (m *WidgetMetrics) ObserveAdminReply(status string) {
	if m == nil {
		return
	}
	m.adminRepliesTotal.WithLabelValues(status).Inc()
}
