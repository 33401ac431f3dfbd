package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts inbound webhook events by source and outcome.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forkline_webhook_events_total",
		Help: "Inbound webhook events by source and outcome.",
	}, []string{"source", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// Inc increments the counter for a source/outcome pair.
func (m *WebhookMetrics) Inc(source, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(safeLabel(source), safeLabel(outcome)).Inc()
}
