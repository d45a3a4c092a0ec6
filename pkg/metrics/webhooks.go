package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics records ingestion outcomes per provider.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	duplicate *prometheus.CounterVec
	rejected  *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook ingestion metrics on the provided
// registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_received_total",
		Help: "Webhook deliveries accepted and processed for the first time.",
	}, []string{"provider"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_duplicate_total",
		Help: "Webhook deliveries recognized as replays and skipped.",
	}, []string{"provider"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_rejected_total",
		Help: "Webhook deliveries rejected for signature or freshness failures.",
	}, []string{"provider"})
	reg.MustRegister(received, duplicate, rejected)
	return &WebhookMetrics{
		received:  received,
		duplicate: duplicate,
		rejected:  rejected,
	}
}

// IncReceived increments the first-delivery counter for the provider.
func (m *WebhookMetrics) IncReceived(provider string) {
	if m == nil || m.received == nil {
		return
	}
	m.received.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncDuplicate increments the replay counter for the provider.
func (m *WebhookMetrics) IncDuplicate(provider string) {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncRejected increments the rejection counter for the provider.
func (m *WebhookMetrics) IncRejected(provider string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(provider)).Inc()
}
