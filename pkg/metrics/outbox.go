package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics records publisher-worker outcomes. A nil receiver or a nil
// registerer degrades to no-ops so tests and tools can run without a registry.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
	abandoned *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided
// registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox messages successfully published to the sink.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed and were scheduled for retry.",
	}, []string{"type"})
	abandoned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_abandoned_total",
		Help: "Outbox messages that exhausted their retry budget.",
	}, []string{"type"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Duration of individual sink publish calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	reg.MustRegister(published, failed, abandoned, duration)
	return &OutboxMetrics{
		published: published,
		failed:    failed,
		abandoned: abandoned,
		duration:  duration,
	}
}

// IncPublished increments the success counter for the message type.
func (o *OutboxMetrics) IncPublished(msgType string) {
	if o == nil || o.published == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(msgType)).Inc()
}

// IncFailed increments the retry counter for the message type.
func (o *OutboxMetrics) IncFailed(msgType string) {
	if o == nil || o.failed == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(msgType)).Inc()
}

// IncAbandoned increments the terminal-failure counter for the message type.
func (o *OutboxMetrics) IncAbandoned(msgType string) {
	if o == nil || o.abandoned == nil {
		return
	}
	o.abandoned.WithLabelValues(normalizeLabel(msgType)).Inc()
}

// ObservePublishDuration records the duration of one sink publish call.
func (o *OutboxMetrics) ObservePublishDuration(msgType string, duration time.Duration) {
	if o == nil || o.duration == nil {
		return
	}
	o.duration.WithLabelValues(normalizeLabel(msgType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
