package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records ingestion outcomes per payment provider.
type WebhookMetrics struct {
	received *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_received",
		Help: "Webhook deliveries received per provider.",
	}, []string{"provider"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Webhook processing outcomes per provider.",
	}, []string{"provider", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_duration_seconds",
		Help:    "Duration of webhook processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	reg.MustRegister(received, outcomes, duration)
	return &WebhookMetrics{
		received: received,
		outcomes: outcomes,
		duration: duration,
	}
}

// IncReceived increments the delivery counter for the provider.
func (w *WebhookMetrics) IncReceived(provider string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(provider)).Inc()
}

// IncOutcome increments the processed counter for the provider and outcome.
func (w *WebhookMetrics) IncOutcome(provider, outcome string) {
	if w == nil || w.outcomes == nil {
		return
	}
	w.outcomes.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long a delivery took to process.
func (w *WebhookMetrics) ObserveDuration(provider string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
