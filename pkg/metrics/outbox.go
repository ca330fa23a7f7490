package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outbox publish outcomes.
const (
	OutboxPublished    = "published"
	OutboxRetried      = "retried"
	OutboxDeadLettered = "dead_lettered"
)

// OutboxMetrics counts outbox rows by publish outcome.
type OutboxMetrics struct {
	rows *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the publisher, by outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(rows)
	return &OutboxMetrics{rows: rows}
}

func (o *OutboxMetrics) Observe(eventType, outcome string) {
	if o == nil || o.rows == nil {
		return
	}
	o.rows.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
