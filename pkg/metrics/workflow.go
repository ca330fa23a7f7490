package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WorkflowMetrics counts verification workflow activity.
type WorkflowMetrics struct {
	transitions   *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewWorkflowMetrics registers the workflow metrics on reg. A nil registerer
// yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_check_transitions_total",
		Help: "Applied inventory check state transitions.",
	}, []string{"action", "from", "to"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_check_conflicts_total",
		Help: "Workflow writes that lost a concurrent race.",
	}, []string{"action"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dispatched_total",
		Help:      "Notification rows written by the dispatcher.",
	}, []string{"type"})
	reg.MustRegister(transitions, conflicts, notifications)
	return &WorkflowMetrics{
		transitions:   transitions,
		conflicts:     conflicts,
		notifications: notifications,
	}
}

func (w *WorkflowMetrics) Transition(action, from, to string) {
	if w == nil || w.transitions == nil {
		return
	}
	w.transitions.WithLabelValues(normalizeLabel(action), normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (w *WorkflowMetrics) Conflict(action string) {
	if w == nil || w.conflicts == nil {
		return
	}
	w.conflicts.WithLabelValues(normalizeLabel(action)).Inc()
}

func (w *WorkflowMetrics) NotificationsDispatched(kind string, n int) {
	if w == nil || w.notifications == nil || n <= 0 {
		return
	}
	w.notifications.WithLabelValues(normalizeLabel(kind)).Add(float64(n))
}
