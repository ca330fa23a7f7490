package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "notification-expiry"
	metrics.Observe(job, 250*time.Millisecond, 4, nil)
	metrics.Observe(job, 10*time.Millisecond, 0, errors.New("db down"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "ambientes_cron_job_runs_total", map[string]string{"job": job, "outcome": "success"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "ambientes_cron_job_runs_total", map[string]string{"job": job, "outcome": "failure"}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "ambientes_cron_job_rows_total", map[string]string{"job": job}); err != nil {
		t.Fatalf("fetch rows: %v", err)
	} else if got != 4 {
		t.Fatalf("expected rows=4, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "ambientes_cron_job_duration_seconds", map[string]string{"job": job}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewCronJobMetrics(nil).Observe("job", time.Second, 1, nil)
	NewWorkflowMetrics(nil).Transition("confirm", "instructor_review", "supervisor_review")
	var w *WorkflowMetrics
	w.Conflict("approve")
}

func TestWorkflowMetricsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWorkflowMetrics(reg)
	metrics.Transition("confirm", "instructor_review", "supervisor_review")
	metrics.Transition("confirm", "instructor_review", "supervisor_review")
	metrics.Conflict("approve")
	metrics.NotificationsDispatched("verification_pending", 3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	got, err := fetchCounterValue(mfs, "inventory_check_transitions_total", map[string]string{
		"action": "confirm",
		"from":   "instructor_review",
		"to":     "supervisor_review",
	})
	if err != nil {
		t.Fatalf("fetch transitions: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected 2 transitions, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "inventory_check_conflicts_total", map[string]string{"action": "approve"}); got != 1 {
		t.Fatalf("expected 1 conflict, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "ambientes_notifications_dispatched_total", map[string]string{"type": "verification_pending"}); got != 3 {
		t.Fatalf("expected 3 notifications, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
