package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)

	if m.Purchases == nil || m.HTTPRequests == nil || m.Webhooks == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.ObservePurchase("completed", 3)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestObserveHelpers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObservePurchase("completed", 2)
	m.ObservePurchase("compensated", 0)
	m.ObserveWebhook("duplicate")
	m.ObserveWebhook("duplicate")
	m.ObserveRecovery(1, 4)
	m.SetDiscrepancies(3)

	if got := testutil.ToFloat64(m.TicketsIssued); got != 2 {
		t.Fatalf("expected 2 tickets issued, got %v", got)
	}
	if got := testutil.ToFloat64(m.Purchases.WithLabelValues("compensated")); got != 1 {
		t.Fatalf("expected 1 compensated purchase, got %v", got)
	}
	if got := testutil.ToFloat64(m.Webhooks.WithLabelValues("duplicate")); got != 2 {
		t.Fatalf("expected 2 duplicate webhooks, got %v", got)
	}
	if got := testutil.ToFloat64(m.RecoveredSagas.WithLabelValues("compensated")); got != 4 {
		t.Fatalf("expected 4 compensated sagas, got %v", got)
	}
	if got := testutil.ToFloat64(m.ReconciliationDiscrepancies); got != 3 {
		t.Fatalf("expected gauge 3, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObservePurchase("completed", 1)
	m.ObserveWebhook("applied")
	m.ObserveRateLimited("webhook")
	m.SetDiscrepancies(1)
}
