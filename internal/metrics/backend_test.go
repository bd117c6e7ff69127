package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBackend(t *testing.T) {
	before := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("SEARCH", "200"))

	ObserveBackend("SEARCH", "200", time.Now().Add(-10*time.Millisecond))

	after := testutil.ToFloat64(BackendRequestsTotal.WithLabelValues("SEARCH", "200"))
	if after != before+1 {
		t.Errorf("backend_requests_total = %f, want %f", after, before+1)
	}
	if testutil.CollectAndCount(BackendRequestDuration) == 0 {
		t.Error("expected backend_request_duration_seconds to have observations")
	}
}

func TestRegisterBackendMetrics_Idempotent(t *testing.T) {
	RegisterBackendMetrics()
	RegisterBackendMetrics()
	if !backendMetricsRegistered {
		t.Error("expected metrics to be registered")
	}
}
