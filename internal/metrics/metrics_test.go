package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCapture_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCapture(reg)

	m.Ticks.Inc()
	m.Ticks.Inc()
	m.DroppedTotal.Inc()
	m.UploadDuration.WithLabelValues("success").Observe(0.2)

	if got := testutil.ToFloat64(m.Ticks); got != 2 {
		t.Errorf("Expected 2 ticks, got %v", got)
	}
	if got := testutil.ToFloat64(m.DroppedTotal); got != 1 {
		t.Errorf("Expected 1 drop, got %v", got)
	}
	if count := testutil.CollectAndCount(m.UploadDuration); count != 1 {
		t.Errorf("Expected 1 histogram series, got %d", count)
	}
}

func TestRelay_OutcomeLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelay(reg)

	m.RequestsTotal.WithLabelValues("ok").Inc()
	m.RequestsTotal.WithLabelValues("delivery").Inc()
	m.RequestsTotal.WithLabelValues("ok").Inc()

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("ok")); got != 2 {
		t.Errorf("Expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("delivery")); got != 1 {
		t.Errorf("Expected 1 delivery failure, got %v", got)
	}
}

func TestHandler_ExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := NewFaults(reg)
	f.Total.WithLabelValues("transfer").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `framerelay_faults_total{kind="transfer"} 1`) {
		t.Errorf("Expected fault counter in output, got:\n%s", body)
	}
}
