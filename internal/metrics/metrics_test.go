package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFetch(t *testing.T) {
	before := testutil.ToFloat64(providerFetchTotal.WithLabelValues("horizons", OutcomeError))
	ObserveFetch("horizons", OutcomeError)
	ObserveFetch("horizons", OutcomeError)
	after := testutil.ToFloat64(providerFetchTotal.WithLabelValues("horizons", OutcomeError))

	if after-before != 2 {
		t.Errorf("counter moved by %v, want 2", after-before)
	}
}

func TestObserveRetry(t *testing.T) {
	before := testutil.ToFloat64(httpRetriesTotal.WithLabelValues("ssd.jpl.nasa.gov"))
	ObserveRetry("ssd.jpl.nasa.gov")
	if got := testutil.ToFloat64(httpRetriesTotal.WithLabelValues("ssd.jpl.nasa.gov")) - before; got != 1 {
		t.Errorf("retry counter moved by %v, want 1", got)
	}
}

func TestSetObjectCounts(t *testing.T) {
	SetObjectCounts(map[string]int{"visible": 4, "below-horizon": 7})
	if got := testutil.ToFloat64(objectsByStatus.WithLabelValues("visible")); got != 4 {
		t.Errorf("visible = %v, want 4", got)
	}

	SetObjectCounts(map[string]int{"visible": 1})
	if got := testutil.CollectAndCount(objectsByStatus); got != 1 {
		t.Errorf("gauge series = %d after reset, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	ObserveCycle(1500 * time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "skywatch_cycle_duration_seconds") {
		t.Error("cycle histogram missing from /metrics output")
	}
}
