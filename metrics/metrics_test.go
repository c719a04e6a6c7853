package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{0, "error"},
		{200, "2xx"},
		{204, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := StatusClass(tt.code); got != tt.expected {
			t.Errorf("StatusClass(%d) = %s, want %s", tt.code, got, tt.expected)
		}
	}
}

func TestObserveUpstream(t *testing.T) {
	before := testutil.ToFloat64(UpstreamRequestTotals.WithLabelValues(ServiceATC, "4xx"))
	ObserveUpstream(ServiceATC, "4xx", 0.2)
	after := testutil.ToFloat64(UpstreamRequestTotals.WithLabelValues(ServiceATC, "4xx"))

	if after-before != 1 {
		t.Errorf("Expected counter to increase by 1, got %v", after-before)
	}
}

func TestObserveCache(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues("snomed", "hit"))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues("snomed", "miss"))

	ObserveCache("snomed", true)
	ObserveCache("snomed", false)
	ObserveCache("snomed", false)

	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("snomed", "hit")) - hits; got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(CacheLookups.WithLabelValues("snomed", "miss")) - misses; got != 2 {
		t.Errorf("Expected 2 misses, got %v", got)
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Post("/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	labels := []string{http.MethodPost, "/tools/{name}", "404"}
	before := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues(labels...))

	req := httptest.NewRequest(http.MethodPost, "/tools/unknown", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(HTTPRequestTotals.WithLabelValues(labels...)) - before; got != 1 {
		t.Errorf("Expected one request recorded under the route pattern, got %v", got)
	}
	if inFlight := testutil.ToFloat64(HTTPRequestInFlight); inFlight != 0 {
		t.Errorf("Expected no in-flight requests, got %v", inFlight)
	}
}
