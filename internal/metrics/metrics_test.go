package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("GET", "/clubs", "200", 0.1)
		m.CacheHit("availability")
		m.CacheMiss("search")
		m.CheckoutResult("APPROVED")
	})
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveBackend("GET", "/clubs", "200", 0.05)
	m.ObserveBackend("GET", "/clubs", "200", 0.07)
	m.CacheHit("availability")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.backendRequests.WithLabelValues("GET", "/clubs", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheLookups.WithLabelValues("availability", "hit")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_backend_requests_total")
}
