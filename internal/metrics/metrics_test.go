package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/products/{productId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/"+id, nil))
	}

	out := scrape(t, m)
	assert.Contains(t, out, `brandcatalog_http_requests_total{method="GET",route="/products/{productId}",status="418"} 3`)
	assert.NotContains(t, out, `route="/products/1"`)
}

func TestDomainCounters(t *testing.T) {
	m := New()
	m.ObserveExport(nil, 12)
	m.ObserveExport(errors.New("boom"), 99)
	m.ObserveBulkCreate(nil)
	m.AddGeneratedVariants(4)
	m.ObserveWizardEvent("select", nil)
	m.ObserveGeneration("brand_phase", nil, 2*time.Second)
	m.ObserveJobAction("cancel", errors.New("conflict"))
	m.StreamClientConnected()

	out := scrape(t, m)
	assert.Contains(t, out, `brandcatalog_csv_exports_total{result="success"} 1`)
	assert.Contains(t, out, `brandcatalog_csv_exports_total{result="error"} 1`)
	assert.Contains(t, out, `brandcatalog_csv_export_rows_total 12`)
	assert.Contains(t, out, `brandcatalog_bulk_product_creates_total{result="success"} 1`)
	assert.Contains(t, out, `brandcatalog_variants_generated_total 4`)
	assert.Contains(t, out, `brandcatalog_wizard_transitions_total{event="select",result="success"} 1`)
	assert.Contains(t, out, `brandcatalog_job_actions_total{action="cancel",result="error"} 1`)
	assert.Contains(t, out, `brandcatalog_job_stream_clients 1`)
	assert.Contains(t, out, `brandcatalog_ai_generation_duration_seconds_count{kind="brand_phase",result="success"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveExport(nil, 1)
		m.ObserveBulkCreate(nil)
		m.AddGeneratedVariants(1)
		m.ObserveWizardEvent("start", nil)
		m.ObserveGeneration("x", nil, time.Second)
		m.ObserveJobAction("retry", nil)
		m.StreamClientConnected()
		m.StreamClientDisconnected()
	})

	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
	assert.Nil(t, m.Registry())
}
