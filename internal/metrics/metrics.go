// Package metrics exposes Prometheus collectors for the HTTP surface and the catalog domain.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brandcatalog"

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	csvExports          *prometheus.CounterVec
	csvRows             prometheus.Counter
	bulkCreates         *prometheus.CounterVec
	variantsGenerated   prometheus.Counter
	wizardTransitions   *prometheus.CounterVec
	aiGenerations       *prometheus.HistogramVec
	jobActions          *prometheus.CounterVec
	streamClients       prometheus.Gauge
}

// New registers every collector plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		csvExports: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csv_exports_total",
			Help:      "Shopify CSV exports by result",
		}, []string{"result"}),
		csvRows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csv_export_rows_total",
			Help:      "Data rows written across all CSV exports",
		}),
		bulkCreates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_product_creates_total",
			Help:      "Bulk product create calls by result",
		}, []string{"result"}),
		variantsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_generated_total",
			Help:      "Variants created from attribute combinations",
		}),
		wizardTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Brand wizard events by kind and outcome",
		}, []string{"event", "result"}),
		aiGenerations: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_generation_duration_seconds",
			Help:      "Duration of structured AI generations",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"kind", "result"}),
		jobActions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_actions_total",
			Help:      "Job cancel, retry and cleanup requests by result",
		}, []string{"action", "result"}),
		streamClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_stream_clients",
			Help:      "Connected job stream websocket clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Middleware records request count and latency labelled by the matched chi route pattern,
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.ObserveHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

// ObserveHTTPRequest records an HTTP request metric.
func (m *Metrics) ObserveHTTPRequest(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// ObserveExport counts one CSV export and, on success, its data rows.
func (m *Metrics) ObserveExport(err error, rows int) {
	if m == nil {
		return
	}
	m.csvExports.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.csvRows.Add(float64(rows))
	}
}

// ObserveBulkCreate counts one bulk product create.
func (m *Metrics) ObserveBulkCreate(err error) {
	if m == nil {
		return
	}
	m.bulkCreates.WithLabelValues(result(err)).Inc()
}

// AddGeneratedVariants adds n to the generated variants counter.
func (m *Metrics) AddGeneratedVariants(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.variantsGenerated.Add(float64(n))
}

// ObserveWizardEvent counts one brand wizard event.
func (m *Metrics) ObserveWizardEvent(event string, err error) {
	if m == nil {
		return
	}
	m.wizardTransitions.WithLabelValues(event, result(err)).Inc()
}

// ObserveGeneration records how long one AI generation took.
func (m *Metrics) ObserveGeneration(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.aiGenerations.WithLabelValues(kind, result(err)).Observe(d.Seconds())
}

// ObserveJobAction counts one job action.
func (m *Metrics) ObserveJobAction(action string, err error) {
	if m == nil {
		return
	}
	m.jobActions.WithLabelValues(action, result(err)).Inc()
}

// StreamClientConnected increments the job stream gauge.
func (m *Metrics) StreamClientConnected() {
	if m == nil {
		return
	}
	m.streamClients.Inc()
}

// StreamClientDisconnected decrements the job stream gauge.
func (m *Metrics) StreamClientDisconnected() {
	if m == nil {
		return
	}
	m.streamClients.Dec()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
