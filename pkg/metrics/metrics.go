package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

var latencyBucketsMS = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   latencyBucketsMS,
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Middleware records one sample per request, labelled by the chi route
// pattern so path parameters do not explode cardinality.
func (m *ServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.Requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// CheckoutMetrics covers order submissions and catalog refreshes.
type CheckoutMetrics struct {
	Submissions     *prometheus.CounterVec
	SubmitLatencyMS *prometheus.HistogramVec
	CatalogLoads    *prometheus.CounterVec
	CatalogItems    prometheus.Gauge
	CatalogLoadedAt prometheus.Gauge
}

func NewCheckoutMetrics(reg prometheus.Registerer, service string) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_submissions_total",
			Help:      "Order submissions by outcome.",
		}, []string{"outcome"}),
		SubmitLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_submission_duration_ms",
			Help:      "Round trip of the order endpoint in milliseconds.",
			Buckets:   latencyBucketsMS,
		}, []string{"outcome"}),
		CatalogLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "catalog_loads_total",
			Help:      "Catalog loads by result.",
		}, []string{"result"}),
		CatalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "catalog_items",
			Help:      "Items in the current catalog snapshot.",
		}),
		CatalogLoadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "catalog_loaded_timestamp_seconds",
			Help:      "Unix time of the last successful catalog load.",
		}),
	}

	reg.MustRegister(m.Submissions, m.SubmitLatencyMS, m.CatalogLoads, m.CatalogItems, m.CatalogLoadedAt)
	return m
}

func (m *CheckoutMetrics) ObserveSubmission(outcome string, elapsed time.Duration) {
	m.Submissions.WithLabelValues(outcome).Inc()
	m.SubmitLatencyMS.WithLabelValues(outcome).Observe(float64(elapsed.Milliseconds()))
}

func (m *CheckoutMetrics) ObserveCatalogLoad(items int, err error) {
	if err != nil {
		m.CatalogLoads.WithLabelValues("error").Inc()
		return
	}
	m.CatalogLoads.WithLabelValues("ok").Inc()
	m.CatalogItems.Set(float64(items))
	m.CatalogLoadedAt.SetToCurrentTime()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
