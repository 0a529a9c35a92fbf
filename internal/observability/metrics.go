package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the HTTP server and the poller.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	buildDuration   *prometheus.HistogramVec
	buildFailures   *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	redraws         *prometheus.CounterVec
	rotations       *prometheus.CounterVec
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "painel_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "painel_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	build := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "painel_dashboard_build_seconds",
		Help:    "Time spent assembling a dashboard response.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})
	buildFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "painel_dashboard_build_failures_total",
		Help: "Dashboard responses that failed to build.",
	}, []string{"endpoint"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "painel_poller_fetches_total",
		Help: "Poller fetches by variant and outcome.",
	}, []string{"variant", "outcome"})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "painel_poller_fetch_duration_seconds",
		Help:    "Poller fetch round trip per variant.",
		Buckets: prometheus.DefBuckets,
	}, []string{"variant"})
	redraws := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "painel_poller_redraws_total",
		Help: "Display groups redrawn by the poller.",
	}, []string{"variant", "group"})
	rotations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "painel_poller_rotations_total",
		Help: "Rotation steps taken by the poller.",
	}, []string{"variant", "rotator"})
	registry.MustRegister(requests, duration, build, buildFailures, fetches, fetchDuration, redraws, rotations)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		buildDuration:   build,
		buildFailures:   buildFailures,
		fetches:         fetches,
		fetchDuration:   fetchDuration,
		redraws:         redraws,
		rotations:       rotations,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObserveBuild records a dashboard build.
func (m *Metrics) ObserveBuild(endpoint string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.buildDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	if err != nil {
		m.buildFailures.WithLabelValues(endpoint).Inc()
	}
}

// ObserveFetch records a poller fetch outcome.
func (m *Metrics) ObserveFetch(variant, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(variant, outcome).Inc()
	m.fetchDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
}

// ObserveRedraw counts a redrawn display group.
func (m *Metrics) ObserveRedraw(variant, group string) {
	if m == nil {
		return
	}
	m.redraws.WithLabelValues(variant, group).Inc()
}

// ObserveRotation counts a rotation step.
func (m *Metrics) ObserveRotation(variant, rotator string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(variant, rotator).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
