package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportBuilds    *prometheus.CounterVec
	reportDuration  *prometheus.HistogramVec
	reportWarnings  *prometheus.CounterVec
	tbVariance      prometheus.Gauge
}

// NewMetrics initialises the registry with HTTP and report metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	builds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_report_builds_total",
		Help: "Report builds by report and outcome, including cache hits.",
	}, []string{"report", "status"})
	buildDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_report_build_duration_seconds",
		Help:    "Report build duration.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"report"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_report_warnings_total",
		Help: "Data-quality warnings raised by freshly built reports.",
	}, []string{"code"})
	variance := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_trial_balance_variance",
		Help: "Debits minus credits of the most recently built trial balance.",
	})
	registry.MustRegister(requests, duration, builds, buildDuration, warnings, variance)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reportBuilds:    builds,
		reportDuration:  buildDuration,
		reportWarnings:  warnings,
		tbVariance:      variance,
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

// Middleware records request count and latency per route pattern.
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

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObserveBuild records one report request.
func (m *Metrics) ObserveBuild(report, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.reportBuilds.WithLabelValues(report, status).Inc()
	m.reportDuration.WithLabelValues(report).Observe(elapsed.Seconds())
}

// ObserveWarnings counts warnings by code.
func (m *Metrics) ObserveWarnings(warnings []shared.Warning) {
	if m == nil {
		return
	}
	for code, n := range shared.CountByCode(warnings) {
		m.reportWarnings.WithLabelValues(string(code)).Add(float64(n))
	}
}

// SetTrialBalanceVariance publishes the latest trial balance variance.
func (m *Metrics) SetTrialBalanceVariance(variance float64) {
	if m == nil {
		return
	}
	m.tbVariance.Set(variance)
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
