// Package metrics provides Prometheus metrics for document resolution and
// the HTTP API.
package metrics

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/starford/reftree/internal/doctree"
)

// Metrics holds all collectors, registered on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Resolution metrics
	DocumentsLoadedTotal *prometheus.CounterVec
	CacheHitsTotal       *prometheus.CounterVec
	CacheMissesTotal     *prometheus.CounterVec
	ResolveErrorsTotal   *prometheus.CounterVec

	// Build metrics
	BuildsTotal       *prometheus.CounterVec
	BuildDuration     prometheus.Histogram
	LastBuildAssets   prometheus.Gauge
	LastBuildFamilies prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics, plus the Go and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		DocumentsLoadedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reftree_documents_loaded_total",
			Help: "Total number of root documents loaded",
		}, []string{"type"}),
		CacheHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reftree_cache_hits_total",
			Help: "Total number of references served from the resolution cache",
		}, []string{"type"}),
		CacheMissesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reftree_cache_misses_total",
			Help: "Total number of references that had to be read and decoded",
		}, []string{"type"}),
		ResolveErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reftree_resolve_errors_total",
			Help: "Total number of failed reference resolutions",
		}, []string{"type", "reason"}),

		BuildsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reftree_builds_total",
			Help: "Total number of site builds",
		}, []string{"status"}),
		BuildDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "reftree_build_duration_seconds",
			Help:    "Duration of site builds in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		LastBuildAssets: f.NewGauge(prometheus.GaugeOpts{
			Name: "reftree_last_build_assets",
			Help: "Number of assets in the last successful build",
		}),
		LastBuildFamilies: f.NewGauge(prometheus.GaugeOpts{
			Name: "reftree_last_build_families",
			Help: "Number of families in the last successful build",
		}),

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reftree_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reftree_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Observer returns a doctree.Observer that feeds the resolution metrics.
func (m *Metrics) Observer() doctree.Observer { return resolver{m} }

// RecordBuild records the outcome of a build.
func (m *Metrics) RecordBuild(d time.Duration, families, assets int, err error) {
	m.BuildDuration.Observe(d.Seconds())
	if err != nil {
		m.BuildsTotal.WithLabelValues("error").Inc()
		return
	}
	m.BuildsTotal.WithLabelValues("ok").Inc()
	m.LastBuildFamilies.Set(float64(families))
	m.LastBuildAssets.Set(float64(assets))
}

// Middleware records request counts and durations.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
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

// Flush keeps streaming responses (SSE) working behind the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type resolver struct{ m *Metrics }

func (r resolver) DocumentLoaded(typ reflect.Type) {
	r.m.DocumentsLoadedTotal.WithLabelValues(typ.String()).Inc()
}

func (r resolver) CacheHit(typ reflect.Type) {
	r.m.CacheHitsTotal.WithLabelValues(typ.String()).Inc()
}

func (r resolver) CacheMiss(typ reflect.Type) {
	r.m.CacheMissesTotal.WithLabelValues(typ.String()).Inc()
}

func (r resolver) ResolveFailed(typ reflect.Type, err error) {
	r.m.ResolveErrorsTotal.WithLabelValues(typ.String(), reason(err)).Inc()
}

func reason(err error) string {
	switch {
	case errors.Is(err, doctree.ErrDocumentNotFound):
		return "not_found"
	case errors.Is(err, doctree.ErrValidation):
		return "validation"
	case errors.Is(err, doctree.ErrReferenceCycle):
		return "cycle"
	case errors.Is(err, doctree.ErrOutsideTree):
		return "outside_tree"
	case errors.Is(err, doctree.ErrInvalidReference):
		return "invalid_reference"
	default:
		return "other"
	}
}
