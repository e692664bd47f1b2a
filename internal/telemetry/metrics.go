// Package telemetry exposes Prometheus metrics for the decision core and
// the HTTP surface.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Dispositions counts terminal presentation outcomes by kind and skip
	// reason ("" for presented/errored).
	Dispositions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presentation_dispositions_total",
			Help: "Terminal presentation pipeline dispositions",
		},
		[]string{"disposition", "reason"},
	)

	// ArtifactCacheHits and ArtifactCacheMisses track the result cache.
	ArtifactCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artifact_cache_hits_total",
		Help: "Artifact cache hits",
	})
	ArtifactCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artifact_cache_misses_total",
		Help: "Artifact cache misses",
	})

	// ArtifactBuilds counts artifact build invocations that actually ran
	// (coalesced callers do not increment).
	ArtifactBuilds = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "artifact_builds_total",
		Help: "Artifact builds executed",
	})

	// SnapshotTriggers tracks the number of triggers in the active snapshot.
	SnapshotTriggers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_triggers",
		Help: "Number of triggers currently in the in-memory snapshot",
	})
)

// Init registers all metrics with the default registry. Call once at
// process start; tests use the unregistered collectors directly.
func Init() {
	prometheus.MustRegister(
		httpReqs, httpDur,
		Dispositions,
		ArtifactCacheHits, ArtifactCacheMisses, ArtifactBuilds,
		SnapshotTriggers,
	)
}

// Middleware records request counts and durations per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		httpReqs.WithLabelValues(route, r.Method, strconv.Itoa(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
