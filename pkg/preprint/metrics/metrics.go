// Package metrics exposes Prometheus instrumentation for the registry: an
// event sink counting lifecycle events and an HTTP middleware recording
// request counts and latencies per route pattern.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tendant/simple-preprint/pkg/preprint"
)

var (
	preprintsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preprints_submitted_total",
			Help: "Total number of accepted preprint submissions.",
		},
		[]string{"category"},
	)

	doisMintedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "preprint_dois_minted_total",
		Help: "Total number of identifiers assigned.",
	})

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preprint_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preprint_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// EventSink counts lifecycle events
type EventSink struct{}

func NewEventSink() *EventSink {
	return &EventSink{}
}

func (EventSink) PreprintSubmitted(ctx context.Context, p *preprint.Preprint) error {
	preprintsSubmittedTotal.WithLabelValues(p.Category).Inc()
	return nil
}

func (EventSink) DOIMinted(ctx context.Context, p *preprint.Preprint) error {
	doisMintedTotal.Inc()
	return nil
}

// Middleware records request count and duration. The path label is the
// matched chi route pattern so ids do not blow up cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := newResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
