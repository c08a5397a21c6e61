// Package metrics exposes prometheus instrumentation for the HTTP
// surface and the ledger pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casaspese_http_requests_total",
		Help: "HTTP requests by method, route pattern and status.",
	}, []string{"method", "pattern", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casaspese_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "pattern"})

	ExpensesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casaspese_expenses_created_total",
		Help: "Expenses recorded since process start.",
	})

	ActiveWatchers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casaspese_active_watchers",
		Help: "Open SSE subscriptions.",
	})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casaspese_events_published_total",
		Help: "Expense created events handed to the broker, by outcome.",
	}, []string{"outcome"})
)

// Handler serves the scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request counts and latency. The route pattern
// (not the raw path) keeps label cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		requestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
