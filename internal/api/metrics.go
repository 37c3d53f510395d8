package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "clouddoc"

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		},
		[]string{"method", "route", "status"},
	)

	httpDurations = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent answering HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	uploadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "uploads_total",
			Help:      "Files written to the bucket.",
		},
	)

	signedURLs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "signed_urls_total",
			Help:      "Signed URLs issued, by kind.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpDurations)
	prometheus.MustRegister(uploadsTotal)
	prometheus.MustRegister(signedURLs)
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpDurations.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
