package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry and the HTTP instruments.
type Metrics struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inflight     prometheus.Gauge
	authOutcomes *prometheus.CounterVec
	interactions *prometheus.CounterVec
}

// NewMetrics builds a self-contained registry with runtime and HTTP collectors.
// A private registry keeps tests isolated from the global default one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chitter",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status class.",
		}, []string{"pattern", "method", "class"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chitter",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"pattern"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chitter",
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "HTTP requests currently being served.",
		}),
		authOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chitter",
			Subsystem: "auth",
			Name:      "outcomes_total",
			Help:      "Auth endpoint outcomes by endpoint and result.",
		}, []string{"endpoint", "result"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chitter",
			Subsystem: "feed",
			Name:      "interactions_total",
			Help:      "Successful feed interactions by action.",
		}, []string{"action"}),
	}
	reg.MustRegister(m.requests, m.duration, m.inflight, m.authOutcomes, m.interactions)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WithMetrics records request counts, latency, and in-flight gauge.
// Routes are labeled by the matched mux pattern, not the raw URL path,
// to keep label cardinality bounded.
func (m *Metrics) WithMetrics(next http.Handler, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(lrw, r)

		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		m.requests.WithLabelValues(pattern, r.Method, statusClass(lrw.status)).Inc()
		m.duration.WithLabelValues(pattern).Observe(time.Since(start).Seconds())

		if endpoint, ok := strings.CutPrefix(pattern, "POST /auth/"); ok {
			_, result := requestLogMeta(lrw.status)
			m.authOutcomes.WithLabelValues(endpoint, result).Inc()
		}
		if action, ok := interactionAction(pattern); ok && lrw.status < 300 {
			m.interactions.WithLabelValues(action).Inc()
		}
	})
}

func interactionAction(pattern string) (string, bool) {
	switch pattern {
	case "POST /api/posts/{id}/likes":
		return "like", true
	case "DELETE /api/posts/{id}/likes":
		return "unlike", true
	case "PATCH /api/posts/{id}/bookmark":
		return "bookmark", true
	case "POST /api/posts/{id}/comments":
		return "comment", true
	case "POST /api/posts":
		return "post", true
	case "PATCH /api/connect/{id}":
		return "follow", true
	default:
		return "", false
	}
}
