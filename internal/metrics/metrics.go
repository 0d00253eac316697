// Package metrics exposes Prometheus collectors for the facade and the
// gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder captures metric events. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveFetch(resource, source, outcome string, duration time.Duration)
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Prometheus records into a private registry.
type Prometheus struct {
	registry     *prometheus.Registry
	fetches      *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheus creates and registers the collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payfriend",
				Subsystem: "facade",
				Name:      "fetches_total",
				Help:      "Total number of facade calls.",
			},
			[]string{"resource", "source", "outcome"},
		),
		fetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "payfriend",
				Subsystem: "facade",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of facade calls.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"resource", "source"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "payfriend",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "payfriend",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
	}

	p.registry.MustRegister(p.fetches, p.fetchLatency, p.httpRequests, p.httpDuration)
	return p
}

func (p *Prometheus) ObserveFetch(resource, source, outcome string, duration time.Duration) {
	p.fetches.WithLabelValues(resource, source, outcome).Inc()
	p.fetchLatency.WithLabelValues(resource, source).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Noop discards all metrics.
type Noop struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return Noop{}
}

func (Noop) ObserveFetch(resource, source, outcome string, duration time.Duration) {}

func (Noop) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}
