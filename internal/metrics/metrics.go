// Package metrics exposes Prometheus counters for spot transitions and the reaper.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parkshare"

// Metrics owns a dedicated registry so tests never collide on the global one.
type Metrics struct {
	registry            *prometheus.Registry
	transitions         *prometheus.CounterVec
	proximityRejections prometheus.Counter
	reaperSweeps        prometheus.Counter
	reaperExpired       prometheus.Counter
	reaperFailures      prometheus.Counter
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spot_transitions_total",
			Help:      "Spot actions by action and outcome.",
		}, []string{"action", "outcome"}),
		proximityRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proximity_rejections_total",
			Help:      "Submissions rejected for being too far from the submitter.",
		}),
		reaperSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "sweeps_total",
			Help:      "Completed reaper sweeps.",
		}),
		reaperExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "spots_expired_total",
			Help:      "Stale spots forced to occupied.",
		}),
		reaperFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reaper",
			Name:      "failures_total",
			Help:      "Stale spots the reaper failed to expire.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transitions,
		m.proximityRejections,
		m.reaperSweeps,
		m.reaperExpired,
		m.reaperFailures,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Transition counts one spot action with its outcome (ok or an error reason).
func (m *Metrics) Transition(action, outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
}

// ProximityRejected counts a submission rejected by the distance check.
func (m *Metrics) ProximityRejected() {
	if m == nil {
		return
	}
	m.proximityRejections.Inc()
}

// SweepCompleted records one reaper sweep.
func (m *Metrics) SweepCompleted(expired, failed int) {
	if m == nil {
		return
	}
	m.reaperSweeps.Inc()
	m.reaperExpired.Add(float64(expired))
	m.reaperFailures.Add(float64(failed))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
