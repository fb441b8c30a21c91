package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsNamespaceConstant = "rtfr"
	metricsSubsystemConstant = "server"
	routeLabelConstant       = "route"
	methodLabelConstant      = "method"
	statusLabelConstant      = "status"
	outcomeLabelConstant     = "outcome"

	// Record outcomes reported by the records counter.
	outcomeAcceptedConstant   = "accepted"
	outcomeConflictedConstant = "conflicted"
	outcomeDeletedConstant    = "deleted"
)

// Metrics holds the server's collectors on a registry of its own.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	records         *prometheus.CounterVec
	tokensIssued    prometheus.Counter
	tokensRevoked   prometheus.Counter
	tokensThrottled prometheus.Counter
}

// NewMetrics registers the server collectors plus the Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	metrics := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "requests_total",
			Help:      "HTTP requests handled, by route, method and status code.",
		}, []string{routeLabelConstant, methodLabelConstant, statusLabelConstant}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{routeLabelConstant}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "acknowledgements_total",
			Help:      "Acknowledgement writes by outcome.",
		}, []string{outcomeLabelConstant}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "tokens_issued_total",
			Help:      "Workspace tokens issued.",
		}),
		tokensRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "tokens_revoked_total",
			Help:      "Workspace tokens revoked.",
		}),
		tokensThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Subsystem: metricsSubsystemConstant,
			Name:      "token_requests_throttled_total",
			Help:      "Token requests rejected by the rate limiter.",
		}),
	}
	registry.MustRegister(
		metrics.requests,
		metrics.requestDuration,
		metrics.records,
		metrics.tokensIssued,
		metrics.tokensRevoked,
		metrics.tokensThrottled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics
}

// Registry exposes the registry for tests and embedding.
func (metrics *Metrics) Registry() *prometheus.Registry {
	return metrics.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{Registry: metrics.registry})
}

func (metrics *Metrics) observeRecord(outcome string) {
	if metrics == nil {
		return
	}
	metrics.records.WithLabelValues(outcome).Inc()
}

func (metrics *Metrics) observeTokenIssued() {
	if metrics == nil {
		return
	}
	metrics.tokensIssued.Inc()
}

func (metrics *Metrics) observeTokenRevoked() {
	if metrics == nil {
		return
	}
	metrics.tokensRevoked.Inc()
}

func (metrics *Metrics) observeTokenThrottled() {
	if metrics == nil {
		return
	}
	metrics.tokensThrottled.Inc()
}
