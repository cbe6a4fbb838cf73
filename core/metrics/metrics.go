// Package metrics holds the Prometheus collectors shared by the bot runtime.
// All recording methods are safe on a nil *Metrics so components can run
// without instrumentation in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "newsbot"

// Metrics groups the bot collectors and the registry they are bound to.
type Metrics struct {
	Registry *prometheus.Registry

	updates          *prometheus.CounterVec
	handlerDuration  *prometheus.HistogramVec
	apiCalls         *prometheus.CounterVec
	rateLimitRetries *prometheus.CounterVec
	storeWrites      *prometheus.CounterVec
	backups          *prometheus.CounterVec
	mediaGroups      prometheus.Counter
	pollErrors       prometheus.Counter
}

// New builds a registry with process/go collectors and the bot collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Updates processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		handlerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "Bot API calls by method and outcome.",
		}, []string{"method", "outcome"}),
		rateLimitRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_rate_limit_retries_total",
			Help:      "Retries caused by 429 responses.",
		}, []string{"method"}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Content store writes by outcome.",
		}, []string{"outcome"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_backups_total",
			Help:      "Store backups by outcome.",
		}, []string{"outcome"}),
		mediaGroups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_groups_flushed_total",
			Help:      "Media groups materialized into drafts.",
		}),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Failed getUpdates calls.",
		}),
	}
	reg.MustRegister(
		m.updates,
		m.handlerDuration,
		m.apiCalls,
		m.rateLimitRetries,
		m.storeWrites,
		m.backups,
		m.mediaGroups,
		m.pollErrors,
	)
	return m
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// ObserveUpdate counts a processed update.
func (m *Metrics) ObserveUpdate(kind, outcome string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind, outcome).Inc()
}

// ObserveHandler records handler latency.
func (m *Metrics) ObserveHandler(handler string, took time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// ObserveAPICall counts a finished Bot API call.
func (m *Metrics) ObserveAPICall(method, outcome string) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(method, outcome).Inc()
}

// ObserveRateLimitRetry counts one wait-and-retry cycle.
func (m *Metrics) ObserveRateLimitRetry(method string) {
	if m == nil {
		return
	}
	m.rateLimitRetries.WithLabelValues(method).Inc()
}

// ObserveStoreWrite counts a store write.
func (m *Metrics) ObserveStoreWrite(outcome string) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(outcome).Inc()
}

// ObserveBackup counts a backup attempt.
func (m *Metrics) ObserveBackup(outcome string) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(outcome).Inc()
}

// ObserveMediaGroup counts a flushed media group.
func (m *Metrics) ObserveMediaGroup() {
	if m == nil {
		return
	}
	m.mediaGroups.Inc()
}

// ObservePollError counts a failed fetch.
func (m *Metrics) ObservePollError() {
	if m == nil {
		return
	}
	m.pollErrors.Inc()
}
