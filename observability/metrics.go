package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record RPC
// getter activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total RPC requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total RPC errors segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "affiliate",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an RPC request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// LedgerMetrics tracks message delivery on the in-process ledger.
type LedgerMetrics struct {
	messages *prometheus.CounterVec
	exits    *prometheus.CounterVec
	bounces  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	queue    prometheus.Gauge
}

// Ledger returns the singleton ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			messages: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "ledger",
				Name:      "messages_total",
				Help:      "Delivered messages segmented by receiving contract kind and outcome.",
			}, []string{"contract", "outcome"}),
			exits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "ledger",
				Name:      "exit_codes_total",
				Help:      "Aborted message handlers segmented by exit code.",
			}, []string{"contract", "code"}),
			bounces: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "affiliate",
				Subsystem: "ledger",
				Name:      "bounces_total",
				Help:      "Bounced messages returned to senders.",
			}, []string{"contract"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "affiliate",
				Subsystem: "ledger",
				Name:      "handler_duration_seconds",
				Help:      "Time spent inside contract message handlers.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			}, []string{"contract"}),
			queue: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "affiliate",
				Subsystem: "ledger",
				Name:      "queue_depth",
				Help:      "Messages waiting for delivery.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.messages,
			ledgerRegistry.exits,
			ledgerRegistry.bounces,
			ledgerRegistry.latency,
			ledgerRegistry.queue,
		)
	})
	return ledgerRegistry
}

// ObserveDelivery records one handled message. A zero exit code means the
// handler committed.
func (m *LedgerMetrics) ObserveDelivery(contract string, exitCode int32, duration time.Duration) {
	if m == nil {
		return
	}
	if contract == "" {
		contract = "unknown"
	}
	outcome := "committed"
	if exitCode != 0 {
		outcome = "aborted"
		m.exits.WithLabelValues(contract, fmt.Sprintf("%d", exitCode)).Inc()
	}
	m.messages.WithLabelValues(contract, outcome).Inc()
	m.latency.WithLabelValues(contract).Observe(duration.Seconds())
}

// RecordBounce increments the bounce counter for the contract kind that
// rejected the message.
func (m *LedgerMetrics) RecordBounce(contract string) {
	if m == nil {
		return
	}
	if contract == "" {
		contract = "unknown"
	}
	m.bounces.WithLabelValues(contract).Inc()
}

// SetQueueDepth publishes the current queue length.
func (m *LedgerMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queue.Set(float64(depth))
}
