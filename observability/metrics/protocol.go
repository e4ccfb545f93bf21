package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProtocolMetrics tracks the lending protocol's state transitions.
type ProtocolMetrics struct {
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	lamports    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	events      *prometheus.CounterVec
}

var (
	protocolOnce     sync.Once
	protocolRegistry *ProtocolMetrics
)

// Protocol returns the lazily registered protocol metrics.
func Protocol() *ProtocolMetrics {
	protocolOnce.Do(func() {
		protocolRegistry = &ProtocolMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "protocol",
				Name:      "transitions_total",
				Help:      "Committed operations segmented by module and operation.",
			}, []string{"module", "operation"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "protocol",
				Name:      "failures_total",
				Help:      "Rejected operations segmented by operation and error kind.",
			}, []string{"operation", "kind"}),
			lamports: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "protocol",
				Name:      "lamports_moved_total",
				Help:      "Native currency moved by committed operations, by purpose.",
			}, []string{"purpose"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "nftlend",
				Subsystem: "protocol",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution of protocol operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftlend",
				Subsystem: "protocol",
				Name:      "events_total",
				Help:      "Events published after commit, by type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(
			protocolRegistry.transitions,
			protocolRegistry.failures,
			protocolRegistry.lamports,
			protocolRegistry.latency,
			protocolRegistry.events,
		)
	})
	return protocolRegistry
}

func label(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return "unknown"
}

// ObserveOperation records the outcome and latency of one operation. kind is
// empty for committed operations.
func (m *ProtocolMetrics) ObserveOperation(module, operation, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	if kind == "" {
		m.transitions.WithLabelValues(label(module), label(operation)).Inc()
	} else {
		m.failures.WithLabelValues(label(operation), kind).Inc()
	}
	m.latency.WithLabelValues(label(operation)).Observe(duration.Seconds())
}

// RecordLamports adds amount to the counter for purpose, e.g. "principal",
// "interest", "premium", "royalty" or "rent".
func (m *ProtocolMetrics) RecordLamports(purpose string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.lamports.WithLabelValues(label(purpose)).Add(float64(amount))
}

// RecordEvent counts a published event.
func (m *ProtocolMetrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(label(eventType)).Inc()
}
