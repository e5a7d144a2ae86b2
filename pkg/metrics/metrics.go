// Package metrics provides Prometheus metrics for the enygma engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "enygma"

type Metrics struct {
	// MessagesTotal counts processed messages by character set
	MessagesTotal *prometheus.CounterVec
	// SymbolsTotal counts symbols handled by each module type
	SymbolsTotal *prometheus.CounterVec
	// MessageDuration tracks whole-message processing time
	MessageDuration prometheus.Histogram
	// ChainEditsTotal counts chain edits by operation and outcome
	ChainEditsTotal *prometheus.CounterVec
	// StoreOperationsTotal counts saved configuration operations
	StoreOperationsTotal *prometheus.CounterVec
	// EventsPublishedTotal counts processed-message events by outcome
	EventsPublishedTotal *prometheus.CounterVec
}

// New registers the engine metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "messages_total",
				Help:      "Total number of processed messages by character set",
			},
			[]string{"character_set"},
		),
		SymbolsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "module_symbols_total",
				Help:      "Total number of symbols handled per module type",
			},
			[]string{"module_type"},
		),
		MessageDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "message_duration_seconds",
				Help:      "Duration of whole-message processing in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
		ChainEditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chain",
				Name:      "edits_total",
				Help:      "Total number of chain edits by operation and status",
			},
			[]string{"operation", "status"},
		),
		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of saved configuration operations",
			},
			[]string{"operation", "status"},
		),
		EventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of processed-message events by status",
			},
			[]string{"status"},
		),
	}
}

// The Observe methods are no-ops on a nil *Metrics.

// Status maps an error to a metric label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveMessage(characterSet string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(characterSet).Inc()
	m.MessageDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSymbol(moduleType string) {
	if m == nil {
		return
	}
	m.SymbolsTotal.WithLabelValues(moduleType).Inc()
}

func (m *Metrics) ObserveEdit(operation string, err error) {
	if m == nil {
		return
	}
	m.ChainEditsTotal.WithLabelValues(operation, Status(err)).Inc()
}

func (m *Metrics) ObserveStore(operation string, err error) {
	if m == nil {
		return
	}
	m.StoreOperationsTotal.WithLabelValues(operation, Status(err)).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(Status(err)).Inc()
}
