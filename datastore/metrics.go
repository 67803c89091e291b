package datastore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// outcome label values
const (
	outcomeOK         = "ok"
	outcomeValidation = "validation"
	outcomeConnection = "connection"
	outcomeOperation  = "operation"
)

// Metrics records client activity in Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	operations  *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	reconnects  prometheus.Counter
	connections prometheus.Gauge
}

// NewMetrics registers the docstore collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "docstore",
				Subsystem: "client",
				Name:      "operations_total",
				Help:      "Total number of document operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "docstore",
				Subsystem: "client",
				Name:      "operation_duration_seconds",
				Help:      "Document operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "docstore",
			Subsystem: "client",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts made before an operation",
		}),
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "docstore",
			Subsystem: "client",
			Name:      "open_connections",
			Help:      "Clients currently holding a live connection",
		}),
	}
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome(err)).Inc()
	m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) connected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connections.Inc()
	} else {
		m.connections.Dec()
	}
}

func outcome(err error) string {
	switch KindOf(err) {
	case nil:
		if err != nil {
			return outcomeOperation
		}
		return outcomeOK
	case ErrValidation:
		return outcomeValidation
	case ErrConnection:
		return outcomeConnection
	default:
		return outcomeOperation
	}
}
