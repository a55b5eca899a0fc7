package circuit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "simlink"

// Metrics holds the circuit's Prometheus collectors.
type Metrics struct {
	PacketsReceived *prometheus.CounterVec
	PacketsSent     *prometheus.CounterVec
	AcksSent        prometheus.Counter
	Dropped         *prometheus.CounterVec
	State           prometheus.Gauge
}

// NewMetrics registers the circuit collectors with reg. A nil registerer
// creates unregistered collectors, which is what tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PacketsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "circuit",
			Name:      "packets_received_total",
			Help:      "Datagrams received, by message name",
		}, []string{"message"}),

		PacketsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "circuit",
			Name:      "packets_sent_total",
			Help:      "Datagrams sent, by message name",
		}, []string{"message"}),

		AcksSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "circuit",
			Name:      "acks_sent_total",
			Help:      "Acknowledgements sent for reliable datagrams",
		}),

		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "circuit",
			Name:      "datagrams_dropped_total",
			Help:      "Inbound datagrams discarded, by error kind",
		}, []string{"kind"}),

		State: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "circuit",
			Name:      "state",
			Help:      "Current circuit state (0 disconnected, 1 circuit_open, 2 awaiting_handshake, 3 connected)",
		}),
	}
}
