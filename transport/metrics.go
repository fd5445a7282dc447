package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/luma/homelink/protocol"
)

// Metrics holds the Prometheus metrics of both dispatchers. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	connections     prometheus.Counter
	sessionsActive  prometheus.Gauge
	commands        *prometheus.CounterVec
	datagrams       prometheus.Counter
	replies         *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with registerer. It
// returns nil metrics for a nil registerer.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		return nil, nil
	}

	m := &Metrics{
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "homelink",
			Subsystem: "socket",
			Name:      "connections_total",
			Help:      "Total socket protocol connections accepted",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "homelink",
			Subsystem: "socket",
			Name:      "sessions_active",
			Help:      "Socket sessions currently open",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homelink",
			Subsystem: "socket",
			Name:      "commands_total",
			Help:      "Socket commands received by kind",
		}, []string{"kind"}),
		datagrams: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "homelink",
			Subsystem: "thermometer",
			Name:      "datagrams_total",
			Help:      "Thermometer datagrams received",
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homelink",
			Subsystem: "thermometer",
			Name:      "replies_total",
			Help:      "Thermometer replies sent by status",
		}, []string{"status"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homelink",
			Name:      "transport_errors_total",
			Help:      "Read and write failures by protocol",
		}, []string{"proto"}),
	}

	var err error
	for _, c := range []prometheus.Collector{
		m.connections,
		m.sessionsActive,
		m.commands,
		m.datagrams,
		m.replies,
		m.transportErrors,
	} {
		err = multierr.Append(err, registerer.Register(c))
	}

	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}

	m.connections.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}

	m.sessionsActive.Dec()
}

func (m *Metrics) commandReceived(kind protocol.Kind) {
	if m == nil {
		return
	}

	m.commands.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) datagramReceived() {
	if m == nil {
		return
	}

	m.datagrams.Inc()
}

func (m *Metrics) replySent(status protocol.ResponseStatus) {
	if m == nil {
		return
	}

	m.replies.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) transportError(proto string) {
	if m == nil {
		return
	}

	m.transportErrors.WithLabelValues(proto).Inc()
}
