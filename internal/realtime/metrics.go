package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one Client. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	eventsReceived    *prometheus.CounterVec
	eventsCaught      prometheus.Counter
	sendsTotal        *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	connected         prometheus.Gauge
}

// NewMetrics creates the link collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robodash",
			Subsystem: "link",
			Name:      "events_received_total",
			Help:      "Inbound events delivered to demultiplexed channel streams",
		}, []string{"channel"}),

		eventsCaught: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "robodash",
			Subsystem: "link",
			Name:      "events_catch_all_total",
			Help:      "Inbound events forwarded to the catch-all sink",
		}),

		sendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robodash",
			Subsystem: "link",
			Name:      "sends_total",
			Help:      "Outbound events handed to the transport, by result",
		}, []string{"channel", "result"}),

		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "robodash",
			Subsystem: "link",
			Name:      "status_transitions_total",
			Help:      "Connection status values emitted",
		}, []string{"status"}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "robodash",
			Subsystem: "link",
			Name:      "connected",
			Help:      "1 while the backend link is connected",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.eventsReceived,
		m.eventsCaught,
		m.sendsTotal,
		m.statusTransitions,
		m.connected,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) received(channel string) {
	if m == nil {
		return
	}
	m.eventsReceived.WithLabelValues(channel).Inc()
}

func (m *Metrics) caught() {
	if m == nil {
		return
	}
	m.eventsCaught.Inc()
}

func (m *Metrics) sent(channel string, err error) {
	if m == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "dropped"
	}
	m.sendsTotal.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) status(s ConnectionStatus) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(string(s)).Inc()
	if s == StatusConnected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}
