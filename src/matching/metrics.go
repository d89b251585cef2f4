package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the engine's pool sizes and outcomes to Prometheus.
//
// Gauges are refreshed after every handler the loop runs, so a scrape
// always sees a state in which the pool invariants hold.
type Metrics struct {
	// Connections is the number of registered realtime connections.
	Connections prometheus.Gauge

	// Waiting and Pending are the pool sizes.
	Waiting prometheus.Gauge
	Pending prometheus.Gauge

	// Sessions counts matched pairs that own a room.
	Sessions prometheus.Gauge

	// Introductions counts pairs shown to each other.
	Introductions prometheus.Counter

	// Outcomes counts match logs by status.
	// Labels: status (pending|matched|declined|expired|canceled|completed|reported)
	Outcomes *prometheus.CounterVec

	// Signals counts relayed WebRTC messages.
	// Labels: kind (offer|answer|ice), result (relayed|dropped)
	Signals *prometheus.CounterVec
}

// NewMetrics registers the matching metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "haze_matching_connections",
			Help: "Number of live realtime connections",
		}),
		Waiting: factory.NewGauge(prometheus.GaugeOpts{
			Name: "haze_matching_waiting",
			Help: "Number of users in the waiting pool",
		}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "haze_matching_pending",
			Help: "Number of users in the pending pool",
		}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "haze_matching_sessions",
			Help: "Number of live webchat sessions",
		}),
		Introductions: factory.NewCounter(prometheus.CounterOpts{
			Name: "haze_matching_introductions_total",
			Help: "Total number of introductions",
		}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haze_matching_outcomes_total",
			Help: "Total number of pairing outcomes by match status",
		}, []string{"status"}),
		Signals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "haze_matching_signals_total",
			Help: "Total number of WebRTC signals by kind and result",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) observe(connections, waiting, pending, sessions int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(connections))
	m.Waiting.Set(float64(waiting))
	m.Pending.Set(float64(pending))
	m.Sessions.Set(float64(sessions))
}

func (m *Metrics) introduced() {
	if m == nil {
		return
	}
	m.Introductions.Inc()
}

func (m *Metrics) outcome(status string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) signal(kind SignalKind, relayed bool) {
	if m == nil {
		return
	}
	result := "dropped"
	if relayed {
		result = "relayed"
	}
	m.Signals.WithLabelValues(string(kind), result).Inc()
}
