// Package metrics exposes Prometheus counters and gauges for the link's
// internals. It observes C1-C5 but never gates their control flow.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles every collector the link registers. It owns its own
// registry rather than using prometheus.DefaultRegisterer so more than one
// link can exist in the same process (e.g. in tests) without a
// duplicate-registration panic.
type Metrics struct {
	Registry *prometheus.Registry

	FramesRouted      *prometheus.CounterVec
	HeartbeatsSent    prometheus.Counter
	HeartbeatsSendErr prometheus.Counter
	Reservations      *prometheus.CounterVec
	CommandResults    *prometheus.CounterVec
	VehiclesDiscovered prometheus.Gauge
}

// New constructs and registers a fresh set of collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		FramesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corelink",
			Name:      "frames_routed_total",
			Help:      "MAVLink frames routed, partitioned by message type.",
		}, []string{"type"}),
		HeartbeatsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corelink",
			Name:      "heartbeats_sent_total",
			Help:      "Ground-station heartbeats successfully sent.",
		}),
		HeartbeatsSendErr: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "corelink",
			Name:      "heartbeat_send_errors_total",
			Help:      "Ground-station heartbeat send failures.",
		}),
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corelink",
			Name:      "reservations_total",
			Help:      "Reservation attempts, partitioned by outcome (granted, busy).",
		}, []string{"outcome"}),
		CommandResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "corelink",
			Name:      "command_results_total",
			Help:      "Command executor outcomes, partitioned by command and success.",
		}, []string{"command", "success"}),
		VehiclesDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "corelink",
			Name:      "vehicles_discovered",
			Help:      "Number of vehicles currently known to the link.",
		}),
	}

	reg.MustRegister(
		m.FramesRouted,
		m.HeartbeatsSent,
		m.HeartbeatsSendErr,
		m.Reservations,
		m.CommandResults,
		m.VehiclesDiscovered,
	)
	return m
}
