package linkmonitor

import "github.com/prometheus/client_golang/prometheus"

var (
	HeartbeatsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmonitor_heartbeats_sent_total",
			Help: "Heartbeat datagrams emitted per destination",
		},
		[]string{"destination"},
	)

	HeartbeatsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmonitor_heartbeats_received_total",
			Help: "Heartbeat datagrams received per peer",
		},
		[]string{"peer"},
	)

	LinkUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "linkmonitor_link_up",
			Help: "Current liveness per monitored link (1 up, 0 down)",
		},
		[]string{"link"},
	)

	LinkLossEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmonitor_link_loss_events_total",
			Help: "Audit passes that declared the link down",
		},
		[]string{"link"},
	)

	Handovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkmonitor_handovers_total",
			Help: "Dataplane target switches performed by the connection manager",
		},
	)

	StatusPushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "linkmonitor_status_pushes_total",
			Help: "Link status datagrams sent by the mobility server",
		},
	)

	SendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linkmonitor_send_errors_total",
			Help: "Failed datagram transmissions per component",
		},
		[]string{"component"},
	)
)

// RegisterMetrics registers all package collectors with the given
// registry, typically prometheus.DefaultRegisterer.
func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(
		HeartbeatsSent,
		HeartbeatsReceived,
		LinkUp,
		LinkLossEvents,
		Handovers,
		StatusPushes,
		SendErrors,
	)
}
