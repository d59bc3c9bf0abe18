// This package is a pure golang implementation of the CC-LinkMonitor
// heartbeat protocol for multipath link monitoring and mobility management.
// A mobile node reaches a stationary resource manager over several parallel
// links and runs one heartbeat Writer per link. The resource manager runs a
// single Reader that derives a per-link up/down signal from heartbeat timing,
// a MobilityServer that pushes the link status vector back to the mobile
// side, and a ConnectionManager that switches the application dataplane
// target whenever the active link goes down.
package linkmonitor

import "time"

const (
	// DefaultHeartbeatPort is the default destination port for heartbeat datagrams.
	DefaultHeartbeatPort = 50000
	// DefaultMobilityPort is the default port of the mobility server.
	DefaultMobilityPort = 40000
	// DataplanePort is the fixed dataplane target port handed to the
	// application callback. Part of the protocol contract, not configurable.
	DataplanePort = 55000
)

// DefaultSwitchingDelay is the handover delay applied by the delay variant
// of the connection manager when no explicit delay is configured.
const DefaultSwitchingDelay = 1000 * time.Millisecond

// DefaultSpinThreshold separates busy-wait pacing from sleep pacing in the
// heartbeat writer. Periods below the threshold are paced with a spin loop.
const DefaultSpinThreshold = 1 * time.Millisecond
