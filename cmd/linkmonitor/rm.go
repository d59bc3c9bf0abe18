package main

import (
	"os"
	"os/signal"
	"syscall"

	linkmonitor "github.com/IDA-TUBS/CC-LinkMonitor"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rmCmd runs the resource manager side: one heartbeat reader, the
// mobility server pushing status to all mobile endpoints and a
// connection manager that triggers a status push on every handover.
func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm",
		Short: "Run the resource manager node (reader, mobility server, connection manager)",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := linkmonitor.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return runResourceManager(config)
		},
	}
}

func runResourceManager(config *linkmonitor.Config) error {
	linkmonitor.RegisterMetrics(prometheus.DefaultRegisterer)

	reader, err := linkmonitor.NewReader(config.Id, linkmonitor.ReaderConfig{
		Socket: linkmonitor.SocketEndpoint{Addr: config.HeartbeatListen, Port: config.HeartbeatPort},
		Period: config.Period,
		Slack:  config.Slack,
		Loss:   config.Loss,
	})
	if err != nil {
		return err
	}

	server, err := linkmonitor.NewMobilityServer(
		config.Id,
		linkmonitor.SocketEndpoint{Addr: config.MobilityListen, Port: config.MobilityPort},
		config.Links,
		reader.LinkStatus(),
	)
	if err != nil {
		reader.Stop()
		return err
	}

	var manager *linkmonitor.ConnectionManager
	if config.SwitchingDelay > 0 {
		manager = linkmonitor.NewConnectionManagerDelay(config.Links, server.Callback(), reader.LinkChange(), reader.LinkStatus(), config.SwitchingDelay)
	} else {
		manager = linkmonitor.NewConnectionManager(config.Links, server.Callback(), reader.LinkChange(), reader.LinkStatus())
	}

	var gateway *linkmonitor.HTTPGateway
	if config.GatewayListen != "" {
		gateway = linkmonitor.NewHTTPGateway(config.GatewayListen, reader, nil, manager)
		gateway.Serve()
	}

	var first linkmonitor.Heartbeat
	bootstrap, err := reader.InitHeartbeat(&first, debug)
	if err != nil {
		reader.Stop()
		server.Stop()
		return err
	}
	if err := manager.Init(bootstrap.IP.String()); err != nil {
		log.Errorf("[MAIN] bootstrap link outside ip map, running without handover: %v", err)
	}
	server.Init(bootstrap.IP.String(), bootstrap.Port)

	waitForSignal()

	if gateway != nil {
		gateway.Stop()
	}
	manager.Stop()
	reader.Stop()
	server.Stop()
	return nil
}

func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	received := <-signals
	log.Infof("[MAIN] received %v, shutting down", received)
}
