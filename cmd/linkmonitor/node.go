package main

import (
	linkmonitor "github.com/IDA-TUBS/CC-LinkMonitor"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// nodeCmd runs the mobile node side: one heartbeat writer per wireless
// interface, the mobility client mirroring the RM's link status and,
// when an ip map is configured, a connection manager retargeting the
// local dataplane.
func nodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node",
		Short: "Run the mobile node (heartbeat writers, mobility client, connection manager)",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := linkmonitor.LoadConfig(configPath)
			if err != nil {
				return err
			}
			return runMobileNode(config)
		},
	}
}

func runMobileNode(config *linkmonitor.Config) error {
	linkmonitor.RegisterMetrics(prometheus.DefaultRegisterer)

	writers := make([]*linkmonitor.Writer, 0, len(config.Writers))
	for _, pair := range config.Writers {
		writer, err := linkmonitor.NewWriter(config.Id, linkmonitor.WriterConfig{
			Socket:        linkmonitor.SocketEndpoint{Addr: pair.Source, Port: config.HeartbeatPort},
			Reader:        linkmonitor.SocketEndpoint{Addr: pair.Target, Port: config.HeartbeatPort},
			Period:        config.Period,
			SpinThreshold: config.SpinThreshold,
		})
		if err != nil {
			for _, running := range writers {
				running.Stop()
			}
			return err
		}
		writers = append(writers, writer)
	}

	client, err := linkmonitor.NewMobilityClient(config.Id, linkmonitor.SocketEndpoint{
		Addr: config.MobilityListen,
		Port: config.MobilityPort,
	})
	if err != nil {
		return err
	}

	for _, writer := range writers {
		writer.Run()
	}

	var manager *linkmonitor.ConnectionManager
	if len(config.Links) > 0 {
		setTarget := func(targetIP string, targetPort int) {
			log.Infof("[MAIN] dataplane target: %s:%d", targetIP, targetPort)
		}
		if config.SwitchingDelay > 0 {
			manager = linkmonitor.NewConnectionManagerDelay(config.Links, setTarget, client.LinkChange(), client.LinkStatus(), config.SwitchingDelay)
		} else {
			manager = linkmonitor.NewConnectionManager(config.Links, setTarget, client.LinkChange(), client.LinkStatus())
		}
	}

	var gateway *linkmonitor.HTTPGateway
	if config.GatewayListen != "" {
		gateway = linkmonitor.NewHTTPGateway(config.GatewayListen, nil, client, manager)
		gateway.Serve()
	}

	firstLink, err := client.Init()
	if err != nil {
		for _, writer := range writers {
			writer.Stop()
		}
		client.Stop()
		return err
	}
	log.Infof("[MAIN] bootstrap link: %s", firstLink)
	if manager != nil {
		if err := manager.Init(firstLink); err != nil {
			log.Errorf("[MAIN] bootstrap link outside ip map, running without handover: %v", err)
			manager = nil
		}
	}

	waitForSignal()

	if gateway != nil {
		gateway.Stop()
	}
	if manager != nil {
		manager.Stop()
	}
	for _, writer := range writers {
		writer.Stop()
	}
	client.Stop()
	return nil
}
