package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:           "linkmonitor",
		Short:         "Heartbeat based multipath link monitoring and mobility management",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "linkmonitor.ini", "deployment configuration file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(rmCmd())
	root.AddCommand(nodeCmd())

	if err := root.Execute(); err != nil {
		log.Errorf("[MAIN] %v", err)
		os.Exit(1)
	}
}
