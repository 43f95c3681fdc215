// Package cmd implements the fcctl command line tool for driving a Gilson
// FC-203B fraction collector over GSIOC.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cntsep/go-gsioc/internal/config"
	"github.com/cntsep/go-gsioc/logger"
)

var (
	configPath string
	portName   string
	baudRate   int
	unitID     int
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "fcctl",
	Short: "Gilson FC-203B fraction collector control",
	Long: `fcctl drives a Gilson FC-203B fraction collector over a GSIOC serial bus.

Provides commands for moving the collection head, teaching and recalling
named positions, and running automated collection cycles.

Connection: --port /dev/ttyUSB0 [--baud 19200] [--unit 6]

Settings may also come from a YAML configuration file (--config); flags
given on the command line take precedence.`,
	Version: "1.2.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logger.SetLevel(logger.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaudRate, "Baud rate")
	rootCmd.PersistentFlags().IntVarP(&unitID, "unit", "u", config.DefaultUnitID, "GSIOC unit ID of the collector")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
