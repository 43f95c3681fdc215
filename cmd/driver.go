package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cntsep/go-gsioc/fc203b"
	"github.com/cntsep/go-gsioc/gsioc"
	"github.com/cntsep/go-gsioc/internal/config"
)

// loadConfig merges the YAML configuration file, when given, with the
// command line flags. Flags set explicitly on the command line win.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	flags := rootCmd.PersistentFlags()

	if flags.Changed("port") || cfg.Collector.Port == "" {
		cfg.Collector.Port = portName
	}

	if flags.Changed("baud") {
		cfg.Collector.Baud = baudRate
	}

	if flags.Changed("unit") {
		cfg.Collector.UnitID = unitID
	}

	if cfg.Collector.Port == "" {
		return nil, errors.New("no serial port given; use --port or a config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// openController opens the serial port, connects the GSIOC session, and
// returns a controller plus a cleanup function that releases both.
func openController(cfg *config.Config) (*fc203b.Controller, func(), error) {
	transport, err := gsioc.OpenSerial(cfg.Collector.Port, cfg.Collector.Baud)
	if err != nil {
		return nil, nil, err
	}

	sessCfg, err := gsioc.NewSessionConfig(cfg.Collector.UnitID)
	if err != nil {
		_ = transport.Close()

		return nil, nil, err
	}

	session, err := gsioc.NewSession(transport, sessCfg)
	if err != nil {
		_ = transport.Close()

		return nil, nil, err
	}

	if err := session.Connect(); err != nil {
		_ = session.Close()

		return nil, nil, fmt.Errorf("connect to collector at unit %d: %w",
			cfg.Collector.UnitID, err)
	}

	cleanup := func() {
		_ = session.Close()
	}

	return fc203b.New(session), cleanup, nil
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
