// mqttdesk - MQTT broker workbench backend
//
// mqttdesk keeps sessions to any number of MQTT brokers and exposes them
// over a local HTTP + WebSocket API:
//   - saved broker definitions and subscriptions in SQLite
//   - publish, subscribe and live message streaming per broker
//   - message history with optional InfluxDB telemetry
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancelled on Ctrl+C or SIGTERM; serve shuts down gracefully.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. A fresh tree per call keeps flag
// state out of package globals.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "mqttdesk",
		Short:         "mqttdesk - MQTT multi-broker workbench backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $MQTTDESK_CONFIG or "+defaultConfigPath+")")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newHashKeyCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration file. With no explicit path the
// built-in defaults are used when the default file does not exist.
func loadConfig(flagPath string) (*config.Config, error) {
	path, explicit := getConfigPath(flagPath)

	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return config.Default()
	}
	return nil, fmt.Errorf("loading config: %w", err)
}

// getConfigPath returns the configuration file path and whether the user
// chose it. The flag wins over MQTTDESK_CONFIG.
func getConfigPath(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if path := os.Getenv("MQTTDESK_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mqttdesk %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
