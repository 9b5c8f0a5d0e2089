package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/governor/internal/config"
	"github.com/zeusync/governor/internal/governor"
	"github.com/zeusync/governor/internal/injector"
)

type rootOptions struct {
	configPath string
	storePath  string
	endpoint   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "governor",
		Short: "Runtime governance for frame rate, effects budget, render faults and score delivery",
		Long: `governor runs the governance runtime outside a renderer and inspects its state.

Examples:
  governor run --session-expires 36h          # Run with a session expiring in 36 hours
  governor simulate --trace 60x60,35x120      # Replay an FPS trace through the monitor
  governor queue list --store scores.db       # Show pending scores
  governor queue drain --endpoint https://...  # Deliver pending scores now
  governor config                             # Print the effective configuration`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"YAML configuration file (defaults to $"+config.EnvPath+")")
	cmd.PersistentFlags().StringVar(&opts.storePath, "store", "",
		"bbolt file holding pending scores (overrides delivery.store_path)")
	cmd.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "",
		"score endpoint (overrides delivery.endpoint)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "",
		"log level: debug, info, warn, error, silent")

	cmd.AddCommand(
		newRunCmd(opts),
		newSimulateCmd(opts),
		newQueueCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load resolves the config file and applies flag overrides.
func (o *rootOptions) load() (governor.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return governor.Config{}, err
	}
	if o.storePath != "" {
		cfg.Delivery.StorePath = o.storePath
	}
	if o.endpoint != "" {
		cfg.Delivery.Endpoint = o.endpoint
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

// runtime builds the runtime. done closes it and releases the store and
// the HTTP client.
func (o *rootOptions) runtime() (*governor.Runtime, func(), error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	rt, cleanup, err := injector.InitializeRuntime(cfg)
	if err != nil {
		return nil, nil, err
	}
	done := func() {
		_ = rt.Close()
		cleanup()
	}
	return rt, done, nil
}
