package main

import (
	"os"

	"market-aggregator/src/config"
	"market-aggregator/src/helpers"
	"market-aggregator/src/logger"
	"market-aggregator/src/symbols"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// overrides are command line settings that win over the config file
type overrides struct {
	cadence  string
	market   string
	alwaysOn string
}

// -----------------------------------------------------------------------------

func main() {
	root := &cobra.Command{
		Use:          "market-aggregator",
		Short:        "Keeps rolling price histories per symbol and publishes every new record",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/default.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set console log output to verbose")

	root.AddCommand(newRunCmd(), newSymbolsCmd(), newStatusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// -----------------------------------------------------------------------------

func (o *overrides) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.cadence, "cadence", "", "polling cadence (1m, 2m, 5m, 15m, 30m, 60m, 90m, 1d)")
	cmd.Flags().StringVar(&o.market, "market", "", "market-hours symbols: list, file, URL, pg:schema.table.field or none")
	cmd.Flags().StringVar(&o.alwaysOn, "always-on", "", "always-on symbols: list, file, URL, pg:schema.table.field or none")
}

// loadConfig reads the config file, applies the command line overrides and
// configures logging.
func loadConfig(o overrides) (*config.Config, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}

	if o.cadence != "" {
		cfg.Cadence = o.cadence
	}
	if o.market != "" {
		cfg.Symbols.Market = symbols.ParseSource(o.market)
	}
	if o.alwaysOn != "" {
		cfg.Symbols.AlwaysOn = symbols.ParseSource(o.alwaysOn)
	}
	if verbose {
		cfg.LogLevel = "DEBUG"
	}

	if err := cfg.Validate(); err != nil {
		return nil, helpers.NewConfigurationError(err, "invalid command line overrides")
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, helpers.NewConfigurationError(err, "failed to open log file")
	}
	return cfg, nil
}
