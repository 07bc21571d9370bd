package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shehryarbajwa/deckard-mini/internal/config"
	"github.com/shehryarbajwa/deckard-mini/internal/logging"
)

func main() {
	root := newRootCmd()
	root.AddCommand(newServeCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:           "deckard",
		Short:         "Preview application screens in any language from the browser",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a deckard.yml config file")
	cmd.PersistentFlags().String("upstream-url", defaults.UpstreamURL, "Base URL of the upstream preview server")
	cmd.PersistentFlags().String("catalog", defaults.CatalogPath, "Path to the module catalog")
	cmd.PersistentFlags().String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.LogFormat, "Log format (text, json, simple)")
	cmd.PersistentFlags().Duration("heartbeat-period", defaults.HeartbeatPeriod, "Keep-alive period of a live session")
	cmd.PersistentFlags().Duration("request-timeout", defaults.RequestTimeout, "Timeout of one upstream request")
	return cmd
}

// loadConfig resolves the settings of cmd and configures logging from them
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logging.Configure(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	return cfg, nil
}
