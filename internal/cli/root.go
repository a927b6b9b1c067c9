// Package cli provides the memviz command-line interface.
package cli

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"memviz/internal/config"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memviz",
	Short: "Live dashboard for a memory-management simulation service.",
	Long: `memviz renders the state of a remote memory-management simulation ` +
		`as a frame grid, a utilization chart, an operation log and summary ` +
		`statistics, and pushes every change to the browser over a websocket.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "configuration file path (yaml, json or toml)")
}

// Execute runs the requested command, then the registered exit hooks.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func configureLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", cfg.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}
}
