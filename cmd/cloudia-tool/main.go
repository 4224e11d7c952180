// Cloudia-tool is a toolbox for TH sensor payloads and the live feed.
//
// It decodes and builds uplink payloads offline, watches a running bridge's
// live feed and discovers feeds advertised on the local network.
//
// Usage:
//
//	cloudia-tool [command] [flags]
//
// See 'cloudia-tool --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/version"
)

var logLevel string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cloudia-tool",
	Short: "TH sensor payload and feed toolbox",
	Long: `Offline payload tooling and live feed client for cloudia.

Decode captured uplinks, build test payloads, watch the live feed of a
running bridge or find feeds on the local network.

Note: to run the bridge itself, use 'cloudia-bridge serve'.
To reconfigure sensors, use 'cloudia-downlink'.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent by default")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.Detailed("cloudia-tool"))
	},
}
