// Cloudia-bridge forwards TH sensor uplinks from a LoRaWAN network server
// into InfluxDB and the live websocket feed.
//
// It subscribes to the application's uplink topic over MQTT, decodes each
// bit-packed payload into epochs and writes them to every configured sink.
//
// Usage:
//
//	cloudia-bridge serve [flags]
//
// See 'cloudia-bridge serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloudia/cloudia/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cloudia-bridge",
	Short: "TH sensor uplink bridge",
	Long: `Bridge between a LoRaWAN network server and your telemetry stack.

Uplinks are received over MQTT, decoded into temperature and humidity
epochs and written to InfluxDB, the log and the optional live feed.

Note: to reconfigure sensors, use the separate 'cloudia-downlink' utility.
To inspect payloads or watch the feed, use 'cloudia-tool'.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.Detailed("cloudia-bridge"))
	},
}
