// Cloudia-downlink schedules a configuration downlink for one TH sensor.
//
// The 4-byte configuration sets the sampling period and the number of
// samples per uplink. It is queued on the network server and delivered
// after the sensor's next uplink.
//
// Usage:
//
//	cloudia-downlink <config> <deviceId> [flags]
//
// See 'cloudia-downlink --help' for available options.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudia/cloudia/internal/config"
	"github.com/cloudia/cloudia/internal/deviceconfig"
	"github.com/cloudia/cloudia/internal/lns"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/ui"
	"github.com/cloudia/cloudia/internal/urls"
	"github.com/cloudia/cloudia/internal/version"
)

const publishTimeout = 30 * time.Second

// Downlink flags
var (
	period    string
	nsamples  int
	current   string
	dryRun    bool
	assumeYes bool
	logLevel  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cloudia-downlink <config> <deviceId>",
	Short: "Send a configuration downlink to a TH sensor",
	Long: `Build the sensor configuration and push it to the network server.

The period is a number followed by a unit: s (1-127), m (1-63) or h (1-63).
Go durations such as 1m30s or 120m are accepted when a single unit
represents them exactly. The sample count is the number of epochs the sensor batches into one uplink
(1-255), so a sensor uplinks every period × nsamples.

The downlink is sent on port 144 with NORMAL priority. Class A sensors
receive it in the receive window after their next uplink.`,
	Example: `  # Sample every 10 seconds, 10 samples per uplink (defaults)
  cloudia-downlink ~/.config/cloudia/config.yaml th-greenhouse

  # Sample every 5 minutes, one uplink per hour
  cloudia-downlink config.yaml th-cellar --period 5m --nsamples 12

  # Print the downlink JSON without publishing
  cloudia-downlink config.yaml th-cellar --period 1h --nsamples 4 --dry-run

  # Keep the current period, only change the batch size
  cloudia-downlink config.yaml th-cellar --current AABFDA== --nsamples 6`,
	Args:    cobra.ExactArgs(2),
	Version: version.Version,
	RunE:    runDownlink,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.Flags().StringVar(&period, "period", "10s", "Sampling period (e.g. 30s, 10m, 2h)")
	rootCmd.Flags().IntVar(&nsamples, "nsamples", 10, "Samples per uplink (1-255)")
	rootCmd.Flags().StringVar(&current, "current", "", "Configuration the sensor runs now (base64); only flags given explicitly change it")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the downlink JSON instead of publishing it")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(version.Detailed("cloudia-downlink"))
	},
}

func runDownlink(cmd *cobra.Command, args []string) error {
	configFile, deviceID := args[0], args[1]

	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer logging.Sync()

	var baseline *deviceconfig.Configuration
	if current != "" {
		cur, err := deviceconfig.ParseBase64(current)
		if err != nil {
			return fmt.Errorf("invalid --current: %s", deviceconfig.GetShortErrorMessage(err))
		}
		baseline = cur
	}

	builder := deviceconfig.NewConfigBuilder(baseline)
	if baseline == nil || cmd.Flags().Changed("period") {
		setPeriod(builder, period)
	}
	if baseline == nil || cmd.Flags().Changed("nsamples") {
		builder.SetSamples(nsamples)
	}
	if !builder.HasChanges() {
		return errors.New("nothing to change: pass --period or --nsamples")
	}
	conf, err := builder.Build()
	if err != nil {
		return fmt.Errorf("invalid configuration: %s", deviceconfig.GetShortErrorMessage(err))
	}

	body, err := lns.NewDownlinkPush(conf.Payload()).Marshal()
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	topic := lns.DownlinkTopic(cfg.LNS.AppID, deviceID)

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Configuration Downlink", "cloudia-downlink",
		ui.Param{Key: "Device", Value: deviceID},
		ui.Param{Key: "Broker", Value: cfg.LNS.BrokerURL()},
		ui.Param{Key: "Config", Value: conf.Summary()},
	)

	if ui.IsInteractive() && !assumeYes {
		warnings := []string{
			fmt.Sprintf("The sensor will uplink every %s", conf.UplinkInterval()),
			"Queued downlinks replace each other until the sensor next uplinks",
		}
		if !ui.Confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Reconfigure sensor", warnings, "Send downlink?") {
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	client := lns.NewClient(cfg.LNS)
	if err := client.Connect(ctx); err != nil {
		printer.PrintError("Connection Failed", err,
			"Check lns.host and lns.port in "+configFile,
			"Verify the API key has the 'write downlink' right",
			"Use lns.tls: true for port 8883",
			"See "+urls.TTSAPIKeys,
		)
		return fmt.Errorf("failed to connect to %s: %w", cfg.LNS.BrokerURL(), err)
	}
	defer client.Close()

	if err := client.Publish(ctx, topic, body); err != nil {
		return fmt.Errorf("failed to publish downlink: %w", err)
	}

	printer.PrintSuccess("Downlink Queued",
		ui.Param{Key: "Topic", Value: topic},
		ui.Param{Key: "Port", Value: fmt.Sprintf("%d", lns.ConfigPort)},
		ui.Param{Key: "Payload", Value: fmt.Sprintf("% x (%s)", conf.Payload(), conf.Base64())},
		ui.Param{Key: "Period", Value: deviceconfig.FormatPeriod(conf.Period)},
		ui.Param{Key: "Samples", Value: fmt.Sprintf("%d", conf.Samples)},
	)
	return nil
}

// setPeriod accepts the sensor's <number><unit> form and falls back to a
// Go duration that one unit represents exactly.
func setPeriod(b *deviceconfig.ConfigBuilder, s string) {
	if _, _, err := deviceconfig.ParsePeriodFlag(s); err != nil {
		if d, derr := time.ParseDuration(s); derr == nil {
			b.SetPeriodDuration(d)
			return
		}
	}
	b.SetPeriodFlag(s)
}
