package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cloudia/cloudia/internal/discovery"
	"github.com/cloudia/cloudia/internal/server"
	"github.com/cloudia/cloudia/internal/ui"
)

// Feed command flags
var (
	feedURL      string
	feedInstance string
	scanTimeout  int
	plainOutput  bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scanCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the live feed of a running bridge",
	Long: `Connect to a bridge's live feed and show decoded epochs as they arrive.

Without --url the feed is discovered over mDNS; --instance picks one feed
when several bridges are advertising. On a terminal an interactive table is
shown; otherwise, or with --plain, one line is printed per epoch.`,
	Example: `  # Discover the feed and watch it
  cloudia-tool watch

  # Connect to a known feed
  cloudia-tool watch --url ws://raspberrypi.local:8090/feed

  # Log lines for piping into other tools
  cloudia-tool watch --plain | grep Greenhouse`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&feedURL, "url", "", "Feed websocket URL (skips discovery)")
	watchCmd.Flags().StringVar(&feedInstance, "instance", "", "mDNS instance name to wait for (default: first found)")
	watchCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Discovery timeout in seconds")
	watchCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print one line per epoch instead of the interactive table")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url, err := resolveFeedURL(ctx)
	if err != nil {
		return err
	}

	records, err := server.Dial(ctx, url)
	if err != nil {
		return err
	}

	if plainOutput || !ui.IsInteractive() {
		out := cmd.OutOrStdout()
		for rec := range records {
			for _, line := range ui.FormatRecordLines(rec) {
				fmt.Fprintln(out, line)
			}
		}
		if ctx.Err() == nil {
			return fmt.Errorf("feed %s closed", url)
		}
		return nil
	}

	model, err := tea.NewProgram(ui.NewWatchModel(url, records), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("watch UI failed: %w", err)
	}
	if m, ok := model.(ui.WatchModel); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%d record(s) received from %s\n", m.Received(), url)
	}
	return nil
}

// resolveFeedURL returns --url, or the URL of a feed found over mDNS.
func resolveFeedURL(ctx context.Context) (string, error) {
	if feedURL != "" {
		return feedURL, nil
	}
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	feed, err := scanner.WaitForFeed(ctx, feedInstance)
	if err != nil {
		return "", fmt.Errorf("%w (use --url to connect directly)", err)
	}
	return feed.URL(), nil
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for live feeds on the network",
	Long: `Scan for cloudia live feeds using mDNS/DNS-SD discovery.

Bridges started with feed.advertise enabled announce themselves as
_cloudia-feed._tcp on the local network.`,
	Example: `  # Scan for 5 seconds (default)
  cloudia-tool scan

  # Longer scan for slow networks
  cloudia-tool scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.Println(fmt.Sprintf("Scanning for cloudia feeds (timeout: %ds)...", scanTimeout))
	printer.Newline()

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	feeds, err := scanner.ScanForFeeds(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(feeds) == 0 {
		printer.PrintError("No Feeds Found", fmt.Errorf("no %s services answered", discovery.ServiceType),
			"Ensure the bridge runs with feed.enabled and feed.advertise set",
			"Check that multicast traffic is allowed between the hosts",
			"Try increasing --timeout for slower networks",
		)
		return nil
	}

	printer.Println(fmt.Sprintf("Found %d feed(s):", len(feeds)))
	printer.Newline()
	for i, f := range feeds {
		printer.Println(fmt.Sprintf("%d. %s", i+1, f.Instance))
		printer.Println(fmt.Sprintf("   Host:     %s", f.Hostname))
		printer.Println(fmt.Sprintf("   URL:      %s", f.URL()))
		if v := f.GetMetadata(discovery.TxtVersion); v != "" {
			printer.Println(fmt.Sprintf("   Version:  %s", v))
		}
		printer.Newline()
	}
	printer.Println("Use 'cloudia-tool watch --url <url>' to watch a feed")
	return nil
}
