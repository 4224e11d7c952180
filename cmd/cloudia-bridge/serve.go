package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloudia/cloudia/internal/bridge"
	"github.com/cloudia/cloudia/internal/config"
	"github.com/cloudia/cloudia/internal/discovery"
	"github.com/cloudia/cloudia/internal/lns"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/protocol"
	"github.com/cloudia/cloudia/internal/server"
	"github.com/cloudia/cloudia/internal/sink"
	"github.com/cloudia/cloudia/internal/urls"
)

// Serve command flags
var (
	configPath string
	logLevel   string
	logFormat  string
	noFeed     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the uplink bridge",
	Long: `Connect to the network server and forward decoded uplinks until interrupted.

The configuration file supplies the MQTT credentials, the optional InfluxDB
sink and the live feed settings. Without --config the default location is
used (see 'cloudia-tool config path').

Invalid uplinks are logged and counted but never stop the bridge.`,
	Example: `  # Run with the default configuration file
  cloudia-bridge serve

  # Use an explicit file and debug logging
  cloudia-bridge serve --config ./cloudia.yaml --log-level debug

  # JSON logs for a log collector, feed disabled
  cloudia-bridge serve --log-format json --no-feed`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file (default: platform config dir)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	serveCmd.Flags().StringVar(&logFormat, "log-format", "", "Log encoding (console, json); overrides the config file")
	serveCmd.Flags().BoolVar(&noFeed, "no-feed", false, "Do not start the live feed even if enabled in the config")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	opts := logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if logLevel != "" {
		opts.Level = logLevel
	}
	if logFormat != "" {
		opts.Format = logFormat
	}
	if opts.Level == "" {
		opts.Level = "info"
	}
	if err := logging.Configure(opts); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer logging.Sync()
	logger := logging.GetLogger()

	decoder, err := protocol.NewDecoder(protocol.WithLogger(logger))
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	sinks := sink.Fanout{sink.NewLogSink(logger)}

	if cfg.InfluxDB != nil {
		influx := sink.NewInfluxSink(cfg.InfluxDB)
		defer influx.Close()
		sinks = append(sinks, influx)
		if cfg.InfluxDB.Token == "" {
			logger.Warn("InfluxDB token is empty, writes will be rejected", zap.String("help", urls.InfluxTokens))
		}
		logger.Info("InfluxDB sink enabled",
			zap.String("url", cfg.InfluxDB.URL),
			zap.String("bucket", cfg.InfluxDB.Bucket),
			zap.String("measurement", cfg.InfluxDB.Measurement),
		)
	}

	var (
		wg     sync.WaitGroup
		errsMu sync.Mutex
		errs   []error
	)
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error("Background task failed", zap.String("task", name), zap.Error(err))
				errsMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				errsMu.Unlock()
				cancel()
			}
		}()
	}

	if cfg.Feed.Enabled && !noFeed {
		feed, err := startFeed(cfg.Feed, background)
		if err != nil {
			cancel()
			wg.Wait()
			return err
		}
		sinks = append(sinks, feed)
	}

	client := lns.NewClient(cfg.LNS)
	if err := client.Connect(ctx); err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("failed to connect to %s (see %s): %w", cfg.LNS.BrokerURL(), urls.TTSMQTT, err)
	}
	defer client.Close()

	service := bridge.NewService(decoder, sinks,
		bridge.WithAppID(cfg.LNS.AppID),
		bridge.WithDeviceNames(cfg.DeviceName),
		bridge.WithLogger(logger),
	)
	runErr := service.Run(ctx, client)

	cancel()
	wg.Wait()
	return errors.Join(append([]error{runErr}, errs...)...)
}

// startFeed binds the live feed and schedules it, and its mDNS
// advertisement when enabled, on background.
func startFeed(fc *config.FeedConfig, background func(string, func(context.Context) error)) (*server.Feed, error) {
	feed, err := server.New(server.Config{
		Addr:     fc.Addr,
		CertPath: fc.CertFile,
		KeyPath:  fc.KeyFile,
	})
	if err != nil {
		return nil, err
	}
	addr, err := feed.Listen()
	if err != nil {
		return nil, err
	}
	background("feed", feed.Run)

	if fc.Advertise {
		tcp, ok := addr.(*net.TCPAddr)
		if !ok {
			return nil, fmt.Errorf("feed: unexpected listen address %v", addr)
		}
		secure := fc.CertFile != ""
		background("mdns", func(ctx context.Context) error {
			return discovery.Advertise(ctx, fc.Instance, tcp.Port, secure)
		})
	}
	return feed, nil
}
