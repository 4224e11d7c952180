package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/cloudia/cloudia/internal/config"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/version"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// TagDevEUI is the tag carrying the device EUI on every point.
const TagDevEUI = "deveui"

const writeRetries = 3

// PointWriter is the subset of the blocking write API used by InfluxSink.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink stores epochs as InfluxDB points. Each epoch becomes one
// point stamped with the epoch time, tagged with the device EUI and
// holding one float field per channel.
type InfluxSink struct {
	writer      PointWriter
	measurement string
	retries     uint64
	close       func()
}

// NewInfluxSink connects a sink to the configured server. No request is
// made until the first Write.
func NewInfluxSink(cfg *config.InfluxConfig) *InfluxSink {
	opts := influxdb2.DefaultOptions().
		SetHTTPRequestTimeout(timeoutSeconds(cfg.Timeout())).
		SetApplicationName(version.UserAgent())
	if !cfg.VerifySSL {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // verify_ssl: false
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)
	s := NewInfluxSinkWithWriter(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Measurement)
	s.close = client.Close
	return s
}

// NewInfluxSinkWithWriter builds a sink around an existing writer.
func NewInfluxSinkWithWriter(w PointWriter, measurement string) *InfluxSink {
	if measurement == "" {
		measurement = config.DefaultMeasurement
	}
	return &InfluxSink{writer: w, measurement: measurement, retries: writeRetries}
}

// Points converts a record into one point per epoch.
func (s *InfluxSink) Points(rec Record) []*write.Point {
	points := make([]*write.Point, 0, len(rec.Epochs))
	for _, e := range rec.Epochs {
		fields := make(map[string]interface{}, len(e.Samples))
		for _, smp := range e.Samples {
			fields[smp.Name] = smp.Value
		}
		points = append(points, write.NewPoint(
			s.measurement,
			map[string]string{TagDevEUI: rec.DevEUI},
			fields,
			e.Time,
		))
	}
	return points
}

// Write stores every epoch of rec in a single request, retrying transient
// failures with exponential backoff.
func (s *InfluxSink) Write(ctx context.Context, rec Record) error {
	points := s.Points(rec)
	if len(points) == 0 {
		return nil
	}

	op := func() error {
		return s.writer.WritePoint(ctx, points...)
	}
	notify := func(err error, wait time.Duration) {
		logging.Warn("InfluxDB write failed, retrying",
			zap.String("dev_eui", rec.DevEUI),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.retries), ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return fmt.Errorf("failed to write %d points for %s: %w", len(points), rec.DevEUI, err)
	}
	logging.Debug("Points written",
		zap.String("dev_eui", rec.DevEUI),
		zap.Int("points", len(points)),
	)
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	if s.close != nil {
		s.close()
	}
}

func timeoutSeconds(d time.Duration) uint {
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		return 1
	}
	return uint(secs)
}
