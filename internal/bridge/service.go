package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cloudia/cloudia/internal/lns"
	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/protocol"
	"github.com/cloudia/cloudia/internal/sink"
	"go.uber.org/zap"
)

// Stats counts uplinks seen by a Service.
type Stats struct {
	Received uint64 // Messages delivered by the broker
	Decoded  uint64 // Uplinks decoded and written
	Failed   uint64 // Uplinks rejected by parsing, decoding or a sink
	Epochs   uint64 // Epochs written across all uplinks
}

// Option configures a Service.
type Option func(*Service)

// WithAppID sets the application whose uplink topic Run subscribes to.
func WithAppID(appID string) Option {
	return func(s *Service) { s.appID = appID }
}

// WithDeviceNames sets the lookup used to fill Record.Name.
func WithDeviceNames(name func(devEUI string) string) Option {
	return func(s *Service) { s.name = name }
}

// WithLogger replaces the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service decodes uplinks and forwards them to a sink.
type Service struct {
	decoder *protocol.Decoder
	sink    sink.Sink
	appID   string
	name    func(string) string
	logger  *zap.Logger

	received atomic.Uint64
	decoded  atomic.Uint64
	failed   atomic.Uint64
	epochs   atomic.Uint64
}

// NewService creates a service writing to out.
func NewService(dec *protocol.Decoder, out sink.Sink, opts ...Option) *Service {
	s := &Service{
		decoder: dec,
		sink:    out,
		name:    func(devEUI string) string { return devEUI },
		logger:  logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage processes one broker message. The returned error has
// already been logged and counted.
func (s *Service) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	s.received.Add(1)

	up, err := lns.ParseUplink(payload)
	if err != nil {
		return s.fail("Invalid uplink received", err, zap.String("topic", topic))
	}
	// Minimal uplink formats omit device_id; the topic always carries it.
	if up.EndDeviceIDs.DeviceID == "" {
		if id, ok := lns.DeviceFromTopic(topic); ok {
			up.EndDeviceIDs.DeviceID = id
		}
	}
	logging.LogUplink(up.DevEUI(), up.FPort(), up.Payload())

	rec, err := s.Decode(up)
	if err != nil {
		return s.fail("Uplink decode failed", err,
			zap.String("dev_eui", up.DevEUI()),
			zap.Uint8("f_port", up.FPort()),
		)
	}

	if err := s.sink.Write(ctx, rec); err != nil {
		return s.fail("Sink write failed", err, zap.String("dev_eui", rec.DevEUI))
	}

	s.decoded.Add(1)
	s.epochs.Add(uint64(len(rec.Epochs)))
	fields := []zap.Field{
		zap.String("device", rec.Name),
		zap.Stringer("port", rec.Port),
		zap.Float64("battery", rec.Battery),
		zap.Int("epochs", len(rec.Epochs)),
	}
	if rssi, ok := up.BestRSSI(); ok {
		fields = append(fields, zap.Float64("rssi", rssi))
	}
	s.logger.Info("Uplink decoded", fields...)
	return nil
}

// Decode converts a parsed uplink into a Record.
func (s *Service) Decode(up *lns.Uplink) (sink.Record, error) {
	port := protocol.Port(up.FPort())
	received := up.ReceivedAt()
	epochs, hdr, err := s.decoder.DecodeAll(port, up.Payload(), received)
	if err != nil {
		return sink.Record{}, err
	}
	return sink.Record{
		DevEUI:   up.DevEUI(),
		DeviceID: up.DeviceID(),
		Name:     s.name(up.DevEUI()),
		Port:     port,
		Battery:  hdr.Battery,
		Received: received,
		Epochs:   epochs,
	}, nil
}

func (s *Service) fail(msg string, err error, fields ...zap.Field) error {
	s.failed.Add(1)
	s.logger.Warn(msg, append(fields, zap.Error(err))...)
	return err
}

// Run subscribes to the application's uplinks and blocks until ctx is done.
func (s *Service) Run(ctx context.Context, sub lns.Subscriber) error {
	if s.appID == "" {
		return fmt.Errorf("bridge: application id not set")
	}
	topic := lns.UplinkTopic(s.appID)
	err := sub.Subscribe(ctx, topic, func(topic string, payload []byte) {
		_ = s.HandleMessage(ctx, topic, payload)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Bridge running", zap.String("topic", topic))
	<-ctx.Done()

	st := s.Stats()
	s.logger.Info("Bridge stopped",
		zap.Uint64("received", st.Received),
		zap.Uint64("decoded", st.Decoded),
		zap.Uint64("failed", st.Failed),
		zap.Uint64("epochs", st.Epochs),
	)
	return nil
}

// Stats returns a snapshot of the counters.
func (s *Service) Stats() Stats {
	return Stats{
		Received: s.received.Load(),
		Decoded:  s.decoded.Load(),
		Failed:   s.failed.Load(),
		Epochs:   s.epochs.Load(),
	}
}
