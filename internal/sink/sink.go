// Package sink delivers decoded uplinks to their destinations.
//
// Every destination implements Sink. The bridge writes each decoded uplink
// once, to a Fanout of the configured sinks:
//   - InfluxSink stores one point per epoch in InfluxDB v2
//   - LogSink logs each epoch at debug level
//   - server.Feed streams records to websocket clients
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/cloudia/cloudia/internal/protocol"
)

// Record is one decoded uplink.
type Record struct {
	DevEUI   string
	DeviceID string
	Name     string // Nickname from the config, or DevEUI
	Port     protocol.Port
	Battery  float64 // Volts
	Received time.Time
	Epochs   []protocol.Epoch
}

// Sink receives decoded uplinks.
type Sink interface {
	Write(ctx context.Context, rec Record) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, rec Record) error

// Write calls f.
func (f Func) Write(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}

// Fanout writes every record to each sink in order. A failing sink does
// not stop the others.
type Fanout []Sink

// Write delivers rec to every sink and joins their errors.
func (f Fanout) Write(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range f {
		if err := s.Write(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
