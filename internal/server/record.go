package server

import (
	"time"

	"github.com/cloudia/cloudia/internal/sink"
)

// FeedEpoch is one epoch as streamed to feed clients.
type FeedEpoch struct {
	Time   time.Time          `json:"t"`
	Values map[string]float64 `json:"values"`
	Flags  []string           `json:"out_of_range,omitempty"` // Channels outside their valid range
}

// FeedRecord is the JSON document sent for every decoded uplink.
type FeedRecord struct {
	DevEUI   string      `json:"dev_eui"`
	DeviceID string      `json:"device_id,omitempty"`
	Name     string      `json:"name,omitempty"`
	Port     uint8       `json:"f_port"`
	Battery  float64     `json:"battery"`
	Received time.Time   `json:"received"`
	Epochs   []FeedEpoch `json:"epochs"`
}

// NewFeedRecord converts a sink record for the wire.
func NewFeedRecord(rec sink.Record) FeedRecord {
	out := FeedRecord{
		DevEUI:   rec.DevEUI,
		DeviceID: rec.DeviceID,
		Name:     rec.Name,
		Port:     uint8(rec.Port),
		Battery:  rec.Battery,
		Received: rec.Received,
		Epochs:   make([]FeedEpoch, 0, len(rec.Epochs)),
	}
	for _, e := range rec.Epochs {
		fe := FeedEpoch{Time: e.Time, Values: make(map[string]float64, len(e.Samples))}
		for _, s := range e.Samples {
			fe.Values[s.Name] = s.Value
			if !s.InRange {
				fe.Flags = append(fe.Flags, s.Name)
			}
		}
		out.Epochs = append(out.Epochs, fe)
	}
	return out
}

// DisplayName returns the nickname, falling back to the device EUI.
func (r FeedRecord) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.DevEUI
}
