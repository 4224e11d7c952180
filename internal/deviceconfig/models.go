package deviceconfig

import (
	"encoding/base64"
	"time"

	"github.com/cloudia/cloudia/internal/protocol"
)

// PayloadSize is the length of a configuration downlink.
const PayloadSize = 4

// Configuration is the sensor configuration carried by a downlink.
//
// Wire layout:
//
//	[0] Reserved1  always 0 on current firmware
//	[1] Reserved2  always 0 on current firmware
//	[2] Period     sampling period byte (see protocol.DecodePeriod)
//	[3] Samples    epochs per uplink
type Configuration struct {
	Reserved1 byte
	Reserved2 byte
	Period    byte
	Samples   uint8
}

// Payload returns the 4-byte downlink payload.
func (c *Configuration) Payload() []byte {
	return []byte{c.Reserved1, c.Reserved2, c.Period, c.Samples}
}

// Base64 returns the payload encoded for an LNS frm_payload field.
func (c *Configuration) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Payload())
}

// PeriodDuration returns the sampling period as a duration.
func (c *Configuration) PeriodDuration() time.Duration {
	return protocol.DecodePeriod(c.Period)
}

// ParsePayload decodes a configuration downlink, for example one echoed back
// by the network server.
func ParsePayload(payload []byte) (*Configuration, error) {
	if len(payload) != PayloadSize {
		return nil, NewParseError("configuration payload must be 4 bytes", nil)
	}
	return &Configuration{
		Reserved1: payload[0],
		Reserved2: payload[1],
		Period:    payload[2],
		Samples:   payload[3],
	}, nil
}

// ParseBase64 decodes a base64 configuration payload.
func ParseBase64(s string) (*Configuration, error) {
	payload, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, NewParseError("invalid base64 configuration payload", err)
	}
	return ParsePayload(payload)
}

// UplinkInterval returns how often the sensor transmits: one uplink per
// Samples periods.
func (c *Configuration) UplinkInterval() time.Duration {
	if c.Samples == 0 {
		return c.PeriodDuration()
	}
	return c.PeriodDuration() * time.Duration(c.Samples)
}
