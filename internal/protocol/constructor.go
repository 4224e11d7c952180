package protocol

import (
	"math/bits"
	"time"

	"github.com/cloudia/cloudia/internal/bitstream"
)

// Uplink constructor, the inverse of Decoder. Used by the CLI encode command,
// the replay tool and round-trip tests.

// UplinkParams holds the header fields of an uplink to build.
type UplinkParams struct {
	Version     uint16        // Zero selects SupportedVersion
	BatteryCode uint8         // 0-15, see BatteryCodeFor
	Period      time.Duration // Spacing between epochs, ignored for one epoch
	Offset      uint8
	UseOffset   bool // Emit an offset byte (ports 82/91)
	UseDiffs    bool // Delta-encode later epochs when every delta fits
}

// Encoder packs raw channel values into uplink payloads.
type Encoder struct {
	schema Schema
}

// NewEncoder creates an encoder for schema.
func NewEncoder(schema Schema) (*Encoder, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{schema: schema}, nil
}

// Encode builds a payload from samples, where samples[i] holds the raw
// absolute values of epoch i in schema order, most recent first. It returns
// the port the payload must be sent on.
//
// Port selection:
//
//	one epoch                         80
//	several epochs                    81, or 82 with UseOffset
//	several epochs, UseDiffs and fits 90, or 91 with UseOffset
//
// Deltas that need more than MaxDiffWidth bits fall back to absolute values.
func (e *Encoder) Encode(p UplinkParams, samples [][]int64) (Port, []byte, error) {
	if len(samples) == 0 {
		return 0, nil, newError(ErrTypeValueOverflow, 0, "no epochs to encode")
	}
	for i, epoch := range samples {
		if len(epoch) != e.schema.Len() {
			return 0, nil, newError(ErrTypeInvalidSchema, 0, "epoch %d has %d values, schema has %d channels",
				i, len(epoch), e.schema.Len())
		}
	}

	version := p.Version
	if version == 0 {
		version = SupportedVersion
	}
	if version > MaxVersion {
		return 0, nil, newError(ErrTypeValueOverflow, 0, "version %d exceeds %d", version, MaxVersion)
	}
	if p.BatteryCode > MaxBatteryCode {
		return 0, nil, newError(ErrTypeValueOverflow, 0, "battery code %d exceeds %d", p.BatteryCode, MaxBatteryCode)
	}

	var widths []int
	if len(samples) > 1 && p.UseDiffs {
		widths = e.diffWidths(samples)
	}
	port := selectPort(len(samples), widths != nil, p.UseOffset)

	fixed := packFixedHeader(version, p.BatteryCode)
	out := fixed[:]
	if port.HasPeriod() {
		pb, err := EncodePeriod(p.Period)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, pb)
	}
	if port.HasDiffs() {
		db, err := PackDiffWidths(widths)
		if err != nil {
			return 0, nil, err
		}
		out = append(out, db)
	}
	if port.HasOffset() {
		out = append(out, p.Offset)
	}

	w := bitstream.NewWriter()
	for i, epoch := range samples {
		for c, value := range epoch {
			v := e.schema.Variable(c)
			if i > 0 && widths != nil {
				bitstream.WriteField(w, value-samples[i-1][c], widths[c], true)
				continue
			}
			if !bitstream.Fits(value, v.BaseWidth, v.Signed) {
				return 0, nil, newError(ErrTypeValueOverflow, port, "epoch %d channel %s: %d does not fit %d bits",
					i, v.Name, value, v.BaseWidth)
			}
			bitstream.WriteField(w, value, v.BaseWidth, v.Signed)
		}
	}

	return port, append(out, w.Bytes()...), nil
}

// diffWidths returns the per-channel delta widths for samples, or nil when
// diff encoding is not possible or every delta is zero.
func (e *Encoder) diffWidths(samples [][]int64) []int {
	if e.schema.Len() > MaxDiffChannels {
		return nil
	}
	widths := make([]int, e.schema.Len())
	for c := range widths {
		var maxAbs uint64
		for i := 1; i < len(samples); i++ {
			d := samples[i][c] - samples[i-1][c]
			if d < 0 {
				d = -d
			}
			maxAbs = max(maxAbs, uint64(d))
		}
		widths[c] = bits.Len64(maxAbs)
		if widths[c] > MaxDiffWidth {
			return nil
		}
	}
	// A zero-bit diff epoch ends decoding, so a constant series must be
	// sent as absolute values.
	if e.schema.WithDiffWidths(widths).DiffEpochBits() == 0 {
		return nil
	}
	return widths
}

func selectPort(epochs int, diffs, offset bool) Port {
	switch {
	case epochs == 1:
		return PortSingle
	case diffs && offset:
		return PortMultiDiffsOffset
	case diffs:
		return PortMultiDiffs
	case offset:
		return PortMultiOffset
	default:
		return PortMulti
	}
}
