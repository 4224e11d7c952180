package protocol

import (
	"fmt"
	"time"
)

// Port is the LoRaWAN FPort an uplink arrived on. The port selects the frame
// layout.
type Port uint8

// Uplink ports
const (
	PortSingle           Port = 80 // One epoch, no period
	PortMulti            Port = 81 // Several epochs of absolute values
	PortMultiOffset      Port = 82 // As PortMulti with an offset byte
	PortMultiDiffs       Port = 90 // First epoch absolute, later epochs deltas
	PortMultiDiffsOffset Port = 91 // As PortMultiDiffs with an offset byte
)

// SupportedVersion is the only payload version the decoder accepts.
const SupportedVersion = 1

// Header field limits
const (
	MaxVersion      = 0x3FF // 10-bit version field
	MaxBatteryCode  = 0x0F  // 4-bit battery field
	MaxDiffWidth    = 0x07  // 3 bits per channel in the diff-width byte
	MaxDiffChannels = 2     // Channels the diff-width byte has room for
	BatteryBase     = 2.5   // Volts at battery code 0
	BatteryStep     = 0.1   // Volts per battery code step
	reservedBits    = 0x03  // Low bits of byte 1, set by the device
	diffWidthBits   = 3
)

// portLayout describes which optional header bytes a port carries. Optional
// bytes follow the two fixed bytes in the order period, diff widths, offset.
type portLayout struct {
	name   string
	size   int
	period bool
	diffs  bool
	offset bool
}

var layouts = map[Port]portLayout{
	PortSingle:           {name: "single", size: 2},
	PortMulti:            {name: "multi", size: 3, period: true},
	PortMultiOffset:      {name: "multi+offset", size: 4, period: true, offset: true},
	PortMultiDiffs:       {name: "diffs", size: 4, period: true, diffs: true},
	PortMultiDiffsOffset: {name: "diffs+offset", size: 5, period: true, diffs: true, offset: true},
}

// Ports returns every supported uplink port in ascending order.
func Ports() []Port {
	return []Port{PortSingle, PortMulti, PortMultiOffset, PortMultiDiffs, PortMultiDiffsOffset}
}

// Supported reports whether p has a known frame layout.
func (p Port) Supported() bool {
	_, ok := layouts[p]
	return ok
}

// HeaderSize returns the header length in bytes, or 0 for unknown ports.
func (p Port) HeaderSize() int {
	return layouts[p].size
}

// HasPeriod reports whether frames on p carry a period byte.
func (p Port) HasPeriod() bool { return layouts[p].period }

// HasDiffs reports whether frames on p carry delta-encoded epochs.
func (p Port) HasDiffs() bool { return layouts[p].diffs }

// HasOffset reports whether frames on p carry an offset byte.
func (p Port) HasOffset() bool { return layouts[p].offset }

func (p Port) String() string {
	if l, ok := layouts[p]; ok {
		return fmt.Sprintf("%d(%s)", uint8(p), l.name)
	}
	return fmt.Sprintf("%d(unknown)", uint8(p))
}

// FrameHeader holds the decoded header fields of one uplink.
type FrameHeader struct {
	Port        Port
	Version     uint16
	BatteryCode uint8
	Battery     float64       // Volts
	Period      time.Duration // Zero when the port has no period byte
	PeriodByte  byte
	DiffWidths  []int // Per channel, nil when the port has no diffs
	Offset      uint8 // Read but not applied to timestamps
	HasOffset   bool
	Size        int // Header length in bytes
}

func (h *FrameHeader) String() string {
	return fmt.Sprintf("Header{port=%s, version=%d, battery=%.1fV, period=%s, diffs=%v, size=%d}",
		h.Port, h.Version, h.Battery, h.Period, h.DiffWidths, h.Size)
}

// BatteryVolts converts a 4-bit battery code into volts (2.5 V + code/10).
func BatteryVolts(code uint8) float64 {
	// Computed in tenths to keep results such as 3.8 exact.
	return float64(25+int(code&MaxBatteryCode)) / 10
}

// BatteryCodeFor returns the battery code closest to volts.
func BatteryCodeFor(volts float64) (uint8, error) {
	steps := (volts - BatteryBase) / BatteryStep
	code := int(steps + 0.5)
	if steps < -0.5 || code > MaxBatteryCode {
		return 0, newError(ErrTypeValueOverflow, 0, "battery %.2fV outside %.1f-%.1fV",
			volts, BatteryBase, BatteryVolts(MaxBatteryCode))
	}
	return uint8(code), nil
}

// ParseHeader decodes the header of payload for the given port. channels is
// the number of schema channels, used to size DiffWidths. The version is
// checked as soon as the two fixed bytes are present.
func ParseHeader(port Port, payload []byte, channels int) (*FrameHeader, error) {
	layout, ok := layouts[port]
	if !ok {
		return nil, newError(ErrTypeUnsupportedPort, port, "no frame layout for port")
	}
	if len(payload) < 2 {
		return nil, newError(ErrTypeShortHeader, port, "payload is %d bytes, need %d", len(payload), layout.size)
	}

	version := uint16(payload[0])<<2 | uint16(payload[1]>>6)
	if version != SupportedVersion {
		return nil, newError(ErrTypeUnsupportedVersion, port, "version %d, want %d", version, SupportedVersion)
	}
	if len(payload) < layout.size {
		return nil, newError(ErrTypeShortHeader, port, "payload is %d bytes, need %d", len(payload), layout.size)
	}

	code := (payload[1] >> 2) & MaxBatteryCode
	h := &FrameHeader{
		Port:        port,
		Version:     version,
		BatteryCode: code,
		Battery:     BatteryVolts(code),
		Size:        layout.size,
	}

	idx := 2
	if layout.period {
		h.PeriodByte = payload[idx]
		h.Period = DecodePeriod(payload[idx])
		idx++
	}
	if layout.diffs {
		if channels > MaxDiffChannels {
			return nil, newError(ErrTypeInvalidSchema, port, "%d channels do not fit the diff-width byte", channels)
		}
		h.DiffWidths = UnpackDiffWidths(payload[idx], channels)
		idx++
	}
	if layout.offset {
		h.Offset = payload[idx]
		h.HasOffset = true
	}

	return h, nil
}

// UnpackDiffWidths extracts per-channel diff widths from the diff-width byte.
// Channel i occupies three bits starting at bit 7-3i, most significant first.
func UnpackDiffWidths(b byte, channels int) []int {
	widths := make([]int, channels)
	for i := range widths {
		shift := 8 - diffWidthBits*(i+1)
		widths[i] = int(b>>shift) & MaxDiffWidth
	}
	return widths
}

// PackDiffWidths is the inverse of UnpackDiffWidths.
func PackDiffWidths(widths []int) (byte, error) {
	if len(widths) > MaxDiffChannels {
		return 0, newError(ErrTypeInvalidSchema, 0, "%d channels do not fit the diff-width byte", len(widths))
	}
	var b byte
	for i, w := range widths {
		if w < 0 || w > MaxDiffWidth {
			return 0, newError(ErrTypeValueOverflow, 0, "diff width %d exceeds %d", w, MaxDiffWidth)
		}
		b |= byte(w) << (8 - diffWidthBits*(i+1))
	}
	return b, nil
}

// packFixedHeader builds the two fixed header bytes.
func packFixedHeader(version uint16, battery uint8) [2]byte {
	return [2]byte{
		byte(version >> 2),
		byte(version&0x3)<<6 | (battery&MaxBatteryCode)<<2 | reservedBits,
	}
}
