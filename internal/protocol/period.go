package protocol

import (
	"fmt"
	"time"
)

// PeriodUnit is the unit selected by the top bits of a period byte.
type PeriodUnit byte

// Period units, named by their command-line suffix
const (
	UnitSeconds PeriodUnit = 's'
	UnitMinutes PeriodUnit = 'm'
	UnitHours   PeriodUnit = 'h'
)

// Largest count each unit can carry
const (
	MaxPeriodSeconds = 0x7F
	MaxPeriodMinutes = 0x3F
	MaxPeriodHours   = 0x3F
)

const (
	periodSecondsFlag = 0x80
	periodMinutesFlag = 0x40
)

// ParsePeriodUnit maps "s", "m" or "h" to a PeriodUnit.
func ParsePeriodUnit(s string) (PeriodUnit, error) {
	switch s {
	case "s":
		return UnitSeconds, nil
	case "m":
		return UnitMinutes, nil
	case "h":
		return UnitHours, nil
	}
	return 0, fmt.Errorf("unknown period unit %q", s)
}

// Max returns the largest count representable in this unit.
func (u PeriodUnit) Max() int {
	if u == UnitSeconds {
		return MaxPeriodSeconds
	}
	return MaxPeriodMinutes
}

// Duration returns one unit as a time.Duration.
func (u PeriodUnit) Duration() time.Duration {
	switch u {
	case UnitSeconds:
		return time.Second
	case UnitMinutes:
		return time.Minute
	default:
		return time.Hour
	}
}

// DecodePeriod converts a period byte into a duration. Bit 7 selects seconds
// (low 7 bits), otherwise bit 6 selects minutes (low 6 bits), otherwise the
// low 6 bits count hours.
func DecodePeriod(b byte) time.Duration {
	switch {
	case b&periodSecondsFlag != 0:
		return time.Duration(b&MaxPeriodSeconds) * time.Second
	case b&periodMinutesFlag != 0:
		return time.Duration(b&MaxPeriodMinutes) * time.Minute
	default:
		return time.Duration(b&MaxPeriodHours) * time.Hour
	}
}

// PeriodByte encodes count units into a period byte. Counts outside the
// unit's range are rejected.
func PeriodByte(count int, unit PeriodUnit) (byte, error) {
	if unit != UnitSeconds && unit != UnitMinutes && unit != UnitHours {
		return 0, fmt.Errorf("unknown period unit %q", rune(unit))
	}
	if count < 0 || count > unit.Max() {
		return 0, newError(ErrTypeValueOverflow, 0, "period %d%c outside 0-%d", count, unit, unit.Max())
	}
	switch unit {
	case UnitSeconds:
		return periodSecondsFlag | byte(count), nil
	case UnitMinutes:
		return periodMinutesFlag | byte(count), nil
	default:
		return byte(count), nil
	}
}

// EncodePeriod picks the finest unit that represents d exactly.
func EncodePeriod(d time.Duration) (byte, error) {
	for _, unit := range []PeriodUnit{UnitSeconds, UnitMinutes, UnitHours} {
		step := unit.Duration()
		if d%step != 0 {
			continue
		}
		if count := d / step; count >= 0 && count <= time.Duration(unit.Max()) {
			return PeriodByte(int(count), unit)
		}
	}
	return 0, newError(ErrTypeValueOverflow, 0, "period %s not representable", d)
}
