package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudia/cloudia/internal/protocol"
	"github.com/cloudia/cloudia/internal/server"
)

// Battery range shown by the watch gauge.
const (
	BatteryEmpty = protocol.BatteryBase
	BatteryFull  = 4.0
	BatteryLow   = 3.0
)

// ChannelOrder returns the channel names of values with temperature and
// humidity first and any others sorted after them.
func ChannelOrder(values map[string]float64) []string {
	names := make([]string, 0, len(values))
	var rest []string
	for _, known := range []string{protocol.ChannelTemperature, protocol.ChannelHumidity} {
		if _, ok := values[known]; ok {
			names = append(names, known)
		}
	}
	for name := range values {
		if name != protocol.ChannelTemperature && name != protocol.ChannelHumidity {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// FormatValue renders a channel value with its unit.
func FormatValue(name string, v float64) string {
	switch name {
	case protocol.ChannelTemperature:
		return fmt.Sprintf("%.1f°C", v)
	case protocol.ChannelHumidity:
		return fmt.Sprintf("%.0f%%", v)
	default:
		return fmt.Sprintf("%g", v)
	}
}

// FormatEpoch renders one epoch as "time T=23.3°C H=61%". Out-of-range
// values are suffixed with "!".
func FormatEpoch(e server.FeedEpoch) string {
	var b strings.Builder
	b.WriteString(e.Time.UTC().Format(time.RFC3339))
	for _, name := range ChannelOrder(e.Values) {
		fmt.Fprintf(&b, " %s=%s", name, FormatValue(name, e.Values[name]))
		for _, f := range e.Flags {
			if f == name {
				b.WriteString("!")
			}
		}
	}
	return b.String()
}

// FormatRecordLines returns one line per epoch, newest first, for
// non-interactive output.
func FormatRecordLines(rec server.FeedRecord) []string {
	prefix := fmt.Sprintf("%s port=%d battery=%.1fV", rec.DisplayName(), rec.Port, rec.Battery)
	lines := make([]string, 0, len(rec.Epochs))
	for i, e := range rec.Epochs {
		lines = append(lines, fmt.Sprintf("%s #%d %s", prefix, i, FormatEpoch(e)))
	}
	return lines
}

// BatteryFraction maps a battery voltage onto 0..1 for the gauge.
func BatteryFraction(volts float64) float64 {
	f := (volts - BatteryEmpty) / (BatteryFull - BatteryEmpty)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
