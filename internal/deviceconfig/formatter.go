package deviceconfig

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the configuration
func (c *Configuration) Summary() string {
	return fmt.Sprintf("every %s, %d samples per uplink", FormatPeriod(c.Period), c.Samples)
}

// FormatCompact returns a multi-line format suitable for terminal display
func (c *Configuration) FormatCompact() string {
	var b strings.Builder

	b.WriteString("=== Sensor Configuration ===\n")
	fmt.Fprintf(&b, "Period:   %s (byte 0x%02x)\n", FormatPeriod(c.Period), c.Period)
	fmt.Fprintf(&b, "Samples:  %d per uplink\n", c.Samples)
	fmt.Fprintf(&b, "Uplink:   every %s\n", c.UplinkInterval())
	fmt.Fprintf(&b, "Payload:  % x (%s)\n", c.Payload(), c.Base64())

	return b.String()
}

// FormatPeriod renders a period byte in the unit it was encoded with, for
// example "10s" or "2h".
func FormatPeriod(b byte) string {
	switch {
	case b&0x80 != 0:
		return fmt.Sprintf("%ds", b&0x7F)
	case b&0x40 != 0:
		return fmt.Sprintf("%dm", b&0x3F)
	default:
		return fmt.Sprintf("%dh", b&0x3F)
	}
}
