package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Feed represents a live feed advertised on the local network
type Feed struct {
	// Instance is the mDNS instance name (e.g., "cloudia")
	Instance string

	// Hostname is the advertising host (e.g., "raspberrypi.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 when no IPv4 address was announced
	IP string

	// Port is the feed's HTTP port
	Port int

	// Metadata contains the TXT record data: "path", "version", "scheme"
	Metadata map[string]string

	// DiscoveredAt is when the feed was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the feed
func (f *Feed) String() string {
	return fmt.Sprintf("cloudia feed %q (%s) at %s", f.Instance, f.Hostname, f.URL())
}

// URL returns the websocket URL of the feed
func (f *Feed) URL() string {
	scheme := f.GetMetadata(TxtScheme)
	if scheme == "" {
		scheme = "ws"
	}
	path := f.GetMetadata(TxtPath)
	if path == "" {
		path = DefaultPath
	}
	return fmt.Sprintf("%s://%s%s", scheme, net.JoinHostPort(f.IP, strconv.Itoa(f.Port)), path)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (f *Feed) GetMetadata(key string) string {
	if f.Metadata == nil {
		return ""
	}
	return f.Metadata[key]
}

