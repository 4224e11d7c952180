package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudia/cloudia/internal/logging"
	"github.com/cloudia/cloudia/internal/version"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type announced by the bridge's live feed
	ServiceType = "_cloudia-feed._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for feed discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPath is the websocket path when the TXT record omits it
	DefaultPath = "/feed"
)

// TXT record keys
const (
	TxtPath    = "path"
	TxtVersion = "version"
	TxtScheme  = "scheme"
)

// Scanner handles mDNS feed discovery
type Scanner struct {
	// Timeout is the maximum time to wait for feed discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForFeeds browses for feeds until the timeout or ctx ends and
// returns every feed found, de-duplicated by instance name.
func (s *Scanner) ScanForFeeds(ctx context.Context) ([]*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		feeds []*Feed
		seen  = make(map[string]bool)
		done  = make(chan struct{})
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		defer close(done)
		for entry := range entries {
			feed := s.parseServiceEntry(entry)
			if feed == nil {
				continue
			}
			mu.Lock()
			if !seen[feed.Instance] {
				seen[feed.Instance] = true
				feeds = append(feeds, feed)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once browsing stops.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Feed(nil), feeds...), nil
}

// WaitForFeed waits for a feed with the given instance name. An empty
// name accepts the first feed found.
func (s *Scanner) WaitForFeed(ctx context.Context, instance string) (*Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	feedChan := make(chan *Feed, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			feed := s.parseServiceEntry(entry)
			if feed != nil && (instance == "" || feed.Instance == instance) {
				select {
				case feedChan <- feed:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case feed := <-feedChan:
		return feed, nil
	case <-ctx.Done():
		select {
		case feed := <-feedChan:
			return feed, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("no feed found within %s", s.Timeout)
		}
		return nil, fmt.Errorf("feed %q not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Feed.
// Returns nil if the entry has no usable address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Feed {
	if entry == nil || entry.Instance == "" || entry.Port == 0 {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	// TXT records are in "key=value" format
	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}

	return &Feed{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// AdvertiseText returns the TXT records announced for a feed.
func AdvertiseText(path string, secure bool) []string {
	if path == "" {
		path = DefaultPath
	}
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	return []string{
		TxtPath + "=" + path,
		TxtVersion + "=" + version.Version,
		TxtScheme + "=" + scheme,
	}
}

// Advertise announces a feed on port until ctx is done.
func Advertise(ctx context.Context, instance string, port int, secure bool) error {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, AdvertiseText(DefaultPath, secure), nil)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Feed advertised over mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)

	<-ctx.Done()
	server.Shutdown()
	logging.Debug("mDNS advertisement withdrawn", zap.String("instance", instance))
	return nil
}
