// Package discovery finds and announces cloudia live feeds over mDNS.
//
// A bridge with feed.advertise enabled registers a "_cloudia-feed._tcp"
// service in the "local." domain. Its TXT records carry:
//   - path: websocket path, normally "/feed"
//   - version: bridge version
//   - scheme: "ws" or "wss"
//
// cloudia-tool scan and cloudia-tool watch browse for that service so a
// feed can be watched without knowing the bridge's address.
//
// # Usage Example
//
//	// Announce until ctx is cancelled
//	go discovery.Advertise(ctx, "cloudia", 8090, false)
//
//	// Elsewhere on the LAN
//	feeds, err := discovery.NewScanner().ScanForFeeds(ctx)
//	for _, f := range feeds {
//	    fmt.Println(f.Instance, f.URL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridge and viewer must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
