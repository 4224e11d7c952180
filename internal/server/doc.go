// Package server implements the live feed: a websocket endpoint streaming
// every decoded uplink to connected clients.
//
// Feed implements sink.Sink. Each record is sent as one JSON text message
// (FeedRecord) on FeedPath. Clients only receive; anything they send is
// read and discarded so ping/pong keeps working.
//
// # Delivery
//
// Each client has a bounded send queue. When it is full the message is
// dropped for that client only, so a stalled browser tab never holds up
// the bridge. New clients first receive the most recent records
// (Config.History) so a viewer shows data straight away.
//
// # Endpoints
//
//   - /feed: websocket stream of FeedRecord
//   - /healthz: JSON Status with client and record counts
//
// # Usage Example
//
//	feed, err := server.New(server.Config{Addr: ":8090"})
//	if err != nil {
//	    return err
//	}
//	go feed.Run(ctx)
//	svc := bridge.NewService(dec, sink.Fanout{influx, feed})
//
// Dial is the matching client:
//
//	records, err := server.Dial(ctx, "ws://bridge.local:8090/feed")
//	for rec := range records {
//	    fmt.Println(rec.DisplayName(), len(rec.Epochs))
//	}
//
// # TLS
//
// When Config.CertPath and Config.KeyPath are set the feed is served over
// TLS 1.2+ and clients connect with wss://.
package server
