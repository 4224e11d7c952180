// Package bridge turns network server uplinks into sink records.
//
// A Service subscribes to every device's uplink topic, decodes each frame
// with protocol.Decoder and hands the resulting Record to a sink.Sink.
// A malformed or undecodable uplink is logged and counted; it never stops
// the service.
//
//	svc := bridge.NewService(dec, sink.Fanout{influx, feed}, bridge.WithAppID(cfg.LNS.AppID))
//	err := svc.Run(ctx, client)
package bridge
