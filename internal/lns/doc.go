// Package lns talks to a LoRaWAN network server over MQTT.
//
// The network server is assumed to be The Things Stack v3. Uplinks arrive
// as JSON on
//
//	v3/{application id}/devices/{device id}/up
//
// and downlinks are scheduled by publishing a DownlinkPush document to
//
//	v3/{application id}/devices/{device id}/down/push
//
// The MQTT username is the application id and the password is an API key
// for that application.
//
// # Usage Example
//
//	client := lns.NewClient(cfg.LNS)
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err := client.Subscribe(ctx, lns.UplinkTopic(cfg.LNS.AppID), func(topic string, payload []byte) {
//	    up, err := lns.ParseUplink(payload)
//	    ...
//	})
//
// Connect retries with exponential backoff until the context is done. Once
// connected, paho reconnects on its own and the client re-subscribes every
// topic registered through Subscribe.
package lns
