// Package mqtt connects the aquarium core to its MQTT broker.
//
// It wraps paho.mqtt.golang with:
//   - Auto-reconnect with backoff and subscription restore
//   - Blocking publish/subscribe with timeouts and typed errors
//   - Panic recovery around message handlers
//   - A retained online/offline status on aquarium/system/status, with a
//     Last Will so a crashed core is reported offline by the broker
//
// The client knows nothing about aquarium payloads; the bus package decodes
// topics into typed events on top of it.
//
// Usage:
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("aquarium/temp", 1, func(topic string, payload []byte) error {
//	    return nil
//	})
package mqtt
