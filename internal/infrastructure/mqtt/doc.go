// Package mqtt connects carrierd to an MQTT broker.
//
// It wraps eclipse/paho.mqtt.golang with the carrier topic tree (see
// Topics), a retained online/offline status with LWT, subscription
// restoration after reconnects, and panic recovery around handlers.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Event("reboot"), ev, false)
package mqtt
