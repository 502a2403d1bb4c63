// Package mqtt provides the MQTT client the IEC 104 bridge runs on.
//
// The broker is the bridge's only bus:
//
//	telemetry topics -> bridge -> graylogic/iec104/point/{ioa} -> IEC 104 gateway
//
// This package manages:
//   - Connection with auto-reconnect and subscription restore
//   - Retained online/offline status with LWT on graylogic/system/status/{client_id}
//   - Publish/subscribe with QoS validation and a 1MB payload cap
//   - Panic recovery around message handlers
//
// TLS (mqtt.broker.tls) should be enabled whenever the broker is not local.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.Publish(mqtt.Topics{}.BridgeHealth("iec104"), payload, 1, true)
package mqtt
