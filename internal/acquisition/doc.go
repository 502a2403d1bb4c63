// Package acquisition is the data-acquisition layer of the IEC 104 bridge.
//
// It owns a registry of named channels. Field drivers (MQTT, OPC UA) publish
// Records into source channels; listeners registered on a channel receive
// every record in publish order. Target channels carry an outbound Sink and
// accept typed writes, rejecting values their declared kind cannot hold.
//
//	svc := acquisition.NewService()
//	ch, _ := svc.Register(acquisition.ChannelSpec{ID: "frequency", Kind: value.KindDouble})
//	ch.AddListener(acquisition.ListenerFunc(func(r acquisition.Record) {
//	    fmt.Println(r.Value)
//	}))
//	ch.Publish(acquisition.NewRecord(value.Double(50.01)))
//
// # Thread Safety
//
// Service and Channel are safe for concurrent use. Listeners are invoked on
// the publishing goroutine, so records from one driver arrive in order per
// channel.
package acquisition
