// Package iec104 implements the IEC 60870-5-104 forwarding bridge for
// Gray Logic.
//
// The bridge relays live point updates from acquisition channels to their
// IEC 104 counterpart channels, normalising values that IEC 104's numeric
// model cannot carry.
//
// # Architecture
//
//	┌──────────────┐  records  ┌──────────────┐  write  ┌──────────────┐   MQTT
//	│ acquisition  │──────────►│  Forwarder   │────────►│ <id>_iec104  │─────────► IEC 104 gateway
//	│   channels   │           │ (this pkg)   │         │   channel    │
//	└──────────────┘           └──────────────┘         └──────────────┘
//
// # Key Responsibilities
//
//   - Subscribe to configured source channels (SubscriptionManager)
//   - Resolve the target channel by appending the "_iec104" suffix
//   - Write the value unchanged, falling back to Convert when rejected
//   - Publish accepted points on MQTT and record them in InfluxDB (Outbound)
//   - Report health and Prometheus metrics
//
// # Conversion
//
// IEC 104 has no boolean, string or double measurand. Convert maps:
//
//   - BOOLEAN: true → INTEGER 1, false → INTEGER 0
//   - BYTE/SHORT/INTEGER/LONG: unchanged
//   - FLOAT/DOUBLE: narrowed to FLOAT
//   - STRING: "true"/"false" (any case) → INTEGER 1/0, anything else fails
//
// Conversion is only attempted after a direct write has been rejected.
//
// # Thread Safety
//
// Forward may be called concurrently from any number of goroutines.
// Start and Stop may be called from a different goroutine than Forward.
// SubscriptionManager.Activate and Deactivate must not run concurrently
// with each other.
package iec104
