// Package mqttsource feeds acquisition channels from MQTT telemetry topics.
//
// Each binding maps one topic onto one channel. Payloads are either a bare
// JSON scalar or an envelope:
//
//	{"value": 49.98, "timestamp": "2026-03-01T12:00:00Z"}
//
// The value is converted to the channel's declared kind with value.FromAny.
// A JSON null (or an envelope without a usable value) publishes a record
// with the absent value, which the IEC 104 forwarder turns into the
// "null" placeholder.
package mqttsource
