// Package influxdb records forwarded IEC 104 points in InfluxDB.
//
// It wraps influxdb-client-go v2 with a non-blocking, batched write API.
// Every point accepted by an IEC 104 channel becomes one row of the
// iec104_points measurement, tagged with channel_id, ioa and type_id, so
// operators can chart exactly what the gateway was sent.
//
// Usage:
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without a point store
//	}
//	defer client.Close()
//
// Batching follows influxdb.batch_size and influxdb.flush_interval (seconds).
package influxdb
