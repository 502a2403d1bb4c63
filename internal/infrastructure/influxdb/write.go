package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePointWithTime queues one point stamped with timestamp.
// Dropped silently after Close.
//
// Example:
//
//	client.WritePointWithTime("iec104_points",
//	    map[string]string{"channel_id": "frequency_iec104", "ioa": "3003"},
//	    map[string]interface{}{"value": 49.98},
//	    rec.Timestamp)
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
