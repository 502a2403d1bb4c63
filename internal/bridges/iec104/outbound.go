package iec104

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// pointsMeasurement is the InfluxDB measurement for forwarded points.
const pointsMeasurement = "iec104_points"

// Publisher is the MQTT surface used by the outbound sink and health reporter.
// Satisfied by *mqtt.Client.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// PointWriter records forwarded points in a time-series store.
// Satisfied by *influxdb.Client.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time)
}

// OutboundOptions holds configuration for creating an Outbound sink.
type OutboundOptions struct {
	// Publisher sends point messages to the IEC 104 gateway. Required.
	Publisher Publisher

	// Points is optional. If nil, points are not recorded.
	Points PointWriter

	// Addresses maps IEC 104 channel IDs to information object addresses.
	Addresses map[string]int

	// QoS is the MQTT QoS for point messages. Default: 1.
	QoS byte
}

// Outbound delivers values accepted by IEC 104 channels to the gateway.
// It implements acquisition.Sink.
type Outbound struct {
	publisher Publisher
	points    PointWriter
	addresses map[string]int
	qos       byte
}

// NewOutbound creates an outbound sink.
func NewOutbound(opts OutboundOptions) (*Outbound, error) {
	if opts.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	addresses := make(map[string]int, len(opts.Addresses))
	for id, ioa := range opts.Addresses {
		addresses[id] = ioa
	}

	qos := opts.QoS
	if qos == 0 {
		qos = 1
	}

	return &Outbound{
		publisher: opts.Publisher,
		points:    opts.Points,
		addresses: addresses,
		qos:       qos,
	}, nil
}

// Deliver implements acquisition.Sink.
func (o *Outbound) Deliver(channelID string, rec acquisition.Record) error {
	ioa, ok := o.addresses[channelID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPoint, channelID)
	}

	msg, err := NewPointMessage(channelID, ioa, rec)
	if err != nil {
		return err
	}

	if !o.publisher.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshalling point: %w", err)
	}

	if err := o.publisher.Publish(PointTopic(ioa), payload, o.qos, true); err != nil {
		return fmt.Errorf("publishing point %d: %w", ioa, err)
	}

	o.recordPoint(msg)
	return nil
}

// recordPoint writes the numeric value to the time-series store.
// Invalid-quality points carry no value and are skipped.
func (o *Outbound) recordPoint(msg PointMessage) {
	if o.points == nil || msg.Quality == QualityInvalid {
		return
	}

	var field float64
	switch k := msg.Value.Kind(); {
	case k.IsInteger():
		field = float64(msg.Value.AsInt64())
	case k == value.KindFloat:
		field = msg.Value.AsFloat64()
	default:
		return
	}

	o.points.WritePointWithTime(pointsMeasurement,
		map[string]string{
			"channel_id": msg.ChannelID,
			"ioa":        strconv.Itoa(msg.IOA),
			"type_id":    string(msg.TypeID),
		},
		map[string]interface{}{
			"value": field,
		},
		msg.Timestamp,
	)
}
