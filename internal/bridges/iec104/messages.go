package iec104

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// Protocol is the bridge's protocol segment in MQTT topics.
const Protocol = "iec104"

// TypeID is the IEC 104 ASDU type identification of a point message.
type TypeID string

const (
	// TypeScaled is M_ME_NB_1, a scaled measured value (integer).
	TypeScaled TypeID = "M_ME_NB_1"

	// TypeShortFloat is M_ME_NC_1, a short floating point measured value.
	TypeShortFloat TypeID = "M_ME_NC_1"
)

// Quality is an IEC 104 quality descriptor flag set.
type Quality string

const (
	// QualityGood has no flags set.
	QualityGood Quality = ""

	// QualityInvalid is the IV flag: the value is not usable.
	QualityInvalid Quality = "IV"
)

// PointMessage is published for every point accepted by an IEC 104 channel.
// Topic: graylogic/iec104/point/{ioa}
type PointMessage struct {
	// ID uniquely identifies this message.
	ID string `json:"id"`

	// Timestamp is when the value was written (UTC).
	Timestamp time.Time `json:"timestamp"`

	// ChannelID is the IEC 104 channel that accepted the value.
	ChannelID string `json:"channel_id"`

	// IOA is the information object address.
	IOA int `json:"ioa"`

	// TypeID selects the ASDU type used by the gateway.
	TypeID TypeID `json:"type_id"`

	// Value is the point value. Null when Quality is IV.
	Value value.Value `json:"value"`

	// Quality carries the quality descriptor (empty when good).
	Quality Quality `json:"quality,omitempty"`
}

// NewPointMessage maps an accepted record onto an IEC 104 point.
// Only integer-family, FLOAT and the "null" sentinel string are representable.
func NewPointMessage(channelID string, ioa int, rec acquisition.Record) (PointMessage, error) {
	msg := PointMessage{
		ID:        uuid.NewString(),
		Timestamp: rec.Timestamp,
		ChannelID: channelID,
		IOA:       ioa,
		Value:     rec.Value,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	k := rec.Value.Kind()
	switch {
	case k.IsInteger():
		msg.TypeID = TypeScaled
	case k == value.KindFloat:
		msg.TypeID = TypeShortFloat
	case k == value.KindString && rec.Value.AsString() == NullSentinel:
		msg.TypeID = TypeShortFloat
		msg.Value = value.Null()
		msg.Quality = QualityInvalid
	default:
		return PointMessage{}, fmt.Errorf("%w: %s", ErrUnsupportedType, k)
	}

	return msg, nil
}

// PointTopic returns the topic for IEC 104 point messages.
//
// Example: graylogic/iec104/point/3001
func PointTopic(ioa int) string {
	return mqtt.Topics{}.BridgePoint(Protocol, strconv.Itoa(ioa))
}

// HealthTopic returns the topic for bridge health messages.
//
// Example: graylogic/health/iec104
func HealthTopic() string {
	return mqtt.Topics{}.BridgeHealth(Protocol)
}

// HealthStatus represents the bridge's health state.
type HealthStatus string

const (
	// HealthStarting is published while the bridge initialises.
	HealthStarting HealthStatus = "starting"

	// HealthHealthy means forwarding is running with at least one source wired.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means the bridge runs but cannot forward everything.
	HealthDegraded HealthStatus = "degraded"

	// HealthStopping is published on graceful shutdown.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage is published periodically on HealthTopic.
type HealthMessage struct {
	BridgeID     string       `json:"bridge_id"`
	Timestamp    time.Time    `json:"timestamp"`
	Status       HealthStatus `json:"status"`
	Reason       string       `json:"reason,omitempty"`
	Version      string       `json:"version"`
	Uptime       int64        `json:"uptime_seconds"`
	Running      bool         `json:"running"`
	SourcesWired int          `json:"sources_wired"`
}
