package mqtt

import "fmt"

// TopicPrefix is the root of every Gray Logic topic.
const TopicPrefix = "graylogic"

// Topics provides builders for the topics the IEC 104 bridge uses.
//
// Bridge topics use the flat scheme graylogic/{category}/{protocol}/{address}:
//
//	topics := mqtt.Topics{}
//	topics.BridgePoint("iec104", "3003")
//	// Returns: "graylogic/iec104/point/3003"
type Topics struct{}

// BridgePoint returns the topic for an outbound point of a protocol bridge.
//
// Example: graylogic/iec104/point/3003
func (Topics) BridgePoint(protocol, address string) string {
	return fmt.Sprintf("%s/%s/point/%s", TopicPrefix, protocol, address)
}

// AllBridgePoints returns the wildcard for every point of a protocol.
//
// Example: graylogic/iec104/point/+
func (Topics) AllBridgePoints(protocol string) string {
	return fmt.Sprintf("%s/%s/point/+", TopicPrefix, protocol)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: graylogic/health/iec104
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, protocol)
}

// ClientStatus returns the retained online/offline topic of an MQTT client.
// It carries the LWT.
//
// Example: graylogic/system/status/graylogic-iec104
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/system/status/%s", TopicPrefix, clientID)
}
