// Package opcuasource feeds acquisition channels from an OPC UA server.
//
// Each channel with a node_id is monitored through one subscription on a
// single client session. Data change notifications are converted to the
// channel's kind and published; a bad status code publishes the absent
// value so the IEC 104 side sees the point go invalid.
package opcuasource
