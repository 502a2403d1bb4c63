package iec104

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatus struct {
	running bool
	wired   int
}

func (f fakeStatus) Running() bool     { return f.running }
func (f fakeStatus) WiredSources() int { return f.wired }

func decodeHealth(t *testing.T, msg publishedMessage) HealthMessage {
	t.Helper()
	var h HealthMessage
	require.NoError(t, json.Unmarshal(msg.payload, &h))
	return h
}

func TestHealthReporter_DetermineStatus(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		status    StatusProvider
		want      HealthStatus
		reason    string
	}{
		{"healthy", true, fakeStatus{running: true, wired: 3}, HealthHealthy, ""},
		{"disconnected", false, fakeStatus{running: true, wired: 3}, HealthDegraded, "MQTT disconnected"},
		{"stopped", true, fakeStatus{running: false, wired: 3}, HealthDegraded, "forwarding stopped"},
		{"nothing wired", true, fakeStatus{running: true}, HealthDegraded, "no source channels wired"},
		{"no status provider", true, nil, HealthHealthy, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := newMockPublisher()
			pub.connected = tt.connected
			h := NewHealthReporter(HealthReporterConfig{BridgeID: "iec104-01", Publisher: pub, Status: tt.status})

			status, reason := h.determineStatus()
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestHealthReporter_PublishNow(t *testing.T) {
	pub := newMockPublisher()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "iec104-01",
		Version:   "1.2.3",
		Publisher: pub,
		Status:    fakeStatus{running: true, wired: 2},
		QoS:       2,
	})

	require.NoError(t, h.PublishNow())

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, HealthTopic(), msgs[0].topic)
	assert.True(t, msgs[0].retained)
	assert.Equal(t, byte(2), msgs[0].qos)

	health := decodeHealth(t, msgs[0])
	assert.Equal(t, "iec104-01", health.BridgeID)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, HealthHealthy, health.Status)
	assert.True(t, health.Running)
	assert.Equal(t, 2, health.SourcesWired)
}

func TestHealthReporter_PublishStarting(t *testing.T) {
	pub := newMockPublisher()
	h := NewHealthReporter(HealthReporterConfig{BridgeID: "b", Publisher: pub})

	require.NoError(t, h.PublishStarting())
	assert.Equal(t, HealthStarting, decodeHealth(t, pub.published()[0]).Status)
	assert.Equal(t, byte(0), pub.published()[0].qos)
}

func TestHealthReporter_StartStop(t *testing.T) {
	pub := newMockPublisher()
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "b",
		Interval:  10 * time.Millisecond,
		Publisher: pub,
		Status:    fakeStatus{running: true, wired: 1},
	})
	h.SetLogger(&mockLogger{})

	h.Start(context.Background())
	require.Eventually(t, func() bool { return len(pub.published()) >= 2 }, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()

	msgs := pub.published()
	assert.Equal(t, HealthStopping, decodeHealth(t, msgs[len(msgs)-1]).Status)
}

func TestHealthReporter_ContextCancel(t *testing.T) {
	pub := newMockPublisher()
	h := NewHealthReporter(HealthReporterConfig{BridgeID: "b", Interval: time.Hour, Publisher: pub})

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)
	require.Eventually(t, func() bool { return len(pub.published()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	h.Stop()
	assert.Len(t, pub.published(), 2)
}

func TestHealthReporter_LogsPublishErrors(t *testing.T) {
	pub := newMockPublisher()
	pub.err = assert.AnError
	logger := &mockLogger{}

	h := NewHealthReporter(HealthReporterConfig{BridgeID: "b", Interval: time.Hour, Publisher: pub})
	h.SetLogger(logger)
	h.Start(context.Background())

	require.Eventually(t, func() bool { return logger.count("error") == 1 }, time.Second, 5*time.Millisecond)
	h.Stop()
}
