package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/bridges/iec104"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte, byte, bool) error { return nil }
func (nopPublisher) IsConnected() bool                        { return true }

func testChannels() []config.ChannelConfig {
	return []config.ChannelConfig{
		{ID: "frequency", ValueType: "DOUBLE", Topic: "site/bay1/frequency"},
		{ID: "breakerPosition", ValueType: "BOOLEAN", NodeID: "ns=2;s=Bay1.XCBR1.Pos"},
		{ID: "frequency_iec104", IOA: 3003},
		{ID: "breakerPosition_iec104", IOA: 3002},
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/iec104bridge.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestRun_InvalidChannels(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bridge.yaml")
	content := `
database:
  path: "` + filepath.Join(t.TempDir(), "bridge.db") + `"
channels:
  - id: frequency
    value_type: NOT_A_TYPE
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0600))
	t.Setenv("GRAYLOGIC_CONFIG", configPath)

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")
	assert.Equal(t, defaultConfigPath, getConfigPath())

	t.Setenv("GRAYLOGIC_CONFIG", "/etc/graylogic/iec104bridge.yaml")
	assert.Equal(t, "/etc/graylogic/iec104bridge.yaml", getConfigPath())
}

func TestAddresses(t *testing.T) {
	got := addresses(testChannels())
	assert.Equal(t, map[string]int{"frequency_iec104": 3003, "breakerPosition_iec104": 3002}, got)
}

func TestRegisterChannels(t *testing.T) {
	outbound, err := iec104.NewOutbound(iec104.OutboundOptions{
		Publisher: nopPublisher{},
		Addresses: addresses(testChannels()),
	})
	require.NoError(t, err)

	service := acquisition.NewService()
	require.NoError(t, registerChannels(service, testChannels(), outbound))
	assert.Equal(t, 4, service.Count())

	source, ok := service.Channel("frequency")
	require.True(t, ok)
	assert.Equal(t, value.KindDouble, source.Kind())
	assert.ErrorIs(t, source.Write(value.Double(50)), acquisition.ErrReadOnly)

	target, ok := service.Channel("frequency_iec104")
	require.True(t, ok)
	assert.Equal(t, value.KindNull, target.Kind())
	assert.NoError(t, target.Write(value.Float(49.98)))
}

func TestRegisterChannels_Duplicate(t *testing.T) {
	channels := []config.ChannelConfig{{ID: "frequency"}, {ID: "frequency"}}
	err := registerChannels(acquisition.NewService(), channels, nil)
	assert.Error(t, err)
}

func TestServeMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := iec104.NewMetrics(registry)
	require.NoError(t, err)

	log := logging.NewWithWriter(io.Discard, config.LoggingConfig{Level: "error"}, "test")
	stop := serveMetrics(config.MetricsConfig{Listen: "127.0.0.1:19104", Path: "/metrics"}, registry, log)
	defer stop()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:19104/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	assert.True(t, strings.Contains(body, "graylogic_iec104_running"))
}
