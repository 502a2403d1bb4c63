package mqttsource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// ErrInvalidPayload is returned by the message handler for undecodable payloads.
var ErrInvalidPayload = errors.New("mqttsource: invalid payload")

// Subscriber is the MQTT surface the driver needs.
// Satisfied by *mqtt.Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ChannelRegistry resolves channels to publish into.
// Satisfied by *acquisition.Service.
type ChannelRegistry interface {
	Channel(id string) (*acquisition.Channel, bool)
}

// Logger is the logging interface used by the driver.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Binding maps an MQTT topic onto an acquisition channel.
type Binding struct {
	ChannelID string
	Topic     string
}

// Driver subscribes to bound topics and publishes decoded records.
type Driver struct {
	sub      Subscriber
	channels ChannelRegistry
	bindings []Binding
	qos      byte
	logger   Logger

	active []string
	mu     sync.Mutex
}

// New creates a driver. logger may be nil.
func New(sub Subscriber, channels ChannelRegistry, bindings []Binding, qos byte, logger Logger) *Driver {
	return &Driver{
		sub:      sub,
		channels: channels,
		bindings: append([]Binding(nil), bindings...),
		qos:      qos,
		logger:   logger,
	}
}

// Start subscribes every binding. Bindings whose channel is not registered
// are skipped with a warning. On a subscribe failure the topics subscribed
// so far are released and the error is returned.
func (d *Driver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, b := range d.bindings {
		ch, ok := d.channels.Channel(b.ChannelID)
		if !ok {
			d.warn("telemetry binding references unknown channel", "channel", b.ChannelID, "topic", b.Topic)
			continue
		}

		if err := d.sub.Subscribe(b.Topic, d.qos, d.handler(ch)); err != nil {
			d.unsubscribeLocked()
			return fmt.Errorf("subscribing %s for %s: %w", b.Topic, b.ChannelID, err)
		}
		d.active = append(d.active, b.Topic)
		d.info("telemetry subscribed", "channel", b.ChannelID, "topic", b.Topic)
	}
	return nil
}

// Stop unsubscribes every topic subscribed by Start.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unsubscribeLocked()
}

// Topics returns the currently subscribed topics.
func (d *Driver) Topics() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.active...)
}

func (d *Driver) unsubscribeLocked() {
	for _, topic := range d.active {
		if err := d.sub.Unsubscribe(topic); err != nil {
			d.warn("failed to unsubscribe telemetry topic", "topic", topic, "error", err)
		}
	}
	d.active = nil
}

func (d *Driver) handler(ch *acquisition.Channel) mqtt.MessageHandler {
	return func(_ string, payload []byte) error {
		rec, err := Decode(payload, ch.Kind())
		if err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID(), err)
		}
		ch.Publish(rec)
		return nil
	}
}

// envelope is the structured payload form.
type envelope struct {
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
}

// Decode parses a telemetry payload into a record of the given kind.
// KindNull infers the kind from the JSON scalar.
func Decode(payload []byte, kind value.Kind) (acquisition.Record, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return acquisition.Record{}, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	var raw any
	ts := time.Now().UTC()

	if trimmed[0] == '{' {
		var env envelope
		if err := unmarshalNumber(trimmed, &env); err != nil {
			return acquisition.Record{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		raw = env.Value
		if env.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339Nano, env.Timestamp)
			if err != nil {
				return acquisition.Record{}, fmt.Errorf("%w: timestamp %q", ErrInvalidPayload, env.Timestamp)
			}
			ts = parsed.UTC()
		}
	} else if err := unmarshalNumber(trimmed, &raw); err != nil {
		return acquisition.Record{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	v, err := value.FromAny(kind, raw)
	if err != nil {
		return acquisition.Record{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return acquisition.Record{Value: v, Timestamp: ts}, nil
}

func unmarshalNumber(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(target)
}

func (d *Driver) info(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Driver) warn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
