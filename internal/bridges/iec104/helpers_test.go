package iec104

import (
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/audit"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// logEntry is one captured log call.
type logEntry struct {
	level string
	msg   string
	kv    []any
}

// mockLogger captures log calls for assertions.
type mockLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (m *mockLogger) add(level, msg string, kv []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, logEntry{level: level, msg: msg, kv: kv})
}

func (m *mockLogger) Debug(msg string, kv ...any) { m.add("debug", msg, kv) }
func (m *mockLogger) Info(msg string, kv ...any)  { m.add("info", msg, kv) }
func (m *mockLogger) Warn(msg string, kv ...any)  { m.add("warn", msg, kv) }
func (m *mockLogger) Error(msg string, kv ...any) { m.add("error", msg, kv) }

// count returns the number of entries at level.
func (m *mockLogger) count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// has reports whether msg was logged at level.
func (m *mockLogger) has(level, msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

var errRejected = errors.New("rejected")

// mockEndpoint records writes. accept decides which values succeed; nil
// accepts everything.
type mockEndpoint struct {
	mu      sync.Mutex
	writes  []value.Value
	accept  func(value.Value) bool
	panicOn bool
}

func (m *mockEndpoint) Write(v value.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, v)
	if m.panicOn {
		panic("endpoint exploded")
	}
	if m.accept != nil && !m.accept(v) {
		return errRejected
	}
	return nil
}

func (m *mockEndpoint) written() []value.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]value.Value(nil), m.writes...)
}

// acceptKind accepts only values of kind k.
func acceptKind(k value.Kind) func(value.Value) bool {
	return func(v value.Value) bool { return v.Kind() == k }
}

func rejectAll(value.Value) bool { return false }

// mockDirectory resolves endpoints from a map and counts lookups.
type mockDirectory struct {
	mu        sync.Mutex
	endpoints map[string]*mockEndpoint
	lookups   []string
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{endpoints: make(map[string]*mockEndpoint)}
}

func (d *mockDirectory) Lookup(id string) (acquisition.Endpoint, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups = append(d.lookups, id)
	ep, ok := d.endpoints[id]
	if !ok {
		return nil, false
	}
	return ep, true
}

func (d *mockDirectory) lookupCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.lookups)
}

// mockAudit collects entries.
type mockAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *mockAudit) Record(entry audit.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

func (m *mockAudit) all() []audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Entry(nil), m.entries...)
}

// publishedMessage is one captured MQTT publish.
type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockPublisher captures publishes.
type mockPublisher struct {
	mu        sync.Mutex
	messages  []publishedMessage
	connected bool
	err       error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{connected: true}
}

func (m *mockPublisher) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, publishedMessage{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockPublisher) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockPublisher) published() []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedMessage(nil), m.messages...)
}

// writtenPoint is one captured time-series write.
type writtenPoint struct {
	measurement string
	tags        map[string]string
	fields      map[string]interface{}
	timestamp   time.Time
}

// mockPointWriter captures time-series writes.
type mockPointWriter struct {
	mu     sync.Mutex
	points []writtenPoint
}

func (m *mockPointWriter) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, writtenPoint{measurement: measurement, tags: tags, fields: fields, timestamp: ts})
}
