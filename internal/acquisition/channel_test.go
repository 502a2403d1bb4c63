package acquisition

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// mockSink records deliveries and optionally fails them.
type mockSink struct {
	mu        sync.Mutex
	delivered []Record
	err       error
}

func (m *mockSink) Deliver(_ string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.delivered = append(m.delivered, rec)
	return nil
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Error(msg string, _ ...any) {
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
}

func TestChannel_WriteAcceptance(t *testing.T) {
	tests := []struct {
		name    string
		kind    value.Kind
		input   value.Value
		wantErr error
	}{
		{"untyped takes boolean", value.KindNull, value.Bool(true), nil},
		{"untyped takes string", value.KindNull, value.String("null"), nil},
		{"integer takes long", value.KindInteger, value.Long(5), nil},
		{"integer takes byte", value.KindInteger, value.Byte(5), nil},
		{"integer rejects boolean", value.KindInteger, value.Bool(true), ErrTypeMismatch},
		{"integer rejects string", value.KindInteger, value.String("null"), ErrTypeMismatch},
		{"float takes float", value.KindFloat, value.Float(1), nil},
		{"float rejects double", value.KindFloat, value.Double(1), ErrTypeMismatch},
		{"float rejects integer", value.KindFloat, value.Int(1), ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &mockSink{}
			ch := newChannel(ChannelSpec{ID: "p_iec104", Kind: tt.kind, Sink: sink}, nil)

			err := ch.Write(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, sink.delivered)
				return
			}
			require.NoError(t, err)
			require.Len(t, sink.delivered, 1)
			assert.Equal(t, tt.input, sink.delivered[0].Value)

			latest, ok := ch.Latest()
			assert.True(t, ok)
			assert.Equal(t, tt.input, latest.Value)
		})
	}
}

func TestChannel_WriteReadOnly(t *testing.T) {
	ch := newChannel(ChannelSpec{ID: "frequency"}, nil)
	assert.False(t, ch.Writable())
	assert.ErrorIs(t, ch.Write(value.Int(1)), ErrReadOnly)
}

func TestChannel_WriteSinkFailure(t *testing.T) {
	sinkErr := errors.New("gateway offline")
	ch := newChannel(ChannelSpec{ID: "x", Sink: &mockSink{err: sinkErr}}, nil)

	err := ch.Write(value.Int(1))
	assert.ErrorIs(t, err, sinkErr)

	_, ok := ch.Latest()
	assert.False(t, ok, "failed write must not update latest record")
}

func TestChannel_ListenersInOrder(t *testing.T) {
	ch := newChannel(ChannelSpec{ID: "frequency"}, nil)

	var got []string
	ch.AddListener(ListenerFunc(func(Record) { got = append(got, "first") }))
	ch.AddListener(ListenerFunc(func(Record) { got = append(got, "second") }))

	ch.Publish(NewRecord(value.Double(50)))

	assert.Equal(t, []string{"first", "second"}, got)
}

func TestChannel_RemoveListener(t *testing.T) {
	ch := newChannel(ChannelSpec{ID: "frequency"}, nil)

	calls := 0
	id := ch.AddListener(ListenerFunc(func(Record) { calls++ }))
	assert.Equal(t, 1, ch.ListenerCount())

	assert.True(t, ch.RemoveListener(id))
	assert.False(t, ch.RemoveListener(id), "second removal reports false")
	assert.Equal(t, 0, ch.ListenerCount())

	ch.Publish(NewRecord(value.Double(50)))
	assert.Equal(t, 0, calls)
}

func TestChannel_PanickingListenerIsolated(t *testing.T) {
	logger := &mockLogger{}
	ch := newChannel(ChannelSpec{ID: "frequency"}, logger)

	delivered := false
	ch.AddListener(ListenerFunc(func(Record) { panic("boom") }))
	ch.AddListener(ListenerFunc(func(Record) { delivered = true }))

	assert.NotPanics(t, func() { ch.Publish(NewRecord(value.Double(50))) })
	assert.True(t, delivered)
	assert.Equal(t, []string{"listener panic recovered"}, logger.errors)
}

func TestChannel_ConcurrentPublish(t *testing.T) {
	ch := newChannel(ChannelSpec{ID: "frequency"}, nil)

	var mu sync.Mutex
	count := 0
	ch.AddListener(ListenerFunc(func(Record) {
		mu.Lock()
		count++
		mu.Unlock()
	}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch.Publish(NewRecord(value.Double(50)))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}
