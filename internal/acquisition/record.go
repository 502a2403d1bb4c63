package acquisition

import (
	"time"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// Record is a single observed reading on a channel.
type Record struct {
	// Value is the reading. The zero Value means the source reported no value.
	Value value.Value

	// Timestamp is when the reading was taken (UTC).
	Timestamp time.Time
}

// NewRecord stamps v with the current time.
func NewRecord(v value.Value) Record {
	return Record{Value: v, Timestamp: time.Now().UTC()}
}

// Listener receives records published on a channel.
//
// NewRecord is called synchronously on the publishing goroutine and should
// return quickly.
type Listener interface {
	NewRecord(rec Record)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(rec Record)

// NewRecord implements Listener.
func (f ListenerFunc) NewRecord(rec Record) { f(rec) }
