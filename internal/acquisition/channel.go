package acquisition

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// Sink delivers accepted writes to the outside world (e.g. an outbound
// protocol gateway). A non-nil error means the write was not accepted.
type Sink interface {
	Deliver(channelID string, rec Record) error
}

// ListenerID is the opaque handle returned by AddListener.
type ListenerID uint64

// Logger is the logging interface used by this package.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
}

// Channel is a named point in the acquisition layer.
type Channel struct {
	id   string
	kind value.Kind
	sink Sink

	listeners  map[ListenerID]Listener
	order      []ListenerID
	nextID     atomic.Uint64
	listenerMu sync.RWMutex

	latest   Record
	hasValue bool
	latestMu sync.RWMutex

	logger Logger
}

func newChannel(spec ChannelSpec, logger Logger) *Channel {
	return &Channel{
		id:        spec.ID,
		kind:      spec.Kind,
		sink:      spec.Sink,
		listeners: make(map[ListenerID]Listener),
		logger:    logger,
	}
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.id }

// Kind returns the declared value kind. KindNull means untyped.
func (c *Channel) Kind() value.Kind { return c.kind }

// Writable reports whether the channel has an outbound sink.
func (c *Channel) Writable() bool { return c.sink != nil }

// AddListener registers l and returns a handle for RemoveListener.
func (c *Channel) AddListener(l Listener) ListenerID {
	id := ListenerID(c.nextID.Add(1))

	c.listenerMu.Lock()
	c.listeners[id] = l
	c.order = append(c.order, id)
	c.listenerMu.Unlock()

	return id
}

// RemoveListener deregisters the listener behind id.
// Returns false if id was not registered (already removed or unknown).
func (c *Channel) RemoveListener(id ListenerID) bool {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()

	if _, ok := c.listeners[id]; !ok {
		return false
	}
	delete(c.listeners, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// ListenerCount returns the number of registered listeners.
func (c *Channel) ListenerCount() int {
	c.listenerMu.RLock()
	defer c.listenerMu.RUnlock()
	return len(c.listeners)
}

// Publish stores rec as the latest record and fans it out to a snapshot of
// the registered listeners in registration order.
func (c *Channel) Publish(rec Record) {
	c.setLatest(rec)

	c.listenerMu.RLock()
	snapshot := make([]Listener, 0, len(c.order))
	for _, id := range c.order {
		snapshot = append(snapshot, c.listeners[id])
	}
	c.listenerMu.RUnlock()

	for _, l := range snapshot {
		c.notify(l, rec)
	}
}

// notify isolates the publisher from a panicking listener.
func (c *Channel) notify(l Listener, rec Record) {
	defer func() {
		if r := recover(); r != nil && c.logger != nil {
			c.logger.Error("listener panic recovered",
				"channel", c.id,
				"panic", r,
			)
		}
	}()
	l.NewRecord(rec)
}

// Write hands v to the channel's sink if the declared kind accepts it.
func (c *Channel) Write(v value.Value) error {
	if c.sink == nil {
		return fmt.Errorf("%w: %s", ErrReadOnly, c.id)
	}
	if !c.accepts(v.Kind()) {
		return fmt.Errorf("%w: %s is %s, got %s", ErrTypeMismatch, c.id, c.kind, v.Kind())
	}

	rec := NewRecord(v)
	if err := c.sink.Deliver(c.id, rec); err != nil {
		return fmt.Errorf("delivering to %s: %w", c.id, err)
	}

	c.setLatest(rec)
	return nil
}

// accepts implements the channel's lenient type rule: untyped channels take
// anything, integer channels take any integer-family kind, all other typed
// channels require an exact match.
func (c *Channel) accepts(k value.Kind) bool {
	switch {
	case c.kind == value.KindNull:
		return true
	case c.kind.IsInteger():
		return k.IsInteger()
	default:
		return k == c.kind
	}
}

// Latest returns the most recent record. ok is false before the first one.
func (c *Channel) Latest() (rec Record, ok bool) {
	c.latestMu.RLock()
	defer c.latestMu.RUnlock()
	return c.latest, c.hasValue
}

func (c *Channel) setLatest(rec Record) {
	c.latestMu.Lock()
	c.latest = rec
	c.hasValue = true
	c.latestMu.Unlock()
}
