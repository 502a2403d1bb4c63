package acquisition

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// Endpoint is a write-capable channel as seen by consumers that forward
// values into the acquisition layer.
type Endpoint interface {
	Write(v value.Value) error
}

// Source is an observable channel as seen by consumers that subscribe to
// value changes.
type Source interface {
	ID() string
	AddListener(l Listener) ListenerID
	RemoveListener(id ListenerID) bool
}

// ChannelSpec describes a channel to register.
type ChannelSpec struct {
	// ID is the unique channel identifier.
	ID string

	// Kind is the declared value kind. KindNull leaves the channel untyped.
	Kind value.Kind

	// Sink makes the channel writable. Nil for read-only source channels.
	Sink Sink
}

// Service is the channel registry. It resolves IDs for both subscribers
// (Source) and forwarders (Lookup).
type Service struct {
	channels map[string]*Channel
	mu       sync.RWMutex

	logger Logger
}

// NewService creates an empty registry.
func NewService() *Service {
	return &Service{channels: make(map[string]*Channel)}
}

// SetLogger sets the logger handed to channels registered afterwards.
func (s *Service) SetLogger(logger Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Register adds a channel built from spec.
func (s *Service) Register(spec ChannelSpec) (*Channel, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidChannel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.channels[spec.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateChannel, spec.ID)
	}

	ch := newChannel(spec, s.logger)
	s.channels[spec.ID] = ch
	return ch, nil
}

// Channel returns the channel with the given ID.
func (s *Service) Channel(id string) (*Channel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[id]
	return ch, ok
}

// Lookup resolves a writable endpoint. A registered but read-only channel
// is still returned; the write itself reports ErrReadOnly.
func (s *Service) Lookup(id string) (Endpoint, bool) {
	ch, ok := s.Channel(id)
	if !ok {
		return nil, false
	}
	return ch, true
}

// Source resolves an observable channel.
func (s *Service) Source(id string) (Source, bool) {
	ch, ok := s.Channel(id)
	if !ok {
		return nil, false
	}
	return ch, true
}

// IDs returns all registered channel IDs, sorted.
func (s *Service) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.channels))
	for id := range s.channels {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Count returns the number of registered channels.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.channels)
}
