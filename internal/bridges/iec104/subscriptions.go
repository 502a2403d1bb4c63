package iec104

import (
	"sync"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// SourceRegistry resolves observable source channels.
// Satisfied by *acquisition.Service.
type SourceRegistry interface {
	Source(id string) (acquisition.Source, bool)
}

// Forwarding is the part of the Forwarder the subscription manager needs.
type Forwarding interface {
	Forward(sourceID string, v value.Value)
}

// registration pairs a wired source with its listener handle.
type registration struct {
	sourceID string
	source   acquisition.Source
	handle   acquisition.ListenerID
}

// SubscriptionManager wires source channels to the forwarder.
//
// Activation is not atomic: a missing channel is logged and skipped while
// the others stay wired. Deactivate removes exactly what Activate added.
type SubscriptionManager struct {
	sources   SourceRegistry
	forwarder Forwarding
	metrics   *Metrics
	logger    Logger

	regs []registration
	mu   sync.Mutex
}

// NewSubscriptionManager creates an inactive manager.
// metrics and logger may be nil.
func NewSubscriptionManager(sources SourceRegistry, forwarder Forwarding, metrics *Metrics, logger Logger) *SubscriptionManager {
	return &SubscriptionManager{
		sources:   sources,
		forwarder: forwarder,
		metrics:   metrics,
		logger:    logger,
	}
}

// Activate registers a listener on every resolvable source in ids and
// returns how many were wired by this call.
func (m *SubscriptionManager) Activate(ids []string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	wired := 0
	for _, id := range ids {
		if m.registeredLocked(id) {
			m.warn("channel already wired, skipping", "channel", id)
			continue
		}

		src, ok := m.sources.Source(id)
		if !ok || src == nil {
			m.error("failed to initialise channel", "channel", id)
			continue
		}

		handle := src.AddListener(&sourceListener{
			sourceID:  id,
			forwarder: m.forwarder,
			logger:    m.logger,
		})
		m.regs = append(m.regs, registration{sourceID: id, source: src, handle: handle})
		wired++
		m.info("channel initialised", "channel", id)
	}

	m.metrics.setWired(len(m.regs))
	return wired
}

// Deactivate removes every listener added by Activate. Safe to call when
// nothing is wired.
func (m *SubscriptionManager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, reg := range m.regs {
		if !reg.source.RemoveListener(reg.handle) {
			m.warn("listener was already removed", "channel", reg.sourceID)
			continue
		}
		m.info("removed listener from channel", "channel", reg.sourceID)
	}
	m.regs = nil
	m.metrics.setWired(0)
}

// Registrations returns the wired source IDs in activation order.
func (m *SubscriptionManager) Registrations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, len(m.regs))
	for i, reg := range m.regs {
		ids[i] = reg.sourceID
	}
	return ids
}

// Count returns the number of wired sources.
func (m *SubscriptionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

func (m *SubscriptionManager) registeredLocked(id string) bool {
	for _, reg := range m.regs {
		if reg.sourceID == id {
			return true
		}
	}
	return false
}

func (m *SubscriptionManager) info(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Info(msg, keysAndValues...)
	}
}

func (m *SubscriptionManager) warn(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, keysAndValues...)
	}
}

func (m *SubscriptionManager) error(msg string, keysAndValues ...any) {
	if m.logger != nil {
		m.logger.Error(msg, keysAndValues...)
	}
}

// sourceListener forwards every record of one source channel.
type sourceListener struct {
	sourceID  string
	forwarder Forwarding
	logger    Logger
}

// NewRecord implements acquisition.Listener.
func (l *sourceListener) NewRecord(rec acquisition.Record) {
	if l.logger != nil {
		if rec.Value.IsNull() {
			l.logger.Warn("received record without value", "channel", l.sourceID)
		} else {
			l.logger.Info("new value",
				"channel", l.sourceID,
				"value", rec.Value.String(),
				"timestamp", rec.Timestamp,
				"type", rec.Value.Kind().String())
		}
	}
	l.forwarder.Forward(l.sourceID, rec.Value)
}
