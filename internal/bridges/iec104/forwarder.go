package iec104

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-iec104/internal/acquisition"
	"github.com/nerrad567/gray-logic-iec104/internal/audit"
	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

const (
	// DefaultTargetSuffix names the IEC 104 counterpart of a source channel.
	DefaultTargetSuffix = "_iec104"

	// NullSentinel is written in place of an absent value.
	NullSentinel = "null"
)

// Logger is the logging interface used by the bridge.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Directory resolves target endpoints by ID.
// Satisfied by *acquisition.Service.
type Directory interface {
	Lookup(targetID string) (acquisition.Endpoint, bool)
}

// AuditRecorder receives one entry per forwarded event.
// Record must not block. Satisfied by *audit.Recorder.
type AuditRecorder interface {
	Record(entry audit.Entry)
}

// TargetID derives the IEC 104 channel ID for a source channel.
func TargetID(sourceID, suffix string) string {
	return sourceID + suffix
}

// ForwarderOptions holds configuration for creating a Forwarder.
type ForwarderOptions struct {
	// Directory resolves target channels. Required.
	Directory Directory

	// Suffix is appended to source IDs. Default: DefaultTargetSuffix.
	Suffix string

	// Logger is optional structured logger.
	Logger Logger

	// Metrics is optional. If nil, outcomes are not counted.
	Metrics *Metrics

	// Audit is optional. If nil, outcomes are not persisted.
	Audit AuditRecorder
}

// Forwarder relays point updates to their IEC 104 target channels.
//
// It starts Stopped; Forward is a no-op until Start is called.
//
// Thread Safety: All methods are safe for concurrent use.
type Forwarder struct {
	dir     Directory
	suffix  string
	metrics *Metrics
	audit   AuditRecorder

	running atomic.Bool

	logger   Logger
	loggerMu sync.RWMutex
}

// NewForwarder creates a stopped forwarder.
func NewForwarder(opts ForwarderOptions) (*Forwarder, error) {
	if opts.Directory == nil {
		return nil, fmt.Errorf("directory is required")
	}

	suffix := opts.Suffix
	if suffix == "" {
		suffix = DefaultTargetSuffix
	}

	return &Forwarder{
		dir:     opts.Directory,
		suffix:  suffix,
		metrics: opts.Metrics,
		audit:   opts.Audit,
		logger:  opts.Logger,
	}, nil
}

// Start enables forwarding. Calling it again has no further effect.
func (f *Forwarder) Start() {
	f.running.Store(true)
	f.metrics.setRunning(true)
	f.logInfo("IEC 104 forwarding started")
}

// Stop disables forwarding. Calling it again has no further effect.
func (f *Forwarder) Stop() {
	f.running.Store(false)
	f.metrics.setRunning(false)
	f.logInfo("IEC 104 forwarding stopped")
}

// Running reports whether events are currently forwarded.
func (f *Forwarder) Running() bool {
	return f.running.Load()
}

// Suffix returns the target naming suffix.
func (f *Forwarder) Suffix() string {
	return f.suffix
}

// Forward relays v from sourceID to its target channel.
//
// It never returns an error and never panics: every outcome is reported
// through the logger, metrics and audit trail only.
func (f *Forwarder) Forward(sourceID string, v value.Value) {
	if !f.running.Load() {
		f.logDebug("IEC 104 not running; dropped update", "source", sourceID)
		f.finish(sourceID, "", v, OutcomeDroppedStopped, nil)
		return
	}

	targetID := TargetID(sourceID, f.suffix)
	defer f.recoverEndpointPanic(sourceID, targetID, v)

	target, ok := f.dir.Lookup(targetID)
	if !ok || target == nil {
		f.logWarn("IEC 104 target channel not found", "source", sourceID, "target", targetID)
		f.finish(sourceID, targetID, v, OutcomeMissingTarget, nil)
		return
	}

	f.logDebug("attempting to forward",
		"source", sourceID,
		"target", targetID,
		"value", v.String())

	if v.IsNull() {
		f.forwardAbsent(sourceID, targetID, target)
		return
	}

	err := target.Write(v)
	if err == nil {
		f.logDebug("forward complete", "source", sourceID, "target", targetID, "value", v.String())
		f.finish(sourceID, targetID, v, OutcomeDirect, nil)
		return
	}

	// Any rejection goes through conversion, not only type mismatches.
	f.logDebug("direct write rejected",
		"source", sourceID,
		"target", targetID,
		"type", v.Kind().String(),
		"type_mismatch", errors.Is(err, acquisition.ErrTypeMismatch),
		"error", err)

	converted, convErr := Convert(v)
	if convErr != nil {
		f.logError("failed to forward", convErr, "source", sourceID, "target", targetID)
		f.finish(sourceID, targetID, v, OutcomeFailed, convErr)
		return
	}

	if err := target.Write(converted); err != nil {
		f.logError("failed to forward", err,
			"source", sourceID,
			"target", targetID,
			"converted", converted.String())
		f.finish(sourceID, targetID, converted, OutcomeFailed, err)
		return
	}

	f.metrics.observeConversion(v.Kind(), converted.Kind())
	f.logInfo("converted and forwarded",
		"source", sourceID,
		"target", targetID,
		"from", v.Kind().String(),
		"value", converted.String())
	f.finish(sourceID, targetID, converted, OutcomeConverted, nil)
}

// forwardAbsent writes the "null" placeholder for a record without a value.
func (f *Forwarder) forwardAbsent(sourceID, targetID string, target acquisition.Endpoint) {
	sentinel := value.String(NullSentinel)
	if err := target.Write(sentinel); err != nil {
		f.logWarn("no conversion done: value is null",
			"source", sourceID,
			"target", targetID,
			"error", err)
		f.finish(sourceID, targetID, value.Null(), OutcomeFailed, err)
		return
	}
	f.logDebug("forward complete", "source", sourceID, "target", targetID, "value", NullSentinel)
	f.finish(sourceID, targetID, sentinel, OutcomeNullSentinel, nil)
}

// recoverEndpointPanic keeps a misbehaving endpoint from unwinding into the
// acquisition layer's listener loop.
func (f *Forwarder) recoverEndpointPanic(sourceID, targetID string, v value.Value) {
	if r := recover(); r != nil {
		err := fmt.Errorf("endpoint panic: %v", r)
		f.logError("failed to forward", err, "source", sourceID, "target", targetID)
		f.finish(sourceID, targetID, v, OutcomeFailed, err)
	}
}

// finish reports the outcome of one event to metrics and the audit trail.
func (f *Forwarder) finish(sourceID, targetID string, v value.Value, outcome Outcome, err error) {
	f.metrics.observeForward(outcome)

	if f.audit == nil || outcome == OutcomeDroppedStopped {
		return
	}

	entry := audit.Entry{
		SourceID:  sourceID,
		TargetID:  targetID,
		Outcome:   string(outcome),
		ValueType: v.Kind().String(),
		Value:     v.String(),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	f.audit.Record(entry)
}

// SetLogger sets the logger for the forwarder.
func (f *Forwarder) SetLogger(logger Logger) {
	f.loggerMu.Lock()
	f.logger = logger
	f.loggerMu.Unlock()
}

func (f *Forwarder) getLogger() Logger {
	f.loggerMu.RLock()
	defer f.loggerMu.RUnlock()
	return f.logger
}

// logDebug logs a debug message if logger is set.
func (f *Forwarder) logDebug(msg string, keysAndValues ...any) {
	if logger := f.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if logger is set.
func (f *Forwarder) logInfo(msg string, keysAndValues ...any) {
	if logger := f.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (f *Forwarder) logWarn(msg string, keysAndValues ...any) {
	if logger := f.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (f *Forwarder) logError(msg string, err error, keysAndValues ...any) {
	if logger := f.getLogger(); logger != nil {
		logger.Error(msg, append(keysAndValues, "error", err)...)
	}
}
