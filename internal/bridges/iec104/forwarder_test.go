package iec104

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// newTestForwarder builds a started forwarder over dir with logging and
// audit captured.
func newTestForwarder(t *testing.T, dir *mockDirectory) (*Forwarder, *mockLogger, *mockAudit) {
	t.Helper()

	logger := &mockLogger{}
	rec := &mockAudit{}
	fwd, err := NewForwarder(ForwarderOptions{Directory: dir, Logger: logger, Audit: rec})
	require.NoError(t, err)
	fwd.Start()
	return fwd, logger, rec
}

func TestNewForwarder_RequiresDirectory(t *testing.T) {
	_, err := NewForwarder(ForwarderOptions{})
	assert.Error(t, err)
}

func TestNewForwarder_Defaults(t *testing.T) {
	fwd, err := NewForwarder(ForwarderOptions{Directory: newMockDirectory()})
	require.NoError(t, err)

	assert.Equal(t, DefaultTargetSuffix, fwd.Suffix())
	assert.False(t, fwd.Running())
}

func TestTargetID(t *testing.T) {
	assert.Equal(t, "frequency_iec104", TargetID("frequency", DefaultTargetSuffix))
	assert.Equal(t, "_iec104", TargetID("", DefaultTargetSuffix))
}

func TestForwarder_StoppedNeverConsultsDirectory(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{}
	dir.endpoints["frequency_iec104"] = ep

	logger := &mockLogger{}
	rec := &mockAudit{}
	fwd, err := NewForwarder(ForwarderOptions{Directory: dir, Logger: logger, Audit: rec})
	require.NoError(t, err)

	fwd.Forward("frequency", value.Double(50.0))

	assert.Zero(t, dir.lookupCount())
	assert.Empty(t, ep.written())
	assert.Empty(t, rec.all())
	assert.Equal(t, 1, logger.count("debug"))
}

func TestForwarder_StartStopIdempotent(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{}
	dir.endpoints["a_iec104"] = ep

	logger := &mockLogger{}
	fwd, err := NewForwarder(ForwarderOptions{Directory: dir, Logger: logger})
	require.NoError(t, err)

	fwd.Start()
	fwd.Start()
	assert.True(t, fwd.Running())
	assert.Equal(t, 2, logger.count("info"))

	fwd.Stop()
	fwd.Stop()
	assert.False(t, fwd.Running())

	fwd.Forward("a", value.Int(1))
	assert.Empty(t, ep.written())

	fwd.Start()
	fwd.Forward("a", value.Int(1))
	assert.Len(t, ep.written(), 1)
}

func TestForwarder_MissingTarget(t *testing.T) {
	dir := newMockDirectory()
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("breakerPosition", value.Bool(true))

	assert.Equal(t, []string{"breakerPosition_iec104"}, dir.lookups)
	assert.True(t, logger.has("warn", "IEC 104 target channel not found"))
	assert.Zero(t, logger.count("error"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeMissingTarget), entries[0].Outcome)
	assert.Equal(t, "breakerPosition_iec104", entries[0].TargetID)
}

func TestForwarder_DirectWrite(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{accept: acceptKind(value.KindFloat)}
	dir.endpoints["frequency_iec104"] = ep
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("frequency", value.Float(49.98))

	writes := ep.written()
	require.Len(t, writes, 1)
	assert.Equal(t, value.Float(49.98), writes[0])
	assert.Zero(t, logger.count("error"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeDirect), entries[0].Outcome)
	assert.Equal(t, "FLOAT", entries[0].ValueType)
}

func TestForwarder_ConvertsBooleanAfterRejection(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{accept: acceptKind(value.KindInteger)}
	dir.endpoints["frequency_iec104"] = ep
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("frequency", value.Bool(true))

	assert.Equal(t, []value.Value{value.Bool(true), value.Int(1)}, ep.written())
	assert.True(t, logger.has("debug", "direct write rejected"))
	assert.True(t, logger.has("info", "converted and forwarded"))
	assert.Zero(t, logger.count("error"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeConverted), entries[0].Outcome)
	assert.Equal(t, "INTEGER", entries[0].ValueType)
	assert.Equal(t, "1", entries[0].Value)
}

func TestForwarder_ConvertsDoubleToFloat(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{accept: acceptKind(value.KindFloat)}
	dir.endpoints["frequency_iec104"] = ep
	fwd, _, _ := newTestForwarder(t, dir)

	fwd.Forward("frequency", value.Double(50.02))

	writes := ep.written()
	require.Len(t, writes, 2)
	assert.Equal(t, value.Float(float32(50.02)), writes[1])
}

func TestForwarder_BothWritesFail(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{accept: rejectAll}
	dir.endpoints["breakerPosition_iec104"] = ep
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("breakerPosition", value.Bool(false))

	assert.Len(t, ep.written(), 2)
	assert.Equal(t, 1, logger.count("error"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeFailed), entries[0].Outcome)
	assert.Contains(t, entries[0].Error, "rejected")
}

func TestForwarder_UnconvertibleString(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{accept: acceptKind(value.KindInteger)}
	dir.endpoints["breakerPosition_iec104"] = ep
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("breakerPosition", value.String("intermediate"))

	assert.Len(t, ep.written(), 1)
	assert.Equal(t, 1, logger.count("error"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeFailed), entries[0].Outcome)
	assert.Contains(t, entries[0].Error, ErrUnsupportedConversion.Error())
}

func TestForwarder_AbsentValueWritesNullSentinel(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{}
	dir.endpoints["healthStatus_iec104"] = ep
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("healthStatus", value.Null())

	assert.Equal(t, []value.Value{value.String(NullSentinel)}, ep.written())
	assert.Zero(t, logger.count("warn"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeNullSentinel), entries[0].Outcome)
	assert.Equal(t, "null", entries[0].Value)
}

func TestForwarder_AbsentValueRejected(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{accept: rejectAll}
	dir.endpoints["healthStatus_iec104"] = ep
	fwd, logger, rec := newTestForwarder(t, dir)

	fwd.Forward("healthStatus", value.Null())

	assert.Len(t, ep.written(), 1)
	assert.True(t, logger.has("warn", "no conversion done: value is null"))
	assert.Zero(t, logger.count("error"))

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeFailed), entries[0].Outcome)
}

func TestForwarder_RecoversEndpointPanic(t *testing.T) {
	dir := newMockDirectory()
	target := &mockEndpoint{panicOn: true}
	dir.endpoints["breakerPosition_iec104"] = target
	fwd, logger, rec := newTestForwarder(t, dir)

	assert.NotPanics(t, func() { fwd.Forward("breakerPosition", value.Bool(true)) })
	assert.Equal(t, 1, logger.count("error"))

	// A panic ends the event: no converted retry follows.
	assert.Equal(t, []value.Value{value.Bool(true)}, target.written())

	entries := rec.all()
	require.Len(t, entries, 1)
	assert.Equal(t, string(OutcomeFailed), entries[0].Outcome)
	assert.Contains(t, entries[0].Error, "endpoint panic")
}

func TestForwarder_CustomSuffix(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{}
	dir.endpoints["frequency-104"] = ep

	fwd, err := NewForwarder(ForwarderOptions{Directory: dir, Suffix: "-104"})
	require.NoError(t, err)
	fwd.Start()

	fwd.Forward("frequency", value.Int(50))
	assert.Len(t, ep.written(), 1)
}

func TestForwarder_NilLoggerAndAudit(t *testing.T) {
	dir := newMockDirectory()
	dir.endpoints["a_iec104"] = &mockEndpoint{accept: rejectAll}

	fwd, err := NewForwarder(ForwarderOptions{Directory: dir})
	require.NoError(t, err)
	fwd.Start()

	assert.NotPanics(t, func() {
		fwd.Forward("a", value.Bool(true))
		fwd.Forward("missing", value.Int(1))
	})
}

func TestForwarder_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	dir := newMockDirectory()
	dir.endpoints["f_iec104"] = &mockEndpoint{accept: acceptKind(value.KindInteger)}
	fwd, err := NewForwarder(ForwarderOptions{Directory: dir, Metrics: metrics})
	require.NoError(t, err)

	fwd.Forward("f", value.Int(1))
	fwd.Start()
	fwd.Forward("f", value.Int(1))
	fwd.Forward("f", value.Bool(true))
	fwd.Forward("f", value.String("x"))
	fwd.Forward("g", value.Int(1))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.forwards.WithLabelValues(string(OutcomeDroppedStopped))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.forwards.WithLabelValues(string(OutcomeDirect))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.forwards.WithLabelValues(string(OutcomeConverted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.forwards.WithLabelValues(string(OutcomeFailed))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.forwards.WithLabelValues(string(OutcomeMissingTarget))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.conversions.WithLabelValues("BOOLEAN", "INTEGER")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.running))
}

func TestForwarder_ConcurrentForward(t *testing.T) {
	dir := newMockDirectory()
	ep := &mockEndpoint{}
	dir.endpoints["a_iec104"] = ep
	fwd, _, _ := newTestForwarder(t, dir)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			fwd.Forward("a", value.Int(int32(n)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, ep.written(), 50)
}
