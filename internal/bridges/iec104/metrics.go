package iec104

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/gray-logic-iec104/internal/value"
)

// Outcome classifies how a single forwarded event ended.
type Outcome string

const (
	// OutcomeDroppedStopped means the event arrived while the bridge was stopped.
	OutcomeDroppedStopped Outcome = "dropped_stopped"

	// OutcomeMissingTarget means no "_iec104" channel exists for the source.
	OutcomeMissingTarget Outcome = "missing_target"

	// OutcomeDirect means the value was accepted unchanged.
	OutcomeDirect Outcome = "direct"

	// OutcomeConverted means the value was accepted after conversion.
	OutcomeConverted Outcome = "converted"

	// OutcomeNullSentinel means an absent value was forwarded as "null".
	OutcomeNullSentinel Outcome = "null_sentinel"

	// OutcomeFailed means the event was dropped after all attempts.
	OutcomeFailed Outcome = "failed"
)

// Metrics holds the bridge's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	forwards    *prometheus.CounterVec
	conversions *prometheus.CounterVec
	running     prometheus.Gauge
	wired       prometheus.Gauge
}

// NewMetrics creates the bridge collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		forwards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "iec104",
			Name:      "forward_total",
			Help:      "Point updates handled by the IEC 104 forwarder, by outcome.",
		}, []string{"outcome"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "graylogic",
			Subsystem: "iec104",
			Name:      "conversions_total",
			Help:      "Successful fallback conversions, by source and result type.",
		}, []string{"from", "to"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graylogic",
			Subsystem: "iec104",
			Name:      "running",
			Help:      "1 while the forwarder is started.",
		}),
		wired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "graylogic",
			Subsystem: "iec104",
			Name:      "sources_wired",
			Help:      "Source channels with an active listener.",
		}),
	}

	for _, c := range []prometheus.Collector{m.forwards, m.conversions, m.running, m.wired} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering iec104 metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) observeForward(outcome Outcome) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeConversion(from, to value.Kind) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) setRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.running.Set(1)
		return
	}
	m.running.Set(0)
}

func (m *Metrics) setWired(n int) {
	if m == nil {
		return
	}
	m.wired.Set(float64(n))
}
