package metrics

import (
	"time"

	"github.com/kilianp07/cew/core/model"
)

// CalculationRecord summarizes one evaluation of a day.
type CalculationRecord struct {
	RunID      string
	Day        model.Day
	Time       time.Time
	Duration   time.Duration
	Recomputed bool
	Err        string

	State             model.State
	ChargeWindows     int
	DischargeWindows  int
	AggressiveWindows int

	AvgCheapPrice     float64
	AvgExpensivePrice float64
	SpreadPct         float64
	SpreadMet         bool

	ChargeShortfallWh       float64
	EnergyShortfall         bool
	PlannedChargeCost       float64
	PlannedDischargeRevenue float64
}

// Failed reports whether the calculation fell back to the error result.
func (r CalculationRecord) Failed() bool { return r.Err != "" }

// StateRecord describes a change of the published state.
type StateRecord struct {
	RunID    string
	Day      model.Day
	Time     time.Time
	Previous model.State
	State    model.State
	Reason   string
	Price    float64
	SOCPct   float64
	SOCKnown bool
}

// MetricsSink records calculation results.
type MetricsSink interface {
	RecordCalculation(rec CalculationRecord) error
}

// StateRecorder is implemented by sinks that also track state changes.
type StateRecorder interface {
	RecordState(rec StateRecord) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordCalculation(CalculationRecord) error { return nil }

func (NopSink) RecordState(StateRecord) error { return nil }

// MultiSink fans records out to several sinks. Every sink is called even
// when an earlier one fails; the first error is returned.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordCalculation(rec CalculationRecord) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordCalculation(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordState forwards to the sinks implementing StateRecorder.
func (m *MultiSink) RecordState(rec StateRecord) error {
	var first error
	for _, s := range m.Sinks {
		r, ok := s.(StateRecorder)
		if !ok {
			continue
		}
		if err := r.RecordState(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
