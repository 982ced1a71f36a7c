package metrics

import (
	"errors"

	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes calculation results as Prometheus metrics.
type PromSink struct {
	calculations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	spread       *prometheus.GaugeVec
	windows      *prometheus.GaugeVec
	shortfall    *prometheus.GaugeVec
	state        *prometheus.GaugeVec
	transitions  *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics that
// are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	s := &PromSink{}
	if s.calculations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cew_calculations_total",
		Help: "Window calculations by day and outcome",
	}, []string{"day", "result"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cew_calculation_duration_seconds",
		Help:    "Time spent planning and evaluating a day",
		Buckets: prometheus.DefBuckets,
	}, []string{"day"})); err != nil {
		return nil, err
	}
	if s.spread, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cew_spread_percent",
		Help: "Spread between the average expensive and cheap price",
	}, []string{"day"})); err != nil {
		return nil, err
	}
	if s.windows, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cew_windows",
		Help: "Number of selected windows by kind",
	}, []string{"day", "kind"})); err != nil {
		return nil, err
	}
	if s.shortfall, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cew_charge_shortfall_wh",
		Help: "Energy the selected charge windows cannot provide",
	}, []string{"day"})); err != nil {
		return nil, err
	}
	if s.state, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cew_state",
		Help: "Current battery state, 1 for the active state",
	}, []string{"day", "state"})); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cew_state_transitions_total",
		Help: "State changes by target state",
	}, []string{"day", "state"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCalculation updates the counters and gauges for one evaluation.
// Failed calculations only count and time the run.
func (s *PromSink) RecordCalculation(rec coremetrics.CalculationRecord) error {
	day := string(rec.Day)
	result := "ok"
	switch {
	case rec.Failed():
		result = "error"
	case !rec.Recomputed:
		result = "cached"
	}
	s.calculations.WithLabelValues(day, result).Inc()
	s.duration.WithLabelValues(day).Observe(rec.Duration.Seconds())
	if rec.Failed() {
		return nil
	}
	s.spread.WithLabelValues(day).Set(rec.SpreadPct)
	s.windows.WithLabelValues(day, "charge").Set(float64(rec.ChargeWindows))
	s.windows.WithLabelValues(day, "discharge").Set(float64(rec.DischargeWindows))
	s.windows.WithLabelValues(day, "aggressive").Set(float64(rec.AggressiveWindows))
	s.shortfall.WithLabelValues(day).Set(rec.ChargeShortfallWh)
	return nil
}

// RecordState sets the one-hot state gauge and counts the transition.
func (s *PromSink) RecordState(rec coremetrics.StateRecord) error {
	day := string(rec.Day)
	for _, st := range model.States {
		v := 0.0
		if st == rec.State {
			v = 1
		}
		s.state.WithLabelValues(day, string(st)).Set(v)
	}
	s.transitions.WithLabelValues(day, string(rec.State)).Inc()
	return nil
}
