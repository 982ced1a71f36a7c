package engine

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/cew/core/logger"
	"github.com/kilianp07/cew/core/model"
)

// Plan is the time-independent part of a calculation: the normalized series,
// the selected windows and the simulated energy balance.
type Plan struct {
	Config    Config                `json:"-"`
	Intervals []model.PriceInterval `json:"intervals"`
	Selection model.WindowSelection `json:"selection"`
	Spread    Spread                `json:"-"`
	Trace     []EnergyPoint         `json:"trace"`

	SolarEnabled bool      `json:"solar_enabled"`
	SolarWh      []float64 `json:"solar_wh,omitempty"`

	SuppressedCharge  []model.PriceInterval `json:"suppressed_charge_windows,omitempty"`
	MinChargeWindows  int                   `json:"min_charge_windows"`
	ChargeShortfallWh float64               `json:"charge_shortfall_wh"`
	EnergyShortfall   bool                  `json:"energy_shortfall"`
	RepairIterations  int                   `json:"repair_iterations"`
}

// Result is a plan evaluated at one instant.
type Result struct {
	State       model.State           `json:"state"`
	Selection   model.WindowSelection `json:"selection"`
	Diagnostics Diagnostics           `json:"diagnostics"`
	Trace       []EnergyPoint         `json:"trace,omitempty"`
}

// Input bundles every argument of a one-shot calculation.
type Input struct {
	Prices   []model.PriceInterval
	Forecast []model.ForecastInterval
	Config   Config
	Now      time.Time
	Status   Status
}

// Engine computes window selections. It keeps no state between calls and is
// safe for concurrent use.
type Engine struct {
	log logger.Logger
}

// New returns an Engine logging to log. A nil logger disables logging.
func New(log logger.Logger) *Engine {
	return &Engine{log: logger.OrNop(log)}
}

// Calculate plans the series and evaluates the plan at in.Now.
func (e *Engine) Calculate(in Input) (Result, error) {
	plan, err := e.Plan(in.Prices, in.Forecast, in.Config)
	if err != nil {
		return Fallback(in.Config, err), err
	}
	return e.Evaluate(plan, in.Now, in.Status), nil
}

// Plan runs normalization, filtering, spread gating, solar adjustment, global
// selection and the feasibility repair. The result does not depend on the
// current time.
func (e *Engine) Plan(prices []model.PriceInterval, forecast []model.ForecastInterval, cfg Config) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	slots, err := Normalize(prices, cfg)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Config: cfg, Intervals: slots}
	if len(slots) == 0 {
		e.log.Debugf("empty price series, nothing to plan")
		return plan, nil
	}

	scope, inScope := calculationScope(slots, cfg.CalculationWindow)
	cheap := cheapPool(slots, scope, cfg.CheapPercentile)
	expensive := expensivePool(slots, scope, cfg.ExpensivePercentile)
	spread := evaluateSpread(
		adjustedValues(slots, spreadSample(byPriceAsc(slots, cheap), cfg.ChargeWindows)),
		adjustedValues(slots, spreadSample(byPriceDesc(slots, expensive), cfg.DischargeWindows)),
		cfg,
	)

	var energy []float64
	suppressed := map[int]bool{}
	if len(forecast) > 0 {
		energy = mapForecast(slots, forecast)
		suppressed = suppressedBySolar(slots, energy, cheap, cfg)
		plan.SolarEnabled = true
		plan.SolarWh = energy
	}

	sel := selectWindows(slots, cheap, expensive, spread, suppressed, energy, cfg)
	sim := simulator{slots: slots, energy: energy, cfg: cfg}
	eligible := func(i int) bool { return spread.ChargeMet && inScope[i] && !suppressed[i] }
	rep := sim.repair(sel.charge, sel.discharge, eligible, sel.chargeCap)

	plan.Spread = spread
	plan.Selection = model.WindowSelection{
		ChargeWindows:              pick(slots, rep.charge),
		DischargeWindows:           pick(slots, sel.discharge),
		AggressiveDischargeWindows: pick(slots, sel.aggressive),
		AvgCheapPrice:              spread.CheapAvg,
		AvgExpensivePrice:          spread.ExpensiveAvg,
		SpreadPct:                  spread.SpreadPct,
		SpreadMet:                  spread.ChargeMet,
		DischargeSpreadMet:         spread.DischargeMet,
		AggressiveSpreadMet:        spread.AggressiveMet,
	}
	plan.Trace = rep.trace
	plan.MinChargeWindows = sel.minCharge
	plan.ChargeShortfallWh = sel.shortfallWh
	plan.EnergyShortfall = rep.shortfall
	plan.RepairIterations = rep.iterations
	for _, i := range chronological(slots, keys(suppressed)) {
		plan.SuppressedCharge = append(plan.SuppressedCharge, slots[i])
	}

	e.log.Debugw("window plan computed", map[string]any{
		"intervals":         len(slots),
		"cheap_pool":        len(cheap),
		"expensive_pool":    len(expensive),
		"spread_pct":        spread.SpreadPct,
		"spread_guarded":    spread.Guarded,
		"charge":            len(rep.charge),
		"discharge":         len(sel.discharge),
		"aggressive":        len(sel.aggressive),
		"suppressed":        len(suppressed),
		"repair_iterations": rep.iterations,
		"energy_shortfall":  rep.shortfall,
	})
	return plan, nil
}

// Evaluate determines the state at now and derives the diagnostics.
func (e *Engine) Evaluate(plan *Plan, now time.Time, status Status) Result {
	if plan == nil {
		plan = &Plan{Config: DefaultConfig()}
	}
	d := DetermineState(now, plan.Intervals, plan.Selection, plan.Config, status)
	return Result{
		State:       d.State,
		Selection:   plan.Selection,
		Diagnostics: buildDiagnostics(plan, d, now),
		Trace:       plan.Trace,
	}
}

// Fallback is the result published when a day cannot be planned: an empty
// selection, state off or idle and the error in the diagnostics.
func Fallback(cfg Config, err error) Result {
	state, reason := model.StateIdle, ReasonNoWindow
	if !cfg.AutomationEnabled {
		state, reason = model.StateOff, ReasonAutomationDisabled
	}
	r := Result{State: state}
	r.Diagnostics.State = state
	r.Diagnostics.Reason = reason
	if err != nil {
		r.Diagnostics.Error = err.Error()
	}
	return r
}

func calculationScope(slots []model.PriceInterval, w ClockWindow) ([]int, map[int]bool) {
	scope := make([]int, 0, len(slots))
	set := make(map[int]bool, len(slots))
	for i, s := range slots {
		if w.Contains(s.Start) {
			scope = append(scope, i)
			set[i] = true
		}
	}
	return scope, set
}

// spreadSample returns the ranked indices the spread averages are taken over:
// the first n, or the whole pool when n exceeds it. A count of zero disables
// the side's own windows but keeps the pool as the price reference, so a
// discharge-only configuration is still gated against the cheap pool.
func spreadSample(idx []int, n int) []int {
	if n <= 0 || n >= len(idx) {
		return idx
	}
	return idx[:n]
}

func pick(slots []model.PriceInterval, idx []int) []model.PriceInterval {
	if len(idx) == 0 {
		return nil
	}
	out := make([]model.PriceInterval, len(idx))
	for k, i := range idx {
		out[k] = slots[i]
	}
	return out
}

func keys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// totalWh sums an energy series.
func totalWh(energy []float64) float64 {
	if len(energy) == 0 {
		return 0
	}
	return floats.Sum(energy)
}
