package engine

import (
	"time"

	"github.com/kilianp07/cew/core/model"
)

// Status is the live battery reading supplied at evaluation time.
type Status struct {
	SOCPct float64 `json:"soc_pct"`
	Known  bool    `json:"known"`
}

// Reasons attached to a Decision.
const (
	ReasonAutomationDisabled = "automation_disabled"
	ReasonTimeOverride       = "time_override"
	ReasonPriceOverride      = "price_override"
	ReasonSOCFloor           = "soc_floor"
	ReasonAggressiveWindow   = "aggressive_discharge_window"
	ReasonDischargeWindow    = "discharge_window"
	ReasonChargeWindow       = "charge_window"
	ReasonNoWindow           = "no_window"
)

// Decision is the state for one instant and the rule that produced it.
type Decision struct {
	State               model.State `json:"state"`
	Reason              string      `json:"reason"`
	CurrentPrice        float64     `json:"current_price"`
	HasCurrentPrice     bool        `json:"has_current_price"`
	TimeOverrideActive  bool        `json:"time_override_active"`
	PriceOverrideActive bool        `json:"price_override_active"`
}

// DetermineState maps an instant to a state. Rules are checked in priority
// order and the first match wins; no previous state is consulted.
func DetermineState(now time.Time, intervals []model.PriceInterval, sel model.WindowSelection, cfg Config, status Status) Decision {
	var d Decision
	if cur := model.Find(intervals, now); cur >= 0 {
		d.CurrentPrice = intervals[cur].AdjustedValue
		d.HasCurrentPrice = true
	}
	d.TimeOverrideActive = cfg.TimeOverride.Enabled && cfg.TimeOverride.Window().Contains(now)
	d.PriceOverrideActive = cfg.PriceOverride.Enabled && d.HasCurrentPrice && d.CurrentPrice < cfg.PriceOverride.Threshold

	inAggressive := sel.AggressiveSpreadMet && sel.InAggressive(now)
	inDischarge := sel.DischargeSpreadMet && sel.InDischarge(now)

	switch {
	case !cfg.AutomationEnabled:
		d.State, d.Reason = model.StateOff, ReasonAutomationDisabled
	case d.TimeOverrideActive:
		d.State, d.Reason = cfg.TimeOverride.Mode, ReasonTimeOverride
	case d.PriceOverrideActive:
		d.State, d.Reason = model.StateCharge, ReasonPriceOverride
	case status.Known && inAggressive && status.SOCPct <= cfg.MinSOCAggressivePct:
		d.State, d.Reason = model.StateIdle, ReasonSOCFloor
	case status.Known && !inAggressive && inDischarge && status.SOCPct <= cfg.MinSOCDischargePct:
		d.State, d.Reason = model.StateIdle, ReasonSOCFloor
	case inAggressive:
		d.State, d.Reason = model.StateDischargeAggressive, ReasonAggressiveWindow
	case inDischarge:
		d.State, d.Reason = model.StateDischarge, ReasonDischargeWindow
	case sel.SpreadMet && sel.InCharge(now):
		d.State, d.Reason = model.StateCharge, ReasonChargeWindow
	default:
		d.State, d.Reason = model.StateIdle, ReasonNoWindow
	}
	return d
}
