package engine

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/cew/core/model"
)

// WindowInfo is a window as shown to users.
type WindowInfo struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price float64   `json:"price"`
}

// Diagnostics carries the derived values published next to the state.
// Costs and revenues are in currency, energies in Wh.
type Diagnostics struct {
	State               model.State `json:"state"`
	Reason              string      `json:"reason"`
	CurrentPrice        float64     `json:"current_price"`
	HasCurrentPrice     bool        `json:"has_current_price"`
	PriceOverrideActive bool        `json:"price_override_active"`
	TimeOverrideActive  bool        `json:"time_override_active"`

	ChargeWindows     []WindowInfo `json:"charge_windows"`
	DischargeWindows  []WindowInfo `json:"discharge_windows"`
	AggressiveWindows []WindowInfo `json:"aggressive_discharge_windows"`

	AvgCheapPrice       float64 `json:"avg_cheap_price"`
	AvgExpensivePrice   float64 `json:"avg_expensive_price"`
	ActualChargeAvg     float64 `json:"actual_charge_avg"`
	ActualDischargeAvg  float64 `json:"actual_discharge_avg"`
	SpreadPct           float64 `json:"spread_pct"`
	SpreadGuarded       bool    `json:"spread_guarded"`
	SpreadMet           bool    `json:"spread_met"`
	DischargeSpreadMet  bool    `json:"discharge_spread_met"`
	AggressiveSpreadMet bool    `json:"aggressive_spread_met"`

	CompletedChargeWindows    int     `json:"completed_charge_windows"`
	CompletedDischargeWindows int     `json:"completed_discharge_windows"`
	CompletedChargeCost       float64 `json:"completed_charge_cost"`
	CompletedDischargeRevenue float64 `json:"completed_discharge_revenue"`
	PlannedChargeCost         float64 `json:"planned_charge_cost"`
	PlannedDischargeRevenue   float64 `json:"planned_discharge_revenue"`

	MinChargeWindows  int     `json:"min_charge_windows"`
	ChargeShortfallWh float64 `json:"charge_shortfall_wh"`
	EnergyShortfall   bool    `json:"energy_shortfall"`
	RepairIterations  int     `json:"repair_iterations"`

	SolarEnabled            bool         `json:"solar_enabled"`
	SolarForecastWh         float64      `json:"solar_forecast_wh"`
	NetImportWh             float64      `json:"net_import_wh"`
	SuppressedChargeWindows []WindowInfo `json:"suppressed_charge_windows,omitempty"`

	Error string `json:"error,omitempty"`
}

func buildDiagnostics(plan *Plan, d Decision, now time.Time) Diagnostics {
	sel := plan.Selection
	cfg := plan.Config
	diag := Diagnostics{
		State:               d.State,
		Reason:              d.Reason,
		CurrentPrice:        d.CurrentPrice,
		HasCurrentPrice:     d.HasCurrentPrice,
		PriceOverrideActive: d.PriceOverrideActive,
		TimeOverrideActive:  d.TimeOverrideActive,

		ChargeWindows:     windowInfos(sel.ChargeWindows),
		DischargeWindows:  windowInfos(sel.DischargeWindows),
		AggressiveWindows: windowInfos(sel.AggressiveDischargeWindows),

		AvgCheapPrice:       sel.AvgCheapPrice,
		AvgExpensivePrice:   sel.AvgExpensivePrice,
		ActualChargeAvg:     meanPrice(sel.ChargeWindows),
		ActualDischargeAvg:  meanPrice(sel.DischargeWindows),
		SpreadPct:           sel.SpreadPct,
		SpreadGuarded:       plan.Spread.Guarded,
		SpreadMet:           sel.SpreadMet,
		DischargeSpreadMet:  sel.DischargeSpreadMet,
		AggressiveSpreadMet: sel.AggressiveSpreadMet,

		MinChargeWindows:  plan.MinChargeWindows,
		ChargeShortfallWh: plan.ChargeShortfallWh,
		EnergyShortfall:   plan.EnergyShortfall,
		RepairIterations:  plan.RepairIterations,

		SolarEnabled:            plan.SolarEnabled,
		SuppressedChargeWindows: windowInfos(plan.SuppressedCharge),
	}

	diag.CompletedChargeWindows, diag.CompletedChargeCost = completed(sel.ChargeWindows, cfg.ChargePowerW, now)
	diag.CompletedDischargeWindows, diag.CompletedDischargeRevenue = completed(sel.DischargeWindows, cfg.DischargePowerW, now)
	diag.PlannedChargeCost = money(sel.ChargeWindows, cfg.ChargePowerW)
	diag.PlannedDischargeRevenue = money(sel.DischargeWindows, cfg.DischargePowerW)

	if plan.SolarEnabled {
		diag.SolarForecastWh = totalWh(plan.SolarWh)
		diag.NetImportWh = netImportWh(plan)
	}
	return diag
}

func windowInfos(intervals []model.PriceInterval) []WindowInfo {
	if len(intervals) == 0 {
		return nil
	}
	out := make([]WindowInfo, len(intervals))
	for i, iv := range intervals {
		out[i] = WindowInfo{Start: iv.Start, End: iv.End, Price: iv.AdjustedValue}
	}
	return out
}

func meanPrice(intervals []model.PriceInterval) float64 {
	if len(intervals) == 0 {
		return 0
	}
	values := make([]float64, len(intervals))
	for i, iv := range intervals {
		values[i] = iv.AdjustedValue
	}
	return stat.Mean(values, nil)
}

// completed counts windows ended by now and prices their energy.
func completed(intervals []model.PriceInterval, powerW float64, now time.Time) (int, float64) {
	var done []model.PriceInterval
	for _, iv := range intervals {
		if !iv.End.After(now) {
			done = append(done, iv)
		}
	}
	return len(done), money(done, powerW)
}

// money sums price * kWh over the windows at the given power.
func money(intervals []model.PriceInterval, powerW float64) float64 {
	total := decimal.Zero
	watts := decimal.NewFromFloat(powerW)
	for _, iv := range intervals {
		kwh := watts.Mul(decimal.NewFromFloat(iv.Hours())).Div(decimal.NewFromInt(1000))
		total = total.Add(decimal.NewFromFloat(iv.AdjustedValue).Mul(kwh))
	}
	return total.Round(4).InexactFloat64()
}

// netImportWh is the grid energy drawn over the day once solar production and
// planned discharges have been netted against consumption and charging.
func netImportWh(plan *Plan) float64 {
	cfg := plan.Config
	var total float64
	for i, iv := range plan.Intervals {
		h := iv.Hours()
		demand := cfg.ConsumptionW * h
		if plan.Selection.InCharge(iv.Start) {
			demand += cfg.ChargePowerW * h
		}
		supply := plan.SolarWh[i]
		if plan.Selection.InDischarge(iv.Start) {
			supply += cfg.DischargePowerW * h
		}
		total += math.Max(0, demand-supply)
	}
	return math.Round(total*100) / 100
}
