package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/cew/core/model"
)

// Granularity is the target slot length of a calculation.
type Granularity string

const (
	Granularity15m Granularity = "15m"
	Granularity1h  Granularity = "1h"
)

// Duration returns the slot length, or zero for unknown values.
func (g Granularity) Duration() time.Duration {
	switch g {
	case Granularity15m:
		return 15 * time.Minute
	case Granularity1h:
		return time.Hour
	}
	return 0
}

// ClockWindow is a time-of-day range given as HH:MM strings. Start after End
// wraps past midnight; Start equal to End covers the whole day.
type ClockWindow struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Contains reports whether t, in its own location, falls inside the window.
// A disabled window contains every instant.
func (w ClockWindow) Contains(t time.Time) bool {
	if !w.Enabled {
		return true
	}
	start, err := parseClock(w.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(w.End)
	if err != nil {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	switch {
	case start == end:
		return true
	case start < end:
		return m >= start && m < end
	default:
		return m >= start || m < end
	}
}

func (w ClockWindow) validate(name string) error {
	if !w.Enabled {
		return nil
	}
	if _, err := parseClock(w.Start); err != nil {
		return fmt.Errorf("%s.start: %w", name, err)
	}
	if _, err := parseClock(w.End); err != nil {
		return fmt.Errorf("%s.end: %w", name, err)
	}
	return nil
}

// parseClock returns minutes after midnight for an HH:MM or HH:MM:SS string.
func parseClock(v string) (int, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Hour()*60 + t.Minute(), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", v)
}

// TimeOverride forces Mode while the clock is inside [Start, End).
type TimeOverride struct {
	Enabled bool        `json:"enabled"`
	Mode    model.State `json:"mode"`
	Start   string      `json:"start"`
	End     string      `json:"end"`
}

// Window returns the override range as a ClockWindow.
func (o TimeOverride) Window() ClockWindow {
	return ClockWindow{Enabled: o.Enabled, Start: o.Start, End: o.End}
}

// PriceOverride forces charging whenever the current price is below Threshold.
type PriceOverride struct {
	Enabled   bool    `json:"enabled"`
	Threshold float64 `json:"threshold"`
}

// Config holds every tunable of a window calculation. Prices are in currency
// per kWh, powers in W, energies in Wh and percentages in 0..100.
type Config struct {
	AutomationEnabled bool        `json:"automation_enabled"`
	WindowDuration    Granularity `json:"window_duration"`

	ChargeWindows       int     `json:"charge_windows"`
	DischargeWindows    int     `json:"discharge_windows"`
	CheapPercentile     float64 `json:"cheap_percentile"`
	ExpensivePercentile float64 `json:"expensive_percentile"`

	MinSpreadPct          float64 `json:"min_spread_pct"`
	MinSpreadDischargePct float64 `json:"min_spread_discharge_pct"`
	AggressiveSpreadPct   float64 `json:"aggressive_spread_pct"`
	MinPriceDiff          float64 `json:"min_price_diff"`

	VAT            float64 `json:"vat"`
	Tax            float64 `json:"tax"`
	AdditionalCost float64 `json:"additional_cost"`

	ChargePowerW        float64 `json:"charge_power_w"`
	DischargePowerW     float64 `json:"discharge_power_w"`
	RoundTripEfficiency float64 `json:"round_trip_efficiency"`
	UsableCapacityWh    float64 `json:"battery_usable_capacity_wh"`
	InitialSOCPct       float64 `json:"initial_soc_pct"`

	ConsumptionW                float64 `json:"consumption_w"`
	SkipChargeSolarThresholdPct float64 `json:"skip_charge_solar_threshold_pct"`
	SolarSaturationW            float64 `json:"solar_saturation_w"`

	MinSOCDischargePct  float64 `json:"battery_min_soc_discharge_pct"`
	MinSOCAggressivePct float64 `json:"battery_min_soc_aggressive_pct"`

	CalculationWindow ClockWindow   `json:"calculation_window"`
	TimeOverride      TimeOverride  `json:"time_override"`
	PriceOverride     PriceOverride `json:"price_override"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		AutomationEnabled:           true,
		WindowDuration:              Granularity15m,
		ChargeWindows:               6,
		DischargeWindows:            4,
		CheapPercentile:             25,
		ExpensivePercentile:         25,
		MinSpreadPct:                30,
		MinSpreadDischargePct:       20,
		AggressiveSpreadPct:         60,
		MinPriceDiff:                0.05,
		ChargePowerW:                800,
		DischargePowerW:             800,
		RoundTripEfficiency:         0.85,
		UsableCapacityWh:            5000,
		InitialSOCPct:               0,
		ConsumptionW:                300,
		SkipChargeSolarThresholdPct: 80,
		SolarSaturationW:            800,
		MinSOCDischargePct:          20,
		MinSOCAggressivePct:         10,
		CalculationWindow:           ClockWindow{Start: "00:00", End: "23:59"},
		TimeOverride:                TimeOverride{Mode: model.StateCharge, Start: "00:00", End: "06:00"},
	}
}

// Validate reports every invalid setting joined into one error.
func (c Config) Validate() error {
	var errs []error
	if c.WindowDuration.Duration() == 0 {
		errs = append(errs, fmt.Errorf("window_duration must be %q or %q, got %q", Granularity15m, Granularity1h, c.WindowDuration))
	}
	if c.ChargeWindows < 0 || c.DischargeWindows < 0 {
		errs = append(errs, errors.New("window counts must be non-negative"))
	}
	for _, pct := range []struct {
		name string
		v    float64
	}{
		{"cheap_percentile", c.CheapPercentile},
		{"expensive_percentile", c.ExpensivePercentile},
		{"initial_soc_pct", c.InitialSOCPct},
		{"skip_charge_solar_threshold_pct", c.SkipChargeSolarThresholdPct},
		{"battery_min_soc_discharge_pct", c.MinSOCDischargePct},
		{"battery_min_soc_aggressive_pct", c.MinSOCAggressivePct},
	} {
		if pct.v < 0 || pct.v > 100 {
			errs = append(errs, fmt.Errorf("%s must be within 0..100, got %v", pct.name, pct.v))
		}
	}
	if c.MinSpreadPct < 0 || c.MinSpreadDischargePct < 0 || c.AggressiveSpreadPct < 0 || c.MinPriceDiff < 0 {
		errs = append(errs, errors.New("spread thresholds must be non-negative"))
	}
	if c.ChargePowerW < 0 || c.DischargePowerW < 0 || c.UsableCapacityWh < 0 ||
		c.ConsumptionW < 0 || c.SolarSaturationW < 0 {
		errs = append(errs, errors.New("power and capacity settings must be non-negative"))
	}
	if c.RoundTripEfficiency <= 0 || c.RoundTripEfficiency > 1 {
		errs = append(errs, fmt.Errorf("round_trip_efficiency must be within (0, 1], got %v", c.RoundTripEfficiency))
	}
	if err := c.CalculationWindow.validate("calculation_window"); err != nil {
		errs = append(errs, err)
	}
	if err := c.TimeOverride.Window().validate("time_override"); err != nil {
		errs = append(errs, err)
	}
	if c.TimeOverride.Enabled {
		if _, err := model.ParseState(string(c.TimeOverride.Mode)); err != nil {
			errs = append(errs, fmt.Errorf("time_override.mode: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Fingerprint identifies a calculation input. Equal fingerprints mean Plan
// would return an identical result.
func Fingerprint(prices []model.PriceInterval, forecast []model.ForecastInterval, cfg Config) string {
	payload := struct {
		Prices   []model.PriceInterval    `json:"prices"`
		Forecast []model.ForecastInterval `json:"forecast"`
		Config   Config                   `json:"config"`
	}{prices, forecast, cfg}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
