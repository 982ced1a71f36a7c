package model

import "time"

// PriceInterval is one priced slot of a day-ahead series. RawValue is the
// market price as published; AdjustedValue includes VAT, tax and additional
// per-kWh costs and is the value every selection decision uses.
type PriceInterval struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	RawValue      float64   `json:"raw_value"`
	AdjustedValue float64   `json:"adjusted_value"`
}

// Duration returns End - Start.
func (p PriceInterval) Duration() time.Duration { return p.End.Sub(p.Start) }

// Hours returns the interval length in hours.
func (p PriceInterval) Hours() float64 { return p.Duration().Hours() }

// Contains reports whether t lies in [Start, End).
func (p PriceInterval) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (p PriceInterval) Overlaps(o PriceInterval) bool {
	return p.Start.Before(o.End) && o.Start.Before(p.End)
}

// ForecastInterval carries the expected solar production over [Start, End).
type ForecastInterval struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	EnergyWh float64   `json:"energy_wh"`
}

// Duration returns End - Start.
func (f ForecastInterval) Duration() time.Duration { return f.End.Sub(f.Start) }
