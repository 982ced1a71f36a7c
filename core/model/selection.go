package model

import (
	"sort"
	"time"
)

// WindowSelection is the outcome of one window calculation. Window lists are
// ordered chronologically and never overlap across the charge and discharge
// sets. AggressiveDischargeWindows is a subset of DischargeWindows.
type WindowSelection struct {
	ChargeWindows              []PriceInterval `json:"charge_windows"`
	DischargeWindows           []PriceInterval `json:"discharge_windows"`
	AggressiveDischargeWindows []PriceInterval `json:"aggressive_discharge_windows"`

	AvgCheapPrice     float64 `json:"avg_cheap_price"`
	AvgExpensivePrice float64 `json:"avg_expensive_price"`
	SpreadPct         float64 `json:"spread_pct"`

	SpreadMet           bool `json:"spread_met"`
	DischargeSpreadMet  bool `json:"discharge_spread_met"`
	AggressiveSpreadMet bool `json:"aggressive_spread_met"`
}

// InCharge reports whether t falls in a charge window.
func (w WindowSelection) InCharge(t time.Time) bool { return Find(w.ChargeWindows, t) >= 0 }

// InDischarge reports whether t falls in a discharge window.
func (w WindowSelection) InDischarge(t time.Time) bool { return Find(w.DischargeWindows, t) >= 0 }

// InAggressive reports whether t falls in an aggressive discharge window.
func (w WindowSelection) InAggressive(t time.Time) bool {
	return Find(w.AggressiveDischargeWindows, t) >= 0
}

// Find returns the index of the interval containing t or -1.
func Find(intervals []PriceInterval, t time.Time) int {
	for i, iv := range intervals {
		if iv.Contains(t) {
			return i
		}
	}
	return -1
}

// SortChronological orders intervals by start time in place.
func SortChronological(intervals []PriceInterval) {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})
}
