package engine

import (
	"math"
	"sort"

	"github.com/kilianp07/cew/core/model"
)

// selection holds slot indices chosen by the global selector.
type selection struct {
	charge     []int
	discharge  []int
	aggressive []int

	minCharge   int
	chargeCap   int
	neededWh    float64
	shortfallWh float64
}

// selectWindows picks discharge windows first and then the cheapest charge
// windows of the whole day that can feed them.
func selectWindows(
	slots []model.PriceInterval,
	cheap, expensive []int,
	spread Spread,
	suppressed map[int]bool,
	energy []float64,
	cfg Config,
) selection {
	var sel selection
	hours := cfg.WindowDuration.Duration().Hours()

	if spread.DischargeMet {
		ranked := byPriceDesc(slots, expensive)
		if energy != nil {
			ranked = rankDischargeBySolar(slots, energy, expensive, cfg)
		}
		if len(ranked) > cfg.DischargeWindows {
			ranked = ranked[:cfg.DischargeWindows]
		}
		sel.discharge = chronological(slots, ranked)
	}

	dischargeWh := float64(len(sel.discharge)) * hours * cfg.DischargePowerW
	sel.neededWh = dischargeWh / cfg.RoundTripEfficiency
	if cfg.ChargePowerW > 0 && hours > 0 {
		sel.minCharge = int(math.Ceil(sel.neededWh/(hours*cfg.ChargePowerW) - tolerance))
	}
	sel.chargeCap = max(sel.minCharge, cfg.ChargeWindows)

	if spread.ChargeMet {
		isDischarge := indexSet(sel.discharge)
		var pool []int
		for _, i := range cheap {
			if !suppressed[i] && !isDischarge[i] {
				pool = append(pool, i)
			}
		}
		pool = byPriceAsc(slots, pool)
		if len(sel.discharge) == 0 {
			sel.charge = pool[:min(len(pool), sel.chargeCap)]
		} else {
			sel.charge = acceptCovering(slots, pool, sel.discharge, sel.chargeCap, cfg)
		}
		sel.charge = chronological(slots, sel.charge)
	}

	initialWh := cfg.InitialSOCPct / 100 * cfg.UsableCapacityWh
	chargedWh := float64(len(sel.charge)) * hours * cfg.ChargePowerW
	sel.shortfallWh = math.Max(0, sel.neededWh-chargedWh-initialWh/cfg.RoundTripEfficiency)

	if spread.AggressiveMet {
		for _, i := range sel.discharge {
			if spread.aggressiveAgainst(slots[i].AdjustedValue, cfg) {
				sel.aggressive = append(sel.aggressive, i)
			}
		}
	}
	return sel
}

// acceptCovering walks the price-sorted pool and keeps a window only while it
// precedes a discharge window that is not yet covered.
func acceptCovering(slots []model.PriceInterval, pool, discharge []int, limit int, cfg Config) []int {
	var accepted []int
	for _, i := range pool {
		if len(accepted) >= limit {
			break
		}
		open := uncovered(slots, accepted, discharge, cfg)
		if len(open) == 0 {
			break
		}
		if slots[i].Start.Before(slots[open[len(open)-1]].Start) {
			accepted = append(accepted, i)
		}
	}
	return accepted
}

// uncovered allocates stored energy to discharge windows in chronological
// order and returns the windows left without enough energy, in order.
func uncovered(slots []model.PriceInterval, charge, discharge []int, cfg Config) []int {
	isCharge := indexSet(charge)
	isDischarge := indexSet(discharge)
	available := cfg.InitialSOCPct / 100 * cfg.UsableCapacityWh
	var open []int
	for i, s := range slots {
		h := s.Hours()
		switch {
		case isCharge[i]:
			available += cfg.ChargePowerW * h * cfg.RoundTripEfficiency
		case isDischarge[i]:
			need := cfg.DischargePowerW * h
			if available >= need-tolerance {
				available -= need
			} else {
				open = append(open, i)
				available = 0
			}
		}
	}
	return open
}

func indexSet(idx []int) map[int]bool {
	set := make(map[int]bool, len(idx))
	for _, i := range idx {
		set[i] = true
	}
	return set
}

func chronological(slots []model.PriceInterval, idx []int) []int {
	out := append([]int(nil), idx...)
	sort.SliceStable(out, func(a, b int) bool { return slots[out[a]].Start.Before(slots[out[b]].Start) })
	return out
}
