package engine

import (
	"math"
	"sort"
	"time"

	"github.com/kilianp07/cew/core/model"
)

// Weights of the discharge ranking key when a forecast is available.
const (
	priceRankWeight = 0.7
	solarGapWeight  = 0.3
)

// mapForecast distributes forecast energy onto slots proportionally to the
// time overlap of each forecast interval with each slot.
func mapForecast(slots []model.PriceInterval, forecast []model.ForecastInterval) []float64 {
	energy := make([]float64, len(slots))
	for _, f := range forecast {
		fd := f.Duration()
		if fd <= 0 {
			continue
		}
		for i, s := range slots {
			overlap := overlapDuration(s.Start, s.End, f.Start, f.End)
			if overlap > 0 {
				energy[i] += f.EnergyWh * float64(overlap) / float64(fd)
			}
		}
	}
	return energy
}

func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// suppressedBySolar returns the candidates whose projected fill, counted from
// the start of their hour to the end of the day, exceeds the skip threshold.
func suppressedBySolar(slots []model.PriceInterval, energy []float64, candidates []int, cfg Config) map[int]bool {
	suppressed := make(map[int]bool)
	if cfg.UsableCapacityWh <= 0 || len(slots) == 0 {
		return suppressed
	}
	dayEnd := slots[len(slots)-1].End
	initial := cfg.InitialSOCPct / 100 * cfg.UsableCapacityWh
	threshold := cfg.SkipChargeSolarThresholdPct / 100 * cfg.UsableCapacityWh
	for _, i := range candidates {
		from := hourStart(slots[i].Start)
		var solar float64
		for j, s := range slots {
			if !s.Start.Before(from) {
				solar += energy[j]
			}
		}
		consumption := cfg.ConsumptionW * dayEnd.Sub(from).Hours()
		if initial+solar-consumption > threshold {
			suppressed[i] = true
		}
	}
	return suppressed
}

func hourStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// solarGapScore is 1 with no production and decays linearly to 0 at the
// saturation wattage.
func solarGapScore(energyWh, hours, saturationW float64) float64 {
	avgW := 0.0
	if hours > 0 {
		avgW = energyWh / hours
	}
	if saturationW <= 0 {
		if avgW <= 0 {
			return 1
		}
		return 0
	}
	return 1 - math.Max(0, math.Min(avgW/saturationW, 1))
}

// rankDischargeBySolar orders candidates by the weighted price rank and
// solar gap score, highest first, earlier start on ties.
func rankDischargeBySolar(slots []model.PriceInterval, energy []float64, candidates []int, cfg Config) []int {
	n := len(candidates)
	rank := make(map[int]float64, n)
	asc := byPriceAsc(slots, candidates)
	for pos, i := range asc {
		switch {
		case n == 1:
			rank[i] = 1
		case pos > 0 && slots[asc[pos-1]].AdjustedValue == slots[i].AdjustedValue:
			rank[i] = rank[asc[pos-1]]
		default:
			rank[i] = float64(pos) / float64(n-1)
		}
	}
	score := make(map[int]float64, n)
	for _, i := range candidates {
		gap := solarGapScore(energy[i], slots[i].Hours(), cfg.SolarSaturationW)
		score[i] = priceRankWeight*rank[i] + solarGapWeight*gap
	}
	out := append([]int(nil), candidates...)
	sort.SliceStable(out, func(a, b int) bool {
		sa, sb := score[out[a]], score[out[b]]
		if math.Abs(sa-sb) > tolerance {
			return sa > sb
		}
		return slots[out[a]].Start.Before(slots[out[b]].Start)
	})
	return out
}
