package engine

import (
	"math"
	"sort"

	"github.com/kilianp07/cew/core/model"
)

// tolerance absorbs float noise when comparing prices against thresholds.
const tolerance = 1e-9

// Percentile returns the p-th percentile of values, interpolating linearly
// between the closest ranks (rank = p/100 * (n-1)). It returns NaN for an
// empty input.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[n-1]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// cheapPool returns the members of scope whose adjusted price is at or below
// the p-th percentile of the scope.
func cheapPool(slots []model.PriceInterval, scope []int, p float64) []int {
	if p <= 0 || len(scope) == 0 {
		return nil
	}
	if p >= 100 {
		return append([]int(nil), scope...)
	}
	threshold := Percentile(adjustedValues(slots, scope), p)
	var pool []int
	for _, i := range scope {
		if slots[i].AdjustedValue <= threshold+tolerance {
			pool = append(pool, i)
		}
	}
	return pool
}

// expensivePool returns the members of scope whose adjusted price is at or
// above the (100-p)-th percentile of the scope.
func expensivePool(slots []model.PriceInterval, scope []int, p float64) []int {
	if p <= 0 || len(scope) == 0 {
		return nil
	}
	if p >= 100 {
		return append([]int(nil), scope...)
	}
	threshold := Percentile(adjustedValues(slots, scope), 100-p)
	var pool []int
	for _, i := range scope {
		if slots[i].AdjustedValue >= threshold-tolerance {
			pool = append(pool, i)
		}
	}
	return pool
}

func adjustedValues(slots []model.PriceInterval, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = slots[i].AdjustedValue
	}
	return out
}

// byPriceAsc orders indices by ascending price, earlier start first on ties.
func byPriceAsc(slots []model.PriceInterval, idx []int) []int {
	out := append([]int(nil), idx...)
	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := slots[out[a]].AdjustedValue, slots[out[b]].AdjustedValue
		if pa != pb {
			return pa < pb
		}
		return slots[out[a]].Start.Before(slots[out[b]].Start)
	})
	return out
}

// byPriceDesc orders indices by descending price, earlier start first on ties.
func byPriceDesc(slots []model.PriceInterval, idx []int) []int {
	out := append([]int(nil), idx...)
	sort.SliceStable(out, func(a, b int) bool {
		pa, pb := slots[out[a]].AdjustedValue, slots[out[b]].AdjustedValue
		if pa != pb {
			return pa > pb
		}
		return slots[out[a]].Start.Before(slots[out[b]].Start)
	})
	return out
}
