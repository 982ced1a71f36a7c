package engine

import "gonum.org/v1/gonum/stat"

// Spread is the profitability verdict for one calculation.
//
// When the cheap average is zero or negative the ratio is meaningless:
// SpreadPct is reported as 0, Guarded is set and every gate falls back to
// the absolute difference check alone.
type Spread struct {
	CheapAvg     float64
	ExpensiveAvg float64
	SpreadPct    float64
	PriceDiff    float64
	Guarded      bool

	ChargeMet     bool
	DischargeMet  bool
	AggressiveMet bool
}

// SpreadPct returns (expensive-cheap)/cheap*100. ok is false when cheap is
// not positive.
func SpreadPct(cheap, expensive float64) (pct float64, ok bool) {
	if cheap <= 0 {
		return 0, false
	}
	return (expensive - cheap) / cheap * 100, true
}

// evaluateSpread gates the averages of both candidate sides. Either side
// being empty fails every gate.
func evaluateSpread(cheap, expensive []float64, cfg Config) Spread {
	if len(cheap) == 0 || len(expensive) == 0 {
		return Spread{}
	}
	s := Spread{
		CheapAvg:     stat.Mean(cheap, nil),
		ExpensiveAvg: stat.Mean(expensive, nil),
	}
	s.PriceDiff = s.ExpensiveAvg - s.CheapAvg
	pct, ok := SpreadPct(s.CheapAvg, s.ExpensiveAvg)
	s.SpreadPct, s.Guarded = pct, !ok
	s.ChargeMet = s.passes(cfg.MinSpreadPct, cfg.MinPriceDiff)
	s.DischargeMet = s.passes(cfg.MinSpreadDischargePct, cfg.MinPriceDiff)
	s.AggressiveMet = s.passes(cfg.AggressiveSpreadPct, cfg.MinPriceDiff)
	return s
}

func (s Spread) passes(minPct, minDiff float64) bool {
	if s.PriceDiff < minDiff-tolerance {
		return false
	}
	return s.Guarded || s.SpreadPct >= minPct-tolerance
}

// aggressiveAgainst reports whether a single discharge price clears the
// aggressive threshold relative to the cheap average.
func (s Spread) aggressiveAgainst(price float64, cfg Config) bool {
	single := Spread{CheapAvg: s.CheapAvg, ExpensiveAvg: price, PriceDiff: price - s.CheapAvg}
	pct, ok := SpreadPct(s.CheapAvg, price)
	single.SpreadPct, single.Guarded = pct, !ok
	return single.passes(cfg.AggressiveSpreadPct, cfg.MinPriceDiff)
}
