package engine

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/cew/core/model"
)

// Accepted shapes of a one-day series. DST days run 23 or 25 hours.
var (
	nativeGranularities = []time.Duration{15 * time.Minute, time.Hour}
	daySpans            = []time.Duration{23 * time.Hour, 24 * time.Hour, 25 * time.Hour}
)

// Normalize validates a raw series, applies the configured price adjustment
// and aggregates it to the configured window duration. An empty series
// normalizes to an empty series.
func Normalize(prices []model.PriceInterval, cfg Config) ([]model.PriceInterval, error) {
	if len(prices) == 0 {
		return nil, nil
	}
	native, err := validateSeries(prices)
	if err != nil {
		return nil, err
	}
	target := cfg.WindowDuration.Duration()
	if target == 0 {
		return nil, malformed(-1, "unknown window duration %q", cfg.WindowDuration)
	}
	if target < native {
		return nil, malformed(-1, "cannot refine %s intervals to %s", native, target)
	}

	adjusted := make([]model.PriceInterval, len(prices))
	for i, p := range prices {
		p.AdjustedValue = adjustPrice(p.RawValue, cfg)
		adjusted[i] = p
	}
	if target == native {
		return adjusted, nil
	}
	return aggregate(adjusted, int(target/native))
}

func validateSeries(prices []model.PriceInterval) (time.Duration, error) {
	native := prices[0].Duration()
	if !slices.Contains(nativeGranularities, native) {
		return 0, malformed(0, "unsupported interval length %s", native)
	}
	for i, p := range prices {
		if p.Start.IsZero() || p.End.IsZero() {
			return 0, malformed(i, "missing start or end")
		}
		if d := p.Duration(); d != native {
			return 0, malformed(i, "length %s differs from %s", d, native)
		}
		if i > 0 && !p.Start.Equal(prices[i-1].End) {
			if p.Start.Before(prices[i-1].End) {
				return 0, malformed(i, "starts at %s before previous end %s", p.Start, prices[i-1].End)
			}
			return 0, malformed(i, "gap after %s", prices[i-1].End)
		}
	}
	span := prices[len(prices)-1].End.Sub(prices[0].Start)
	if !slices.Contains(daySpans, span) {
		return 0, malformed(-1, "series spans %s, expected one calendar day", span)
	}
	return native, nil
}

// adjustPrice computes raw*(1+vat)+tax+additional in decimal arithmetic so
// that an all-zero adjustment returns raw unchanged.
func adjustPrice(raw float64, cfg Config) float64 {
	v := decimal.NewFromFloat(raw).
		Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(cfg.VAT))).
		Add(decimal.NewFromFloat(cfg.Tax)).
		Add(decimal.NewFromFloat(cfg.AdditionalCost))
	return v.Round(8).InexactFloat64()
}

// aggregate merges each run of factor consecutive intervals into one whose
// values are the arithmetic means of the members.
func aggregate(prices []model.PriceInterval, factor int) ([]model.PriceInterval, error) {
	if len(prices)%factor != 0 {
		return nil, malformed(-1, "%d intervals cannot be grouped by %d", len(prices), factor)
	}
	out := make([]model.PriceInterval, 0, len(prices)/factor)
	raw := make([]float64, factor)
	adj := make([]float64, factor)
	for i := 0; i < len(prices); i += factor {
		group := prices[i : i+factor]
		for j, p := range group {
			raw[j] = p.RawValue
			adj[j] = p.AdjustedValue
		}
		out = append(out, model.PriceInterval{
			Start:         group[0].Start,
			End:           group[factor-1].End,
			RawValue:      stat.Mean(raw, nil),
			AdjustedValue: stat.Mean(adj, nil),
		})
	}
	return out, nil
}
