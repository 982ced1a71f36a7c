package forecast

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/cew/core/model"
)

// maxPeriod bounds the span of one forecast entry so that the last entry of
// a day does not stretch until the first entry of the next morning.
const maxPeriod = time.Hour

type solarPayload struct {
	WhPeriod map[string]float64 `json:"wh_period"`
	Watts    map[string]float64 `json:"watts"`
	WhDays   map[string]float64 `json:"wh_days"`
}

// ParseForecastSolar converts a Forecast.Solar estimate, either the bare
// attribute set or the API response wrapped in "result", into intervals
// sorted by start. wh_period is preferred; otherwise watts are integrated
// over each period. Offset-less timestamps are read in loc.
func ParseForecastSolar(payload []byte, loc *time.Location) ([]model.ForecastInterval, error) {
	var envelope struct {
		Result *solarPayload `json:"result"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("forecast.solar: decode: %w", err)
	}
	var p solarPayload
	if envelope.Result != nil {
		p = *envelope.Result
	} else if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("forecast.solar: decode: %w", err)
	}

	source, energy := p.WhPeriod, true
	if len(source) == 0 {
		source, energy = p.Watts, false
	}
	type entry struct {
		at    time.Time
		value float64
	}
	entries := make([]entry, 0, len(source))
	for k, v := range source {
		ts, err := model.ParseTimestamp(k, loc)
		if err != nil {
			return nil, fmt.Errorf("forecast.solar: %w", err)
		}
		entries = append(entries, entry{at: ts, value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	out := make([]model.ForecastInterval, len(entries))
	for i, e := range entries {
		end := e.at.Add(maxPeriod)
		if i+1 < len(entries) && entries[i+1].at.Before(end) {
			end = entries[i+1].at
		}
		wh := e.value
		if !energy {
			wh = e.value * end.Sub(e.at).Hours()
		}
		out[i] = model.ForecastInterval{Start: e.at, End: end, EnergyWh: wh}
	}
	return out, nil
}

// Merge sums several forecasts, one per PV array, into a single series.
// Intervals starting at the same instant are added together; when their ends
// differ the shorter one is kept. The result is sorted by start.
func Merge(sets ...[]model.ForecastInterval) []model.ForecastInterval {
	byStart := make(map[int64]int)
	var out []model.ForecastInterval
	for _, set := range sets {
		for _, iv := range set {
			k := iv.Start.UnixNano()
			i, ok := byStart[k]
			if !ok {
				byStart[k] = len(out)
				out = append(out, iv)
				continue
			}
			out[i].EnergyWh += iv.EnergyWh
			if iv.End.Before(out[i].End) {
				out[i].End = iv.End
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// ForDay returns the intervals starting on the calendar day of day, in the
// location of day.
func ForDay(intervals []model.ForecastInterval, day time.Time) []model.ForecastInterval {
	y, m, d := day.Date()
	var out []model.ForecastInterval
	for _, iv := range intervals {
		iy, im, id := iv.Start.In(day.Location()).Date()
		if iy == y && im == m && id == d {
			out = append(out, iv)
		}
	}
	return out
}

// TotalWh sums the forecast energy.
func TotalWh(intervals []model.ForecastInterval) float64 {
	if len(intervals) == 0 {
		return 0
	}
	wh := make([]float64, len(intervals))
	for i, iv := range intervals {
		wh[i] = iv.EnergyWh
	}
	return floats.Sum(wh)
}
