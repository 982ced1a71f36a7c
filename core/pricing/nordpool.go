package pricing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/cew/core/model"
)

type nordpoolEntry struct {
	Start string   `json:"start"`
	End   string   `json:"end"`
	Value *float64 `json:"value"`
}

type nordpoolPayload struct {
	RawToday      []nordpoolEntry `json:"raw_today"`
	RawTomorrow   []nordpoolEntry `json:"raw_tomorrow"`
	TomorrowValid bool            `json:"tomorrow_valid"`
}

// nordpool reads the attributes of the Nord Pool integration, which carry
// explicit start and end timestamps.
type nordpool struct {
	loc *time.Location
}

func (n nordpool) Parse(payload []byte) (Series, error) {
	var p nordpoolPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Series{}, fmt.Errorf("nordpool: decode: %w", err)
	}
	today, err := n.convert(p.RawToday)
	if err != nil {
		return Series{}, fmt.Errorf("nordpool: today: %w", err)
	}
	tomorrow, err := n.convert(p.RawTomorrow)
	if err != nil {
		return Series{}, fmt.Errorf("nordpool: tomorrow: %w", err)
	}
	return finish(Series{Today: today, Tomorrow: tomorrow, TomorrowValid: p.TomorrowValid && len(tomorrow) > 0})
}

func (n nordpool) convert(entries []nordpoolEntry) ([]model.PriceInterval, error) {
	out := make([]model.PriceInterval, 0, len(entries))
	for i, e := range entries {
		if e.Value == nil {
			return nil, fmt.Errorf("entry %d: missing value", i)
		}
		start, err := model.ParseTimestamp(e.Start, n.loc)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		end, err := model.ParseTimestamp(e.End, n.loc)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, model.PriceInterval{Start: start, End: end, RawValue: *e.Value})
	}
	return out, nil
}
