package pricing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/cew/core/model"
)

type entsoePoint struct {
	Time  string   `json:"time"`
	Price *float64 `json:"price"`
}

type entsoePayload struct {
	PricesToday    []entsoePoint `json:"prices_today"`
	PricesTomorrow []entsoePoint `json:"prices_tomorrow"`
}

// entsoe reads the ENTSO-e integration, which publishes start times only.
type entsoe struct {
	loc *time.Location
}

func (e entsoe) Parse(payload []byte) (Series, error) {
	var p entsoePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Series{}, fmt.Errorf("entsoe: decode: %w", err)
	}
	today, err := e.points(p.PricesToday)
	if err != nil {
		return Series{}, fmt.Errorf("entsoe: today: %w", err)
	}
	tomorrow, err := e.points(p.PricesTomorrow)
	if err != nil {
		return Series{}, fmt.Errorf("entsoe: tomorrow: %w", err)
	}
	s := Series{
		Today:    fromPoints(today, 15*time.Minute),
		Tomorrow: fromPoints(tomorrow, 15*time.Minute),
	}
	s.TomorrowValid = len(s.Tomorrow) > 0
	return finish(s)
}

func (e entsoe) points(in []entsoePoint) ([]point, error) {
	out := make([]point, 0, len(in))
	for i, p := range in {
		if p.Price == nil {
			return nil, fmt.Errorf("entry %d: missing price", i)
		}
		ts, err := model.ParseTimestamp(p.Time, e.loc)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, point{start: ts, value: *p.Price})
	}
	return out, nil
}
