package pricing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/cew/core/model"
)

type tibberPrice struct {
	StartsAt string   `json:"startsAt"`
	Total    *float64 `json:"total"`
}

type tibberPayload struct {
	Today    []tibberPrice `json:"today"`
	Tomorrow []tibberPrice `json:"tomorrow"`
}

// tibber reads the Tibber price info, hourly or quarter-hourly depending on
// the subscription. The interval length is taken from consecutive entries.
type tibber struct {
	loc *time.Location
}

func (t tibber) Parse(payload []byte) (Series, error) {
	var p tibberPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Series{}, fmt.Errorf("tibber: decode: %w", err)
	}
	today, err := t.points(p.Today)
	if err != nil {
		return Series{}, fmt.Errorf("tibber: today: %w", err)
	}
	tomorrow, err := t.points(p.Tomorrow)
	if err != nil {
		return Series{}, fmt.Errorf("tibber: tomorrow: %w", err)
	}
	s := Series{
		Today:    fromPoints(today, 15*time.Minute),
		Tomorrow: fromPoints(tomorrow, 15*time.Minute),
	}
	s.TomorrowValid = len(s.Tomorrow) > 0
	return finish(s)
}

func (t tibber) points(in []tibberPrice) ([]point, error) {
	out := make([]point, 0, len(in))
	for i, p := range in {
		if p.Total == nil {
			return nil, fmt.Errorf("entry %d: missing total", i)
		}
		ts, err := model.ParseTimestamp(p.StartsAt, t.loc)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, point{start: ts, value: *p.Total})
	}
	return out, nil
}
