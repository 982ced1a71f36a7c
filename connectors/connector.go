package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/cew/core/model"
	"github.com/kilianp07/cew/core/pricing"
)

// PriceSource pulls day-ahead prices from a remote API.
type PriceSource interface {
	// Fetch returns the intervals starting in [start, end), in €/kWh.
	Fetch(ctx context.Context, start, end time.Time) ([]model.PriceInterval, error)
}

// FetchSeries requests today and tomorrow in loc and splits the answer at
// the local day boundaries. Tomorrow is marked valid as soon as any interval
// of it is returned.
func FetchSeries(ctx context.Context, src PriceSource, now time.Time, loc *time.Location) (pricing.Series, error) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	tomorrow := today.AddDate(0, 0, 1)
	end := today.AddDate(0, 0, 2)

	intervals, err := src.Fetch(ctx, today, end)
	if err != nil {
		return pricing.Series{}, fmt.Errorf("fetch prices: %w", err)
	}
	model.SortChronological(intervals)

	var s pricing.Series
	for _, iv := range intervals {
		switch {
		case iv.Start.Before(today) || !iv.Start.Before(end):
		case iv.Start.Before(tomorrow):
			s.Today = append(s.Today, iv)
		default:
			s.Tomorrow = append(s.Tomorrow, iv)
		}
	}
	s.TomorrowValid = len(s.Tomorrow) > 0
	if len(s.Today) == 0 {
		return s, pricing.ErrNoPrices
	}
	return s, nil
}
