package engine

import (
	"time"

	"github.com/kilianp07/cew/core/model"
)

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// series builds contiguous intervals starting at midnight.
func series(step time.Duration, values ...float64) []model.PriceInterval {
	out := make([]model.PriceInterval, len(values))
	for i, v := range values {
		start := day.Add(time.Duration(i) * step)
		out[i] = model.PriceInterval{Start: start, End: start.Add(step), RawValue: v, AdjustedValue: v}
	}
	return out
}

// hourly expands per-hour blocks of equal prices, e.g. hourly(6, 0.1, 18, 0.3).
func hourly(blocks ...float64) []model.PriceInterval {
	var values []float64
	for i := 0; i+1 < len(blocks); i += 2 {
		for n := 0; n < int(blocks[i]); n++ {
			values = append(values, blocks[i+1])
		}
	}
	return series(time.Hour, values...)
}

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func hoursOf(intervals []model.PriceInterval) []int {
	out := make([]int, len(intervals))
	for i, iv := range intervals {
		out[i] = iv.Start.Hour()
	}
	return out
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func hourlyConfig() Config {
	cfg := DefaultConfig()
	cfg.WindowDuration = Granularity1h
	return cfg
}
