package wholesalemarket

import (
	"fmt"
	"time"

	"github.com/kilianp07/cew/core/model"
)

// Response is the wholesale market payload. Prices are in €/MWh.
type Response struct {
	FrancePowerExchanges []struct {
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		UpdatedDate string `json:"updated_date"`
		Values      []struct {
			StartDate string  `json:"start_date"`
			EndDate   string  `json:"end_date"`
			Value     float64 `json:"value"`
			Price     float64 `json:"price"`
		} `json:"values"`
	} `json:"france_power_exchanges"`
}

// Intervals flattens every exchange into price intervals in €/kWh.
func (r *Response) Intervals() ([]model.PriceInterval, error) {
	var out []model.PriceInterval
	for _, exchange := range r.FrancePowerExchanges {
		for i, v := range exchange.Values {
			start, err := time.Parse(time.RFC3339, v.StartDate)
			if err != nil {
				return nil, fmt.Errorf("value %d: failed to parse start: %w", i, err)
			}
			end, err := time.Parse(time.RFC3339, v.EndDate)
			if err != nil {
				return nil, fmt.Errorf("value %d: failed to parse end: %w", i, err)
			}
			if !end.After(start) {
				return nil, fmt.Errorf("value %d: end %s not after start %s", i, v.EndDate, v.StartDate)
			}
			out = append(out, model.PriceInterval{Start: start, End: end, RawValue: v.Price / 1000})
		}
	}
	return out, nil
}
