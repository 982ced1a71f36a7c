package config

import (
	"fmt"
	"slices"
	"time"

	connfactory "github.com/kilianp07/cew/connectors/factory"
	"github.com/kilianp07/cew/core/factory"
	"github.com/kilianp07/cew/core/pricing"
)

// DefaultPollIntervalSeconds spaces the requests to a remote price source.
const DefaultPollIntervalSeconds = 900

// PricesConfig selects where prices and forecasts come from and how they are
// decoded.
type PricesConfig struct {
	Format string `json:"format"`
	Topic  string `json:"topic"`
	// ForecastTopics carry one Forecast.Solar estimate each, typically one
	// per PV array. Their latest payloads are summed.
	ForecastTopics []string `json:"forecast_topics"`
	// Location is the IANA zone used for timestamps without offset and for
	// day boundaries. Empty means the local zone.
	Location string `json:"location"`
	// Source optionally polls a remote API on top of the MQTT topic.
	Source              *factory.ModuleConfig `json:"source"`
	PollIntervalSeconds int                   `json:"poll_interval_seconds"`
}

func (c *PricesConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = pricing.FormatAuto
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = DefaultPollIntervalSeconds
	}
}

func (c PricesConfig) Validate() error {
	if !slices.Contains(pricing.Formats(), c.Format) {
		return fmt.Errorf("prices.format: unknown format %q", c.Format)
	}
	if c.Location != "" {
		if _, err := time.LoadLocation(c.Location); err != nil {
			return fmt.Errorf("prices.location: %w", err)
		}
	}
	seen := make(map[string]bool, len(c.ForecastTopics))
	for _, t := range c.ForecastTopics {
		if t == "" || seen[t] {
			return fmt.Errorf("prices.forecast_topics: empty or duplicate topic %q", t)
		}
		seen[t] = true
	}
	if c.Source != nil && !slices.Contains(connfactory.SourceTypes(), c.Source.Type) {
		return fmt.Errorf("prices.source: unknown type %q", c.Source.Type)
	}
	return nil
}

// PollInterval returns the delay between two remote fetches.
func (c PricesConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Loc returns the configured location.
func (c PricesConfig) Loc() *time.Location {
	if c.Location == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.Local
	}
	return loc
}
