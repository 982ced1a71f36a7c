package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/cew/core/factory"
	"github.com/kilianp07/cew/core/model"
)

// Supported payload formats.
const (
	FormatNordpool = "nordpool"
	FormatEntsoe   = "entsoe"
	FormatTibber   = "tibber"
	FormatAuto     = "auto"
)

var (
	// ErrUnknownFormat is returned when a payload matches no adapter.
	ErrUnknownFormat = errors.New("unknown price format")
	// ErrNoPrices is returned when a payload carries no prices for today.
	ErrNoPrices = errors.New("no prices for today")
)

// Series holds the canonical intervals of one payload. Only RawValue is set;
// the engine derives adjusted prices.
type Series struct {
	Today         []model.PriceInterval `json:"today"`
	Tomorrow      []model.PriceInterval `json:"tomorrow"`
	TomorrowValid bool                  `json:"tomorrow_valid"`
}

// Day returns the intervals for the given day, or nil when tomorrow is not
// published yet.
func (s Series) Day(d model.Day) []model.PriceInterval {
	if d == model.DayTomorrow {
		if !s.TomorrowValid {
			return nil
		}
		return s.Tomorrow
	}
	return s.Today
}

// Adapter converts a source-specific payload into a Series.
type Adapter interface {
	Parse(payload []byte) (Series, error)
}

// Options configure every adapter.
type Options struct {
	// Location is an IANA zone name; empty means the process local zone.
	Location string `json:"location"`
}

func (o Options) location() (*time.Location, error) {
	if o.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(o.Location)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", o.Location, err)
	}
	return loc, nil
}

var registry = factory.NewRegistry[Adapter]()

func register(name string, build func(*time.Location) Adapter) {
	registry.MustRegister(name, func(conf map[string]any) (Adapter, error) {
		var opts Options
		if err := factory.Decode(conf, &opts); err != nil {
			return nil, err
		}
		loc, err := opts.location()
		if err != nil {
			return nil, err
		}
		return build(loc), nil
	})
}

func init() {
	register(FormatNordpool, func(loc *time.Location) Adapter { return nordpool{loc: loc} })
	register(FormatEntsoe, func(loc *time.Location) Adapter { return entsoe{loc: loc} })
	register(FormatTibber, func(loc *time.Location) Adapter { return tibber{loc: loc} })
	register(FormatAuto, func(loc *time.Location) Adapter { return auto{loc: loc} })
}

// New returns the adapter registered for format.
func New(format string, opts Options) (Adapter, error) {
	a, err := registry.Create(factory.ModuleConfig{
		Type: format,
		Conf: map[string]any{"location": opts.Location},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, err)
	}
	return a, nil
}

// Formats lists the registered format names.
func Formats() []string { return registry.Types() }

// Detect guesses the payload format from its top-level keys.
func Detect(payload []byte) (string, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(payload, &keys); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	switch {
	case has(keys, "raw_today"):
		return FormatNordpool, nil
	case has(keys, "prices_today"):
		return FormatEntsoe, nil
	case has(keys, "today"):
		return FormatTibber, nil
	}
	return "", ErrUnknownFormat
}

func has(m map[string]json.RawMessage, k string) bool {
	_, ok := m[k]
	return ok
}

type auto struct {
	loc *time.Location
}

func (a auto) Parse(payload []byte) (Series, error) {
	format, err := Detect(payload)
	if err != nil {
		return Series{}, err
	}
	switch format {
	case FormatNordpool:
		return nordpool{loc: a.loc}.Parse(payload)
	case FormatEntsoe:
		return entsoe{loc: a.loc}.Parse(payload)
	default:
		return tibber{loc: a.loc}.Parse(payload)
	}
}

// point is a start-only price used by sources that omit interval ends.
type point struct {
	start time.Time
	value float64
}

// fromPoints turns start-only prices into contiguous intervals. Each
// interval ends where the next begins; the last one uses the step of the
// first pair, or fallback for single-entry lists.
func fromPoints(points []point, fallback time.Duration) []model.PriceInterval {
	if len(points) == 0 {
		return nil
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].start.Before(points[j].start) })
	step := fallback
	if len(points) > 1 {
		if d := points[1].start.Sub(points[0].start); d > 0 {
			step = d
		}
	}
	out := make([]model.PriceInterval, len(points))
	for i, p := range points {
		end := p.start.Add(step)
		if i+1 < len(points) {
			end = points[i+1].start
		}
		out[i] = model.PriceInterval{Start: p.start, End: end, RawValue: p.value}
	}
	return out
}

func finish(s Series) (Series, error) {
	if len(s.Today) == 0 {
		return s, ErrNoPrices
	}
	return s, nil
}
