package engine

import (
	"errors"
	"fmt"
)

// ErrMalformedSeries is the sentinel wrapped by every price series validation
// failure.
var ErrMalformedSeries = errors.New("malformed price series")

// MalformedSeriesError describes why a price series was rejected. Index is
// the offending interval, or -1 when the series as a whole is invalid.
type MalformedSeriesError struct {
	Index  int
	Reason string
}

func (e *MalformedSeriesError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", ErrMalformedSeries, e.Reason)
	}
	return fmt.Sprintf("%s: interval %d: %s", ErrMalformedSeries, e.Index, e.Reason)
}

func (e *MalformedSeriesError) Unwrap() error { return ErrMalformedSeries }

func malformed(index int, format string, args ...any) error {
	return &MalformedSeriesError{Index: index, Reason: fmt.Sprintf(format, args...)}
}
