// Package forecast parses solar production forecasts into forecast intervals.
package forecast
