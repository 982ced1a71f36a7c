// Package engine turns one day of prices, and optionally a solar forecast,
// into charge and discharge windows and a state for the current instant.
//
// The pipeline is Normalize, percentile pools, spread gates, solar
// adjustment, global selection, energy simulation with bounded repair and
// finally DetermineState. Plan covers everything up to the simulation and is
// independent of the clock; Evaluate applies the state rules at an instant.
// The package performs no I/O and holds no state between calls.
package engine
