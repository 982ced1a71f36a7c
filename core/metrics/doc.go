// Package metrics defines the sinks that record window calculations and
// state changes. Implementations live in infra/metrics and are selected by
// type name through the sink registry; NewMetricsSink combines several
// configured sinks into one.
package metrics
