// Package events defines the events emitted on the event bus by the service.
//
// Available event types:
//   - CalculationEvent: a day was planned and evaluated
//   - StateChangedEvent: the published state of a day changed
package events
