package events

import (
	"time"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/model"
)

// Event is implemented by every event published on the bus.
type Event interface {
	OccurredAt() time.Time
}

// CalculationEvent is published after each evaluation of a day. Recomputed
// is false when the cached plan was reused.
type CalculationEvent struct {
	RunID      string
	Day        model.Day
	Time       time.Time
	Duration   time.Duration
	Recomputed bool
	Err        error
	Result     engine.Result
}

func (e CalculationEvent) OccurredAt() time.Time { return e.Time }

// StateChangedEvent is published when the state of a day differs from the
// previously published one.
type StateChangedEvent struct {
	RunID    string
	Day      model.Day
	Time     time.Time
	Previous model.State
	Current  model.State
	Reason   string
	Price    float64
	Status   engine.Status
}

func (e StateChangedEvent) OccurredAt() time.Time { return e.Time }
