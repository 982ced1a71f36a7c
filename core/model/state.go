package model

import "fmt"

// State is the battery operating mode published for an instant.
type State string

const (
	StateOff                 State = "off"
	StateCharge              State = "charge"
	StateDischarge           State = "discharge"
	StateDischargeAggressive State = "discharge_aggressive"
	StateIdle                State = "idle"
)

// States lists every valid state.
var States = []State{StateOff, StateCharge, StateDischarge, StateDischargeAggressive, StateIdle}

// String returns the wire representation of the state.
func (s State) String() string { return string(s) }

// ParseState converts a textual state, returning an error for unknown values.
func ParseState(v string) (State, error) {
	for _, s := range States {
		if string(s) == v {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown state %q", v)
}

// Day identifies which calendar day a calculation covers.
type Day string

const (
	DayToday    Day = "today"
	DayTomorrow Day = "tomorrow"
)
