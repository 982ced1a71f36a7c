package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/events"
	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/model"
	"github.com/kilianp07/cew/internal/eventbus"
)

type recSink struct {
	mu     sync.Mutex
	calcs  []coremetrics.CalculationRecord
	states []coremetrics.StateRecord
}

func (r *recSink) RecordCalculation(rec coremetrics.CalculationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calcs = append(r.calcs, rec)
	return nil
}

func (r *recSink) RecordState(rec coremetrics.StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, rec)
	return nil
}

func (r *recSink) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calcs), len(r.states)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New[events.Event](0)
	sink := &recSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink, nil)

	bus.Publish(events.CalculationEvent{Day: model.DayToday, Recomputed: true})
	bus.Publish(events.StateChangedEvent{Day: model.DayToday, Current: model.StateCharge, Status: engine.Status{SOCPct: 40, Known: true}})

	assert.Eventually(t, func() bool {
		c, s := sink.counts()
		return c == 1 && s == 1
	}, time.Second, 10*time.Millisecond)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, model.StateCharge, sink.states[0].State)
	assert.True(t, sink.states[0].SOCKnown)
}

func TestCalculationRecordFrom(t *testing.T) {
	start := time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)
	win := model.PriceInterval{Start: start, End: start.Add(time.Hour)}
	res := engine.Result{
		State: model.StateDischargeAggressive,
		Selection: model.WindowSelection{
			ChargeWindows:              []model.PriceInterval{win, win},
			DischargeWindows:           []model.PriceInterval{win},
			AggressiveDischargeWindows: []model.PriceInterval{win},
		},
		Diagnostics: engine.Diagnostics{SpreadPct: 55, SpreadMet: true, ChargeShortfallWh: 120},
	}
	rec := CalculationRecordFrom(events.CalculationEvent{RunID: "r", Day: model.DayTomorrow, Result: res, Err: errors.New("x")})

	assert.Equal(t, 2, rec.ChargeWindows)
	assert.Equal(t, 1, rec.DischargeWindows)
	assert.Equal(t, 1, rec.AggressiveWindows)
	assert.Equal(t, 55.0, rec.SpreadPct)
	assert.Equal(t, 120.0, rec.ChargeShortfallWh)
	assert.Equal(t, "x", rec.Err)
	assert.Equal(t, model.StateDischargeAggressive, rec.State)
}

func TestRecord_SkipsStateWithoutRecorder(t *testing.T) {
	sink := calcOnlySink{}
	require.NoError(t, Record(sink, events.StateChangedEvent{Current: model.StateIdle}))
}

type calcOnlySink struct{}

func (calcOnlySink) RecordCalculation(coremetrics.CalculationRecord) error { return nil }
