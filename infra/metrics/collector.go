package metrics

import (
	"context"

	"github.com/kilianp07/cew/core/events"
	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/logger"
	"github.com/kilianp07/cew/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, ev); err != nil {
					log.Warnf("record metrics: %v", err)
				}
			}
		}
	}()
}

// Record forwards a single event to the sink.
func Record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.CalculationEvent:
		return sink.RecordCalculation(CalculationRecordFrom(e))
	case events.StateChangedEvent:
		if r, ok := sink.(coremetrics.StateRecorder); ok {
			return r.RecordState(coremetrics.StateRecord{
				RunID:    e.RunID,
				Day:      e.Day,
				Time:     e.Time,
				Previous: e.Previous,
				State:    e.Current,
				Reason:   e.Reason,
				Price:    e.Price,
				SOCPct:   e.Status.SOCPct,
				SOCKnown: e.Status.Known,
			})
		}
	}
	return nil
}

// CalculationRecordFrom flattens a calculation event.
func CalculationRecordFrom(e events.CalculationEvent) coremetrics.CalculationRecord {
	d := e.Result.Diagnostics
	rec := coremetrics.CalculationRecord{
		RunID:      e.RunID,
		Day:        e.Day,
		Time:       e.Time,
		Duration:   e.Duration,
		Recomputed: e.Recomputed,

		State:             e.Result.State,
		ChargeWindows:     len(e.Result.Selection.ChargeWindows),
		DischargeWindows:  len(e.Result.Selection.DischargeWindows),
		AggressiveWindows: len(e.Result.Selection.AggressiveDischargeWindows),

		AvgCheapPrice:     d.AvgCheapPrice,
		AvgExpensivePrice: d.AvgExpensivePrice,
		SpreadPct:         d.SpreadPct,
		SpreadMet:         d.SpreadMet,

		ChargeShortfallWh:       d.ChargeShortfallWh,
		EnergyShortfall:         d.EnergyShortfall,
		PlannedChargeCost:       d.PlannedChargeCost,
		PlannedDischargeRevenue: d.PlannedDischargeRevenue,
	}
	if e.Err != nil {
		rec.Err = e.Err.Error()
	}
	return rec
}
