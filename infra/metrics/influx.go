package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/infra/logger"
)

// InfluxSink writes calculation results and state changes to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// CalculationPoint converts a record to the window_calculation measurement.
func CalculationPoint(rec coremetrics.CalculationRecord) *write.Point {
	p := write.NewPointWithMeasurement("window_calculation").
		AddTag("day", string(rec.Day)).
		AddTag("run_id", rec.RunID).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		AddField("recomputed", rec.Recomputed)
	if rec.Failed() {
		return p.AddField("error", rec.Err).SetTime(rec.Time).SortTags().SortFields()
	}
	return p.AddTag("state", string(rec.State)).
		AddField("charge_windows", rec.ChargeWindows).
		AddField("discharge_windows", rec.DischargeWindows).
		AddField("aggressive_windows", rec.AggressiveWindows).
		AddField("avg_cheap_price", round3(rec.AvgCheapPrice)).
		AddField("avg_expensive_price", round3(rec.AvgExpensivePrice)).
		AddField("spread_pct", round3(rec.SpreadPct)).
		AddField("spread_met", rec.SpreadMet).
		AddField("charge_shortfall_wh", round3(rec.ChargeShortfallWh)).
		AddField("energy_shortfall", rec.EnergyShortfall).
		AddField("planned_charge_cost", round3(rec.PlannedChargeCost)).
		AddField("planned_discharge_revenue", round3(rec.PlannedDischargeRevenue)).
		SetTime(rec.Time).
		SortTags().
		SortFields()
}

// StatePoint converts a record to the battery_state measurement.
func StatePoint(rec coremetrics.StateRecord) *write.Point {
	p := write.NewPointWithMeasurement("battery_state").
		AddTag("day", string(rec.Day)).
		AddTag("state", string(rec.State)).
		AddTag("previous", string(rec.Previous)).
		AddField("reason", rec.Reason).
		AddField("price", round3(rec.Price))
	if rec.SOCKnown {
		p = p.AddField("soc_pct", round3(rec.SOCPct))
	}
	return p.SetTime(rec.Time).SortTags().SortFields()
}

// RecordCalculation writes the window_calculation point.
func (s *InfluxSink) RecordCalculation(rec coremetrics.CalculationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, CalculationPoint(rec))
}

// RecordState writes the battery_state point.
func (s *InfluxSink) RecordState(rec coremetrics.StateRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, StatePoint(rec))
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
