package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cew/core/model"
)

func TestMapForecastSplitsByOverlap(t *testing.T) {
	slots := quarterHourDay()
	forecast := []model.ForecastInterval{{Start: at(12, 0), End: at(13, 0), EnergyWh: 1000}}

	energy := mapForecast(slots, forecast)
	require.Len(t, energy, 96)
	for i := 48; i < 52; i++ {
		assert.InDelta(t, 250, energy[i], 1e-9)
	}
	assert.Zero(t, energy[47])
	assert.Zero(t, energy[52])
}

func TestMapForecastOffsetIntervals(t *testing.T) {
	slots := hourly(24, 0.1)
	forecast := []model.ForecastInterval{
		{Start: at(12, 30), End: at(13, 30), EnergyWh: 1000},
		{Start: at(13, 30), End: at(13, 30), EnergyWh: 500},
	}
	energy := mapForecast(slots, forecast)
	assert.InDelta(t, 500, energy[12], 1e-9)
	assert.InDelta(t, 500, energy[13], 1e-9)
	assert.InDelta(t, 1000, totalWh(energy), 1e-9)
}

func TestSolarGapScore(t *testing.T) {
	assert.Equal(t, 1.0, solarGapScore(0, 1, 800))
	assert.InDelta(t, 0.5, solarGapScore(400, 1, 800), 1e-9)
	assert.Equal(t, 0.0, solarGapScore(1600, 1, 800))
	assert.Equal(t, 0.0, solarGapScore(200, 0.25, 800))
	assert.Equal(t, 1.0, solarGapScore(0, 1, 0))
	assert.Equal(t, 0.0, solarGapScore(10, 1, 0))
}

// solarDay has its cheapest hour at noon, under a strong afternoon forecast.
func solarDay() ([]model.PriceInterval, []model.ForecastInterval, Config) {
	prices := hourly(4, 0.10, 8, 0.30, 1, 0.02, 6, 0.30, 3, 0.60, 2, 0.30)
	var forecast []model.ForecastInterval
	for h := 12; h < 17; h++ {
		forecast = append(forecast, model.ForecastInterval{Start: at(h, 0), End: at(h+1, 0), EnergyWh: 2000})
	}
	cfg := hourlyConfig()
	cfg.ChargeWindows = 4
	cfg.DischargeWindows = 3
	cfg.CheapPercentile = 15
	cfg.ExpensivePercentile = 15
	cfg.ChargePowerW = 1000
	cfg.DischargePowerW = 1000
	cfg.RoundTripEfficiency = 0.9
	cfg.UsableCapacityWh = 6000
	cfg.InitialSOCPct = 0
	cfg.ConsumptionW = 400
	cfg.SkipChargeSolarThresholdPct = 80
	return prices, forecast, cfg
}

func TestSuppressedBySolar(t *testing.T) {
	prices, forecast, cfg := solarDay()
	energy := mapForecast(prices, forecast)

	suppressed := suppressedBySolar(prices, energy, []int{0, 3, 9, 12, 18}, cfg)
	assert.Equal(t, map[int]bool{12: true}, suppressed)

	cfg.UsableCapacityWh = 0
	assert.Empty(t, suppressedBySolar(prices, energy, []int{12}, cfg))
}

func TestRankDischargeBySolar(t *testing.T) {
	prices := hourly(24, 0.40)
	prices[20].AdjustedValue = 0.50
	energy := make([]float64, 24)
	energy[10] = 800
	cfg := hourlyConfig()
	cfg.SolarSaturationW = 800

	ranked := rankDischargeBySolar(prices, energy, []int{10, 11, 20}, cfg)
	// 20: 0.7*1 + 0.3*1, 11: 0.7*0 + 0.3*1, 10: 0.7*0 + 0.3*0
	assert.Equal(t, []int{20, 11, 10}, ranked)
}

func TestRankDischargeSingleCandidate(t *testing.T) {
	prices := hourly(24, 0.40)
	energy := make([]float64, 24)
	assert.Equal(t, []int{5}, rankDischargeBySolar(prices, energy, []int{5}, hourlyConfig()))
}

func TestHourStartKeepsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*60*60+30*60)
	ts := time.Date(2025, 6, 2, 14, 45, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 0, 0, 0, loc), hourStart(ts))
}
