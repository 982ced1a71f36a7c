package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectorConfig() Config {
	cfg := hourlyConfig()
	cfg.ChargeWindows = 2
	cfg.DischargeWindows = 2
	cfg.ChargePowerW = 1000
	cfg.DischargePowerW = 1000
	cfg.RoundTripEfficiency = 0.5
	cfg.UsableCapacityWh = 10000
	return cfg
}

func TestSelectWindowsRaisesChargeCountToEnergyNeed(t *testing.T) {
	prices := hourly(6, 0.10, 12, 0.30, 4, 0.60, 2, 0.30)
	cfg := selectorConfig()
	spread := Spread{ChargeMet: true, DischargeMet: true}

	sel := selectWindows(prices, []int{0, 1, 2, 3, 4, 5}, []int{18, 19, 20, 21}, spread, nil, nil, cfg)

	assert.Equal(t, []int{18, 19}, sel.discharge)
	// 2 kWh out at 50% efficiency needs 4 kWh in.
	assert.Equal(t, 4, sel.minCharge)
	assert.Equal(t, 4, sel.chargeCap)
	assert.Equal(t, []int{0, 1, 2, 3}, sel.charge)
	assert.Zero(t, sel.shortfallWh)
}

func TestSelectWindowsOnlyAcceptsChargeBeforeOpenDischarge(t *testing.T) {
	// Cheapest hour comes after the only discharge window.
	prices := hourly(8, 0.20, 1, 0.60, 14, 0.30, 1, 0.05)
	cfg := selectorConfig()
	cfg.DischargeWindows = 1
	cfg.RoundTripEfficiency = 1
	spread := Spread{ChargeMet: true, DischargeMet: true}

	sel := selectWindows(prices, []int{23, 0, 1, 2}, []int{8}, spread, nil, nil, cfg)

	assert.Equal(t, []int{8}, sel.discharge)
	assert.Equal(t, []int{0}, sel.charge)
}

func TestSelectWindowsWithoutDischargeTakesCheapest(t *testing.T) {
	prices := hourly(3, 0.30, 3, 0.10, 18, 0.40)
	cfg := selectorConfig()
	cfg.ChargeWindows = 2
	spread := Spread{ChargeMet: true}

	sel := selectWindows(prices, []int{0, 1, 2, 3, 4, 5}, nil, spread, nil, nil, cfg)

	assert.Empty(t, sel.discharge)
	assert.Equal(t, []int{3, 4}, sel.charge)
}

func TestSelectWindowsSkipsSuppressedAndDischargeOverlap(t *testing.T) {
	prices := hourly(6, 0.10, 12, 0.30, 4, 0.60, 2, 0.30)
	cfg := selectorConfig()
	cfg.RoundTripEfficiency = 1
	spread := Spread{ChargeMet: true, DischargeMet: true}
	pool := []int{0, 1, 2, 18}

	sel := selectWindows(prices, pool, []int{18, 19}, spread, map[int]bool{0: true}, nil, cfg)

	assert.Equal(t, []int{1, 2}, sel.charge)
}

func TestSelectWindowsGatesForceEmptySets(t *testing.T) {
	prices := hourly(6, 0.10, 12, 0.30, 4, 0.60, 2, 0.30)
	cfg := selectorConfig()

	sel := selectWindows(prices, []int{0, 1}, []int{18, 19}, Spread{DischargeMet: true}, nil, nil, cfg)
	assert.Empty(t, sel.charge)
	assert.Len(t, sel.discharge, 2)
	assert.InDelta(t, 4000, sel.shortfallWh, 1e-9)

	sel = selectWindows(prices, []int{0, 1}, []int{18, 19}, Spread{ChargeMet: true}, nil, nil, cfg)
	assert.Empty(t, sel.discharge)
	assert.Equal(t, []int{0, 1}, sel.charge)
}

func TestSelectWindowsAggressiveSubset(t *testing.T) {
	prices := hourly(6, 0.10, 12, 0.30, 2, 0.35, 2, 0.60, 2, 0.30)
	cfg := selectorConfig()
	cfg.DischargeWindows = 4
	cfg.AggressiveSpreadPct = 300
	cfg.MinPriceDiff = 0.05
	spread := Spread{CheapAvg: 0.10, ChargeMet: true, DischargeMet: true, AggressiveMet: true}

	sel := selectWindows(prices, []int{0, 1, 2, 3, 4, 5}, []int{18, 19, 20, 21}, spread, nil, nil, cfg)

	assert.Equal(t, []int{18, 19, 20, 21}, sel.discharge)
	assert.Equal(t, []int{20, 21}, sel.aggressive)
}

func TestUncoveredAllocatesChronologically(t *testing.T) {
	prices := hourly(24, 0.2)
	cfg := selectorConfig()
	cfg.RoundTripEfficiency = 1

	open := uncovered(prices, []int{1}, []int{5, 10}, cfg)
	assert.Equal(t, []int{10}, open)

	open = uncovered(prices, []int{6}, []int{5, 10}, cfg)
	assert.Equal(t, []int{5}, open)

	cfg.InitialSOCPct = 20
	require.Empty(t, uncovered(prices, []int{1}, []int{5, 10}, cfg))
}
