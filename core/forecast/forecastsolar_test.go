package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhPeriod(t *testing.T) {
	payload := []byte(`{
		"wh_period": {
			"2025-06-02 06:00:00": 120,
			"2025-06-02 07:00:00": 480,
			"2025-06-02 08:00:00": 900,
			"2025-06-03 06:00:00": 100
		},
		"watts": {"2025-06-02 06:00:00": 9999}
	}`)
	got, err := ParseForecastSolar(payload, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC), got[0].Start)
	assert.Equal(t, time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC), got[0].End)
	assert.Equal(t, 120.0, got[0].EnergyWh)
	// the last entry of a day covers one hour, not the night
	assert.Equal(t, time.Hour, got[2].Duration())
	assert.InDelta(t, 1500, TotalWh(ForDay(got, got[0].Start)), 1e-9)
	assert.Len(t, ForDay(got, time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)), 1)
}

func TestParseWattsIntegratesPeriods(t *testing.T) {
	payload := []byte(`{"result": {"watts": {
		"2025-06-02T10:00:00+02:00": 1000,
		"2025-06-02T10:15:00+02:00": 2000
	}}}`)
	got, err := ParseForecastSolar(payload, time.UTC)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 8, got[0].Start.Hour())
	assert.InDelta(t, 250, got[0].EnergyWh, 1e-9)
	assert.InDelta(t, 2000, got[1].EnergyWh, 1e-9)
}

func TestParseErrors(t *testing.T) {
	_, err := ParseForecastSolar([]byte(`{"wh_period": {"noon": 5}}`), time.UTC)
	assert.Error(t, err)
	_, err = ParseForecastSolar([]byte(`[`), time.UTC)
	assert.Error(t, err)

	got, err := ParseForecastSolar([]byte(`{}`), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, TotalWh(got))
}

func TestMergeSumsArrays(t *testing.T) {
	east, err := ParseForecastSolar([]byte(`{"wh_period": {
		"2025-06-02 07:00:00": 300,
		"2025-06-02 08:00:00": 500
	}}`), time.UTC)
	require.NoError(t, err)
	west, err := ParseForecastSolar([]byte(`{"wh_period": {
		"2025-06-02 08:00:00": 200,
		"2025-06-02 09:00:00": 600
	}}`), time.UTC)
	require.NoError(t, err)

	got := Merge(east, west)
	require.Len(t, got, 3)
	assert.Equal(t, 7, got[0].Start.Hour())
	assert.Equal(t, 300.0, got[0].EnergyWh)
	assert.Equal(t, 700.0, got[1].EnergyWh)
	assert.Equal(t, time.Hour, got[1].Duration())
	assert.Equal(t, 600.0, got[2].EnergyWh)
	assert.InDelta(t, TotalWh(east)+TotalWh(west), TotalWh(got), 1e-9)

	// inputs are left untouched
	assert.Equal(t, 500.0, east[1].EnergyWh)
	assert.Empty(t, Merge())
}
