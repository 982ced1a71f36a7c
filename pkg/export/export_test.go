package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/model"
)

func window(h int, price float64) model.PriceInterval {
	start := time.Date(2025, 6, 2, h, 0, 0, 0, time.UTC)
	return model.PriceInterval{Start: start, End: start.Add(time.Hour), RawValue: price, AdjustedValue: price}
}

func selection() model.WindowSelection {
	peak := window(19, 0.42)
	return model.WindowSelection{
		ChargeWindows:              []model.PriceInterval{window(2, 0.05), window(3, 0.06)},
		DischargeWindows:           []model.PriceInterval{window(8, 0.3), peak},
		AggressiveDischargeWindows: []model.PriceInterval{peak},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, selection()))

	want := "kind,start,end,price\n" +
		"charge,2025-06-02T02:00:00Z,2025-06-02T03:00:00Z,0.05\n" +
		"charge,2025-06-02T03:00:00Z,2025-06-02T04:00:00Z,0.06\n" +
		"discharge,2025-06-02T08:00:00Z,2025-06-02T09:00:00Z,0.3\n" +
		"discharge_aggressive,2025-06-02T19:00:00Z,2025-06-02T20:00:00Z,0.42\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, model.WindowSelection{}))
	assert.Equal(t, "kind,start,end,price\n", buf.String())
}

func TestRowsChronological(t *testing.T) {
	sel := model.WindowSelection{
		ChargeWindows:    []model.PriceInterval{window(12, 0.01)},
		DischargeWindows: []model.PriceInterval{window(7, 0.3), window(20, 0.35)},
	}
	rows := Rows(sel)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{KindDischarge, KindCharge, KindDischarge}, []string{rows[0].Kind, rows[1].Kind, rows[2].Kind})
}

func TestWriteJSON(t *testing.T) {
	res := engine.Result{State: model.StateCharge, Selection: selection()}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "charge", decoded["state"])
	sel := decoded["selection"].(map[string]any)
	assert.Len(t, sel["charge_windows"], 2)
}

func TestWriteChart(t *testing.T) {
	prices := []model.PriceInterval{window(2, 0.05), window(8, 0.3), window(12, 0.18)}
	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, "today", prices, selection()))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "today")
	assert.Contains(t, html, "Discharge")
	assert.Contains(t, html, "08:00")
}
