package windows

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/model"
)

type staticSource map[model.Day]Snapshot

func (s staticSource) Latest(day model.Day) (Snapshot, bool) {
	snap, ok := s[day]
	return snap, ok
}

func todaySnapshot() Snapshot {
	start := time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)
	win := model.PriceInterval{Start: start, End: start.Add(time.Hour), RawValue: 0.04, AdjustedValue: 0.05}
	return Snapshot{
		RunID:       "run-1",
		Day:         model.DayToday,
		EvaluatedAt: start,
		Prices:      []model.PriceInterval{win},
		Result: engine.Result{
			State:     model.StateCharge,
			Selection: model.WindowSelection{ChargeWindows: []model.PriceInterval{win}},
		},
	}
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestWindowsByDay(t *testing.T) {
	h := NewRouter(staticSource{model.DayToday: todaySnapshot()}, nil)

	rec := serve(t, h, "/api/windows/today")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var snap Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, model.StateCharge, snap.Result.State)
	assert.Len(t, snap.Result.Selection.ChargeWindows, 1)

	assert.Equal(t, http.StatusNotFound, serve(t, h, "/api/windows/tomorrow").Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, h, "/api/windows/yesterday").Code)
}

func TestWindowsCSV(t *testing.T) {
	h := NewRouter(staticSource{model.DayToday: todaySnapshot()}, nil)
	rec := serve(t, h, "/api/windows/today/csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "charge,2025-06-02T03:00:00Z,2025-06-02T04:00:00Z,0.05", lines[1])
}

func TestWindowsChart(t *testing.T) {
	h := NewRouter(staticSource{model.DayToday: todaySnapshot()}, nil)
	rec := serve(t, h, "/api/windows/today/chart")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "03:00")

	assert.Equal(t, http.StatusNotFound, serve(t, h, "/api/windows/tomorrow/chart").Code)
}

func TestWindowsAll(t *testing.T) {
	h := NewRouter(staticSource{model.DayToday: todaySnapshot()}, nil)
	rec := serve(t, h, "/api/windows")
	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Contains(t, out, "today")
	assert.NotContains(t, out, "tomorrow")
}

func TestHealthAndMetrics(t *testing.T) {
	h := NewRouter(staticSource{}, nil)
	rec := serve(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
