package kpi

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/model"
)

// SQLiteStore keeps a local history of plans and state transitions. Only
// evaluations that produced a new plan, or failed, are stored; cached
// evaluations repeat the previous row.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	run_id TEXT PRIMARY KEY,
	day TEXT NOT NULL,
	ts INTEGER NOT NULL,
	duration_ms REAL NOT NULL,
	recomputed INTEGER NOT NULL,
	state TEXT NOT NULL,
	charge_windows INTEGER NOT NULL,
	discharge_windows INTEGER NOT NULL,
	aggressive_windows INTEGER NOT NULL,
	avg_cheap_price REAL NOT NULL,
	avg_expensive_price REAL NOT NULL,
	spread_pct REAL NOT NULL,
	spread_met INTEGER NOT NULL,
	charge_shortfall_wh REAL NOT NULL,
	planned_charge_cost REAL NOT NULL,
	planned_discharge_revenue REAL NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS transitions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	day TEXT NOT NULL,
	ts INTEGER NOT NULL,
	previous TEXT NOT NULL,
	state TEXT NOT NULL,
	reason TEXT NOT NULL,
	price REAL NOT NULL,
	soc_pct REAL
);
CREATE INDEX IF NOT EXISTS idx_plans_day_ts ON plans(day, ts);
CREATE INDEX IF NOT EXISTS idx_transitions_ts ON transitions(ts);
`

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// modernc sqlite does not share in-memory databases between connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// RecordCalculation stores recomputed or failed plans.
func (s *SQLiteStore) RecordCalculation(r coremetrics.CalculationRecord) error {
	if !r.Recomputed && !r.Failed() {
		return nil
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO plans (run_id, day, ts, duration_ms, recomputed, state,
		charge_windows, discharge_windows, aggressive_windows,
		avg_cheap_price, avg_expensive_price, spread_pct, spread_met,
		charge_shortfall_wh, planned_charge_cost, planned_discharge_revenue, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Day), r.Time.UnixMilli(), float64(r.Duration.Microseconds())/1000, boolToInt(r.Recomputed), string(r.State),
		r.ChargeWindows, r.DischargeWindows, r.AggressiveWindows,
		r.AvgCheapPrice, r.AvgExpensivePrice, r.SpreadPct, boolToInt(r.SpreadMet),
		r.ChargeShortfallWh, r.PlannedChargeCost, r.PlannedDischargeRevenue, r.Err)
	return err
}

// RecordState appends a state transition.
func (s *SQLiteStore) RecordState(r coremetrics.StateRecord) error {
	var soc sql.NullFloat64
	if r.SOCKnown {
		soc = sql.NullFloat64{Float64: r.SOCPct, Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO transitions (run_id, day, ts, previous, state, reason, price, soc_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Day), r.Time.UnixMilli(), string(r.Previous), string(r.State), r.Reason, r.Price, soc)
	return err
}

// Plans returns the stored plans of day in [start,end], oldest first.
func (s *SQLiteStore) Plans(day model.Day, start, end time.Time) ([]coremetrics.CalculationRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, ts, duration_ms, recomputed, state,
		charge_windows, discharge_windows, aggressive_windows,
		avg_cheap_price, avg_expensive_price, spread_pct, spread_met,
		charge_shortfall_wh, planned_charge_cost, planned_discharge_revenue, error
		FROM plans WHERE day = ? AND ts >= ? AND ts <= ? ORDER BY ts`,
		string(day), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coremetrics.CalculationRecord
	for rows.Next() {
		var (
			r          coremetrics.CalculationRecord
			ts         int64
			durationMS float64
			recomputed int
			state      string
			spreadMet  int
		)
		if err := rows.Scan(&r.RunID, &ts, &durationMS, &recomputed, &state,
			&r.ChargeWindows, &r.DischargeWindows, &r.AggressiveWindows,
			&r.AvgCheapPrice, &r.AvgExpensivePrice, &r.SpreadPct, &spreadMet,
			&r.ChargeShortfallWh, &r.PlannedChargeCost, &r.PlannedDischargeRevenue, &r.Err); err != nil {
			return nil, err
		}
		r.Day = day
		r.Time = time.UnixMilli(ts).UTC()
		r.Duration = time.Duration(durationMS * float64(time.Millisecond))
		r.State = model.State(state)
		r.SpreadMet = spreadMet != 0
		r.Recomputed = recomputed != 0
		res = append(res, r)
	}
	return res, rows.Err()
}

// Transitions returns the state transitions in [start,end], oldest first.
func (s *SQLiteStore) Transitions(start, end time.Time) ([]coremetrics.StateRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, day, ts, previous, state, reason, price, soc_pct
		FROM transitions WHERE ts >= ? AND ts <= ? ORDER BY ts, id`,
		start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []coremetrics.StateRecord
	for rows.Next() {
		var (
			r                    coremetrics.StateRecord
			day, previous, state string
			ts                   int64
			soc                  sql.NullFloat64
		)
		if err := rows.Scan(&r.RunID, &day, &ts, &previous, &state, &r.Reason, &r.Price, &soc); err != nil {
			return nil, err
		}
		r.Day = model.Day(day)
		r.Time = time.UnixMilli(ts).UTC()
		r.Previous = model.State(previous)
		r.State = model.State(state)
		r.SOCPct, r.SOCKnown = soc.Float64, soc.Valid
		res = append(res, r)
	}
	return res, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
