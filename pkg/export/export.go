package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/model"
)

// Row kinds written by WriteCSV.
const (
	KindCharge              = "charge"
	KindDischarge           = "discharge"
	KindDischargeAggressive = "discharge_aggressive"
)

// Row is one selected window.
type Row struct {
	Kind  string
	Start time.Time
	End   time.Time
	Price float64
}

// WriteJSON writes the evaluated result to w in JSON format.
func WriteJSON(w io.Writer, res engine.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Rows flattens a selection into chronological rows. Aggressive discharge
// windows are reported once, with their own kind.
func Rows(sel model.WindowSelection) []Row {
	rows := make([]Row, 0, len(sel.ChargeWindows)+len(sel.DischargeWindows))
	for _, iv := range sel.ChargeWindows {
		rows = append(rows, Row{Kind: KindCharge, Start: iv.Start, End: iv.End, Price: iv.AdjustedValue})
	}
	for _, iv := range sel.DischargeWindows {
		kind := KindDischarge
		if model.Find(sel.AggressiveDischargeWindows, iv.Start) >= 0 {
			kind = KindDischargeAggressive
		}
		rows = append(rows, Row{Kind: kind, Start: iv.Start, End: iv.End, Price: iv.AdjustedValue})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Start.Before(rows[j].Start) })
	return rows
}

// WriteCSV writes the selection to w as kind,start,end,price rows.
func WriteCSV(w io.Writer, sel model.WindowSelection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "start", "end", "price"}); err != nil {
		return err
	}
	for _, r := range Rows(sel) {
		rec := []string{
			r.Kind,
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
