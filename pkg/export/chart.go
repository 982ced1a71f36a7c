package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/cew/core/model"
)

// WriteChart renders the adjusted prices of a day as an HTML line chart.
// Charge and discharge windows are drawn as separate series on top of the
// price line, with gaps outside the selected intervals.
func WriteChart(w io.Writer, title string, prices []model.PriceInterval, sel model.WindowSelection) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Price"}),
	)

	xAxis := make([]string, 0, len(prices))
	price := make([]opts.LineData, 0, len(prices))
	charge := make([]opts.LineData, 0, len(prices))
	discharge := make([]opts.LineData, 0, len(prices))
	for _, iv := range prices {
		xAxis = append(xAxis, iv.Start.Format("15:04"))
		price = append(price, opts.LineData{Value: iv.AdjustedValue})
		charge = append(charge, marked(sel.ChargeWindows, iv))
		discharge = append(discharge, marked(sel.DischargeWindows, iv))
	}

	line.SetXAxis(xAxis).
		AddSeries("Price", price).
		AddSeries("Charge", charge).
		AddSeries("Discharge", discharge)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func marked(windows []model.PriceInterval, iv model.PriceInterval) opts.LineData {
	if model.Find(windows, iv.Start) < 0 {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: iv.AdjustedValue}
}
