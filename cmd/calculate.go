package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cew/config"
	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/forecast"
	"github.com/kilianp07/cew/core/model"
	"github.com/kilianp07/cew/core/pricing"
	"github.com/kilianp07/cew/infra/logger"
	"github.com/kilianp07/cew/pkg/export"
)

type calculateOptions struct {
	prices   string
	format   string
	forecast []string
	day      string
	now      string
	soc      float64
	output   string
}

func newCalculateCmd() *cobra.Command {
	opts := calculateOptions{}
	c := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the windows of a price file once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return calculate(cmd.OutOrStdout(), cfg, opts)
		},
	}
	f := c.Flags()
	f.StringVar(&opts.prices, "prices", "", "price payload file (required)")
	f.StringVar(&opts.format, "format", "", "price format: nordpool, entsoe, tibber or auto (default from config)")
	f.StringSliceVar(&opts.forecast, "forecast", nil, "Forecast.Solar payload file, repeat once per PV array")
	f.StringVar(&opts.day, "day", string(model.DayToday), "day to calculate: today or tomorrow")
	f.StringVar(&opts.now, "now", "", "evaluation instant (default: current time)")
	f.Float64Var(&opts.soc, "soc", -1, "battery state of charge in percent, negative if unknown")
	f.StringVarP(&opts.output, "output", "o", "json", "output format: json or csv")
	_ = c.MarkFlagRequired("prices")
	return c
}

func init() {
	rootCmd.AddCommand(newCalculateCmd())
}

func calculate(w io.Writer, cfg *config.Config, opts calculateOptions) error {
	day := model.Day(opts.day)
	if day != model.DayToday && day != model.DayTomorrow {
		return fmt.Errorf("--day must be today or tomorrow, got %q", opts.day)
	}
	if opts.output != "json" && opts.output != "csv" {
		return fmt.Errorf("--output must be json or csv, got %q", opts.output)
	}
	format := opts.format
	if format == "" {
		format = cfg.Prices.Format
	}
	adapter, err := pricing.New(format, pricing.Options{Location: cfg.Prices.Location})
	if err != nil {
		return err
	}
	payload, err := os.ReadFile(opts.prices)
	if err != nil {
		return err
	}
	series, err := adapter.Parse(payload)
	if err != nil {
		return fmt.Errorf("parse prices: %w", err)
	}
	prices := series.Day(day)

	loc := cfg.Prices.Loc()
	now := time.Now().In(loc)
	if opts.now != "" {
		if now, err = model.ParseTimestamp(opts.now, loc); err != nil {
			return fmt.Errorf("--now: %w", err)
		}
	}

	var fc []model.ForecastInterval
	if len(opts.forecast) > 0 && len(prices) > 0 {
		arrays := make([][]model.ForecastInterval, 0, len(opts.forecast))
		for _, path := range opts.forecast {
			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			array, err := forecast.ParseForecastSolar(raw, loc)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			arrays = append(arrays, array)
		}
		fc = forecast.ForDay(forecast.Merge(arrays...), prices[0].Start.In(loc))
	}

	status := engine.Status{}
	if opts.soc >= 0 {
		status = engine.Status{SOCPct: opts.soc, Known: true}
	}
	res, err := engine.New(logger.New("engine")).Calculate(engine.Input{
		Prices:   prices,
		Forecast: fc,
		Config:   cfg.EngineFor(day),
		Now:      now,
		Status:   status,
	})
	if err != nil {
		return err
	}
	if opts.output == "csv" {
		return export.WriteCSV(w, res.Selection)
	}
	return export.WriteJSON(w, res)
}
