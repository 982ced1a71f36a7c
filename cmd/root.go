package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cew/app"
	"github.com/kilianp07/cew/config"
	coremetrics "github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/monitoring"
	"github.com/kilianp07/cew/infra/logger"
	inframon "github.com/kilianp07/cew/infra/monitoring"
	"github.com/kilianp07/cew/infra/mqtt"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "cew",
	Short:         "Battery charge/discharge window service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return logger.SetLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logLevel == "" {
		if err := logger.SetLevel(cfg.Logging.Level); err != nil {
			return err
		}
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return err
	}
	if f := cfg.Logging.File; f.Path != "" {
		closer, err := logger.EnableFile(logger.FileOptions{
			Path:       f.Path,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		})
		if err != nil {
			return err
		}
		defer closer.Close()
	}

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return err
	}
	monitoring.Init(mon)
	defer monitoring.Flush(2 * time.Second)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return fmt.Errorf("metrics sink: %w", err)
	}
	client, err := mqtt.NewPahoClient(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	svc, err := app.New(cfg, client, sink)
	if err != nil {
		client.Disconnect()
		return err
	}
	logger.New("main").Infof("service started, publishing under %s/", cfg.Service.StateTopicPrefix)
	return svc.Run(ctx)
}
