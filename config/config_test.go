package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/model"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `engine:
  window_duration: "1h"
  charge_windows: 4
  vat: 0.21
  time_override:
    enabled: true
    mode: "discharge"
    start: "17:00"
    end: "19:00"
tomorrow:
  charge_windows: 8
prices:
  format: "nordpool"
  topic: "energy/prices"
  forecast_topics:
    - "solar/east"
    - "solar/west"
  location: "UTC"
  source:
    type: "wholesale_market"
    conf:
      client_id: "id"
      client_secret: "secret"
      auth_url: "https://auth.local/token"
sentry:
  dsn: "https://key@sentry.local/1"
  environment: "test"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  soc_topic: "battery/soc"
metrics:
  sinks:
    - type: "nop"
logging:
  level: "debug"
  file:
    path: "/var/log/cew.log"
    max_backups: 5
service:
  update_interval_seconds: 30
  state_topic_prefix: "home/battery/"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Prices.Source)

	def := engine.DefaultConfig()
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"window_duration", cfg.Engine.WindowDuration, engine.Granularity1h},
		{"charge_windows", cfg.Engine.ChargeWindows, 4},
		{"vat", cfg.Engine.VAT, 0.21},
		{"default kept", cfg.Engine.DischargeWindows, def.DischargeWindows},
		{"override mode", cfg.Engine.TimeOverride.Mode, model.StateDischarge},
		{"override end", cfg.Engine.TimeOverride.End, "19:00"},
		{"format", cfg.Prices.Format, "nordpool"},
		{"forecast topics", cfg.Prices.ForecastTopics, []string{"solar/east", "solar/west"}},
		{"source", cfg.Prices.Source.Type, "wholesale_market"},
		{"source conf", cfg.Prices.Source.Conf["client_id"], "id"},
		{"poll", cfg.Prices.PollInterval(), 15 * time.Minute},
		{"sentry", cfg.Sentry.Environment, "test"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"soc_topic", cfg.MQTT.SOCTopic, "battery/soc"},
		{"sink", cfg.Metrics.Sinks[0].Type, "nop"},
		{"level", cfg.Logging.Level, "debug"},
		{"log file", cfg.Logging.File.Path, "/var/log/cew.log"},
		{"log backups", cfg.Logging.File.MaxBackups, 5},
		{"log size default", cfg.Logging.File.MaxSizeMB, 10},
		{"interval", cfg.Service.UpdateIntervalSeconds, 30},
		{"prefix", cfg.Service.StateTopicPrefix, "home/battery"},
		{"http", cfg.Service.HTTPAddr, ":8080"},
	}
	for _, c := range checks {
		assert.Equal(t, c.want, c.got, c.name)
	}

	require.NotNil(t, cfg.Tomorrow)
	assert.Equal(t, 8, cfg.Tomorrow.ChargeWindows)
	assert.Equal(t, 0.21, cfg.Tomorrow.VAT, "tomorrow inherits today's settings")
	assert.Equal(t, 4, cfg.EngineFor(model.DayToday).ChargeWindows)
	assert.Equal(t, 8, cfg.EngineFor(model.DayTomorrow).ChargeWindows)
}

func TestLoadJSONWithoutTomorrow(t *testing.T) {
	path := writeConfig(t, "config.json", `{"engine":{"discharge_windows":2},"prices":{"format":"tibber"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Tomorrow)
	assert.Equal(t, 2, cfg.EngineFor(model.DayTomorrow).DischargeWindows)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CEW_ENGINE__CHARGE_WINDOWS", "9")
	t.Setenv("CEW_LOGGING__LEVEL", "warn")
	path := writeConfig(t, "config.yaml", "engine:\n  charge_windows: 3\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Engine.ChargeWindows)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(writeConfig(t, "config.yaml", "engine:\n  round_trip_efficiency: 1.5\n"))
	assert.ErrorContains(t, err, "round_trip_efficiency")

	_, err = Load(writeConfig(t, "config.yaml", "tomorrow:\n  window_duration: \"5m\"\n"))
	assert.ErrorContains(t, err, "tomorrow")

	_, err = Load(writeConfig(t, "config.yaml", "prices:\n  format: \"awattar\"\n"))
	assert.ErrorContains(t, err, "prices.format")

	_, err = Load(writeConfig(t, "config.yaml", "prices:\n  source:\n    type: \"ftp\"\n"))
	assert.ErrorContains(t, err, "prices.source")

	_, err = Load(writeConfig(t, "config.yaml", "prices:\n  forecast_topics: [\"solar\", \"solar\"]\n"))
	assert.ErrorContains(t, err, "prices.forecast_topics")

	_, err = Load(writeConfig(t, "config.yaml", "sentry:\n  traces_sample_rate: 2\n"))
	assert.ErrorContains(t, err, "sentry.traces_sample_rate")

	_, err = Load(writeConfig(t, "config.yaml", "logging:\n  level: \"loud\"\n"))
	assert.ErrorContains(t, err, "logging.level")
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultConfig(), cfg.Engine)
	assert.NoError(t, cfg.Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "engine.price_override.threshold", envKey("CEW_ENGINE__PRICE_OVERRIDE__THRESHOLD"))
}
