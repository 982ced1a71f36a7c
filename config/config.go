package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cew/core/engine"
	"github.com/kilianp07/cew/core/metrics"
	"github.com/kilianp07/cew/core/model"
	"github.com/kilianp07/cew/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: CEW_ENGINE__CHARGE_WINDOWS=8.
const EnvPrefix = "CEW_"

type Config struct {
	Engine engine.Config `json:"engine"`
	// Tomorrow is Engine with the "tomorrow" section applied on top. Nil
	// when no such section exists.
	Tomorrow *engine.Config `json:"-"`
	Prices   PricesConfig   `json:"prices"`
	MQTT     mqtt.Config    `json:"mqtt"`
	Metrics  metrics.Config `json:"metrics"`
	Logging  LoggingConfig  `json:"logging"`
	Service  ServiceConfig  `json:"service"`
	Sentry   SentryConfig   `json:"sentry"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	cfg := &Config{Engine: engine.DefaultConfig()}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Prices.SetDefaults()
	c.Logging.SetDefaults()
	c.Service.SetDefaults()
	c.MQTT.SetDefaults()
}

// EngineFor returns the engine settings used for day.
func (c *Config) EngineFor(day model.Day) engine.Config {
	if day == model.DayTomorrow && c.Tomorrow != nil {
		return *c.Tomorrow
	}
	return c.Engine
}

// Validate checks every section except MQTT, which is only required by the
// service.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("engine: %w", err))
	}
	if c.Tomorrow != nil {
		if err := c.Tomorrow.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tomorrow: %w", err))
		}
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			errs = append(errs, fmt.Errorf("metrics.sinks[%d]: type is required", i))
		}
	}
	for _, v := range []interface{ Validate() error }{c.Prices, c.Logging, c.Service, c.Sentry} {
		if err := v.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}

	cfg := &Config{Engine: engine.DefaultConfig()}
	uc := koanf.UnmarshalConf{Tag: "json"}
	if err := k.UnmarshalWithConf("", cfg, uc); err != nil {
		return nil, err
	}
	if k.Exists("tomorrow") {
		tomorrow := cfg.Engine
		if err := k.UnmarshalWithConf("tomorrow", &tomorrow, uc); err != nil {
			return nil, fmt.Errorf("tomorrow: %w", err)
		}
		cfg.Tomorrow = &tomorrow
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to Default.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
