package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// LoggingConfig defines the process log level and an optional rotating log
// file.
type LoggingConfig struct {
	Level string        `json:"level"`
	File  LogFileConfig `json:"file"`
}

// LogFileConfig enables file output when Path is set.
type LogFileConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	Compress   bool   `json:"compress"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.File.MaxSizeMB <= 0 {
		c.File.MaxSizeMB = 10
	}
	if c.File.MaxBackups <= 0 {
		c.File.MaxBackups = 3
	}
	if c.File.MaxAgeDays <= 0 {
		c.File.MaxAgeDays = 7
	}
}

// Validate checks that the level is known to zerolog.
func (c LoggingConfig) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Level)); err != nil {
		return fmt.Errorf("logging.level: unknown level %q", c.Level)
	}
	return nil
}
