package config

import (
	"errors"
	"strings"
	"time"
)

// ServiceConfig drives the long-running service.
type ServiceConfig struct {
	UpdateIntervalSeconds int    `json:"update_interval_seconds"`
	HTTPAddr              string `json:"http_addr"`
	StateTopicPrefix      string `json:"state_topic_prefix"`
}

func (c *ServiceConfig) SetDefaults() {
	if c.UpdateIntervalSeconds <= 0 {
		c.UpdateIntervalSeconds = 60
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.StateTopicPrefix == "" {
		c.StateTopicPrefix = "cew"
	}
	c.StateTopicPrefix = strings.TrimSuffix(c.StateTopicPrefix, "/")
}

func (c ServiceConfig) Validate() error {
	if c.UpdateIntervalSeconds <= 0 {
		return errors.New("service.update_interval_seconds must be positive")
	}
	if strings.ContainsAny(c.StateTopicPrefix, "+#") {
		return errors.New("service.state_topic_prefix must not contain wildcards")
	}
	return nil
}

// Interval returns the periodic evaluation interval.
func (c ServiceConfig) Interval() time.Duration {
	return time.Duration(c.UpdateIntervalSeconds) * time.Second
}
