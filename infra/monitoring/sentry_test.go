package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cew/config"
	coremon "github.com/kilianp07/cew/core/monitoring"
)

func TestNewSentryMonitorDisabled(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitor(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{DSN: "https://public@127.0.0.1:1/1", Environment: "test"})
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.CaptureException(errors.New("boom"), map[string]string{"day": "today"})
		m.CaptureException(nil, nil)
		m.Flush(10 * time.Millisecond)
	})
}

func TestNewSentryMonitorBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "not a dsn"})
	assert.Error(t, err)
}
