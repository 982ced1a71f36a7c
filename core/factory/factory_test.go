package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	URL     string
	Timeout time.Duration
}

type sinkConf struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("influx", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{URL: c.URL, Timeout: c.Timeout}, nil
	}))

	inst, err := reg.Create(ModuleConfig{Type: "influx", Conf: map[string]any{
		"url":     "http://localhost:8086",
		"timeout": "2s",
	}})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8086", inst.URL)
	assert.Equal(t, 2*time.Second, inst.Timeout)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("y", nil))
	_, err := reg.Create(ModuleConfig{Type: "z"})
	assert.ErrorContains(t, err, `unknown module type "z"`)
	assert.Panics(t, func() { reg.MustRegister("x", func(map[string]any) (int, error) { return 0, nil }) })
}

func TestRegistry_Types(t *testing.T) {
	reg := NewRegistry[string]()
	reg.MustRegister("tibber", func(map[string]any) (string, error) { return "t", nil })
	reg.MustRegister("entsoe", func(map[string]any) (string, error) { return "e", nil })
	assert.Equal(t, []string{"entsoe", "tibber"}, reg.Types())
}
