package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	errs    []error
	tags    []map[string]string
	panics  []any
	flushes int
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *recordingMonitor) CapturePanic(v any)  { m.panics = append(m.panics, v) }
func (m *recordingMonitor) Flush(time.Duration) { m.flushes++ }

func install(t *testing.T) *recordingMonitor {
	t.Helper()
	m := &recordingMonitor{}
	Init(m)
	t.Cleanup(func() { Init(NopMonitor{}) })
	return m
}

func TestCaptureException(t *testing.T) {
	m := install(t)
	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), map[string]string{"day": "today"})

	assert.Len(t, m.errs, 1)
	assert.Equal(t, "today", m.tags[0]["day"])
}

func TestInitIgnoresNil(t *testing.T) {
	m := install(t)
	Init(nil)
	CaptureException(errors.New("boom"), nil)
	assert.Len(t, m.errs, 1)
}

func TestRecoverRepanics(t *testing.T) {
	m := install(t)
	assert.PanicsWithValue(t, "bad", func() {
		defer Recover()
		panic("bad")
	})
	assert.Equal(t, []any{"bad"}, m.panics)
	assert.Equal(t, 1, m.flushes)
}
