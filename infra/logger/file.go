package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	outMu sync.RWMutex
	extra io.Writer
)

// FileOptions configures rotating file output. Sizes are in megabytes and
// ages in days.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// EnableFile copies every log line to a rotating file. Only loggers created
// after the call write to it. The returned closer detaches and closes the
// file.
func EnableFile(o FileOptions) (io.Closer, error) {
	if o.Path == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	if dir := filepath.Dir(o.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	lj := &lumberjack.Logger{
		Filename:   o.Path,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
	outMu.Lock()
	extra = lj
	outMu.Unlock()
	return closerFunc(func() error {
		outMu.Lock()
		extra = nil
		outMu.Unlock()
		return lj.Close()
	}), nil
}

// output joins the console writer with the rotating file, if any.
func output(console io.Writer) io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	if extra == nil {
		return console
	}
	return zerolog.MultiLevelWriter(console, extra)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
