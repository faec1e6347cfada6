// Package logs is the process-wide leveled logger used by every package.
//
// It keeps the printf-style call sites (Debugf, Infof, Warnf, Errf) on top
// of a zerolog logger so output stays structured and level filtered.
package logs

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	TraceLevel = zerolog.TraceLevel
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	Disabled   = zerolog.Disabled
)

// Config controls the global logger.
type Config struct {
	Level     Level
	Timestamp bool
	NoColor   bool
	// Bypass skips console formatting and writes raw JSON lines.
	Bypass bool
	Out    io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:     InfoLevel,
		Timestamp: true,
		Out:       os.Stderr,
	}
}

var (
	mu     sync.RWMutex
	global = build(DefaultConfig())
)

// Configure replaces the global logger.
func Configure(cfg Config) {
	l := build(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
}

// Logger returns the current global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.Bypass {
		cw := zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor, TimeFormat: time.RFC3339}
		if !cfg.Timestamp {
			cw.PartsExclude = []string{zerolog.TimestampFieldName}
		}
		out = cw
	}
	ctx := zerolog.New(out).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger().Level(cfg.Level)
}

func Tracef(format string, args ...any) { emit(TraceLevel, format, args...) }
func Debugf(format string, args ...any) { emit(DebugLevel, format, args...) }
func Infof(format string, args ...any)  { emit(InfoLevel, format, args...) }
func Warnf(format string, args ...any)  { emit(WarnLevel, format, args...) }
func Errf(format string, args ...any)   { emit(ErrorLevel, format, args...) }

// Logf logs at info level without a format directive check.
func Logf(format string, args ...any) { emit(InfoLevel, format, args...) }

func emit(level Level, format string, args ...any) {
	l := Logger()
	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	ev.Msg(fmt.Sprintf(format, args...))
}
