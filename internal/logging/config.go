// Package logging picks the logger profile for a process and applies the
// NOTESCTL_LOG_* environment overrides on top of it.
package logging

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/notesctl/internal/logs"
)

const (
	EnvLogLevel     = "NOTESCTL_LOG_LEVEL"
	EnvLogTimestamp = "NOTESCTL_LOG_TIMESTAMP"
	EnvLogNoColor   = "NOTESCTL_LOG_NOCOLOR"
	EnvLogJSON      = "NOTESCTL_LOG_JSON"
	EnvLogFile      = "NOTESCTL_LOG_FILE"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var (
	configureOnce sync.Once
	mu            sync.Mutex
	current       logs.Config
)

func ConfigureRuntime() {
	Configure(ProfileRuntime)
}

func ConfigureTests() {
	Configure(ProfileTest)
}

// Configure installs the profile once per process. Later calls are no-ops.
func Configure(profile Profile) {
	configureOnce.Do(func() {
		cfg := profileConfig(profile)
		warn := applyEnv(&cfg, os.Getenv)
		install(cfg)
		if warn != "" {
			logs.Warnf("logging: %s", warn)
		}
	})
}

// ApplyLevel changes the level of the installed logger, used when a config
// file names one. Unknown names are rejected and leave the level alone. The
// environment level still wins.
func ApplyLevel(raw string) bool {
	lvl, ok := parseLevel(raw)
	if !ok {
		return false
	}
	if _, set := parseLevel(os.Getenv(EnvLogLevel)); set {
		return true
	}
	mu.Lock()
	cfg := current
	mu.Unlock()
	cfg.Level = lvl
	install(cfg)
	return true
}

func install(cfg logs.Config) {
	mu.Lock()
	current = cfg
	mu.Unlock()
	logs.Configure(cfg)
}

func profileConfig(profile Profile) logs.Config {
	cfg := logs.DefaultConfig()
	if profile == ProfileTest {
		cfg.Level = logs.DebugLevel
		cfg.Timestamp = false
	}
	return cfg
}

// applyEnv folds the environment into cfg. The returned message is non
// empty when the log file could not be opened and stderr is kept.
func applyEnv(cfg *logs.Config, getenv func(string) string) string {
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(getenv(EnvLogJSON)); ok {
		cfg.Bypass = v
	}
	if path := strings.TrimSpace(getenv(EnvLogFile)); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Sprintf("open %s: %v", path, err)
		}
		cfg.Out = f
		cfg.NoColor = true
	}
	return ""
}

func parseLevel(raw string) (logs.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return logs.TraceLevel, true
	case "debug":
		return logs.DebugLevel, true
	case "info":
		return logs.InfoLevel, true
	case "warn", "warning":
		return logs.WarnLevel, true
	case "error":
		return logs.ErrorLevel, true
	case "off", "none", "disabled":
		return logs.Disabled, true
	default:
		return logs.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
