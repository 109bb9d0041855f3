// Package config loads the debugger settings.
//
// Settings come in layers: built-in defaults, then an optional TOML or
// YAML file, then LUADBG_* environment variables. Later layers override
// earlier ones key by key.
package config

import (
	"fmt"
	"time"

	"github.com/dshills/luadbg/internal/logging"
)

// Setting keys as they appear in config files.
const (
	KeyPrompt          = "prompt"
	KeyListSize        = "list_size"
	KeyWrapList        = "wrap_list"
	KeyStopOnEntry     = "stop_on_entry"
	KeyBreakOnError    = "break_on_error"
	KeyLogLevel        = "log_level"
	KeyWatchSources    = "watch_sources"
	KeyTimeout         = "timeout"
	KeyUnsafeLibraries = "unsafe_libraries"
)

// Config holds the debugger settings.
type Config struct {
	// Prompt is printed before each command line.
	Prompt string
	// ListSize is the number of lines "list" prints.
	ListSize int
	// WrapList makes "list" wrap to the first line past the end of file.
	WrapList bool
	// StopOnEntry enters the console before the script's first statement.
	StopOnEntry bool
	// BreakOnError enters the console on uncaught errors.
	BreakOnError bool
	// LogLevel is the minimum level of diagnostic logs.
	LogLevel string
	// WatchSources reloads listings when source files change on disk.
	WatchSources bool
	// Timeout bounds a script's run time. Zero means no limit.
	Timeout time.Duration
	// UnsafeLibraries opens io, os and debug to the script.
	UnsafeLibraries bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Prompt:       "(dbg) ",
		ListSize:     10,
		BreakOnError: true,
		LogLevel:     "warn",
	}
}

// Validate checks that every setting is in range.
func (c Config) Validate() error {
	if c.ListSize <= 0 {
		return &SettingError{Key: KeyListSize, Source: "config",
			Err: fmt.Errorf("%w: must be positive, got %d", ErrValidationFailed, c.ListSize)}
	}
	if c.Timeout < 0 {
		return &SettingError{Key: KeyTimeout, Source: "config",
			Err: fmt.Errorf("%w: must not be negative, got %s", ErrValidationFailed, c.Timeout)}
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return &SettingError{Key: KeyLogLevel, Source: "config",
			Err: fmt.Errorf("%w: unknown level %q", ErrValidationFailed, c.LogLevel)}
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() logging.Level {
	level, ok := logging.ParseLevel(c.LogLevel)
	if !ok {
		return logging.LevelWarn
	}
	return level
}
