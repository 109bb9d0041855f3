package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "LUADBG_"

// FileSystem is an abstraction for file system operations.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Loader builds a Config from defaults, a config file and the
// environment.
type Loader struct {
	fs     FileSystem
	lookup func(string) (string, bool)
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem sets the file system config files are read from.
func WithFileSystem(fsys FileSystem) LoaderOption {
	return func(l *Loader) {
		l.fs = fsys
	}
}

// WithLookupEnv sets the environment lookup. Defaults to os.LookupEnv.
func WithLookupEnv(lookup func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookup = lookup
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		fs:     OSFS{},
		lookup: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the settings. An empty path or a missing file leaves the
// defaults in place.
func Load(path string) (Config, error) {
	return NewLoader().Load(path)
}

// Load reads the settings. An empty path or a missing file leaves the
// defaults in place.
func (l *Loader) Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		values, err := l.loadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := apply(&cfg, values, path); err != nil {
			return cfg, err
		}
	}

	if err := apply(&cfg, l.loadEnv(), "environment"); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// loadFile parses a config file by extension. It returns nil, nil if the
// file doesn't exist.
func (l *Loader) loadFile(path string) (map[string]any, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var values map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &values); err != nil {
			pe := &ParseError{Path: path, Message: err.Error(), Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, _ = de.Position()
			}
			return nil, pe
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &values); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return values, nil
}

// envMapping maps environment variables to setting keys.
var envMapping = map[string]string{
	EnvPrefix + "PROMPT":           KeyPrompt,
	EnvPrefix + "LIST_SIZE":        KeyListSize,
	EnvPrefix + "WRAP_LIST":        KeyWrapList,
	EnvPrefix + "STOP_ON_ENTRY":    KeyStopOnEntry,
	EnvPrefix + "BREAK_ON_ERROR":   KeyBreakOnError,
	EnvPrefix + "LOG_LEVEL":        KeyLogLevel,
	EnvPrefix + "WATCH_SOURCES":    KeyWatchSources,
	EnvPrefix + "TIMEOUT":          KeyTimeout,
	EnvPrefix + "UNSAFE_LIBRARIES": KeyUnsafeLibraries,
}

// loadEnv reads the mapped environment variables. Values stay strings
// and are converted per setting when applied.
func (l *Loader) loadEnv() map[string]any {
	values := make(map[string]any)
	for env, key := range envMapping {
		if val, ok := l.lookup(env); ok {
			values[key] = val
		}
	}
	return values
}

// apply writes values onto cfg.
func apply(cfg *Config, values map[string]any, source string) error {
	for key, raw := range values {
		var err error
		switch key {
		case KeyPrompt:
			cfg.Prompt, err = toString(raw)
		case KeyListSize:
			cfg.ListSize, err = toInt(raw)
		case KeyWrapList:
			cfg.WrapList, err = toBool(raw)
		case KeyStopOnEntry:
			cfg.StopOnEntry, err = toBool(raw)
		case KeyBreakOnError:
			cfg.BreakOnError, err = toBool(raw)
		case KeyLogLevel:
			cfg.LogLevel, err = toString(raw)
		case KeyWatchSources:
			cfg.WatchSources, err = toBool(raw)
		case KeyTimeout:
			cfg.Timeout, err = toDuration(raw)
		case KeyUnsafeLibraries:
			cfg.UnsafeLibraries, err = toBool(raw)
		default:
			err = ErrUnknownSetting
		}
		if err != nil {
			return &SettingError{Key: key, Source: source, Err: err}
		}
	}
	return nil
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", ErrTypeMismatch, v)
	}
	return s, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case uint64:
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%w: want integer, got %q", ErrTypeMismatch, x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: want integer, got %T", ErrTypeMismatch, v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
		return false, fmt.Errorf("%w: want boolean, got %q", ErrTypeMismatch, x)
	}
	return false, fmt.Errorf("%w: want boolean, got %T", ErrTypeMismatch, v)
}

// toDuration accepts duration strings ("1.5s") and whole seconds.
func toDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case string:
		if n, err := strconv.Atoi(x); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		d, err := time.ParseDuration(x)
		if err != nil {
			return 0, fmt.Errorf("%w: want duration, got %q", ErrTypeMismatch, x)
		}
		return d, nil
	case int, int64, uint64:
		n, err := toInt(x)
		return time.Duration(n) * time.Second, err
	}
	return 0, fmt.Errorf("%w: want duration, got %T", ErrTypeMismatch, v)
}
