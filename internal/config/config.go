// Package config loads brewnotify settings and the package ignore list.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/blackwell-systems/brewnotify/internal/notify"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "brewnotify"

// EnvPrefix prefixes environment overrides, e.g. BREWNOTIFY_SCHEDULE_INTERVAL.
const EnvPrefix = "BREWNOTIFY_"

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// DateFormat controls how the default Brewfile export name is dated.
type DateFormat string

const (
	DateNumeric     DateFormat = "numeric"
	DateAbbreviated DateFormat = "abbreviated"
	DateLong        DateFormat = "long"
	DateComplete    DateFormat = "complete"
	DateOmitted     DateFormat = "omitted"
)

// Layout returns the time layout for the format. Omitted has no layout.
func (f DateFormat) Layout() string {
	switch f {
	case DateNumeric:
		return "1/2/2006"
	case DateAbbreviated:
		return "Jan 2, 2006"
	case DateLong:
		return "January 2, 2006"
	case DateComplete:
		return "Monday, January 2, 2006"
	}
	return ""
}

func (f DateFormat) valid() bool {
	return f == DateOmitted || f.Layout() != ""
}

type BrewConfig struct {
	Path string `koanf:"path"`
}

type NotificationsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Style   string `koanf:"style"`
}

type ScheduleConfig struct {
	Interval   time.Duration `koanf:"interval"`
	Tolerance  time.Duration `koanf:"tolerance"`
	RunAtStart bool          `koanf:"run_at_start"`
}

type BackupConfig struct {
	DateFormat DateFormat `koanf:"date_format"`
	Dir        string     `koanf:"dir"`
}

type HistoryConfig struct {
	Retention time.Duration `koanf:"retention"`
}

// Config is the merged brewnotify configuration.
type Config struct {
	Brew          BrewConfig          `koanf:"brew"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Schedule      ScheduleConfig      `koanf:"schedule"`
	Backup        BackupConfig        `koanf:"backup"`
	History       HistoryConfig       `koanf:"history"`

	// File is the config file that was loaded, empty when none existed.
	File string `koanf:"-"`
}

// NotificationStyle returns the parsed notifications.style value.
func (c *Config) NotificationStyle() notify.Style {
	s, err := notify.ParseStyle(c.Notifications.Style)
	if err != nil {
		return notify.StyleBadge
	}
	return s
}

func defaults() map[string]any {
	return map[string]any{
		"brew.path":             "",
		"notifications.enabled": false,
		"notifications.style":   string(notify.StyleBadge),
		"schedule.interval":     "1h",
		"schedule.tolerance":    "10m",
		"schedule.run_at_start": true,
		"backup.date_format":    string(DateNumeric),
		"backup.dir":            "",
		"history.retention":     "720h",
	}
}

// Dir returns the brewnotify config directory under XDG_CONFIG_HOME.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// StateDir returns the brewnotify state directory under XDG_STATE_HOME.
// The database, PID file and logs live here.
func StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// DefaultFile returns the config file Load reads when no path is given:
// config.toml, or config.yaml if only that exists.
func DefaultFile() string {
	dir := Dir()
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "config.toml")
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	}
	return toml.Parser()
}

// Load merges defaults, the config file at path (DefaultFile when empty)
// and BREWNOTIFY_* environment variables. A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path == "" {
		path = DefaultFile()
	}
	loaded := ""
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		loaded = path
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	// 3. Environment. The first underscore separates section from key so
	// BREWNOTIFY_BACKUP_DATE_FORMAT maps to backup.date_format.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.File = loaded

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := notify.ParseStyle(c.Notifications.Style); err != nil {
		return fmt.Errorf("%w: notifications.style: %w", ErrInvalidConfig, err)
	}
	if c.Schedule.Interval <= 0 {
		return fmt.Errorf("%w: schedule.interval must be positive, got %s", ErrInvalidConfig, c.Schedule.Interval)
	}
	if c.Schedule.Tolerance < 0 {
		return fmt.Errorf("%w: schedule.tolerance must not be negative, got %s", ErrInvalidConfig, c.Schedule.Tolerance)
	}
	if !c.Backup.DateFormat.valid() {
		return fmt.Errorf("%w: backup.date_format %q (want numeric, abbreviated, long, complete, or omitted)", ErrInvalidConfig, c.Backup.DateFormat)
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("%w: history.retention must not be negative, got %s", ErrInvalidConfig, c.History.Retention)
	}
	return nil
}
