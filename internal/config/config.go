// Package config loads sheetsync settings from defaults, a config file,
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Mschirtzinger/sheetsync/internal/db"
)

const (
	// FileName is the config file base name searched for without extension.
	FileName = "sheetsync"

	// DefaultFile is what init writes.
	DefaultFile = "sheetsync.toml"

	// EnvPrefix prefixes every environment override, e.g. SHEETSYNC_TABLE.
	EnvPrefix = "SHEETSYNC"
)

// Config keys.
const (
	KeyTable          = "table"
	KeyWorkbookPath   = "workbook.path"
	KeyWorkbookSheet  = "workbook.sheet"
	KeyDatabaseDriver = "database.driver"
	KeyDatabasePath   = "database.path"
	KeyStatePath      = "state.path"
	KeyEchoWindow     = "sync.echo_window"
	KeyPushInterval   = "daemon.push_interval"
	KeyDebounce       = "daemon.debounce"
	KeyServerPort     = "server.port"
	KeyLogFile        = "log.file"
	KeyLogMaxSizeMB   = "log.max_size_mb"
	KeyLogMaxBackups  = "log.max_backups"
	KeyLogMaxAgeDays  = "log.max_age_days"
	KeyLogCompress    = "log.compress"
)

// Config is the resolved sheetsync configuration.
type Config struct {
	Table    string         `mapstructure:"table"`
	Workbook WorkbookConfig `mapstructure:"workbook"`
	Database DatabaseConfig `mapstructure:"database"`
	State    StateConfig    `mapstructure:"state"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type WorkbookConfig struct {
	Path string `mapstructure:"path"`
	// Sheet names the worksheet. Empty selects the first sheet.
	Sheet string `mapstructure:"sheet"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type StateConfig struct {
	Path string `mapstructure:"path"`
}

type SyncConfig struct {
	EchoWindow time.Duration `mapstructure:"echo_window"`
}

type DaemonConfig struct {
	PushInterval time.Duration `mapstructure:"push_interval"`
	Debounce     time.Duration `mapstructure:"debounce"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig selects where component loggers write. An empty File means
// stderr; otherwise the file is rotated by size.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Table: "Sync",
		Workbook: WorkbookConfig{
			Path: "sheet.xlsx",
		},
		Database: DatabaseConfig{
			Driver: db.DriverNcruces,
			Path:   "sheetsync.db",
		},
		State: StateConfig{Path: "sync_state.json"},
		Sync:  SyncConfig{EchoWindow: 5 * time.Second},
		Daemon: DaemonConfig{
			PushInterval: 30 * time.Second,
			Debounce:     500 * time.Millisecond,
		},
		Server: ServerConfig{Port: 8080},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"table":    KeyTable,
	"workbook": KeyWorkbookPath,
	"sheet":    KeyWorkbookSheet,
	"driver":   KeyDatabaseDriver,
	"db":       KeyDatabasePath,
	"state":    KeyStatePath,
	"port":     KeyServerPort,
	"log-file": KeyLogFile,
}

// Load resolves the configuration. If file is empty, sheetsync.{toml,yaml,json}
// is searched for in the working directory and $HOME/.config/sheetsync and
// a missing file is not an error. flags may be nil; only flags the user
// actually set override lower layers.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sheetsync"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by earlier deployments.
	if err := v.BindEnv(KeyWorkbookPath, EnvPrefix+"_WORKBOOK_PATH", "SPREADSHEET_ID"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}
	if err := v.BindEnv(KeyDatabasePath, EnvPrefix+"_DATABASE_PATH", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Database.Path = trimDatabaseURL(cfg.Database.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault(KeyTable, d.Table)
	v.SetDefault(KeyWorkbookPath, d.Workbook.Path)
	v.SetDefault(KeyWorkbookSheet, d.Workbook.Sheet)
	v.SetDefault(KeyDatabaseDriver, d.Database.Driver)
	v.SetDefault(KeyDatabasePath, d.Database.Path)
	v.SetDefault(KeyStatePath, d.State.Path)
	v.SetDefault(KeyEchoWindow, d.Sync.EchoWindow)
	v.SetDefault(KeyPushInterval, d.Daemon.PushInterval)
	v.SetDefault(KeyDebounce, d.Daemon.Debounce)
	v.SetDefault(KeyServerPort, d.Server.Port)
	v.SetDefault(KeyLogFile, d.Log.File)
	v.SetDefault(KeyLogMaxSizeMB, d.Log.MaxSizeMB)
	v.SetDefault(KeyLogMaxBackups, d.Log.MaxBackups)
	v.SetDefault(KeyLogMaxAgeDays, d.Log.MaxAgeDays)
	v.SetDefault(KeyLogCompress, d.Log.Compress)
}

// trimDatabaseURL accepts sqlite:// URLs in place of a plain path.
func trimDatabaseURL(s string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimPrefix(s, prefix)
		}
	}
	return s
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Table == "" {
		errs = append(errs, errors.New("table must not be empty"))
	} else if !identRe.MatchString(c.Table) {
		errs = append(errs, fmt.Errorf("table %q is not a valid identifier", c.Table))
	}
	if c.Workbook.Path == "" {
		errs = append(errs, errors.New("workbook.path must not be empty"))
	}
	switch c.Database.Driver {
	case db.DriverNcruces, db.DriverModernc:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of %s, %s",
			c.Database.Driver, db.DriverNcruces, db.DriverModernc))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}
	if c.State.Path == "" {
		errs = append(errs, errors.New("state.path must not be empty"))
	}
	if c.Sync.EchoWindow < 0 {
		errs = append(errs, errors.New("sync.echo_window must not be negative"))
	}
	if c.Daemon.PushInterval <= 0 {
		errs = append(errs, errors.New("daemon.push_interval must be positive"))
	}
	if c.Daemon.Debounce <= 0 {
		errs = append(errs, errors.New("daemon.debounce must be positive"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
