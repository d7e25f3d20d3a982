package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrConfigExists is returned by WriteFile when the target exists and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// fileConfig is the on-disk TOML layout. Durations are written in
// time.ParseDuration syntax so the file stays readable.
type fileConfig struct {
	Table    string `toml:"table"`
	Workbook struct {
		Path  string `toml:"path"`
		Sheet string `toml:"sheet"`
	} `toml:"workbook"`
	Database struct {
		Driver string `toml:"driver"`
		Path   string `toml:"path"`
	} `toml:"database"`
	State struct {
		Path string `toml:"path"`
	} `toml:"state"`
	Sync struct {
		EchoWindow string `toml:"echo_window"`
	} `toml:"sync"`
	Daemon struct {
		PushInterval string `toml:"push_interval"`
		Debounce     string `toml:"debounce"`
	} `toml:"daemon"`
	Server struct {
		Port int `toml:"port"`
	} `toml:"server"`
	Log struct {
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
		Compress   bool   `toml:"compress"`
	} `toml:"log"`
}

const fileHeader = `# sheetsync configuration
#
# Every key can be overridden with an environment variable, e.g.
# SHEETSYNC_TABLE or SHEETSYNC_DATABASE_PATH, and by command-line flags.

`

// Encode renders c as TOML.
func (c *Config) Encode() ([]byte, error) {
	var f fileConfig
	f.Table = c.Table
	f.Workbook.Path = c.Workbook.Path
	f.Workbook.Sheet = c.Workbook.Sheet
	f.Database.Driver = c.Database.Driver
	f.Database.Path = c.Database.Path
	f.State.Path = c.State.Path
	f.Sync.EchoWindow = c.Sync.EchoWindow.String()
	f.Daemon.PushInterval = c.Daemon.PushInterval.String()
	f.Daemon.Debounce = c.Daemon.Debounce.String()
	f.Server.Port = c.Server.Port
	f.Log.File = c.Log.File
	f.Log.MaxSizeMB = c.Log.MaxSizeMB
	f.Log.MaxBackups = c.Log.MaxBackups
	f.Log.MaxAgeDays = c.Log.MaxAgeDays
	f.Log.Compress = c.Log.Compress

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes c to path as TOML. An existing file is only replaced
// when force is set.
func (c *Config) WriteFile(path string, force bool) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	data, err := c.Encode()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
