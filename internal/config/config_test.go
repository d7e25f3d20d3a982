package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
)

// isolate runs the test in an empty directory with an empty home so no
// stray config file or environment variable leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	for _, name := range []string{"SPREADSHEET_ID", "DATABASE_URL", "SHEETSYNC_TABLE", "SHEETSYNC_DATABASE_PATH", "SHEETSYNC_WORKBOOK_PATH"} {
		t.Setenv(name, "")
	}
	return dir
}

func sameSettings(t *testing.T, got, want *Config) {
	t.Helper()
	g, w := *got, *want
	g.File, w.File = "", ""
	if !reflect.DeepEqual(g, w) {
		t.Errorf("config mismatch\n got: %+v\nwant: %+v", g, w)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	sameSettings(t, cfg, Default())
	if cfg.File != "" {
		t.Errorf("expected no config file, got %s", cfg.File)
	}
}

func TestDefaultSheetIsFirst(t *testing.T) {
	dir := isolate(t)

	if got := Default().Workbook.Sheet; got != "" {
		t.Errorf("Default().Workbook.Sheet = %q, want \"\" (first sheet)", got)
	}

	path := filepath.Join(dir, DefaultFile)
	if err := Default().WriteFile(path, false); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Workbook.Sheet != "" {
		t.Errorf("Workbook.Sheet after round trip = %q, want \"\"", cfg.Workbook.Sheet)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := isolate(t)

	want := Default()
	want.Table = "orders"
	want.Workbook.Sheet = "Orders"
	want.Database.Driver = "sqlite"
	want.Sync.EchoWindow = 0
	want.Daemon.PushInterval = 2 * time.Minute
	want.Server.Port = 9090
	want.Log.File = filepath.Join(dir, "sheetsync.log")

	path := filepath.Join(dir, "conf", "custom.toml")
	if err := want.WriteFile(path, false); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	sameSettings(t, cfg, want)
	if cfg.File != path {
		t.Errorf("File = %s, want %s", cfg.File, path)
	}
}

func TestLoadSearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)

	yaml := "table: inventory\nworkbook:\n  path: stock.xlsx\ndaemon:\n  debounce: 2s\n"
	if err := os.WriteFile(filepath.Join(dir, "sheetsync.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Table != "inventory" || cfg.Workbook.Path != "stock.xlsx" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Daemon.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Daemon.Debounce)
	}
	if cfg.Workbook.Sheet != "" {
		t.Errorf("unset keys should keep defaults, got sheet %q", cfg.Workbook.Sheet)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "nope.toml"), nil); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("SHEETSYNC_TABLE", "orders")
	t.Setenv("SHEETSYNC_SYNC_ECHO_WINDOW", "10s")
	t.Setenv("SHEETSYNC_SERVER_PORT", "7000")
	t.Setenv("DATABASE_URL", "sqlite:///var/lib/sheetsync.db")
	t.Setenv("SPREADSHEET_ID", "shared/sheet.xlsx")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Table != "orders" {
		t.Errorf("Table = %q, want orders", cfg.Table)
	}
	if cfg.Sync.EchoWindow != 10*time.Second {
		t.Errorf("EchoWindow = %v, want 10s", cfg.Sync.EchoWindow)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Database.Path != "/var/lib/sheetsync.db" {
		t.Errorf("Database.Path = %q, want /var/lib/sheetsync.db", cfg.Database.Path)
	}
	if cfg.Workbook.Path != "shared/sheet.xlsx" {
		t.Errorf("Workbook.Path = %q, want shared/sheet.xlsx", cfg.Workbook.Path)
	}
}

func TestLoadPrefixedEnvBeatsAlias(t *testing.T) {
	isolate(t)
	t.Setenv("SHEETSYNC_DATABASE_PATH", "primary.db")
	t.Setenv("DATABASE_URL", "legacy.db")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Database.Path != "primary.db" {
		t.Errorf("Database.Path = %q, want primary.db", cfg.Database.Path)
	}
}

func TestLoadFlags(t *testing.T) {
	isolate(t)
	t.Setenv("SHEETSYNC_TABLE", "from_env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("table", "", "")
	fs.Int("port", 8080, "")
	fs.String("sheet", "", "")
	if err := fs.Parse([]string{"--table", "from_flag"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("", fs)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Table != "from_flag" {
		t.Errorf("Table = %q, want from_flag", cfg.Table)
	}
	if cfg.Workbook.Sheet != "" {
		t.Errorf("unset --sheet flag should not override, got %q", cfg.Workbook.Sheet)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty table", func(c *Config) { c.Table = "" }, "table must not be empty"},
		{"bad table", func(c *Config) { c.Table = "drop table;" }, "not a valid identifier"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"negative echo window", func(c *Config) { c.Sync.EchoWindow = -time.Second }, "echo_window"},
		{"zero echo window", func(c *Config) { c.Sync.EchoWindow = 0 }, ""},
		{"zero push interval", func(c *Config) { c.Daemon.PushInterval = 0 }, "push_interval"},
		{"zero debounce", func(c *Config) { c.Daemon.Debounce = 0 }, "debounce"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty workbook", func(c *Config) { c.Workbook.Path = "" }, "workbook.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteFileRefusesOverwrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, DefaultFile)

	if err := Default().WriteFile(path, false); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	err := Default().WriteFile(path, false)
	if !errors.Is(err, ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}

	cfg := Default()
	cfg.Table = "replaced"
	if err := cfg.WriteFile(path, true); err != nil {
		t.Fatalf("forced WriteFile() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `table = "replaced"`) {
		t.Errorf("expected replaced table in:\n%s", data)
	}
	if !strings.Contains(string(data), `echo_window = "5s"`) {
		t.Errorf("expected readable duration in:\n%s", data)
	}
}

func TestLogWriter(t *testing.T) {
	w := LogConfig{}.Writer()
	if err := w.Close(); err != nil {
		t.Errorf("stderr writer Close() = %v", err)
	}

	path := filepath.Join(t.TempDir(), "logs", "sheetsync.log")
	w = LogConfig{File: path, MaxSizeMB: 1}.Writer()
	if _, ok := w.(*lumberjack.Logger); !ok {
		t.Fatalf("expected *lumberjack.Logger, got %T", w)
	}

	logger := NewLogger(w, "sync")
	logger.Print("hello")
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "[sync] ") || !strings.Contains(string(data), "hello") {
		t.Errorf("unexpected log contents %q", data)
	}
}
