package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	tmpDir := t.TempDir()
	return filepath.Join(tmpDir, "test.db")
}

// setupTestDB opens a file database with the given driver and closes it on cleanup.
func setupTestDB(t *testing.T, driver string) *DB {
	t.Helper()
	db, err := OpenDriver(driver, testDBPath(t))
	if err != nil {
		t.Fatalf("OpenDriver(%q) failed: %v", driver, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// forEachDriver runs fn once per supported driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, db *DB)) {
	for _, driver := range []string{DriverNcruces, DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			fn(t, setupTestDB(t, driver))
		})
	}
}

func nv(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// TestOpen_Success tests successful database creation
func TestOpen_Success(t *testing.T) {
	path := testDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Driver() != DriverNcruces {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DriverNcruces)
	}

	var mode string
	if err := db.RawDB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

// TestOpen_UnknownDriver tests driver validation
func TestOpen_UnknownDriver(t *testing.T) {
	_, err := OpenDriver("mysql", testDBPath(t))
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("OpenDriver(mysql) error = %v, want ErrUnknownDriver", err)
	}
}

// TestOpen_Memory tests the in-memory database keeps state across calls
func TestOpen_Memory(t *testing.T) {
	db, err := OpenDriver(DriverModernc, MemoryPath)
	if err != nil {
		t.Fatalf("OpenDriver() failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CreateTable(ctx, "mem"); err != nil {
		t.Fatalf("CreateTable() failed: %v", err)
	}
	exists, err := db.TableExists(ctx, "mem")
	if err != nil || !exists {
		t.Errorf("TableExists() = %v, %v; want true", exists, err)
	}
}

// TestClose_Idempotent tests closing twice
func TestClose_Idempotent(t *testing.T) {
	db, err := Open(testDBPath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Sync7", `"Sync7"`},
		{`we"ird`, `"we""ird"`},
		{"select", `"select"`},
	}
	for _, tt := range tests {
		if got := quoteIdent(tt.in); got != tt.want {
			t.Errorf("quoteIdent(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
