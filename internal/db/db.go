// Package db provides the relational side of sheetsync: an embedded SQLite
// database holding one table per synced sheet.
//
// Two pure-Go drivers are supported and selected by name:
//   - "sqlite3": ncruces/go-sqlite3 (WASM build of SQLite, the default)
//   - "sqlite":  modernc.org/sqlite (transpiled SQLite)
//
// Synced tables share a fixed shape: an integer "id" primary key that is
// always supplied by the caller (never generated), followed by nullable TEXT
// columns named by spreadsheet column labels (A, B, ... AA, ...).
//
// Workflow:
//  1. The schema reconciler creates the table and adds missing columns
//  2. The row reconciler replaces rows 1..n and deletes anything above n
//  3. The grid reconciler reads every row back in id order
//
// All methods come in pairs: a convenience form using context.Background
// and a Context form.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	_ "modernc.org/sqlite"
)

const (
	// DriverNcruces is the database/sql name registered by ncruces/go-sqlite3.
	DriverNcruces = "sqlite3"
	// DriverModernc is the database/sql name registered by modernc.org/sqlite.
	DriverModernc = "sqlite"

	// IDColumn is the caller-assigned identity column of every synced table.
	IDColumn = "id"

	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

// ErrUnknownDriver is returned by OpenDriver for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown sqlite driver")

// DB wraps the SQLite connection pool.
type DB struct {
	conn   *sql.DB
	path   string
	driver string
}

// Open opens (creating if needed) the database at path with the default driver.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	store, err := db.Open("sheetsync.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(path string) (*DB, error) {
	return OpenDriver(DriverNcruces, path)
}

// OpenDriver opens the database at path using the named driver.
func OpenDriver(driver, path string) (*DB, error) {
	switch driver {
	case "", DriverNcruces:
		driver = DriverNcruces
	case DriverModernc:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	memory := path == MemoryPath || path == ""
	if memory {
		path = MemoryPath
	} else {
		// Ensure parent directory exists
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Both drivers accept _pragma in file: URIs and apply it per connection.
	connStr := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	conn, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if memory {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	db := &DB{
		conn:   conn,
		path:   path,
		driver: driver,
	}

	if !memory {
		// Enable WAL mode for concurrent reads
		if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if db.path != MemoryPath {
		if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
		}
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// quoteIdent quotes a table or column name for SQLite.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
