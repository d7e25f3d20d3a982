package bisync

import (
	"context"
	"database/sql"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// Spreadsheet is the sheet side of a sync.
//
// sheetRef names a sheet within the spreadsheet; "" selects the first sheet.
type Spreadsheet interface {
	// ReadGrid returns the sheet's used cells. A missing sheet reads as an
	// empty grid.
	ReadGrid(ctx context.Context, sheetRef string) (grid.Grid, error)

	// WriteRange writes g with its first cell at topLeft ("A1").
	WriteRange(ctx context.Context, sheetRef, topLeft string, g grid.Grid) error

	// Clear empties the sheet's entire used range.
	Clear(ctx context.Context, sheetRef string) error
}

// Table is the relational side of a sync.
//
// Every synced table has an integer "id" column that is always supplied by the
// caller, plus nullable text columns named by column labels.
type Table interface {
	// TableExists reports whether the table exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// Columns returns every column name, id included, in schema order.
	Columns(ctx context.Context, table string) ([]string, error)

	// CreateTable creates the table with only the id column.
	CreateTable(ctx context.Context, table string) error

	// AddColumn adds a nullable text column.
	AddColumn(ctx context.Context, table, column string) error

	// DropAutoIncrement removes id generation from the id column, reporting
	// whether anything changed. Calling it again is a no-op.
	DropAutoIncrement(ctx context.Context, table string) (bool, error)

	// DeleteWhereIDGreaterThan deletes rows with id > n.
	DeleteWhereIDGreaterThan(ctx context.Context, table string, n int) (int64, error)

	// UpsertRow inserts row id or overwrites every given column. Invalid
	// NullStrings are stored as NULL.
	UpsertRow(ctx context.Context, table string, id int, values map[string]sql.NullString) error

	// SelectAllOrderByID returns the non-id columns in schema order and every
	// row's values for them, by ascending id.
	SelectAllOrderByID(ctx context.Context, table string) ([]string, [][]sql.NullString, error)
}

// RowReplacer is implemented by tables that can apply a full row replacement
// atomically. ApplyGrid prefers it over row-at-a-time upserts.
type RowReplacer interface {
	ReplaceRows(ctx context.Context, table string, columns []string, rows [][]sql.NullString) (int64, error)
}

// Request names one sync pass.
type Request struct {
	Table     string          `json:"table"`
	SheetRef  string          `json:"sheet_ref,omitempty"`
	Direction state.Direction `json:"direction"`
}

// Runner runs sync passes. Engine is the implementation; drivers depend on
// this interface so they can be tested with fakes.
type Runner interface {
	// Run performs one pass and reports its outcome. It never panics and
	// never returns a raw error: failures are reported as StatusError.
	Run(ctx context.Context, req Request) Result
}
