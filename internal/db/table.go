package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ColumnInfo describes one column as reported by PRAGMA table_info.
type ColumnInfo struct {
	Name       string
	Type       string
	NotNull    bool
	Default    sql.NullString
	PrimaryKey int
}

// TableExists reports whether a table with the given name exists.
func (db *DB) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if err := db.conn.QueryRowContext(ctx, query, table).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return count > 0, nil
}

// TableInfo returns the table's columns in declaration order.
func (db *DB) TableInfo(ctx context.Context, table string) ([]ColumnInfo, error) {
	query := `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`
	rows, err := db.conn.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var notNull int
		if err := rows.Scan(&c.Name, &c.Type, &notNull, &c.Default, &c.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		c.NotNull = notNull != 0
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", table, err)
	}
	return cols, nil
}

// Columns returns the table's column names in declaration order, id included.
func (db *DB) Columns(ctx context.Context, table string) ([]string, error) {
	info, err := db.TableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(info))
	for i, c := range info {
		names[i] = c.Name
	}
	return names, nil
}

// CreateTable creates table with only the identity column.
//
// The column is declared INT rather than INTEGER so SQLite does not treat it
// as a rowid alias: ids are never generated.
func (db *DB) CreateTable(ctx context.Context, table string) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s INT NOT NULL PRIMARY KEY)`,
		quoteIdent(table), quoteIdent(IDColumn))
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// AddColumn adds a nullable TEXT column.
func (db *DB) AddColumn(ctx context.Context, table, column string) error {
	query := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s TEXT`, quoteIdent(table), quoteIdent(column))
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to add column %s to %s: %w", column, table, err)
	}
	return nil
}

var autoIncrementRe = regexp.MustCompile(`(?i)\bAUTOINCREMENT\b`)

// HasAutoIncrement reports whether the identity column would be generated by
// SQLite: declared AUTOINCREMENT, or an INTEGER PRIMARY KEY rowid alias.
func (db *DB) HasAutoIncrement(ctx context.Context, table string) (bool, error) {
	var ddl sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&ddl)
	if err != nil {
		return false, fmt.Errorf("failed to read definition of %s: %w", table, err)
	}
	if autoIncrementRe.MatchString(ddl.String) {
		return true, nil
	}

	info, err := db.TableInfo(ctx, table)
	if err != nil {
		return false, err
	}
	pkCols := 0
	rowidAlias := false
	for _, c := range info {
		if c.PrimaryKey > 0 {
			pkCols++
			if c.Name == IDColumn && strings.EqualFold(c.Type, "INTEGER") {
				rowidAlias = true
			}
		}
	}
	return pkCols == 1 && rowidAlias, nil
}

// DropAutoIncrement removes any generation behaviour from the identity column.
// SQLite cannot alter a column in place, so the table is rebuilt inside a
// transaction with the id redeclared as INT. It reports whether a rebuild
// happened; a second call is a no-op.
func (db *DB) DropAutoIncrement(ctx context.Context, table string) (bool, error) {
	has, err := db.HasAutoIncrement(ctx, table)
	if err != nil || !has {
		return false, err
	}

	info, err := db.TableInfo(ctx, table)
	if err != nil {
		return false, err
	}

	defs := []string{fmt.Sprintf("%s INT NOT NULL PRIMARY KEY", quoteIdent(IDColumn))}
	names := []string{quoteIdent(IDColumn)}
	for _, c := range info {
		if c.Name == IDColumn {
			continue
		}
		def := quoteIdent(c.Name)
		if c.Type != "" {
			def += " " + c.Type
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		if c.Default.Valid {
			def += " DEFAULT " + c.Default.String
		}
		defs = append(defs, def)
		names = append(names, quoteIdent(c.Name))
	}

	tmp := table + "__sheetsync_rebuild"
	cols := strings.Join(names, ", ")

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(tmp)),
		fmt.Sprintf(`CREATE TABLE %s (%s)`, quoteIdent(tmp), strings.Join(defs, ", ")),
		fmt.Sprintf(`INSERT INTO %s (%s) SELECT %s FROM %s`, quoteIdent(tmp), cols, cols, quoteIdent(table)),
		fmt.Sprintf(`DROP TABLE %s`, quoteIdent(table)),
		fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, quoteIdent(tmp), quoteIdent(table)),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("failed to rebuild %s without autoincrement: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// DeleteWhereIDGreaterThan deletes every row with id > n and returns how many
// rows were removed.
func (db *DB) DeleteWhereIDGreaterThan(ctx context.Context, table string, n int) (int64, error) {
	return deleteAbove(ctx, db.conn, table, n)
}

// UpsertRow inserts row id or fully overwrites its non-identity columns.
// Invalid NullStrings are stored as NULL.
func (db *DB) UpsertRow(ctx context.Context, table string, id int, values map[string]sql.NullString) error {
	return upsertRow(ctx, db.conn, table, id, values)
}

// ReplaceRows makes the table hold exactly rows, keyed 1..len(rows), in a
// single transaction. Every row must have len(columns) values.
func (db *DB) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]sql.NullString) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Deletion uses the incoming row count so no row about to be written is removed.
	deleted, err := deleteAbove(ctx, tx, table, len(rows))
	if err != nil {
		return 0, err
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("row %d has %d values for %d columns", i+1, len(row), len(columns))
		}
		values := make(map[string]sql.NullString, len(columns))
		for j, col := range columns {
			values[col] = row[j]
		}
		if err := upsertRow(ctx, tx, table, i+1, values); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return deleted, nil
}

// SelectAllOrderByID returns the non-identity column names in declaration
// order and every row's values for them, ordered by ascending id.
func (db *DB) SelectAllOrderByID(ctx context.Context, table string) ([]string, [][]sql.NullString, error) {
	all, err := db.Columns(ctx, table)
	if err != nil {
		return nil, nil, err
	}

	var columns []string
	for _, c := range all {
		if c != IDColumn {
			columns = append(columns, c)
		}
	}
	if len(columns) == 0 {
		// Nothing to project, but the row count still matters.
		count, err := db.GetRowCountContext(ctx, table)
		if err != nil {
			return nil, nil, err
		}
		return nil, make([][]sql.NullString, count), nil
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s ASC`,
		strings.Join(quoted, ", "), quoteIdent(table), quoteIdent(IDColumn))

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select rows from %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]sql.NullString
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row of %s: %w", table, err)
		}
		row := make([]sql.NullString, len(columns))
		for i, v := range raw {
			row[i] = toNullString(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate rows of %s: %w", table, err)
	}
	return columns, out, nil
}

// GetRowCount returns the number of rows in table.
func (db *DB) GetRowCount(table string) (int, error) {
	return db.GetRowCountContext(context.Background(), table)
}

// GetRowCountContext returns the number of rows in table with context support.
func (db *DB) GetRowCountContext(ctx context.Context, table string) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(table))
	if err := db.conn.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}
	return count, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func deleteAbove(ctx context.Context, ex execer, table string, n int) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s > ?`, quoteIdent(table), quoteIdent(IDColumn))
	res, err := ex.ExecContext(ctx, query, n)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows above %d from %s: %w", n, table, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

func upsertRow(ctx context.Context, ex execer, table string, id int, values map[string]sql.NullString) error {
	columns := make([]string, 0, len(values))
	for c := range values {
		if c != IDColumn {
			columns = append(columns, c)
		}
	}
	sort.Strings(columns)

	names := []string{quoteIdent(IDColumn)}
	placeholders := []string{"?"}
	args := []any{id}
	sets := make([]string, 0, len(columns))
	for _, c := range columns {
		q := quoteIdent(c)
		names = append(names, q)
		placeholders = append(placeholders, "?")
		args = append(args, values[c])
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", q, q))
	}

	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) %s`,
		quoteIdent(table),
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
		quoteIdent(IDColumn),
		conflict,
	)
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert row %d of %s: %w", id, table, err)
	}
	return nil
}
