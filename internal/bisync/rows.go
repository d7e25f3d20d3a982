package bisync

import (
	"context"
	"database/sql"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
)

// RowReport describes what ApplyGrid wrote.
type RowReport struct {
	Upserted int
	Deleted  int64
}

// ApplyGrid makes table hold exactly g's rows. Row i (0-based) is written as
// id i+1 with every labeled column set, padding short rows with empty cells.
// Empty cells are stored as NULL. Rows with id > len(g) are deleted first.
//
// Tables that implement RowReplacer apply the whole grid in one call.
func ApplyGrid(ctx context.Context, t Table, table string, labels []string, g grid.Grid) (RowReport, error) {
	rows := make([][]sql.NullString, len(g))
	for i, row := range g {
		padded := grid.PadRow(row, len(labels))
		values := make([]sql.NullString, len(labels))
		for j, cell := range padded {
			values[j] = grid.ToNullable(cell)
		}
		rows[i] = values
	}

	if r, ok := t.(RowReplacer); ok {
		deleted, err := r.ReplaceRows(ctx, table, labels, rows)
		if err != nil {
			return RowReport{}, external(ServiceTable, "replace rows", err)
		}
		return RowReport{Upserted: len(rows), Deleted: deleted}, nil
	}

	// Threshold is the incoming row count, so no row about to be written is deleted.
	deleted, err := t.DeleteWhereIDGreaterThan(ctx, table, len(g))
	if err != nil {
		return RowReport{}, external(ServiceTable, "delete rows", err)
	}

	report := RowReport{Deleted: deleted}
	for i, values := range rows {
		byColumn := make(map[string]sql.NullString, len(labels))
		for j, label := range labels {
			byColumn[label] = values[j]
		}
		if err := t.UpsertRow(ctx, table, i+1, byColumn); err != nil {
			return report, external(ServiceTable, "upsert row", err)
		}
		report.Upserted++
	}
	return report, nil
}
