package bisync

import (
	"context"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
)

// ProjectTable reads every row of table in id order and returns it as a
// rectangular grid without the id column. NULL becomes an empty cell. The
// returned columns are the table's non-id columns in schema order.
func ProjectTable(ctx context.Context, t Table, table string) (grid.Grid, []string, error) {
	columns, rows, err := t.SelectAllOrderByID(ctx, table)
	if err != nil {
		return nil, nil, external(ServiceTable, "select rows", err)
	}

	g := make(grid.Grid, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j := range columns {
			if j < len(row) {
				cells[j] = grid.FromNullable(row[j])
			}
		}
		g[i] = cells
	}
	return g, columns, nil
}

// WriteSheet clears sheetRef and writes g at A1. It returns the written range,
// or "" when there was nothing to write and the sheet was only cleared.
func WriteSheet(ctx context.Context, s Spreadsheet, sheetRef string, g grid.Grid, columns int) (string, error) {
	if err := s.Clear(ctx, sheetRef); err != nil {
		return "", external(ServiceSpreadsheet, "clear", err)
	}
	if len(g) == 0 || columns == 0 {
		return "", nil
	}
	if err := s.WriteRange(ctx, sheetRef, "A1", g); err != nil {
		return "", external(ServiceSpreadsheet, "write range", err)
	}
	return grid.RangeRef(len(g), columns), nil
}
