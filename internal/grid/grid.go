package grid

import "database/sql"

// Grid is a ragged 2-D block of cell text as read from or written to a sheet.
type Grid [][]string

// Height returns the number of rows.
func (g Grid) Height() int {
	return len(g)
}

// Width returns the length of the longest row.
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// IsEmpty reports whether the grid has no rows.
func (g Grid) IsEmpty() bool {
	return len(g) == 0
}

// Rectangular returns a copy of the grid with every row padded on the right
// with empty cells up to width. Rows longer than width are truncated.
func (g Grid) Rectangular(width int) Grid {
	out := make(Grid, len(g))
	for i, row := range g {
		out[i] = PadRow(row, width)
	}
	return out
}

// PadRow returns a new row of exactly n cells: row's cells followed by
// empty strings. Cells beyond n are dropped.
func PadRow(row []string, n int) []string {
	if n < 0 {
		n = 0
	}
	padded := make([]string, n)
	copy(padded, row)
	return padded
}

// ToNullable maps a grid cell to a table value. An empty cell becomes NULL.
func ToNullable(cell string) sql.NullString {
	if cell == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: cell, Valid: true}
}

// FromNullable maps a table value to a grid cell. NULL becomes an empty cell.
func FromNullable(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}
