package state

import (
	"fmt"
	"strings"
)

// Direction names which side was the source of a sync pass.
type Direction string

const (
	// SheetToTable copies the spreadsheet into the relational table.
	SheetToTable Direction = "sheet_to_table"
	// TableToSheet copies the relational table into the spreadsheet.
	TableToSheet Direction = "table_to_sheet"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	switch d {
	case SheetToTable:
		return TableToSheet
	case TableToSheet:
		return SheetToTable
	default:
		return ""
	}
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == SheetToTable || d == TableToSheet
}

func (d Direction) String() string {
	return string(d)
}

// ParseDirection accepts the canonical names, their hyphenated forms and the
// legacy sheets_to_mysql / mysql_to_sheets names written by older state files.
func ParseDirection(s string) (Direction, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch norm {
	case "sheet_to_table", "sheets_to_mysql", "sheet", "pull":
		return SheetToTable, nil
	case "table_to_sheet", "mysql_to_sheets", "table", "push":
		return TableToSheet, nil
	default:
		return "", fmt.Errorf("unknown sync direction %q", s)
	}
}
