// Package grid models the spreadsheet side of a sheetsync pass.
//
// # Overview
//
// A Grid is an ordered sequence of rows, each an ordered sequence of cell
// strings. Rows may differ in length; the grid's width is the longest row.
// A grid is produced in full by the spreadsheet collaborator and is not
// modified for the rest of the pass.
//
// # Column Labels
//
// Columns are named with spreadsheet letters using bijective base-26
// numeration (A=1 ... Z=26, AA=27 ...). The same labels name the text columns
// of the relational table:
//
//	grid.ColumnLabels(3)   // [A B C]
//	grid.MustColumnLabel(27) // AA
//
// # Fingerprints
//
// Fingerprint returns a hex MD5 digest of the grid's canonical JSON form.
// Row order and cell order are significant. It is used for change
// detection only.
//
// # Null Convention
//
// Grid cells are always strings; table cells are nullable text. An empty
// cell is stored as NULL and a NULL is read back as an empty cell:
//
//	grid.ToNullable("")                   // sql.NullString{Valid: false}
//	grid.FromNullable(sql.NullString{})   // ""
package grid
