// Package sheet is the spreadsheet side of sheetsync: an .xlsx workbook on
// disk, read and written with excelize.
//
// Every operation opens the file, does its work and closes it again, so edits
// made by other programs between passes are always seen. Writes go to a temp
// file in the same directory that is renamed over the workbook.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
)

// DefaultSheet is the sheet name excelize gives a new workbook.
const DefaultSheet = "Sheet1"

// Workbook is a spreadsheet collaborator backed by a single .xlsx file.
type Workbook struct {
	path string
	mu   sync.Mutex
}

// Open returns a Workbook for path. The file need not exist yet; it is created
// on the first write.
func Open(path string) (*Workbook, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
	default:
		return nil, fmt.Errorf("unsupported workbook extension %q", filepath.Ext(path))
	}
	return &Workbook{path: path}, nil
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	return w.path
}

// TempPath returns the file written before each save is renamed into place.
func (w *Workbook) TempPath() string {
	ext := filepath.Ext(w.path)
	dir, base := filepath.Split(strings.TrimSuffix(w.path, ext))
	return filepath.Join(dir, "."+base+".sheetsync-tmp"+ext)
}

// ReadGrid returns the used cells of sheetRef. An empty sheetRef means the
// first sheet. A missing workbook or sheet reads as an empty grid.
//
// Trailing blank cells of each row and trailing blank rows are not returned.
func (w *Workbook) ReadGrid(ctx context.Context, sheetRef string) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return grid.Grid{}, nil
		}
		return nil, fmt.Errorf("failed to open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	name, ok := resolveSheet(f, sheetRef)
	if !ok {
		return grid.Grid{}, nil
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	return trimTrailing(rows), nil
}

// WriteRange writes g with its first cell at topLeft (e.g. "A1"), creating the
// workbook and sheet if they do not exist.
func (w *Workbook) WriteRange(ctx context.Context, sheetRef, topLeft string, g grid.Grid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	col, row, err := excelize.CellNameToCoordinates(topLeft)
	if err != nil {
		return fmt.Errorf("invalid top-left cell %q: %w", topLeft, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, name, err := w.openForWrite(sheetRef)
	if err != nil {
		return err
	}
	defer f.Close()

	for i, cells := range g {
		cell, err := excelize.CoordinatesToCellName(col, row+i)
		if err != nil {
			return fmt.Errorf("row %d out of range: %w", i+1, err)
		}
		values := make([]any, len(cells))
		for j, v := range cells {
			if v != "" {
				values[j] = v
			}
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", row+i, name, err)
		}
	}

	return w.save(f)
}

// Clear removes every row of sheetRef. Clearing a missing workbook or sheet
// is a no-op.
func (w *Workbook) Clear(ctx context.Context, sheetRef string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open workbook %s: %w", w.path, err)
	}
	defer f.Close()

	name, ok := resolveSheet(f, sheetRef)
	if !ok {
		return nil
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil
	}
	// Bottom-up so no row is shifted before it is removed.
	for r := len(rows); r >= 1; r-- {
		if err := f.RemoveRow(name, r); err != nil {
			return fmt.Errorf("failed to clear row %d of %s: %w", r, name, err)
		}
	}
	return w.save(f)
}

// Sheets lists the workbook's sheet names. A missing workbook has none.
func (w *Workbook) Sheets(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open workbook %s: %w", w.path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (w *Workbook) openForWrite(sheetRef string) (*excelize.File, string, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("failed to open workbook %s: %w", w.path, err)
		}
		f = excelize.NewFile()
		if sheetRef != "" && sheetRef != DefaultSheet {
			if err := f.SetSheetName(DefaultSheet, sheetRef); err != nil {
				_ = f.Close()
				return nil, "", fmt.Errorf("failed to name sheet %s: %w", sheetRef, err)
			}
		}
	}

	name, ok := resolveSheet(f, sheetRef)
	if !ok {
		if _, err := f.NewSheet(sheetRef); err != nil {
			_ = f.Close()
			return nil, "", fmt.Errorf("failed to create sheet %s: %w", sheetRef, err)
		}
		name = sheetRef
	}
	return f, name, nil
}

func (w *Workbook) save(f *excelize.File) error {
	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create workbook directory: %w", err)
		}
	}
	tmp := w.TempPath()
	if err := f.SaveAs(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace workbook: %w", err)
	}
	return nil
}

// resolveSheet maps a sheet reference to a sheet name. "" selects the first
// sheet; names match case-insensitively like spreadsheet applications do.
func resolveSheet(f *excelize.File, sheetRef string) (string, bool) {
	sheets := f.GetSheetList()
	if sheetRef == "" {
		if len(sheets) == 0 {
			return "", false
		}
		return sheets[0], true
	}
	for _, s := range sheets {
		if strings.EqualFold(s, sheetRef) {
			return s, true
		}
	}
	return "", false
}

func trimTrailing(rows [][]string) grid.Grid {
	end := len(rows)
	for end > 0 && isBlankRow(rows[end-1]) {
		end--
	}
	g := make(grid.Grid, end)
	for i := 0; i < end; i++ {
		row := rows[i]
		n := len(row)
		for n > 0 && row[n-1] == "" {
			n--
		}
		g[i] = row[:n:n]
	}
	return g
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
