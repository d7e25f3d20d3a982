package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidColumnIndex is returned for column indexes below 1.
	ErrInvalidColumnIndex = errors.New("column index must be positive")

	// ErrInvalidColumnLabel is returned for labels that are empty, contain
	// anything other than A-Z, or overflow int.
	ErrInvalidColumnLabel = errors.New("invalid column label")
)

// ColumnLabel returns the spreadsheet letter label for a 1-based column index:
// 1 -> A, 26 -> Z, 27 -> AA, 703 -> AAA.
func ColumnLabel(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidColumnIndex, n)
	}

	var letters []byte
	for n > 0 {
		rem := (n - 1) % 26
		letters = append(letters, byte('A'+rem))
		n = (n - 1) / 26
	}

	// Least significant letter was produced first.
	for i, j := 0, len(letters)-1; i < j; i, j = i+1, j-1 {
		letters[i], letters[j] = letters[j], letters[i]
	}
	return string(letters), nil
}

// MustColumnLabel is ColumnLabel for indexes known to be positive.
// It panics if n <= 0.
func MustColumnLabel(n int) string {
	label, err := ColumnLabel(n)
	if err != nil {
		panic(err)
	}
	return label
}

// ColumnLabels returns the labels for columns 1..count in order.
func ColumnLabels(count int) []string {
	labels := make([]string, 0, max(count, 0))
	for i := 1; i <= count; i++ {
		labels = append(labels, MustColumnLabel(i))
	}
	return labels
}

// ColumnIndex is the inverse of ColumnLabel. Lowercase letters are accepted.
func ColumnIndex(label string) (int, error) {
	if label == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidColumnLabel)
	}

	n := 0
	for _, r := range strings.ToUpper(label) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidColumnLabel, label)
		}
		if n > (math.MaxInt-26)/26 {
			return 0, fmt.Errorf("%w: %q overflows", ErrInvalidColumnLabel, label)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// IsColumnLabel reports whether s is a well-formed column label.
func IsColumnLabel(s string) bool {
	_, err := ColumnIndex(s)
	return err == nil
}

// CellRef returns the A1-style reference for a 1-based column and row.
func CellRef(col, row int) string {
	return fmt.Sprintf("%s%d", MustColumnLabel(col), row)
}

// RangeRef returns the A1-style range covering rows x cols from A1,
// e.g. RangeRef(10, 6) == "A1:F10". It returns "" for an empty block.
func RangeRef(rows, cols int) string {
	if rows <= 0 || cols <= 0 {
		return ""
	}
	return "A1:" + CellRef(cols, rows)
}
