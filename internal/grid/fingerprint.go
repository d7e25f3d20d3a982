package grid

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"hash"
	"unicode/utf8"
)

// Fingerprint returns a deterministic digest of the grid's content.
//
// The grid is serialized as a JSON array of arrays of strings, so row order,
// cell order and row lengths all affect the result. A nil grid and an empty
// grid have the same fingerprint, as do a nil row and an empty row.
//
// A cell that is not valid UTF-8 is written as x"<hex of its bytes>" instead
// of a JSON string, which would replace the invalid bytes with U+FFFD.
func Fingerprint(g Grid) string {
	h := md5.New()
	writeCanonical(h, g)
	return hex.EncodeToString(h.Sum(nil))
}

func writeCanonical(h hash.Hash, g Grid) {
	h.Write([]byte{'['})
	for i, row := range g {
		if i > 0 {
			h.Write([]byte{','})
		}
		h.Write([]byte{'['})
		for j, cell := range row {
			if j > 0 {
				h.Write([]byte{','})
			}
			if !utf8.ValidString(cell) {
				h.Write([]byte{'x', '"'})
				h.Write([]byte(hex.EncodeToString([]byte(cell))))
				h.Write([]byte{'"'})
				continue
			}
			// Marshalling a string cannot fail.
			quoted, _ := json.Marshal(cell)
			h.Write(quoted)
		}
		h.Write([]byte{']'})
	}
	h.Write([]byte{']'})
}
