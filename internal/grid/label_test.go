package grid

import (
	"errors"
	"testing"
)

func TestColumnLabel(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{16384, "XFD"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := ColumnLabel(tt.n)
			if err != nil {
				t.Fatalf("ColumnLabel(%d) failed: %v", tt.n, err)
			}
			if got != tt.want {
				t.Errorf("ColumnLabel(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestColumnLabelInvalid(t *testing.T) {
	for _, n := range []int{0, -1, -27} {
		_, err := ColumnLabel(n)
		if !errors.Is(err, ErrInvalidColumnIndex) {
			t.Errorf("ColumnLabel(%d) error = %v, want ErrInvalidColumnIndex", n, err)
		}
	}
}

func TestMustColumnLabelPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustColumnLabel(0) did not panic")
		}
	}()
	MustColumnLabel(0)
}

func TestColumnIndexRoundTrip(t *testing.T) {
	for n := 1; n <= 20000; n++ {
		label := MustColumnLabel(n)
		got, err := ColumnIndex(label)
		if err != nil {
			t.Fatalf("ColumnIndex(%q) failed: %v", label, err)
		}
		if got != n {
			t.Fatalf("ColumnIndex(ColumnLabel(%d)) = %d", n, got)
		}
	}
}

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		want    int
		wantErr bool
	}{
		{name: "single", label: "C", want: 3},
		{name: "lowercase", label: "aa", want: 27},
		{name: "empty", label: "", wantErr: true},
		{name: "digit", label: "A1", wantErr: true},
		{name: "overflow", label: "ZZZZZZZZZZZZZZZZZZZZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ColumnIndex(tt.label)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidColumnLabel) {
					t.Errorf("ColumnIndex(%q) error = %v, want ErrInvalidColumnLabel", tt.label, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ColumnIndex(%q) failed: %v", tt.label, err)
			}
			if got != tt.want {
				t.Errorf("ColumnIndex(%q) = %d, want %d", tt.label, got, tt.want)
			}
		})
	}
}

func TestColumnLabels(t *testing.T) {
	got := ColumnLabels(28)
	if len(got) != 28 {
		t.Fatalf("len(ColumnLabels(28)) = %d, want 28", len(got))
	}
	if got[0] != "A" || got[25] != "Z" || got[26] != "AA" || got[27] != "AB" {
		t.Errorf("ColumnLabels(28) = %v", got)
	}

	if got := ColumnLabels(0); len(got) != 0 {
		t.Errorf("ColumnLabels(0) = %v, want empty", got)
	}
}

func TestRangeRef(t *testing.T) {
	tests := []struct {
		rows, cols int
		want       string
	}{
		{10, 6, "A1:F10"},
		{1, 1, "A1:A1"},
		{3, 27, "A1:AA3"},
		{0, 3, ""},
		{3, 0, ""},
	}

	for _, tt := range tests {
		if got := RangeRef(tt.rows, tt.cols); got != tt.want {
			t.Errorf("RangeRef(%d, %d) = %q, want %q", tt.rows, tt.cols, got, tt.want)
		}
	}
}
