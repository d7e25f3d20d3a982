package bisync

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
)

func TestEnsureSchema(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()

	report, err := EnsureSchema(ctx, table, "T", []string{"A", "B"})
	if err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	if !report.Created || !reflect.DeepEqual(report.AddedColumns, []string{"A", "B"}) {
		t.Errorf("first report = %+v", report)
	}
	if !reflect.DeepEqual(report.Columns, []string{"id", "A", "B"}) {
		t.Errorf("Columns = %v", report.Columns)
	}

	// Labels are a set: order and repeats do not matter.
	report, err = EnsureSchema(ctx, table, "T", []string{"B", "A", "C", "C"})
	if err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	if report.Created || !reflect.DeepEqual(report.AddedColumns, []string{"C"}) {
		t.Errorf("second report = %+v", report)
	}
}

func TestEnsureSchemaConflict(t *testing.T) {
	table := newFakeTable()
	table.autoIncErr = errors.New("locked")

	report, err := EnsureSchema(context.Background(), table, "T", []string{"A"})
	if err != nil {
		t.Fatalf("EnsureSchema() failed: %v", err)
	}
	if report.Conflict == nil || !errors.Is(report.Conflict, ErrSchemaConflict) {
		t.Fatalf("Conflict = %v, want schema conflict", report.Conflict)
	}
	if report.Conflict.Table != "T" {
		t.Errorf("Conflict.Table = %q", report.Conflict.Table)
	}
	if !reflect.DeepEqual(report.AddedColumns, []string{"A"}) {
		t.Errorf("step 3 did not run after a step 2 failure: %+v", report)
	}
}

func TestApplyGrid(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	if _, err := EnsureSchema(ctx, table, "T", []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}

	report, err := ApplyGrid(ctx, table, "T", []string{"A", "B"}, grid.Grid{{"1"}, {"", "2"}, {"3", "4"}})
	if err != nil {
		t.Fatalf("ApplyGrid() failed: %v", err)
	}
	if report.Upserted != 3 || report.Deleted != 0 {
		t.Errorf("report = %+v", report)
	}

	_, rows, _ := table.SelectAllOrderByID(ctx, "T")
	want := [][]sql.NullString{
		{{String: "1", Valid: true}, {}},
		{{}, {String: "2", Valid: true}},
		{{String: "3", Valid: true}, {String: "4", Valid: true}},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}

	report, err = ApplyGrid(ctx, table, "T", []string{"A", "B"}, grid.Grid{{"x", "y"}})
	if err != nil {
		t.Fatalf("ApplyGrid() failed: %v", err)
	}
	if report.Deleted != 2 {
		t.Errorf("Deleted = %d, want 2", report.Deleted)
	}
}

func TestProjectTable(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	if _, err := EnsureSchema(ctx, table, "T", []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}
	table.UpsertRow(ctx, "T", 2, map[string]sql.NullString{"A": {String: "second", Valid: true}})
	table.UpsertRow(ctx, "T", 1, map[string]sql.NullString{"B": {String: "first", Valid: true}})

	g, columns, err := ProjectTable(ctx, table, "T")
	if err != nil {
		t.Fatalf("ProjectTable() failed: %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"A", "B"}) {
		t.Errorf("columns = %v", columns)
	}
	want := grid.Grid{{"", "first"}, {"second", ""}}
	if !reflect.DeepEqual(g, want) {
		t.Errorf("grid = %q, want %q", g, want)
	}
}

func TestWriteSheet(t *testing.T) {
	ctx := context.Background()
	s := newFakeSheet()
	s.set("S", grid.Grid{{"old"}, {"old"}, {"old"}})

	rng, err := WriteSheet(ctx, s, "S", grid.Grid{{"a", "b"}}, 2)
	if err != nil {
		t.Fatalf("WriteSheet() failed: %v", err)
	}
	if rng != "A1:B1" {
		t.Errorf("range = %q, want A1:B1", rng)
	}
	if got := s.get("S"); !reflect.DeepEqual(got, grid.Grid{{"a", "b"}}) {
		t.Errorf("sheet = %q", got)
	}
}

func TestDataColumns(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		existing []string
		want     []string
	}{
		{
			name:     "no extras",
			labels:   []string{"A", "B"},
			existing: []string{"id", "A", "B"},
			want:     []string{"A", "B"},
		},
		{
			name:     "wider table",
			labels:   []string{"A"},
			existing: []string{"id", "A", "AA", "B", "C"},
			want:     []string{"A", "B", "C", "AA"},
		},
		{
			name:     "foreign columns untouched",
			labels:   []string{"A"},
			existing: []string{"id", "A", "notes", "created_at", "B"},
			want:     []string{"A", "B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dataColumns(tt.labels, tt.existing); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("dataColumns() = %v, want %v", got, tt.want)
			}
		})
	}
}
