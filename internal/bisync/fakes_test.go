package bisync

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
)

// fakeSheet is an in-memory Spreadsheet.
type fakeSheet struct {
	mu     sync.Mutex
	sheets map[string]grid.Grid
	writes int
	clears int

	readErr  error
	writeErr error
	clearErr error

	// onRead runs at the start of ReadGrid; tests use it to observe overlap.
	onRead func()
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{sheets: map[string]grid.Grid{}}
}

func (s *fakeSheet) set(ref string, g grid.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[ref] = g
}

func (s *fakeSheet) get(ref string) grid.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sheets[ref]
}

func (s *fakeSheet) ReadGrid(_ context.Context, ref string) (grid.Grid, error) {
	if s.onRead != nil {
		s.onRead()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	g := s.sheets[ref]
	out := make(grid.Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (s *fakeSheet) WriteRange(_ context.Context, ref, topLeft string, g grid.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if topLeft != "A1" {
		return errors.New("fake only supports A1")
	}
	out := make(grid.Grid, len(g))
	for i, row := range g {
		out[i] = append([]string(nil), row...)
	}
	s.sheets[ref] = out
	s.writes++
	return nil
}

func (s *fakeSheet) Clear(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	delete(s.sheets, ref)
	s.clears++
	return nil
}

// fakeTable is an in-memory Table without RowReplacer.
type fakeTable struct {
	mu     sync.Mutex
	tables map[string]*fakeTab

	autoIncErr error
	addErr     error
	existsErr  error
	upserts    int
}

type fakeTab struct {
	columns []string
	rows    map[int]map[string]sql.NullString
	autoInc bool
}

func newFakeTable() *fakeTable {
	return &fakeTable{tables: map[string]*fakeTab{}}
}

func (t *fakeTable) TableExists(_ context.Context, name string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.existsErr != nil {
		return false, t.existsErr
	}
	_, ok := t.tables[name]
	return ok, nil
}

func (t *fakeTable) Columns(_ context.Context, name string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tables[name]
	if !ok {
		return nil, errors.New("no such table: " + name)
	}
	return append([]string{"id"}, tab.columns...), nil
}

func (t *fakeTable) CreateTable(_ context.Context, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.tables[name]; !ok {
		t.tables[name] = &fakeTab{rows: map[int]map[string]sql.NullString{}}
	}
	return nil
}

func (t *fakeTable) AddColumn(_ context.Context, name, column string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.addErr != nil {
		return t.addErr
	}
	tab := t.tables[name]
	for _, c := range tab.columns {
		if strings.EqualFold(c, column) {
			return errors.New("duplicate column name: " + column)
		}
	}
	tab.columns = append(tab.columns, column)
	return nil
}

func (t *fakeTable) DropAutoIncrement(_ context.Context, name string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.autoIncErr != nil {
		return false, t.autoIncErr
	}
	tab := t.tables[name]
	if !tab.autoInc {
		return false, nil
	}
	tab.autoInc = false
	return true, nil
}

func (t *fakeTable) DeleteWhereIDGreaterThan(_ context.Context, name string, n int) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var deleted int64
	for id := range t.tables[name].rows {
		if id > n {
			delete(t.tables[name].rows, id)
			deleted++
		}
	}
	return deleted, nil
}

func (t *fakeTable) UpsertRow(_ context.Context, name string, id int, values map[string]sql.NullString) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab := t.tables[name]
	row, ok := tab.rows[id]
	if !ok {
		row = map[string]sql.NullString{}
		tab.rows[id] = row
	}
	for k, v := range values {
		row[k] = v
	}
	t.upserts++
	return nil
}

func (t *fakeTable) SelectAllOrderByID(_ context.Context, name string) ([]string, [][]sql.NullString, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tab, ok := t.tables[name]
	if !ok {
		return nil, nil, errors.New("no such table: " + name)
	}
	ids := make([]int, 0, len(tab.rows))
	for id := range tab.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([][]sql.NullString, len(ids))
	for i, id := range ids {
		row := make([]sql.NullString, len(tab.columns))
		for j, c := range tab.columns {
			row[j] = tab.rows[id][c]
		}
		out[i] = row
	}
	return append([]string(nil), tab.columns...), out, nil
}

// ids returns the table's row ids in ascending order.
func (t *fakeTable) ids(name string) []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []int
	for id := range t.tables[name].rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
