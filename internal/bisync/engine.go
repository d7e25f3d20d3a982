package bisync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mschirtzinger/sheetsync/internal/grid"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// IDColumnName is the identity column every synced table carries.
const IDColumnName = "id"

// DefaultEchoWindow is how long after a pass the opposite direction is
// suppressed.
const DefaultEchoWindow = 5 * time.Second

// Config configures an Engine.
type Config struct {
	// EchoWindow suppresses a pass when the opposite direction committed less
	// than this long ago. Zero disables the guard.
	EchoWindow time.Duration

	// Logger receives one line per pass. Defaults to stderr with a "[sync] "
	// prefix.
	Logger *log.Logger

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		EchoWindow: DefaultEchoWindow,
	}
}

// Engine runs sync passes between one Spreadsheet and one Table.
//
// Passes for the same table are serialized for their whole duration, from
// loading state to saving it. Passes for different tables run concurrently.
type Engine struct {
	sheet  Spreadsheet
	table  Table
	store  state.Store
	config Config
	logger *log.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is a mutex shared by the passes that currently need it.
type keyLock struct {
	sync.Mutex
	refs int
}

// New creates an Engine.
//
// Example:
//
//	workbook, err := sheet.Open("sheet.xlsx")
//	if err != nil {
//	    return err
//	}
//	database, err := db.Open("sheetsync.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	engine := bisync.New(workbook, database, state.NewFileStore("sync_state.json"), bisync.DefaultConfig())
func New(sheet Spreadsheet, table Table, store state.Store, config Config) *Engine {
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Engine{
		sheet:  sheet,
		table:  table,
		store:  store,
		config: config,
		logger: config.Logger,
		locks:  make(map[string]*keyLock),
	}
}

// Store returns the engine's state store.
func (e *Engine) Store() state.Store {
	return e.store
}

// Run implements Runner.
func (e *Engine) Run(ctx context.Context, req Request) (res Result) {
	began := time.Now()
	res = Result{
		RunID:     uuid.NewString(),
		Table:     req.Table,
		SheetRef:  req.SheetRef,
		Direction: req.Direction,
		StartedAt: e.config.Clock(),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("panic during sync of %s: %v\n%s", req.Table, r, debug.Stack())
			res.finish(fmt.Errorf("panic: %v", r))
		}
		res.Duration = time.Since(began)
		e.logResult(res)
	}()

	if err := validate(req); err != nil {
		res.finish(err)
		return res
	}

	unlock := e.lock(req.Table, req.SheetRef)
	defer unlock()

	var err error
	switch req.Direction {
	case state.SheetToTable:
		err = e.sheetToTable(ctx, req, &res)
	case state.TableToSheet:
		err = e.tableToSheet(ctx, req, &res)
	}
	res.finish(err)
	return res
}

func validate(req Request) error {
	if req.Table == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidRequest)
	}
	if !req.Direction.Valid() {
		return fmt.Errorf("%w: unknown direction %q", ErrInvalidRequest, req.Direction)
	}
	return nil
}

// lock serializes passes on the table and on the worksheet: a pass holds
// both for its whole run. Keys are taken in sorted order and dropped from the
// map once no pass holds or waits on them.
func (e *Engine) lock(table, sheetRef string) func() {
	keys := []string{"table\x00" + table, "sheet\x00" + strings.ToLower(sheetRef)}
	sort.Strings(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, key := range keys {
		e.mu.Lock()
		l, ok := e.locks[key]
		if !ok {
			l = &keyLock{}
			e.locks[key] = l
		}
		l.refs++
		e.mu.Unlock()

		l.Lock()
		held = append(held, l)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		e.mu.Lock()
		for i, l := range held {
			l.refs--
			if l.refs == 0 {
				delete(e.locks, keys[i])
			}
		}
		e.mu.Unlock()
	}
}

// loadRecord returns the table's state and applies the echo guard.
func (e *Engine) loadRecord(req Request) (state.Record, bool, error) {
	rec, ok, err := state.Get(e.store, req.Table)
	if err != nil {
		return state.Record{}, false, external(ServiceState, "load", err)
	}

	if ok && e.config.EchoWindow > 0 && rec.Direction == req.Direction.Opposite() && !rec.LastSync.IsZero() {
		// A last sync stamped in the future is treated as recent.
		age := e.config.Clock().Sub(rec.LastSync)
		if age < e.config.EchoWindow {
			return rec, ok, fmt.Errorf("%w: %s completed %s ago", ErrRecentOppositeSync,
				rec.Direction, age.Round(time.Millisecond))
		}
	}
	return rec, ok, nil
}

func (e *Engine) sheetToTable(ctx context.Context, req Request, res *Result) error {
	if _, _, err := e.loadRecord(req); err != nil {
		return err
	}

	g, err := e.sheet.ReadGrid(ctx, req.SheetRef)
	if err != nil {
		return external(ServiceSpreadsheet, "read grid", err)
	}
	if g.IsEmpty() || g.Width() == 0 {
		return fmt.Errorf("%w: sheet is empty", ErrNoData)
	}

	labels := grid.ColumnLabels(g.Width())

	schema, err := EnsureSchema(ctx, e.table, req.Table, labels)
	if err != nil {
		return err
	}
	if schema.Conflict != nil {
		res.warn(e.logger, schema.Conflict.Error())
	}
	if schema.Created {
		e.logger.Printf("Created table %s", req.Table)
	}
	if schema.AutoIncrementDropped {
		e.logger.Printf("Removed id autoincrement from %s", req.Table)
	}
	res.AddedColumns = schema.AddedColumns

	rows, err := ApplyGrid(ctx, e.table, req.Table, dataColumns(labels, schema.Columns), g)
	if err != nil {
		return err
	}

	sheetFP := grid.Fingerprint(g)
	err = e.store.Update(req.Table, func(state.Record, bool) (state.Record, error) {
		return state.Record{
			DBFingerprint:    "",
			SheetFingerprint: sheetFP,
			LastSync:         e.config.Clock(),
			Direction:        state.SheetToTable,
		}, nil
	})
	if err != nil {
		return external(ServiceState, "save", err)
	}

	res.Rows = len(g)
	res.Columns = len(labels)
	res.Deleted = rows.Deleted
	res.Range = grid.RangeRef(len(g), len(labels))
	return nil
}

func (e *Engine) tableToSheet(ctx context.Context, req Request, res *Result) error {
	rec, ok, err := e.loadRecord(req)
	if err != nil {
		return err
	}

	exists, err := e.table.TableExists(ctx, req.Table)
	if err != nil {
		return external(ServiceTable, "table exists", err)
	}
	if !exists {
		return fmt.Errorf("%w: table %s does not exist", ErrNoData, req.Table)
	}

	projected, columns, err := ProjectTable(ctx, e.table, req.Table)
	if err != nil {
		return err
	}
	dbFP := grid.Fingerprint(projected)
	if ok && rec.DBFingerprint != "" && rec.DBFingerprint == dbFP {
		return fmt.Errorf("%w: table %s", ErrNoChanges, req.Table)
	}

	current, err := e.sheet.ReadGrid(ctx, req.SheetRef)
	if err != nil {
		return external(ServiceSpreadsheet, "read grid", err)
	}
	if ok && rec.SheetFingerprint != "" && grid.Fingerprint(current) != rec.SheetFingerprint {
		res.warn(e.logger, "sheet was modified outside sheetsync since the last sync; overwriting")
	}

	written, err := WriteSheet(ctx, e.sheet, req.SheetRef, projected, len(columns))
	if err != nil {
		return err
	}

	after, err := e.sheet.ReadGrid(ctx, req.SheetRef)
	if err != nil {
		return external(ServiceSpreadsheet, "read back", err)
	}
	sheetFP := grid.Fingerprint(after)

	err = e.store.Update(req.Table, func(state.Record, bool) (state.Record, error) {
		return state.Record{
			DBFingerprint:    dbFP,
			SheetFingerprint: sheetFP,
			LastSync:         e.config.Clock(),
			Direction:        state.TableToSheet,
		}, nil
	})
	if err != nil {
		return external(ServiceState, "save", err)
	}

	res.Rows = len(projected)
	res.Columns = len(columns)
	res.Range = written
	return nil
}

// dataColumns returns labels followed by any label-named columns the table
// already has beyond them, in column order. Rows are written across all of
// these so a column emptied in the sheet is emptied in the table too. Columns
// not named by a label are left alone.
func dataColumns(labels, existing []string) []string {
	type col struct {
		name  string
		index int
	}
	var extra []col
	for _, c := range existing {
		if c == IDColumnName || strings.ToUpper(c) != c {
			continue
		}
		idx, err := grid.ColumnIndex(c)
		if err != nil || idx <= len(labels) {
			continue
		}
		extra = append(extra, col{c, idx})
	}
	if len(extra) == 0 {
		return labels
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].index < extra[j].index })

	out := append([]string(nil), labels...)
	for _, c := range extra {
		out = append(out, c.name)
	}
	return out
}

func (r *Result) warn(logger *log.Logger, msg string) {
	logger.Printf("WARNING: %s: %s", r.Table, msg)
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) finish(err error) {
	switch {
	case err == nil:
		r.Status = StatusSuccess
	case IsSkip(err):
		r.Status = StatusSkipped
		r.Reason = reasonFor(err)
		r.Detail = err.Error()
	default:
		r.Status = StatusError
		r.Detail = err.Error()
		r.Err = err
	}
}

func (e *Engine) logResult(res Result) {
	switch res.Status {
	case StatusSuccess:
		e.logger.Printf("Synced %s (%s): %d rows x %d columns, %d deleted [%s] in %v",
			res.Table, res.Direction, res.Rows, res.Columns, res.Deleted, res.RunID, res.Duration)
	case StatusSkipped:
		e.logger.Printf("Skipped %s (%s): %s [%s]", res.Table, res.Direction, res.Detail, res.RunID)
	default:
		var ext *ExternalServiceError
		if errors.As(res.Err, &ext) {
			e.logger.Printf("Sync of %s (%s) failed at %s %s: %v [%s]",
				res.Table, res.Direction, ext.Service, ext.Op, ext.Err, res.RunID)
			return
		}
		e.logger.Printf("Sync of %s (%s) failed: %s [%s]", res.Table, res.Direction, res.Detail, res.RunID)
	}
}
