package bisync

import (
	"context"
	"fmt"
)

// SchemaReport describes what EnsureSchema changed.
type SchemaReport struct {
	Created              bool
	AutoIncrementDropped bool
	AddedColumns         []string

	// Columns lists every column after reconciliation, id included, in
	// schema order.
	Columns []string

	// Conflict is set when the autoincrement removal failed. It does not
	// stop the schema from being reconciled.
	Conflict *SchemaConflictError
}

// EnsureSchema makes table fit labels:
//  1. create the table with only an id column if it does not exist
//  2. strip id generation from the id column (best effort)
//  3. add a nullable text column for every label not yet present
//
// Existing columns are never dropped or retyped. Failures in steps 1 and 3
// are returned; a failure in step 2 is reported in SchemaReport.Conflict.
func EnsureSchema(ctx context.Context, t Table, table string, labels []string) (SchemaReport, error) {
	var report SchemaReport

	exists, err := t.TableExists(ctx, table)
	if err != nil {
		return report, external(ServiceTable, "table exists", err)
	}
	if !exists {
		if err := t.CreateTable(ctx, table); err != nil {
			return report, external(ServiceTable, "create table", err)
		}
		report.Created = true
	}

	dropped, err := t.DropAutoIncrement(ctx, table)
	if err != nil {
		report.Conflict = &SchemaConflictError{
			Table: table,
			Err:   fmt.Errorf("failed to remove id autoincrement: %w", err),
		}
	}
	report.AutoIncrementDropped = dropped

	existing, err := t.Columns(ctx, table)
	if err != nil {
		return report, external(ServiceTable, "columns", err)
	}
	present := make(map[string]bool, len(existing))
	for _, c := range existing {
		present[c] = true
	}

	for _, label := range labels {
		if present[label] {
			continue
		}
		if err := t.AddColumn(ctx, table, label); err != nil {
			return report, external(ServiceTable, "add column "+label, err)
		}
		present[label] = true
		report.AddedColumns = append(report.AddedColumns, label)
		existing = append(existing, label)
	}
	report.Columns = existing

	return report, nil
}
