// Package bisync keeps one spreadsheet and one relational table in step.
//
// Overview
//
// A sync pass runs in one direction. sheet_to_table treats the sheet as the
// source of truth: the table's columns grow to fit the sheet and its rows are
// replaced by the sheet's rows, keyed by 1-based position. table_to_sheet
// treats the table as the source: the sheet is cleared and rewritten with the
// table's rows in id order, without the id column and without a header row.
//
// Architecture
//
//	Driver (timer / file watch / webhook / CLI / MCP)
//	     │
//	     ▼
//	 Engine.Run ── per-table lock ── state.Store (fingerprints, last direction)
//	     │
//	     ├── sheet_to_table: EnsureSchema → ApplyGrid        → Table
//	     └── table_to_sheet: ProjectTable → WriteSheet       → Spreadsheet
//
// Echo Guard
//
// Writing one side usually makes that side fire a change notification, which
// would immediately start a pass in the opposite direction. Engine skips a
// pass when the opposite direction committed less than Config.EchoWindow ago.
//
// No-op Short-circuit
//
// table_to_sheet fingerprints the projected table and skips the write when it
// matches the fingerprint stored by the last push. sheet_to_table always
// reconciles.
//
// Results
//
// Run never returns an error. Every outcome is a Result whose Status is
// success, skipped (with a Reason) or error (with Detail and Err):
//
//	engine := bisync.New(workbook, database, state.NewFileStore("sync_state.json"), bisync.DefaultConfig())
//	res := engine.Run(ctx, bisync.Request{Table: "Sync7", Direction: state.TableToSheet})
//	if res.Status == bisync.StatusError {
//	    log.Printf("sync failed: %s", res.Detail)
//	}
package bisync
