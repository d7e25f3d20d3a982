// Package mcptools exposes sync passes and sync state as MCP tools, so an
// assistant can push, pull and inspect tables over stdio.
package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// RunTool handles the run_sync MCP tool.
type RunTool struct {
	runner   bisync.Runner
	table    string
	sheetRef string
}

// NewRunTool creates a RunTool. table and sheetRef are used when the
// caller omits them.
func NewRunTool(runner bisync.Runner, table, sheetRef string) *RunTool {
	return &RunTool{runner: runner, table: table, sheetRef: sheetRef}
}

// Definition returns the MCP tool definition for run_sync.
func (t *RunTool) Definition() mcp.Tool {
	return mcp.NewTool("run_sync",
		mcp.WithDescription(
			"Run one sync pass between the spreadsheet and a database table. "+
				"Use direction sheet_to_table to pull sheet edits into the table, "+
				"or table_to_sheet to overwrite the sheet with the table's rows.",
		),
		mcp.WithString("direction",
			mcp.Required(),
			mcp.Description("sheet_to_table or table_to_sheet"),
			mcp.Enum(string(state.SheetToTable), string(state.TableToSheet)),
		),
		mcp.WithString("table",
			mcp.Description("Table name (default: the configured table)"),
		),
		mcp.WithString("sheet",
			mcp.Description("Worksheet name (default: the configured sheet)"),
		),
	)
}

// Handle processes the run_sync tool call.
func (t *RunTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("direction", "")
	if raw == "" {
		return mcp.NewToolResultError("'direction' is required"), nil
	}
	dir, err := state.ParseDirection(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	table := req.GetString("table", t.table)
	if table == "" {
		return mcp.NewToolResultError("'table' is required (no default table configured)"), nil
	}

	// A started pass runs to completion even if the client cancels the call.
	res := t.runner.Run(context.WithoutCancel(ctx), bisync.Request{
		Table:     table,
		SheetRef:  req.GetString("sheet", t.sheetRef),
		Direction: dir,
	})
	if res.Status == bisync.StatusError {
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %s", res.Detail)), nil
	}

	return mcp.NewToolResultText(formatResult(res)), nil
}

func formatResult(res bisync.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s %s: %s\n\n", res.Table, res.Direction, res.Status)
	if res.Reason != bisync.ReasonNone {
		fmt.Fprintf(&b, "- **Reason**: %s\n", res.Reason)
	}
	if res.Status == bisync.StatusSuccess {
		fmt.Fprintf(&b, "- **Rows**: %d\n", res.Rows)
		fmt.Fprintf(&b, "- **Columns**: %d\n", res.Columns)
	}
	if res.Range != "" {
		fmt.Fprintf(&b, "- **Range**: %s\n", res.Range)
	}
	if res.Deleted > 0 {
		fmt.Fprintf(&b, "- **Deleted**: %d\n", res.Deleted)
	}
	if len(res.AddedColumns) > 0 {
		fmt.Fprintf(&b, "- **Added columns**: %s\n", strings.Join(res.AddedColumns, ", "))
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "- **Warning**: %s\n", w)
	}
	return b.String()
}
