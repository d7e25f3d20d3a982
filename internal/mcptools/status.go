package mcptools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// StatusTool handles the sync_status MCP tool.
type StatusTool struct {
	store state.Store
	now   func() time.Time
}

// NewStatusTool creates a StatusTool reading from store.
func NewStatusTool(store state.Store) *StatusTool {
	return &StatusTool{store: store, now: time.Now}
}

// Definition returns the MCP tool definition for sync_status.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("sync_status",
		mcp.WithDescription(
			"Show the last sync of each table: direction, time and fingerprints.",
		),
		mcp.WithString("table",
			mcp.Description("Only show this table"),
		),
	)
}

// Handle processes the sync_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.store.Load()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load sync state: %v", err)), nil
	}

	if only := req.GetString("table", ""); only != "" {
		rec, ok := records[only]
		if !ok {
			return mcp.NewToolResultText(fmt.Sprintf("Table %q has never been synced.", only)), nil
		}
		records = map[string]state.Record{only: rec}
	}

	if len(records) == 0 {
		return mcp.NewToolResultText("No tables have been synced yet."), nil
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)

	now := t.now()
	var sb strings.Builder
	sb.WriteString("## Sync Status\n\n")
	for _, name := range names {
		rec := records[name]
		sb.WriteString(fmt.Sprintf("### %s\n", name))
		sb.WriteString(fmt.Sprintf("- **Last direction**: %s\n", rec.Direction))
		sb.WriteString(fmt.Sprintf("- **Last sync**: %s (%s ago)\n",
			rec.LastSync.Format(time.RFC3339), rec.Since(now).Round(time.Second)))
		if rec.DBFingerprint != "" {
			sb.WriteString(fmt.Sprintf("- **Table fingerprint**: %s\n", rec.DBFingerprint))
		}
		if rec.SheetFingerprint != "" {
			sb.WriteString(fmt.Sprintf("- **Sheet fingerprint**: %s\n", rec.SheetFingerprint))
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}
