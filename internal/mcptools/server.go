package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// Options configures NewServer.
type Options struct {
	Version  string
	Runner   bisync.Runner
	Store    state.Store
	Table    string
	SheetRef string
}

// NewServer creates an MCP server with the sync tools registered.
func NewServer(opts Options) *server.MCPServer {
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	s := server.NewMCPServer(
		"sheetsync",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	runTool := NewRunTool(opts.Runner, opts.Table, opts.SheetRef)
	s.AddTool(runTool.Definition(), runTool.Handle)

	statusTool := NewStatusTool(opts.Store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	return s
}

const instructions = `sheetsync keeps a spreadsheet and a database table in step.

Call sync_status first to see which side changed last. Use run_sync with
direction table_to_sheet to publish the table, or sheet_to_table to import
edits made in the sheet. A pass may be skipped when nothing changed or when
the opposite direction ran moments ago; that is not an error.`
