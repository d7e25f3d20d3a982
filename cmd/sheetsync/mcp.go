package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/sheetsync/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:     "mcp",
	GroupID: "advanced",
	Short:   "Run an MCP server on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout.

Tools:
  run_sync     Run one pass (direction sheet_to_table or table_to_sheet)
  sync_status  Show the sync state of each table

Logs go to stderr or the configured log file so stdout stays clean for the
protocol.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		s := mcptools.NewServer(mcptools.Options{
			Version:  Version,
			Runner:   a.engine,
			Store:    a.store,
			Table:    cfg.Table,
			SheetRef: cfg.Workbook.Sheet,
		})

		if err := server.ServeStdio(s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			a.Close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
