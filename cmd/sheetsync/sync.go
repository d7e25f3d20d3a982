package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/state"
	"github.com/Mschirtzinger/sheetsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one sync pass",
	Long: `Run one sync pass between the workbook and the table.

Directions:
  sheet-to-table  Pull: rewrite the table from the sheet (creates the table
                  and adds columns as needed; rows beyond the sheet are deleted)
  table-to-sheet  Push: clear the sheet and write the table's rows into it;
                  skipped when the table has not changed since the last push

A pass is skipped when the opposite direction ran within the echo window
(sync.echo_window, default 5s).

Examples:
  sheetsync sync --direction sheet-to-table
  sheetsync sync -d push --table orders --json`,
	Run: runSync,
}

func init() {
	syncCmd.Flags().StringP("direction", "d", "", "sheet-to-table or table-to-sheet (required)")
	syncCmd.Flags().Bool("json", false, "Output the result as JSON")
	_ = syncCmd.MarkFlagRequired("direction")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	raw, _ := cmd.Flags().GetString("direction")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	dir, err := state.ParseDirection(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	res := a.engine.Run(context.Background(), bisync.Request{
		Table:     cfg.Table,
		SheetRef:  cfg.Workbook.Sheet,
		Direction: dir,
	})

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		printResult(res)
	}

	if res.Status == bisync.StatusError {
		a.Close()
		os.Exit(1)
	}
}

func printResult(res bisync.Result) {
	switch res.Status {
	case bisync.StatusSuccess:
		fmt.Printf("%s %s %s in %v\n", ui.RenderPass("✓"), res.Table, res.Direction, res.Duration.Round(time.Millisecond))
		fmt.Printf("   Rows: %d\n", res.Rows)
		fmt.Printf("   Columns: %d\n", res.Columns)
		if res.Range != "" {
			fmt.Printf("   Range: %s\n", res.Range)
		}
		if res.Deleted > 0 {
			fmt.Printf("   Deleted: %d\n", res.Deleted)
		}
		if len(res.AddedColumns) > 0 {
			fmt.Printf("   Added columns: %s\n", strings.Join(res.AddedColumns, ", "))
		}
	case bisync.StatusSkipped:
		fmt.Printf("%s %s %s skipped: %s\n", ui.RenderWarn("⚠"), res.Table, res.Direction, res.Reason)
	default:
		fmt.Printf("%s %s %s failed: %s\n", ui.RenderFail("✗"), res.Table, res.Direction, res.Detail)
	}
	for _, w := range res.Warnings {
		fmt.Printf("   %s %s\n", ui.RenderWarn("warning:"), w)
	}
}
