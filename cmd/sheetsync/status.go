package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Mschirtzinger/sheetsync/internal/state"
	"github.com/Mschirtzinger/sheetsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show the last sync of each table",
	Long: `Display the sync state file: for each table, the last direction,
when it ran, and the fingerprints recorded for both sides.

--since accepts natural language ("2 hours ago", "yesterday") and only
shows tables synced after that time.

Examples:
  sheetsync status
  sheetsync status --format yaml
  sheetsync status --since "30 minutes ago"`,
	Run: runStatus,
}

func init() {
	statusCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
	statusCmd.Flags().String("since", "", "Only show tables synced after this time")
	rootCmd.AddCommand(statusCmd)
}

// statusEntry is one table's state as printed by status.
type statusEntry struct {
	Table            string    `json:"table" yaml:"table"`
	Direction        string    `json:"last_direction" yaml:"last_direction"`
	LastSync         time.Time `json:"last_sync_timestamp" yaml:"last_sync_timestamp"`
	DBFingerprint    string    `json:"last_db_fingerprint" yaml:"last_db_fingerprint"`
	SheetFingerprint string    `json:"last_sheet_fingerprint" yaml:"last_sheet_fingerprint"`
}

func runStatus(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")
	sinceExpr, _ := cmd.Flags().GetString("since")

	var since time.Time
	if sinceExpr != "" {
		t, err := parseSince(sinceExpr, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		since = t
	}

	records, err := state.NewFileStore(cfg.State.Path).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading sync state: %v\n", err)
		os.Exit(1)
	}
	entries := statusEntries(records, since)

	switch format {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(entries); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	case "yaml":
		encoder := yaml.NewEncoder(os.Stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(entries); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding YAML: %v\n", err)
			os.Exit(1)
		}
		_ = encoder.Close()
	case "text":
		printStatus(entries)
	default:
		fmt.Fprintf(os.Stderr, "Error: --format must be 'text', 'json' or 'yaml'\n")
		os.Exit(1)
	}
}

// parseSince resolves a natural-language or RFC 3339 time relative to now.
func parseSince(expr string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, expr); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(expr, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse --since %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", expr)
	}
	return r.Time, nil
}

// statusEntries sorts records by table and drops those older than since.
func statusEntries(records map[string]state.Record, since time.Time) []statusEntry {
	entries := make([]statusEntry, 0, len(records))
	for table, rec := range records {
		if !since.IsZero() && rec.LastSync.Before(since) {
			continue
		}
		entries = append(entries, statusEntry{
			Table:            table,
			Direction:        string(rec.Direction),
			LastSync:         rec.LastSync,
			DBFingerprint:    rec.DBFingerprint,
			SheetFingerprint: rec.SheetFingerprint,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Table < entries[j].Table })
	return entries
}

func printStatus(entries []statusEntry) {
	fmt.Printf("\n%s Sync Status\n\n", ui.RenderAccent("📊"))
	fmt.Printf("State file: %s\n\n", cfg.State.Path)

	if len(entries) == 0 {
		fmt.Printf("%s No synced tables\n", ui.RenderWarn("⚠"))
		fmt.Printf("   Run 'sheetsync sync --direction sheet-to-table' to start\n\n")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Table,
			e.Direction,
			e.LastSync.Local().Format("2006-01-02 15:04:05"),
			ui.RenderMuted(shortFingerprint(e.DBFingerprint)),
			ui.RenderMuted(shortFingerprint(e.SheetFingerprint)),
		})
	}
	fmt.Print(ui.Table([]string{"TABLE", "DIRECTION", "LAST SYNC", "TABLE FP", "SHEET FP"}, rows))
	fmt.Println()
}

func shortFingerprint(fp string) string {
	if fp == "" {
		return "-"
	}
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}
