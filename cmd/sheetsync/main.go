// Command sheetsync keeps a spreadsheet and a database table in step.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/sheetsync/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	configFile string

	// cfg is loaded by PersistentPreRunE for every subcommand.
	cfg *config.Config

	// logOut receives all component logs.
	logOut io.WriteCloser = nopWriteCloser{os.Stderr}
)

var rootCmd = &cobra.Command{
	Use:   "sheetsync",
	Short: "Bidirectional sync between a spreadsheet and a database table",
	Long: `sheetsync mirrors a worksheet into a relational table and back.

Rows are keyed by their position in the sheet; columns are named A, B, C...
after the sheet's column letters. Pull (sheet_to_table) rewrites the table
from the sheet; push (table_to_sheet) overwrites the sheet from the table.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["skipConfig"] == "true" {
			return nil
		}
		loaded, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		logOut = cfg.Log.Writer()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logOut.Close()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "advanced", Title: "Servers:"},
		&cobra.Group{ID: "maint", Title: "Maintenance:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: ./sheetsync.toml or ~/.config/sheetsync/sheetsync.toml)")
	flags.StringP("table", "t", "", "table to sync")
	flags.String("workbook", "", "path to the .xlsx workbook")
	flags.String("sheet", "", "worksheet name")
	flags.String("driver", "", "SQLite driver: sqlite3 (ncruces) or sqlite (modernc)")
	flags.String("db", "", "path to the SQLite database")
	flags.String("state", "", "path to the sync state file")
	flags.String("log-file", "", "write logs to a rotated file instead of stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
