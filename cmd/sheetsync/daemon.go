package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/config"
	"github.com/Mschirtzinger/sheetsync/internal/daemon"
	"github.com/Mschirtzinger/sheetsync/internal/server"
	"github.com/Mschirtzinger/sheetsync/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Keep the workbook and table in sync (foreground)",
	Long: `Start the sync daemon in the foreground.

The daemon will:
  1. Push the table to the sheet at start-up and every daemon.push_interval
  2. Watch the workbook file and pull it into the table after each save
     (debounced by daemon.debounce)
  3. Serve the webhook endpoints and the live event stream on server.port
     unless --no-server is set

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		noServer, _ := cmd.Flags().GetBool("no-server")

		a, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		var srv *server.Server
		onResult := func(bisync.Result) {}
		if !noServer {
			srv = newServer(a.engine, a.store)
			if err := srv.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to start server: %v\n", err)
				a.Close()
				os.Exit(1)
			}
			defer srv.Stop()
			onResult = srv.Handler().OnSyncResult
		}

		d, err := daemon.NewWithConfig(a.engine, daemon.Target{
			Table:        cfg.Table,
			SheetRef:     cfg.Workbook.Sheet,
			WorkbookPath: cfg.Workbook.Path,
		}, &daemon.Config{
			PushInterval:     cfg.Daemon.PushInterval,
			DebounceInterval: cfg.Daemon.Debounce,
			Logger:           config.NewLogger(logOut, "daemon"),
			OnResult:         onResult,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Starting sync daemon...\n", ui.RenderAccent("🚀"))
		fmt.Printf("   Table: %s\n", cfg.Table)
		fmt.Printf("   Workbook: %s (%s)\n", cfg.Workbook.Path, sheetLabel(cfg.Workbook.Sheet))
		fmt.Printf("   Database: %s\n", cfg.Database.Path)
		fmt.Printf("   Push every: %v\n", cfg.Daemon.PushInterval)
		if srv != nil {
			fmt.Printf("   Webhooks: http://%s/webhooks/sheets\n", srv.GetAddr())
		}
		fmt.Printf("\nPress Ctrl+C to stop\n\n")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// Start blocks until the context is cancelled
		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("\nDaemon stopped")
	},
}

func init() {
	daemonCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	daemonCmd.Flags().Bool("no-server", false, "Do not serve webhooks or the event stream")
	rootCmd.AddCommand(daemonCmd)
}
