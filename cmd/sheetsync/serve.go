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
	"github.com/Mschirtzinger/sheetsync/internal/server"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "advanced",
	Short:   "Serve sync webhooks and a live event stream",
	Long: `Start an HTTP server that runs sync passes on request.

Endpoints:
  POST /webhooks/sheets                  Pull the sheet into the configured table
  POST /webhooks/table-to-sheet/{table}  Push a table to the sheet
  GET  /health                           Health check
  GET  /state                            Sync state of every table
  GET  /ws                               WebSocket stream of pass results

Example usage:
  sheetsync serve                   # Start on server.port (default 8080)
  sheetsync serve --port 9000       # Start on custom port

Unlike 'sheetsync daemon', serve neither watches the workbook nor pushes
on a timer.`,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := openApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		srv := newServer(a.engine, a.store)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start server: %v\n", err)
			a.Close()
			os.Exit(1)
		}

		addr := srv.GetAddr()
		fmt.Printf("Server started on http://%s\n", addr)
		fmt.Printf("Webhook: http://%s/webhooks/sheets\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		<-ctx.Done()

		fmt.Println("\nShutting down server...")
		if err := srv.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			a.Close()
			os.Exit(1)
		}

		fmt.Println("Server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func newServer(runner bisync.Runner, store state.Store) *server.Server {
	return server.NewServer(&server.Config{
		Port:     cfg.Server.Port,
		Logger:   config.NewLogger(logOut, "server"),
		Runner:   runner,
		Store:    store,
		Table:    cfg.Table,
		SheetRef: cfg.Workbook.Sheet,
	})
}
