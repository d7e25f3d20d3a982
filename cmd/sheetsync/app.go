package main

import (
	"fmt"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/config"
	"github.com/Mschirtzinger/sheetsync/internal/db"
	"github.com/Mschirtzinger/sheetsync/internal/sheet"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// app holds the collaborators every sync-running command needs.
type app struct {
	db       *db.DB
	workbook *sheet.Workbook
	store    *state.FileStore
	engine   *bisync.Engine
}

// openApp opens the database and workbook named by cfg and builds an engine.
func openApp() (*app, error) {
	database, err := db.OpenDriver(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	workbook, err := sheet.Open(cfg.Workbook.Path)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	store := state.NewFileStore(cfg.State.Path)

	engine := bisync.New(workbook, database, store, bisync.Config{
		EchoWindow: cfg.Sync.EchoWindow,
		Logger:     config.NewLogger(logOut, "sync"),
	})

	return &app{
		db:       database,
		workbook: workbook,
		store:    store,
		engine:   engine,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// sheetLabel names a configured worksheet for display.
func sheetLabel(sheetRef string) string {
	if sheetRef == "" {
		return "first sheet"
	}
	return sheetRef
}
