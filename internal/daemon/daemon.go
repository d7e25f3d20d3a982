// Package daemon runs sheetsync continuously.
//
// The daemon:
// 1. Pushes the table to the sheet on start and on a fixed interval
// 2. Watches the workbook file and pulls the sheet once changes settle
// 3. Handles graceful shutdown
//
// Echoes of its own writes are absorbed by the engine's echo guard.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// Config holds configuration for the daemon.
type Config struct {
	// PushInterval is how often to run table_to_sheet.
	PushInterval time.Duration

	// DebounceInterval is how long the workbook must be quiet before a
	// sheet_to_table pass runs. This batches a burst of saves together.
	DebounceInterval time.Duration

	// Logger for daemon activity
	Logger *log.Logger

	// OnResult, if set, receives every pass result.
	OnResult func(bisync.Result)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PushInterval:     30 * time.Second,
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Target names what the daemon keeps in sync.
type Target struct {
	Table    string
	SheetRef string

	// WorkbookPath is the file watched for sheet-side changes.
	WorkbookPath string
}

// Daemon schedules sync passes.
type Daemon struct {
	runner bisync.Runner
	target Target
	config *Config

	watcher *FileWatcher

	changeMu   sync.Mutex
	changed    bool
	lastChange time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a new Daemon instance.
//
// Use Start() to begin watching and syncing.
func New(runner bisync.Runner, target Target) (*Daemon, error) {
	return NewWithConfig(runner, target, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(runner bisync.Runner, target Target, config *Config) (*Daemon, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if target.Table == "" {
		return nil, fmt.Errorf("table cannot be empty")
	}
	if target.WorkbookPath == "" {
		return nil, fmt.Errorf("workbook path cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	if config.PushInterval <= 0 {
		return nil, fmt.Errorf("push interval must be positive")
	}
	if config.DebounceInterval <= 0 {
		return nil, fmt.Errorf("debounce interval must be positive")
	}

	watcher, err := NewFileWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		runner:  runner,
		target:  target,
		config:  config,
		watcher: watcher,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Push the table to the sheet once
// 2. Start watching the workbook
// 3. Push on every PushInterval
// 4. Pull after workbook changes, debounced
//
// This blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Printf("Starting daemon for table %s", d.target.Table)

	if err := os.MkdirAll(filepath.Dir(d.target.WorkbookPath), 0755); err != nil {
		return fmt.Errorf("failed to create workbook directory: %w", err)
	}

	d.Trigger(d.passContext(), state.TableToSheet)

	if err := d.watcher.Start(d.target.WorkbookPath); err != nil {
		return fmt.Errorf("failed to watch workbook: %w", err)
	}
	d.config.Logger.Printf("Watching: %s", d.target.WorkbookPath)

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.pushLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon. A pass already running completes.
func (d *Daemon) Stop() error {
	d.stopOnce.Do(func() {
		d.config.Logger.Println("Stopping daemon")
		d.cancel()

		if err := d.watcher.Stop(); err != nil {
			d.config.Logger.Printf("Error closing watcher: %v", err)
		}

		d.wg.Wait()
		d.config.Logger.Println("Daemon stopped")
	})
	return nil
}

// Trigger runs one pass in the given direction immediately and reports it to
// OnResult.
func (d *Daemon) Trigger(ctx context.Context, dir state.Direction) bisync.Result {
	res := d.runner.Run(ctx, bisync.Request{
		Table:     d.target.Table,
		SheetRef:  d.target.SheetRef,
		Direction: dir,
	})
	if d.config.OnResult != nil {
		d.config.OnResult(res)
	}
	return res
}

// passContext keeps the daemon's values but not its cancellation: a pass in
// flight when Stop is called runs to completion.
func (d *Daemon) passContext() context.Context {
	return context.WithoutCancel(d.ctx)
}

// watchFileEvents monitors workbook events and queues a pull.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}
			if event.Op == OpDelete {
				// The following create carries the new content.
				continue
			}
			d.config.Logger.Printf("File event: %s %s", event.Op, event.Path)
			d.queueChange()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange records a workbook change for the debouncer.
func (d *Daemon) queueChange() {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	d.changed = true
	d.lastChange = time.Now()
}

// processChangeQueue pulls once the workbook has been quiet for
// DebounceInterval.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			if d.takePendingChange() {
				d.Trigger(d.passContext(), state.SheetToTable)
			}
		}
	}
}

// takePendingChange reports whether a settled change is waiting and clears it.
func (d *Daemon) takePendingChange() bool {
	d.changeMu.Lock()
	defer d.changeMu.Unlock()

	if !d.changed || time.Since(d.lastChange) < d.config.DebounceInterval {
		return false
	}
	d.changed = false
	return true
}

// pushLoop periodically pushes the table to the sheet.
func (d *Daemon) pushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.Trigger(d.passContext(), state.TableToSheet)
		}
	}
}
