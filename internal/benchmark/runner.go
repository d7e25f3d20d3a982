package benchmark

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/bisync"
	"github.com/Mschirtzinger/sheetsync/internal/db"
	"github.com/Mschirtzinger/sheetsync/internal/grid"
	"github.com/Mschirtzinger/sheetsync/internal/sheet"
	"github.com/Mschirtzinger/sheetsync/internal/state"
)

// RunSyncBenchmark executes a benchmark over a real workbook and database.
//
// Each iteration writes a fresh grid to the workbook, pulls it into the
// table and pushes it back. The echo guard is disabled so back-to-back
// passes are not skipped.
func RunSyncBenchmark(config BenchmarkConfig) (*BenchmarkResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dir := config.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "sheetsync-bench-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create benchmark directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		dir = tmp
	}

	dbPath := filepath.Join(dir, "bench.db")
	xlsxPath := filepath.Join(dir, "bench.xlsx")
	_ = os.Remove(dbPath)
	_ = os.Remove(xlsxPath)

	database, err := db.OpenDriver(config.Driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open benchmark database: %w", err)
	}
	defer func() { _ = database.Close() }()

	workbook, err := sheet.Open(xlsxPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open benchmark workbook: %w", err)
	}

	store := state.NewMemoryStore()
	engine := bisync.New(workbook, database, store, bisync.Config{
		EchoWindow: 0,
		Logger:     log.New(io.Discard, "", 0),
	})

	ctx := context.Background()
	memBefore := GetMemoryStats()
	benchStart := time.Now()

	var pulls, pushes []time.Duration
	errorCount := 0

	for i := 0; i < config.Iterations; i++ {
		g := GenerateGrid(config.Rows, config.Columns, i)
		if err := workbook.WriteRange(ctx, sheet.DefaultSheet, "A1", g); err != nil {
			return nil, fmt.Errorf("failed to seed workbook: %w", err)
		}

		d, ok := timePass(ctx, engine, config.Table, state.SheetToTable)
		pulls = append(pulls, d)
		if !ok {
			errorCount++
		}

		d, ok = timePass(ctx, engine, config.Table, state.TableToSheet)
		pushes = append(pushes, d)
		if !ok {
			errorCount++
		}
	}

	var conc ConcurrencyMetrics
	if config.Concurrency > 0 {
		conc, err = runBurst(ctx, engine, workbook, store, config)
		if err != nil {
			return nil, err
		}
		errorCount += conc.Failed
	}

	benchDuration := time.Since(benchStart)
	memStats := CompareMemoryStats(memBefore, GetMemoryStats())

	totalPasses := len(pulls) + len(pushes) + conc.Triggers
	qps := 0.0
	if benchDuration.Seconds() > 0 {
		qps = float64(totalPasses) / benchDuration.Seconds()
	}
	errorRate := 0.0
	if totalPasses > 0 {
		errorRate = float64(errorCount) / float64(totalPasses)
	}

	rows, err := database.GetRowCountContext(ctx, config.Table)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	result := &BenchmarkResult{
		Config:        config,
		Pull:          ComputeStats(pulls),
		Push:          ComputeStats(pushes),
		Resources:     memStats,
		Concurrency:   conc,
		TotalDuration: benchDuration,
		ErrorCount:    errorCount,
		ErrorRate:     errorRate,
		Throughput: ThroughputMetrics{
			PassesPerSecond: qps,
			TotalPasses:     totalPasses,
		},
		Database: DatabaseMetrics{
			SizeBytes:         fileSize(dbPath),
			WorkbookSizeBytes: fileSize(xlsxPath),
			RowCount:          rows,
		},
	}
	result.Success = errorCount == 0 && (conc.Triggers == 0 || conc.Consistent)

	return result, nil
}

func timePass(ctx context.Context, r bisync.Runner, table string, dir state.Direction) (time.Duration, bool) {
	start := time.Now()
	res := r.Run(ctx, bisync.Request{Table: table, SheetRef: sheet.DefaultSheet, Direction: dir})
	return time.Since(start), res.OK()
}

// runBurst fires overlapping triggers in alternating directions at one table
// and then checks the stored sheet fingerprint against the sheet itself.
func runBurst(ctx context.Context, engine *bisync.Engine, wb *sheet.Workbook, store state.Store, config BenchmarkConfig) (ConcurrencyMetrics, error) {
	m := ConcurrencyMetrics{Triggers: config.Concurrency}

	var wg sync.WaitGroup
	var mu sync.Mutex
	start := make(chan struct{})

	for i := 0; i < config.Concurrency; i++ {
		dir := state.SheetToTable
		if i%2 == 1 {
			dir = state.TableToSheet
		}
		wg.Add(1)
		go func(dir state.Direction) {
			defer wg.Done()
			<-start
			res := engine.Run(ctx, bisync.Request{Table: config.Table, SheetRef: sheet.DefaultSheet, Direction: dir})

			mu.Lock()
			defer mu.Unlock()
			switch res.Status {
			case bisync.StatusSuccess:
				m.Succeeded++
			case bisync.StatusSkipped:
				m.Skipped++
			default:
				m.Failed++
			}
		}(dir)
	}
	close(start)
	wg.Wait()

	rec, ok, err := state.Get(store, config.Table)
	if err != nil {
		return m, fmt.Errorf("failed to read sync state: %w", err)
	}
	g, err := wb.ReadGrid(ctx, sheet.DefaultSheet)
	if err != nil {
		return m, fmt.Errorf("failed to read workbook: %w", err)
	}
	m.Consistent = ok && rec.SheetFingerprint == grid.Fingerprint(g)

	return m, nil
}

// GenerateGrid builds a deterministic rows x cols grid. seed changes every
// cell so consecutive grids differ; every seventh cell is blank.
func GenerateGrid(rows, cols, seed int) grid.Grid {
	g := make(grid.Grid, rows)
	for r := range g {
		row := make([]string, cols)
		for c := range row {
			if (r*cols+c)%7 == 6 {
				continue
			}
			row[c] = fmt.Sprintf("r%dc%d-%d", r+1, c+1, seed)
		}
		g[r] = row
	}
	return g
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
