package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/db"
)

// ComparisonResult contains the results of running the same benchmark on
// both SQLite drivers.
type ComparisonResult struct {
	Ncruces BenchmarkResult
	Modernc BenchmarkResult

	// Improvement ratios (positive = ncruces is better)
	PullImprovement       map[string]float64 // min, p50, mean, p95, p99, max
	PushImprovement       map[string]float64
	ThroughputImprovement float64
	OverallWinner         string // db.DriverNcruces, db.DriverModernc or "tie"
	WinCount              map[string]int
}

// Compare runs the benchmark against each driver and compares results.
func Compare(config BenchmarkConfig) (*ComparisonResult, error) {
	ncrucesConfig := config
	ncrucesConfig.Driver = db.DriverNcruces
	ncruces, err := RunSyncBenchmark(ncrucesConfig)
	if err != nil {
		return nil, fmt.Errorf("%s benchmark failed: %w", db.DriverNcruces, err)
	}

	moderncConfig := config
	moderncConfig.Driver = db.DriverModernc
	modernc, err := RunSyncBenchmark(moderncConfig)
	if err != nil {
		return nil, fmt.Errorf("%s benchmark failed: %w", db.DriverModernc, err)
	}

	result := &ComparisonResult{
		Ncruces:         *ncruces,
		Modernc:         *modernc,
		PullImprovement: latencyImprovement(ncruces.Pull, modernc.Pull),
		PushImprovement: latencyImprovement(ncruces.Push, modernc.Push),
		WinCount:        make(map[string]int),
	}

	if modernc.Throughput.PassesPerSecond > 0 {
		result.ThroughputImprovement = (ncruces.Throughput.PassesPerSecond - modernc.Throughput.PassesPerSecond) /
			modernc.Throughput.PassesPerSecond * 100
	}

	tally := func(improvement float64) {
		if improvement > 0 {
			result.WinCount[db.DriverNcruces]++
		} else if improvement < 0 {
			result.WinCount[db.DriverModernc]++
		}
	}
	for _, v := range result.PullImprovement {
		tally(v)
	}
	for _, v := range result.PushImprovement {
		tally(v)
	}
	tally(result.ThroughputImprovement)

	switch {
	case result.WinCount[db.DriverNcruces] > result.WinCount[db.DriverModernc]:
		result.OverallWinner = db.DriverNcruces
	case result.WinCount[db.DriverModernc] > result.WinCount[db.DriverNcruces]:
		result.OverallWinner = db.DriverModernc
	default:
		result.OverallWinner = "tie"
	}

	return result, nil
}

func latencyImprovement(a, b LatencyMetrics) map[string]float64 {
	return map[string]float64{
		"min":  calculateImprovement(a.Min.Seconds(), b.Min.Seconds()),
		"p50":  calculateImprovement(a.P50.Seconds(), b.P50.Seconds()),
		"mean": calculateImprovement(a.Mean.Seconds(), b.Mean.Seconds()),
		"p95":  calculateImprovement(a.P95.Seconds(), b.P95.Seconds()),
		"p99":  calculateImprovement(a.P99.Seconds(), b.P99.Seconds()),
		"max":  calculateImprovement(a.Max.Seconds(), b.Max.Seconds()),
	}
}

// calculateImprovement returns how much lower value is than baseline, in
// percent of baseline. Lower is better.
func calculateImprovement(value, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - value) / baseline * 100
}

// PrintComparison writes a side-by-side report.
func PrintComparison(w io.Writer, result *ComparisonResult) {
	separator := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n", separator)
	fmt.Fprintf(w, "DRIVER COMPARISON: ncruces/go-sqlite3 vs modernc.org/sqlite\n")
	fmt.Fprintf(w, "%s\n\n", separator)

	cfg := result.Ncruces.Config
	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Grid:                %d rows x %d columns\n", cfg.Rows, cfg.Columns)
	fmt.Fprintf(w, "  Iterations:          %d\n", cfg.Iterations)
	fmt.Fprintf(w, "  Concurrent Triggers: %d\n\n", cfg.Concurrency)

	printLatencyTable(w, "PULL LATENCY (sheet_to_table)", result.Ncruces.Pull, result.Modernc.Pull, result.PullImprovement)
	printLatencyTable(w, "PUSH LATENCY (table_to_sheet)", result.Ncruces.Push, result.Modernc.Push, result.PushImprovement)

	fmt.Fprintf(w, "THROUGHPUT:\n")
	fmt.Fprintf(w, "  ncruces:     %.2f passes/sec\n", result.Ncruces.Throughput.PassesPerSecond)
	fmt.Fprintf(w, "  modernc:     %.2f passes/sec\n", result.Modernc.Throughput.PassesPerSecond)
	fmt.Fprintf(w, "  Improvement: %s%.2f%%\n\n", formatSign(result.ThroughputImprovement), result.ThroughputImprovement)

	fmt.Fprintf(w, "CONSISTENCY:\n")
	fmt.Fprintf(w, "  ncruces: %d errors, state consistent: %v\n", result.Ncruces.ErrorCount, result.Ncruces.Concurrency.Consistent)
	fmt.Fprintf(w, "  modernc: %d errors, state consistent: %v\n\n", result.Modernc.ErrorCount, result.Modernc.Concurrency.Consistent)

	fmt.Fprintf(w, "SUMMARY:\n")
	fmt.Fprintf(w, "  ncruces Wins:   %d metrics\n", result.WinCount[db.DriverNcruces])
	fmt.Fprintf(w, "  modernc Wins:   %d metrics\n", result.WinCount[db.DriverModernc])
	fmt.Fprintf(w, "  Overall Winner: %s\n\n", strings.ToUpper(result.OverallWinner))

	fmt.Fprintf(w, "%s\n\n", separator)
}

func printLatencyTable(w io.Writer, title string, a, b LatencyMetrics, improvement map[string]float64) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "%-10s | %-12s | %-12s | %-15s\n", "Metric", "ncruces", "modernc", "Improvement")
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", 60))
	printLatencyRow(w, "Min", a.Min, b.Min, improvement["min"])
	printLatencyRow(w, "P50", a.P50, b.P50, improvement["p50"])
	printLatencyRow(w, "Mean", a.Mean, b.Mean, improvement["mean"])
	printLatencyRow(w, "P95", a.P95, b.P95, improvement["p95"])
	printLatencyRow(w, "P99", a.P99, b.P99, improvement["p99"])
	printLatencyRow(w, "Max", a.Max, b.Max, improvement["max"])
	fmt.Fprintf(w, "\n")
}

// printLatencyRow prints a single row in the latency comparison table.
func printLatencyRow(w io.Writer, metric string, a, b time.Duration, improvement float64) {
	improvementStr := fmt.Sprintf("%s%.1f%%", formatSign(improvement), improvement)
	fmt.Fprintf(w, "%-10s | %-12s | %-12s | %-15s\n",
		metric,
		FormatDuration(a),
		FormatDuration(b),
		improvementStr)
}

// formatSign returns a + sign for positive values.
func formatSign(value float64) string {
	if value > 0 {
		return "+"
	}
	return ""
}

// ResultJSON flattens a result into a JSON-friendly map.
func ResultJSON(result *BenchmarkResult) map[string]interface{} {
	latency := func(m LatencyMetrics) map[string]interface{} {
		return map[string]interface{}{
			"min_ms":  m.Min.Milliseconds(),
			"p50_ms":  m.P50.Milliseconds(),
			"mean_ms": m.Mean.Milliseconds(),
			"p95_ms":  m.P95.Milliseconds(),
			"p99_ms":  m.P99.Milliseconds(),
			"max_ms":  m.Max.Milliseconds(),
		}
	}

	return map[string]interface{}{
		"config": map[string]interface{}{
			"driver":      result.Config.Driver,
			"rows":        result.Config.Rows,
			"columns":     result.Config.Columns,
			"iterations":  result.Config.Iterations,
			"concurrency": result.Config.Concurrency,
		},
		"pull": latency(result.Pull),
		"push": latency(result.Push),
		"throughput": map[string]interface{}{
			"passes_per_sec": result.Throughput.PassesPerSecond,
			"passes":         result.Throughput.TotalPasses,
		},
		"memory": map[string]interface{}{
			"before_bytes": result.Resources.MemoryBeforeBytes,
			"after_bytes":  result.Resources.MemoryAfterBytes,
			"peak_bytes":   result.Resources.MemoryPeakBytes,
			"delta_bytes":  result.Resources.MemoryDeltaBytes,
		},
		"concurrency": map[string]interface{}{
			"triggers":   result.Concurrency.Triggers,
			"succeeded":  result.Concurrency.Succeeded,
			"skipped":    result.Concurrency.Skipped,
			"failed":     result.Concurrency.Failed,
			"consistent": result.Concurrency.Consistent,
		},
		"storage": map[string]interface{}{
			"database_bytes": result.Database.SizeBytes,
			"workbook_bytes": result.Database.WorkbookSizeBytes,
			"rows":           result.Database.RowCount,
		},
		"duration_ms": result.TotalDuration.Milliseconds(),
		"errors":      result.ErrorCount,
		"error_rate":  result.ErrorRate,
		"success":     result.Success,
	}
}

// PrintComparisonJSON writes the comparison as indented JSON.
func PrintComparisonJSON(w io.Writer, result *ComparisonResult) error {
	output := map[string]interface{}{
		db.DriverNcruces: ResultJSON(&result.Ncruces),
		db.DriverModernc: ResultJSON(&result.Modernc),
		"improvement": map[string]interface{}{
			"pull_pct":       result.PullImprovement,
			"push_pct":       result.PushImprovement,
			"throughput_pct": result.ThroughputImprovement,
		},
		"winner": result.OverallWinner,
		"wins": map[string]int{
			db.DriverNcruces: result.WinCount[db.DriverNcruces],
			db.DriverModernc: result.WinCount[db.DriverModernc],
		},
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
