// Package benchmark measures sync pass latency over the real collaborators,
// an xlsx workbook on disk and a SQLite database, and checks that
// overlapping triggers leave the sync state consistent.
package benchmark

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/db"
)

// BenchmarkConfig defines the parameters for a benchmark run.
type BenchmarkConfig struct {
	// Rows and Columns size the generated grid
	Rows    int
	Columns int

	// Iterations is how many pull/push pairs are timed
	Iterations int

	// Concurrency is how many overlapping triggers are fired at one table
	// after the timed passes. Zero skips the burst.
	Concurrency int

	// Driver selects the SQLite driver (db.DriverNcruces or db.DriverModernc)
	Driver string

	// Dir holds the workbook and database. A temporary directory is used
	// and removed when empty.
	Dir string

	// Table is the table name used for the run
	Table string
}

// DefaultConfig returns a benchmark configuration with sensible defaults.
func DefaultConfig() BenchmarkConfig {
	return BenchmarkConfig{
		Rows:        500,
		Columns:     8,
		Iterations:  20,
		Concurrency: 16,
		Driver:      db.DriverNcruces,
		Table:       "bench",
	}
}

// Validate checks the configuration before a run.
func (c BenchmarkConfig) Validate() error {
	if c.Rows <= 0 {
		return fmt.Errorf("rows must be positive")
	}
	if c.Columns <= 0 {
		return fmt.Errorf("columns must be positive")
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.Table == "" {
		return fmt.Errorf("table must not be empty")
	}
	return nil
}

// BenchmarkResult captures all metrics from a benchmark run.
type BenchmarkResult struct {
	// Configuration used for this run
	Config BenchmarkConfig

	// Pull is sheet_to_table latency, Push is table_to_sheet latency
	Pull LatencyMetrics
	Push LatencyMetrics

	// Throughput metrics
	Throughput ThroughputMetrics

	// Resource usage metrics
	Resources ResourceMetrics

	// Concurrency metrics
	Concurrency ConcurrencyMetrics

	// Storage metrics
	Database DatabaseMetrics

	// Overall test metrics
	TotalDuration time.Duration
	ErrorCount    int
	ErrorRate     float64
	Success       bool
}

// LatencyMetrics captures pass latency statistics.
type LatencyMetrics struct {
	Min  time.Duration
	P50  time.Duration // Median
	Mean time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration

	// Raw durations for analysis
	Durations []time.Duration
}

// ThroughputMetrics captures passes-per-second metrics.
type ThroughputMetrics struct {
	PassesPerSecond float64
	TotalPasses     int
}

// ResourceMetrics captures memory usage.
type ResourceMetrics struct {
	MemoryBeforeBytes uint64
	MemoryAfterBytes  uint64
	MemoryPeakBytes   uint64
	MemoryDeltaBytes  uint64
}

// ConcurrencyMetrics captures the outcome of the overlapping-trigger burst.
type ConcurrencyMetrics struct {
	Triggers  int
	Succeeded int
	Skipped   int
	Failed    int

	// Consistent reports whether the stored sheet fingerprint matches the
	// sheet after the burst.
	Consistent bool
}

// DatabaseMetrics captures on-disk statistics.
type DatabaseMetrics struct {
	SizeBytes         int64
	WorkbookSizeBytes int64
	RowCount          int
}

// ComputeStats calculates statistics from raw durations.
func ComputeStats(durations []time.Duration) LatencyMetrics {
	if len(durations) == 0 {
		return LatencyMetrics{}
	}

	// Sort for percentile calculation
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	mean := sum / time.Duration(len(sorted))

	return LatencyMetrics{
		Min:       sorted[0],
		P50:       sorted[len(sorted)*50/100],
		Mean:      mean,
		P95:       sorted[len(sorted)*95/100],
		P99:       sorted[len(sorted)*99/100],
		Max:       sorted[len(sorted)-1],
		Durations: sorted,
	}
}

// GetMemoryStats returns current memory usage statistics.
func GetMemoryStats() ResourceMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return ResourceMetrics{
		MemoryBeforeBytes: m.Alloc,
		MemoryAfterBytes:  m.Alloc,
		MemoryPeakBytes:   m.Sys,
	}
}

// CompareMemoryStats computes the delta between before and after memory stats.
// A heap that shrank yields a zero delta.
func CompareMemoryStats(before, after ResourceMetrics) ResourceMetrics {
	var delta uint64
	if after.MemoryAfterBytes > before.MemoryBeforeBytes {
		delta = after.MemoryAfterBytes - before.MemoryBeforeBytes
	}

	return ResourceMetrics{
		MemoryBeforeBytes: before.MemoryBeforeBytes,
		MemoryAfterBytes:  after.MemoryAfterBytes,
		MemoryPeakBytes:   after.MemoryPeakBytes,
		MemoryDeltaBytes:  delta,
	}
}

// FormatBytes formats bytes into a human-readable string.
func FormatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatDuration formats a duration into a human-readable string.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fµs", float64(d.Nanoseconds())/1000.0)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000.0)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// PrintResult writes a formatted benchmark result.
func PrintResult(w io.Writer, result BenchmarkResult) {
	fmt.Fprintf(w, "\n=== Sync Benchmark (%s driver) ===\n\n", result.Config.Driver)

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Grid:               %d rows x %d columns\n", result.Config.Rows, result.Config.Columns)
	fmt.Fprintf(w, "  Iterations:         %d\n", result.Config.Iterations)
	fmt.Fprintf(w, "  Concurrent Triggers: %d\n", result.Config.Concurrency)
	fmt.Fprintf(w, "\n")

	printLatency(w, "Pull latency (sheet_to_table)", result.Pull)
	printLatency(w, "Push latency (table_to_sheet)", result.Push)

	fmt.Fprintf(w, "Throughput:\n")
	fmt.Fprintf(w, "  Passes/sec:        %.2f\n", result.Throughput.PassesPerSecond)
	fmt.Fprintf(w, "  Total Passes:      %d\n", result.Throughput.TotalPasses)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Resources:\n")
	fmt.Fprintf(w, "  Memory Before:     %s\n", FormatBytes(result.Resources.MemoryBeforeBytes))
	fmt.Fprintf(w, "  Memory After:      %s\n", FormatBytes(result.Resources.MemoryAfterBytes))
	fmt.Fprintf(w, "  Memory Peak:       %s\n", FormatBytes(result.Resources.MemoryPeakBytes))
	fmt.Fprintf(w, "  Memory Delta:      %s\n", FormatBytes(result.Resources.MemoryDeltaBytes))
	fmt.Fprintf(w, "\n")

	if result.Concurrency.Triggers > 0 {
		fmt.Fprintf(w, "Concurrency:\n")
		fmt.Fprintf(w, "  Triggers:          %d\n", result.Concurrency.Triggers)
		fmt.Fprintf(w, "  Succeeded:         %d\n", result.Concurrency.Succeeded)
		fmt.Fprintf(w, "  Skipped:           %d\n", result.Concurrency.Skipped)
		fmt.Fprintf(w, "  Failed:            %d\n", result.Concurrency.Failed)
		fmt.Fprintf(w, "  State Consistent:  %v\n", result.Concurrency.Consistent)
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "Storage:\n")
	fmt.Fprintf(w, "  Database Size:     %s\n", FormatBytes(uint64(result.Database.SizeBytes)))
	fmt.Fprintf(w, "  Workbook Size:     %s\n", FormatBytes(uint64(result.Database.WorkbookSizeBytes)))
	fmt.Fprintf(w, "  Rows:              %d\n", result.Database.RowCount)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Overall:\n")
	fmt.Fprintf(w, "  Total Duration:    %s\n", FormatDuration(result.TotalDuration))
	fmt.Fprintf(w, "  Errors:            %d (%.2f%%)\n", result.ErrorCount, result.ErrorRate*100)
	fmt.Fprintf(w, "  Success:           %v\n", result.Success)
	fmt.Fprintf(w, "\n")
}

func printLatency(w io.Writer, title string, m LatencyMetrics) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Min:       %s\n", FormatDuration(m.Min))
	fmt.Fprintf(w, "  P50:       %s\n", FormatDuration(m.P50))
	fmt.Fprintf(w, "  Mean:      %s\n", FormatDuration(m.Mean))
	fmt.Fprintf(w, "  P95:       %s\n", FormatDuration(m.P95))
	fmt.Fprintf(w, "  P99:       %s\n", FormatDuration(m.P99))
	fmt.Fprintf(w, "  Max:       %s\n", FormatDuration(m.Max))
	fmt.Fprintf(w, "\n")
}
