package benchmark

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Mschirtzinger/sheetsync/internal/db"
	"github.com/Mschirtzinger/sheetsync/internal/grid"
)

func smallConfig(t *testing.T, driver string) BenchmarkConfig {
	t.Helper()
	return BenchmarkConfig{
		Rows:        20,
		Columns:     3,
		Iterations:  3,
		Concurrency: 8,
		Driver:      driver,
		Dir:         t.TempDir(),
		Table:       "bench",
	}
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      LatencyMetrics
	}{
		{
			name: "empty",
		},
		{
			name:      "single",
			durations: []time.Duration{5 * time.Millisecond},
			want: LatencyMetrics{
				Min: 5 * time.Millisecond, P50: 5 * time.Millisecond, Mean: 5 * time.Millisecond,
				P95: 5 * time.Millisecond, P99: 5 * time.Millisecond, Max: 5 * time.Millisecond,
			},
		},
		{
			name:      "unsorted",
			durations: []time.Duration{4, 1, 3, 2},
			want:      LatencyMetrics{Min: 1, P50: 3, Mean: 2, P95: 4, P99: 4, Max: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.durations)
			got.Durations = nil
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ComputeStats() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeStatsDoesNotReorderInput(t *testing.T) {
	in := []time.Duration{3, 1, 2}
	ComputeStats(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input was modified: %v", in)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Nanosecond, "1.50µs"},
		{2500 * time.Microsecond, "2.50ms"},
		{1500 * time.Millisecond, "1.50s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestCompareMemoryStatsShrink(t *testing.T) {
	got := CompareMemoryStats(ResourceMetrics{MemoryBeforeBytes: 100}, ResourceMetrics{MemoryAfterBytes: 40})
	if got.MemoryDeltaBytes != 0 {
		t.Errorf("expected zero delta for shrinking heap, got %d", got.MemoryDeltaBytes)
	}
}

func TestGenerateGrid(t *testing.T) {
	a := GenerateGrid(10, 4, 1)
	b := GenerateGrid(10, 4, 2)

	if a.Height() != 10 || a.Width() != 4 {
		t.Fatalf("grid is %dx%d, want 10x4", a.Height(), a.Width())
	}
	if grid.Fingerprint(a) == grid.Fingerprint(b) {
		t.Error("different seeds should produce different grids")
	}
	if grid.Fingerprint(a) != grid.Fingerprint(GenerateGrid(10, 4, 1)) {
		t.Error("same seed should produce the same grid")
	}
	if a[1][2] != "" {
		t.Errorf("expected blank cell at (2,3), got %q", a[1][2])
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	bad := DefaultConfig()
	bad.Rows = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero rows")
	}
	if _, err := RunSyncBenchmark(bad); err == nil {
		t.Error("RunSyncBenchmark should reject an invalid config")
	}
}

func TestRunSyncBenchmark(t *testing.T) {
	for _, driver := range []string{db.DriverNcruces, db.DriverModernc} {
		t.Run(driver, func(t *testing.T) {
			config := smallConfig(t, driver)

			result, err := RunSyncBenchmark(config)
			if err != nil {
				t.Fatalf("RunSyncBenchmark() failed: %v", err)
			}

			if !result.Success {
				t.Errorf("benchmark failed: %d errors, consistent=%v", result.ErrorCount, result.Concurrency.Consistent)
			}
			if len(result.Pull.Durations) != config.Iterations || len(result.Push.Durations) != config.Iterations {
				t.Errorf("expected %d timed passes each way, got %d pulls and %d pushes",
					config.Iterations, len(result.Pull.Durations), len(result.Push.Durations))
			}
			if result.Throughput.TotalPasses != 2*config.Iterations+config.Concurrency {
				t.Errorf("TotalPasses = %d", result.Throughput.TotalPasses)
			}
			c := result.Concurrency
			if c.Succeeded+c.Skipped+c.Failed != config.Concurrency {
				t.Errorf("burst outcomes %+v do not add up to %d", c, config.Concurrency)
			}
			if result.Database.RowCount != config.Rows {
				t.Errorf("RowCount = %d, want %d", result.Database.RowCount, config.Rows)
			}
			if result.Database.SizeBytes == 0 || result.Database.WorkbookSizeBytes == 0 {
				t.Errorf("expected non-empty files, got %+v", result.Database)
			}

			var buf bytes.Buffer
			PrintResult(&buf, *result)
			if !strings.Contains(buf.String(), "State Consistent:  true") {
				t.Errorf("report missing consistency line:\n%s", buf.String())
			}
		})
	}
}

func TestRunSyncBenchmarkWithoutBurst(t *testing.T) {
	config := smallConfig(t, db.DriverNcruces)
	config.Concurrency = 0

	result, err := RunSyncBenchmark(config)
	if err != nil {
		t.Fatalf("RunSyncBenchmark() failed: %v", err)
	}
	if !result.Success {
		t.Errorf("expected success, got %d errors", result.ErrorCount)
	}
	if result.Concurrency.Triggers != 0 {
		t.Errorf("expected no burst, got %+v", result.Concurrency)
	}
}

func TestCompare(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping driver comparison in short mode")
	}

	config := smallConfig(t, "")
	result, err := Compare(config)
	if err != nil {
		t.Fatalf("Compare() failed: %v", err)
	}

	if result.Ncruces.Config.Driver != db.DriverNcruces || result.Modernc.Config.Driver != db.DriverModernc {
		t.Errorf("drivers not set: %s, %s", result.Ncruces.Config.Driver, result.Modernc.Config.Driver)
	}
	switch result.OverallWinner {
	case db.DriverNcruces, db.DriverModernc, "tie":
	default:
		t.Errorf("unexpected winner %q", result.OverallWinner)
	}

	var buf bytes.Buffer
	if err := PrintComparisonJSON(&buf, result); err != nil {
		t.Fatalf("PrintComparisonJSON() failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := decoded["winner"]; !ok {
		t.Error("JSON missing winner")
	}

	buf.Reset()
	PrintComparison(&buf, result)
	if !strings.Contains(buf.String(), "DRIVER COMPARISON") {
		t.Error("comparison report missing header")
	}
}

// BenchmarkPull measures a sheet_to_table pass over a 100x8 grid.
func BenchmarkPull(b *testing.B) {
	config := DefaultConfig()
	config.Rows = 100
	config.Iterations = b.N
	config.Concurrency = 0
	config.Dir = b.TempDir()

	b.ResetTimer()
	result, err := RunSyncBenchmark(config)
	if err != nil {
		b.Fatalf("benchmark failed: %v", err)
	}
	b.ReportMetric(float64(result.Pull.P50.Microseconds()), "p50-µs")
}
