package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mschirtzinger/sheetsync/internal/benchmark"
	"github.com/Mschirtzinger/sheetsync/internal/db"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "maint",
	Short:   "Measure sync pass latency",
	Long: `Measure pull and push latency over a generated grid, using a temporary
workbook and database.

After the timed passes, --concurrency overlapping triggers are fired at the
same table; the run fails if the sync state no longer matches the sheet.

Modes:
  single   - Benchmark the configured driver (default)
  compare  - Benchmark both SQLite drivers and compare them

Examples:
  sheetsync bench
  sheetsync bench --rows 2000 --columns 12 --iterations 50
  sheetsync bench --mode compare --json`,
	Run: runBench,
}

func init() {
	benchCmd.Flags().Int("rows", 500, "Rows in the generated grid")
	benchCmd.Flags().Int("columns", 8, "Columns in the generated grid")
	benchCmd.Flags().Int("iterations", 20, "Timed pull/push pairs")
	benchCmd.Flags().Int("concurrency", 16, "Overlapping triggers fired after the timed passes")
	benchCmd.Flags().String("mode", "single", "Benchmark mode: single or compare")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) {
	rows, _ := cmd.Flags().GetInt("rows")
	columns, _ := cmd.Flags().GetInt("columns")
	iterations, _ := cmd.Flags().GetInt("iterations")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	mode, _ := cmd.Flags().GetString("mode")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	config := benchmark.BenchmarkConfig{
		Rows:        rows,
		Columns:     columns,
		Iterations:  iterations,
		Concurrency: concurrency,
		Driver:      cfg.Database.Driver,
		Table:       cfg.Table,
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch mode {
	case "single":
		runSingleBench(config, jsonOutput)
	case "compare":
		runCompareBench(config, jsonOutput)
	default:
		fmt.Fprintf(os.Stderr, "Error: --mode must be 'single' or 'compare'\n")
		os.Exit(1)
	}
}

func runSingleBench(config benchmark.BenchmarkConfig, jsonOutput bool) {
	if !jsonOutput {
		fmt.Printf("Running sync benchmark (%s)...\n", config.Driver)
	}

	result, err := benchmark.RunSyncBenchmark(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(benchmark.ResultJSON(result)); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		benchmark.PrintResult(os.Stdout, *result)
	}

	if !result.Success {
		os.Exit(1)
	}
}

func runCompareBench(config benchmark.BenchmarkConfig, jsonOutput bool) {
	if !jsonOutput {
		fmt.Printf("Running sync benchmark on %s and %s...\n", db.DriverNcruces, db.DriverModernc)
	}

	result, err := benchmark.Compare(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		if err := benchmark.PrintComparisonJSON(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			os.Exit(1)
		}
	} else {
		benchmark.PrintComparison(os.Stdout, result)
	}

	if !result.Ncruces.Success || !result.Modernc.Success {
		os.Exit(1)
	}
}
