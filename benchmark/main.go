// Package main provides a performance benchmarking tool for the svncoord CLI.
// It builds sandbox states of increasing size, measures the diff and merge
// commands on each, running each test multiple times with the journal disabled
// and enabled, treating the first journaled run as cold and averaging the rest
// as warm, and writes CSV output for performance analysis and documentation.
//
// Prerequisites:
// - svncoord binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where state files and the SQLite journal are created
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-journal average, cold run and average of warm runs).
type BenchmarkResult struct {
	Size          string
	Command       string
	NoJournalTime string
	ColdTime      string
	WarmTime      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	NoJournalRuns int
	JournalRuns   int
	Sizes         []string
	FileCounts    map[string]int
}

// benchmarkCommand is one measured invocation.
type benchmarkCommand struct {
	name string
	args []string
}

var commands = []benchmarkCommand{
	{"diff", []string{"diff", "sandbox://repo/trunk", "-r", "1:3", "--summarize", "--output", "csv"}},
	{"eligible", []string{"mergeinfo", "eligible", "/br", "sandbox://repo/trunk", "--output", "csv"}},
	{"merge", []string{"merge", "sandbox://repo/trunk", "/br", "--dry-run", "--output", "csv"}},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:       os.Args[1],
		Timeout:       5 * time.Minute,
		NoJournalRuns: 3,
		JournalRuns:   4,
		Sizes:         []string{"small", "medium", "large"},
		FileCounts: map[string]int{
			"small":  10,
			"medium": 200,
			"large":  2000,
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the svncoord binary and the work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("svncoord"); err != nil {
		return fmt.Errorf("svncoord binary not found in PATH")
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return fmt.Errorf("cannot create work directory %s: %w", config.WorkDir, err)
	}
	return nil
}

// prepareState builds a repository with files on trunk, a branch and a second
// revision of every trunk file, then checks the branch out into /br.
func prepareState(dir string, files int) error {
	if err := os.RemoveAll(filepath.Join(dir, "state.yaml")); err != nil {
		return err
	}
	initial := []string{"sandbox", "import", "sandbox://repo", "branches/", "-m", "Initial import"}
	edited := []string{"sandbox", "import", "sandbox://repo", "-m", "Edit every file"}
	for i := range files {
		initial = append(initial, fmt.Sprintf("trunk/dir%d/file%d.txt=line %d", i%10, i, i))
		edited = append(edited, fmt.Sprintf("trunk/dir%d/file%d.txt=line %d edited", i%10, i, i))
	}
	steps := [][]string{
		{"sandbox", "init", "sandbox://repo"},
		initial,
		{"sandbox", "copy", "sandbox://repo/trunk", "sandbox://repo/branches/b", "-m", "Branch"},
		edited,
		{"sandbox", "checkout", "sandbox://repo/branches/b", "/br"},
	}
	for _, args := range steps {
		cmd := exec.Command("svncoord", append(args, "--state", "state.yaml")...)
		cmd.Dir = dir
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%s failed: %w\nOutput: %s", args[1], err, string(output))
		}
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured sizes
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %v timeout, no-journal: %d runs, journal: %d runs\n",
		len(config.Sizes), config.Timeout, config.NoJournalRuns, config.JournalRuns)

	for _, size := range config.Sizes {
		dir := filepath.Join(config.WorkDir, size)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Printf("Skipping %s: %v\n", size, err)
			continue
		}
		fmt.Printf("Preparing %s state (%d files)\n", size, config.FileCounts[size])
		if err := prepareState(dir, config.FileCounts[size]); err != nil {
			fmt.Printf("Skipping %s: %v\n", size, err)
			continue
		}
		for _, c := range commands {
			results = append(results, runBenchmarkSuite(config, size, dir, c))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-journal and journal benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, size, dir string, c benchmarkCommand) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", c.name, size)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, dir, c, backend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: journal disabled
	_, noJournalAvg := runPhase("none", config.NoJournalRuns, "No-journal")

	// Phase 2: SQLite journal
	coldTime, warmAvg := runPhase("sqlite", config.JournalRuns, "Journal")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-journal average: %s, Cold time: %s, Warm average: %s\n", noJournalAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Size:          size,
		Command:       c.name,
		NoJournalTime: noJournalAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark executes a command multiple times with the given journal backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, dir string, c benchmarkCommand, backend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{}, c.args...)
	args = append(args, "--state", "state.yaml", "--journal-backend", backend)
	if backend == "sqlite" {
		args = append(args, "--journal-db-connect", filepath.Join(dir, "journal.db"))
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("svncoord", args...)
		cmd.Dir = dir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks that the command produced CSV output rather than a failure message
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return !strings.Contains(outputStr, "Fatal") && strings.Contains(outputStr, ",")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/svncoord_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"size", "cmd", "no_journal_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Size, result.Command, result.NoJournalTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, c := range commands {
		fmt.Printf("%s:\n", c.name)
		for _, result := range results {
			if result.Command == c.name {
				fmt.Printf("  %-8s: No-journal: %s, Cold: %s, Warm: %s\n", result.Size, result.NoJournalTime, result.ColdTime, result.WarmTime)
			}
		}
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
