// Package main provides a performance benchmarking tool for the flowlens CLI.
// It measures execution times of the metric and dashboard commands across granularities,
// running each test multiple times, treating the first successful run as cold and averaging the rest as warm,
// generating CSV output for performance analysis and documentation.
//
// Prerequisites:
// - flowlens binary installed and available in PATH
// - An event store already filled with `flowlens events import` for the organization
//
// Usage: go run benchmark/main.go [org-id]
//
//	org-id: Organization whose events are measured
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (untracked average, cold run and average of warm runs).
type BenchmarkResult struct {
	Granularity   string
	Command       string
	UntrackedTime string
	ColdTime      string
	WarmTime      string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	OrgID         string
	Start         string
	Timeout       time.Duration
	Workers       int
	UntrackedRuns int
	TrackedRuns   int
	Granularities []string
	Commands      map[string]string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [org-id]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		OrgID:         os.Args[1],
		Start:         "1 year ago",
		Timeout:       5 * time.Minute,
		Workers:       8,
		UntrackedRuns: 3,
		TrackedRuns:   4,
		Granularities: []string{"day", "week", "month", "quarter"},
		Commands: map[string]string{
			"metric":    "metric issue_throughput",
			"dashboard": "dashboard",
		},
	}

	if _, err := exec.LookPath("flowlens"); err != nil {
		fmt.Printf("Prerequisites check failed: flowlens binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// runBenchmarks executes every command at every granularity
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: org %s, %v timeout, %d workers, untracked: %d runs, tracked: %d runs\n",
		config.OrgID, config.Timeout, config.Workers, config.UntrackedRuns, config.TrackedRuns)

	for _, g := range config.Granularities {
		for _, command := range []string{"metric", "dashboard"} {
			results = append(results, runBenchmarkSuite(config, g, command))
		}
	}
	return results
}

// runBenchmarkSuite runs a command without and with run tracking
func runBenchmarkSuite(config BenchmarkConfig, granularity, command string) BenchmarkResult {
	fmt.Printf("Running %s at %s granularity\n", command, granularity)

	runPhase := func(runBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, granularity, command, runBackend, numRuns)
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

	_, untrackedAvg := runPhase("none", config.UntrackedRuns, "Untracked")
	coldTime, warmAvg := runPhase("sqlite", config.TrackedRuns, "Tracked")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  Untracked average: %s, Cold time: %s, Warm average: %s\n", untrackedAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Granularity:   granularity,
		Command:       command,
		UntrackedTime: untrackedAvg,
		ColdTime:      coldTimeStr,
		WarmTime:      warmAvg,
	}
}

// runBenchmark executes a flowlens command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, granularity, command, runBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := strings.Fields(config.Commands[command])
	args = append(args,
		"--org", config.OrgID,
		"--start", config.Start,
		"--granularity", granularity,
		"--workers", fmt.Sprint(config.Workers),
		"--run-backend", runBackend,
	)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("flowlens", args...)

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
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Computed") &&
		strings.Contains(outputStr, "metrics in") &&
		strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/flowlens_benchmark_%s.csv", timestamp)

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

	if err := writer.Write([]string{"granularity", "cmd", "untracked_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Granularity, result.Command, result.UntrackedTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "metric", "Single Metric:")
	printCommandSummary(results, "dashboard", "Dashboard:")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-8s: Untracked: %s, Cold: %s, Warm: %s\n", result.Granularity, result.UntrackedTime, result.ColdTime, result.WarmTime)
		}
	}
}
