package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func testConfig(t *testing.T, output schema.OutputMode) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:       output,
		OutputFile:   filepath.Join(t.TempDir(), "out"),
		Precision:    1,
		Width:        120,
		Granularity:  schema.WeekGranularity,
		Workers:      4,
		EventBackend: schema.SQLiteBackend,
	}
}

func readOutput(t *testing.T, cfg *contract.Config) string {
	t.Helper()
	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	return string(data)
}

func readyResult() schema.MetricResult {
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	return schema.MetricResult{
		RequestID:   "req-1",
		Metric:      schema.IssueThroughput,
		Granularity: schema.WeekGranularity,
		Metadata:    schema.ChartMetadata{Title: "Issue throughput", Unit: "%", Source: schema.IssueTrackerSource},
		State:       schema.ReadyState,
		Phase:       schema.AssembledPhase,
		Window:      &schema.Window{Start: start, End: start.AddDate(0, 0, 14)},
		Series: []schema.ChartPoint{
			{Label: "2025-01-06", Start: start, End: start.AddDate(0, 0, 7), Value: 25, Inflow: 4, Outflow: 1, CumulativeInflow: 4, CumulativeOutflow: 1},
			{Label: "2025-01-13", Start: start.AddDate(0, 0, 7), End: start.AddDate(0, 0, 14), Value: 50, Inflow: 0, Outflow: 1, CumulativeInflow: 4, CumulativeOutflow: 2},
		},
		PreviousSeries: []schema.ChartPoint{
			{Label: "2024-12-23", Start: start.AddDate(0, 0, -14), End: start.AddDate(0, 0, -7), Value: 40},
		},
		Total: 50,
		PreviousPeriodStat: &schema.PreviousPeriodStat{
			Current: 50, Previous: 40, Delta: 10, PercentChange: ptr(25.0), Trend: schema.TrendUp, HasHistory: true,
		},
		Threshold: &schema.ThresholdResult{
			Value: 50, Classification: schema.Meets, Direction: schema.HigherIsBetter,
			Granularity: schema.WeekGranularity, Target: 40, Warning: ptr(30.0),
		},
	}
}

func notConfiguredResult() schema.MetricResult {
	return schema.MetricResult{
		RequestID:   "req-2",
		Metric:      schema.BugThroughput,
		Granularity: schema.WeekGranularity,
		State:       schema.NotConfiguredState,
		Phase:       schema.ResolvingFilterPhase,
		Error:       &schema.ChartError{Message: "metric BUG_THROUGHPUT is not configured", Link: "/settings/metrics"},
	}
}

func TestPrintMetricResultsText(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	err := PrintMetricResults([]schema.MetricResult{readyResult(), notConfiguredResult()}, cfg, time.Second)
	require.NoError(t, err)

	out := readOutput(t, cfg)
	assert.Contains(t, out, "ISSUE_THROUGHPUT")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Meets")
	assert.Contains(t, out, "NOT_CONFIGURED")
	assert.Contains(t, out, "Computed 2 metrics in 1s with 4 workers. Event backend: sqlite")
	// The series table is only shown for a single result
	assert.NotContains(t, out, "2025-01-13")
}

func TestPrintMetricResultsTextSingle(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	require.NoError(t, PrintMetricResults([]schema.MetricResult{readyResult()}, cfg, time.Second))

	out := readOutput(t, cfg)
	assert.Contains(t, out, "Issue throughput")
	assert.Contains(t, out, "2025-01-06")
	assert.Contains(t, out, "2025-01-13")
	assert.Contains(t, out, "Window: 2025-01-06T00:00:00Z to 2025-01-20T00:00:00Z (WEEK buckets)")
}

func TestPrintMetricResultsJSON(t *testing.T) {
	t.Run("single result is an object", func(t *testing.T) {
		cfg := testConfig(t, schema.JSONOut)
		require.NoError(t, PrintMetricResults([]schema.MetricResult{readyResult()}, cfg, 0))

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
		assert.Equal(t, "ISSUE_THROUGHPUT", got["metric"])
		assert.Equal(t, "READY", got["state"])
		assert.Equal(t, 50.0, got["total"])
	})

	t.Run("several results are an array", func(t *testing.T) {
		cfg := testConfig(t, schema.JSONOut)
		require.NoError(t, PrintMetricResults([]schema.MetricResult{readyResult(), notConfiguredResult()}, cfg, 0))

		var got []map[string]any
		require.NoError(t, json.Unmarshal([]byte(readOutput(t, cfg)), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "NOT_CONFIGURED", got[1]["state"])
		errObj, ok := got[1]["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/settings/metrics", errObj["link"])
	})
}

func TestWriteCSVResults(t *testing.T) {
	fmtFloat, intFmt := createFormatters(2)
	var buf bytes.Buffer
	require.NoError(t, writeCSVResults(&buf, []schema.MetricResult{readyResult(), notConfiguredResult()}, fmtFloat, intFmt))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	// header + 2 current + 1 previous + 1 for the unconfigured result
	require.Len(t, records, 5)
	assert.Equal(t, "request_id", records[0][0])
	assert.Len(t, records[0], 15)

	assert.Equal(t, []string{"req-1", "ISSUE_THROUGHPUT", "WEEK", "READY", "current", "2025-01-06"}, records[1][:6])
	assert.Equal(t, "25.00", records[1][8])
	assert.Equal(t, "MEETS", records[1][13])
	assert.Equal(t, "previous", records[3][4])

	assert.Equal(t, "NOT_CONFIGURED", records[4][3])
	assert.Equal(t, "", records[4][4])
	assert.Equal(t, "metric BUG_THROUGHPUT is not configured", records[4][14])
}

func TestPrintMetricResultsParquet(t *testing.T) {
	cfg := testConfig(t, schema.ParquetOut)
	require.NoError(t, PrintMetricResults([]schema.MetricResult{readyResult()}, cfg, 0))
	info, err := os.Stat(cfg.OutputFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	cfg.OutputFile = ""
	err = PrintMetricResults([]schema.MetricResult{readyResult()}, cfg, 0)
	assert.ErrorContains(t, err, "--output-file is required")
}

func TestPrintMetricResultsProm(t *testing.T) {
	cfg := testConfig(t, schema.PromOut)
	require.NoError(t, PrintMetricResults([]schema.MetricResult{readyResult(), notConfiguredResult()}, cfg, 0))

	out := readOutput(t, cfg)
	assert.True(t, strings.HasPrefix(out, "# HELP flowlens_metric_state"))
	assert.Contains(t, out, `flowlens_metric_total{metric="ISSUE_THROUGHPUT",granularity="WEEK"} 50`)
	assert.Contains(t, out, `state="NOT_CONFIGURED"`)
}

func TestPrintMetricResultsColorless(t *testing.T) {
	cfg := testConfig(t, schema.TextOut)
	cfg.UseColors = false
	require.NoError(t, PrintMetricResults([]schema.MetricResult{notConfiguredResult()}, cfg, 0))
	assert.NotContains(t, readOutput(t, cfg), "\x1b[")
}

func TestCreateFormatters(t *testing.T) {
	fmtFloat, intFmt := createFormatters(2)
	assert.Equal(t, "%d", intFmt)
	assert.Equal(t, "12.35", fmtFloat(12.346))
	assert.Equal(t, "-3.50", fmtFloat(-3.5))
	assert.Equal(t, "0.00", fmtFloat(-0.001))
	assert.Equal(t, "n/a", fmtFloat(math.NaN()))
	assert.Equal(t, "n/a", fmtFloat(math.Inf(1)))
}
