// Package parquet provides data structures and functions for exporting flowlens
// run history and metric series to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/flowlens/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single metric computation with its outcome.
// This struct maps to the flow_runs database table.
type Run struct {
	RunID       int64  `parquet:"run_id,snappy"`
	RequestID   string `parquet:"request_id,snappy,dict"`
	Metric      string `parquet:"metric,snappy,dict"`
	Granularity string `parquet:"granularity,snappy,dict"`
	OrgID       string `parquet:"org_id,snappy,dict"`
	State       string `parquet:"state,snappy,dict"`
	Phase       string `parquet:"phase,snappy,dict"`

	// WindowStart and WindowEnd are unset when the filter never resolved
	WindowStart *time.Time `parquet:"window_start,optional,snappy"`
	WindowEnd   *time.Time `parquet:"window_end,optional,snappy"`

	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`
	ErrorMessage  *string    `parquet:"error_message,optional,snappy"`

	// FilterParams contains the JSON-encoded filter of the request
	FilterParams *string `parquet:"filter_params,optional,snappy"`
}

// RunPoint is one presented point of a run.
// This struct maps to the flow_run_points database table.
type RunPoint struct {
	RunID             int64     `parquet:"run_id,snappy"`
	Period            string    `parquet:"period,snappy,dict"`
	Position          int32     `parquet:"position,snappy"`
	Label             string    `parquet:"label,snappy"`
	BucketStart       time.Time `parquet:"bucket_start,snappy"`
	BucketEnd         time.Time `parquet:"bucket_end,snappy"`
	Value             float64   `parquet:"value,snappy"`
	CumulativeInflow  int32     `parquet:"cumulative_inflow,snappy"`
	CumulativeOutflow int32     `parquet:"cumulative_outflow,snappy"`
}

// SeriesPoint is one point of a computed metric result, flattened with its result context.
type SeriesPoint struct {
	RequestID         string    `parquet:"request_id,snappy,dict"`
	Metric            string    `parquet:"metric,snappy,dict"`
	Granularity       string    `parquet:"granularity,snappy,dict"`
	State             string    `parquet:"state,snappy,dict"`
	Period            string    `parquet:"period,snappy,dict"`
	Label             string    `parquet:"label,snappy"`
	BucketStart       time.Time `parquet:"bucket_start,snappy"`
	BucketEnd         time.Time `parquet:"bucket_end,snappy"`
	Value             float64   `parquet:"value,snappy"`
	Inflow            int32     `parquet:"inflow,snappy"`
	Outflow           int32     `parquet:"outflow,snappy"`
	CumulativeInflow  int32     `parquet:"cumulative_inflow,snappy"`
	CumulativeOutflow int32     `parquet:"cumulative_outflow,snappy"`
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteRunPointsParquet writes run points to a Parquet file.
func WriteRunPointsParquet(data []RunPoint, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteSeries writes series points to w.
func WriteSeries(w io.Writer, data []SeriesPoint) error {
	return write(w, data)
}

func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// write infers the schema from the struct tags of T.
func write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:         r.RunID,
			RequestID:     r.RequestID,
			Metric:        r.Metric,
			Granularity:   r.Granularity,
			OrgID:         r.OrgID,
			State:         r.State,
			Phase:         r.Phase,
			WindowStart:   r.WindowStart,
			WindowEnd:     r.WindowEnd,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			ErrorMessage:  r.ErrorMessage,
			FilterParams:  r.FilterParams,
		}
	}
	return result
}

// ConvertRunPointRecords converts schema.RunPointRecord to RunPoint for Parquet export.
func ConvertRunPointRecords(records []schema.RunPointRecord) []RunPoint {
	result := make([]RunPoint, len(records))
	for i, r := range records {
		result[i] = RunPoint(r)
	}
	return result
}

// ConvertResults flattens the current and previous series of every result.
// Results without a series contribute no points.
func ConvertResults(results []schema.MetricResult) []SeriesPoint {
	var out []SeriesPoint
	for _, res := range results {
		add := func(period string, points []schema.ChartPoint) {
			for _, p := range points {
				out = append(out, SeriesPoint{
					RequestID:         res.RequestID,
					Metric:            string(res.Metric),
					Granularity:       string(res.Granularity),
					State:             string(res.State),
					Period:            period,
					Label:             p.Label,
					BucketStart:       p.Start,
					BucketEnd:         p.End,
					Value:             p.Value,
					Inflow:            int32(p.Inflow),
					Outflow:           int32(p.Outflow),
					CumulativeInflow:  int32(p.CumulativeInflow),
					CumulativeOutflow: int32(p.CumulativeOutflow),
				})
			}
		}
		add(schema.CurrentPeriod, res.Series)
		add(schema.PreviousPeriod, res.PreviousSeries)
	}
	return out
}
