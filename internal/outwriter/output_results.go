package outwriter

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/parquet"
	"github.com/huangsam/flowlens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintMetricResults outputs metric results, dispatching based on the output format configured.
func PrintMetricResults(results []schema.MetricResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSONResults(w, results)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVResults(w, results, fmtFloat, intFmt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if cfg.OutputFile == "" {
			return errors.New("--output-file is required for parquet output")
		}
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteSeries(w, parquet.ConvertResults(results))
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	case schema.PromOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return WritePrometheus(w, results)
		}, "Wrote Prometheus metrics"); err != nil {
			return fmt.Errorf("error writing Prometheus output: %w", err)
		}
	default:
		// Default to human-readable table
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeResultsTable(w, results, cfg, fmtFloat, intFmt, duration)
		}, "Wrote table")
	}
	return nil
}

// writeResultsTable writes a summary row per result. A single ready result also gets its series.
func writeResultsTable(w io.Writer, results []schema.MetricResult, cfg *contract.Config, fmtFloat func(float64) string, intFmt string, duration time.Duration) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "State", "Total", "Previous", "Delta", "Change", "Trend", "Status"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	messageWidth := getMaxTableTextWidth(cfg, 90)
	var data [][]string
	for _, r := range results {
		row := []string{string(r.Metric), stateLabel(r.State, cfg.UseColors)}
		if r.State != schema.ReadyState {
			message := ""
			if r.Error != nil {
				message = contract.TruncateText(r.Error.Message, messageWidth)
			}
			row = append(row, "-", "-", "-", "-", "-", message)
			data = append(data, row)
			continue
		}

		previous, delta, change, trend := "-", "-", "-", "-"
		if s := r.PreviousPeriodStat; s != nil {
			previous = fmtFloat(s.Previous)
			delta = fmtFloat(s.Delta)
			if s.PercentChange != nil {
				change = fmtFloat(*s.PercentChange) + "%"
			}
			trend = string(s.Trend)
		}
		status := classificationLabel("", cfg.UseColors)
		if r.Threshold != nil {
			status = classificationLabel(r.Threshold.Classification, cfg.UseColors)
		}
		row = append(row, fmtFloat(r.Total)+r.Metadata.Unit, previous, delta, change, trend, status)
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(results) == 1 && results[0].State == schema.ReadyState {
		if err := writeSeriesTable(w, results[0], fmtFloat, intFmt); err != nil {
			return err
		}
	}

	window := "-"
	if len(results) > 0 && results[0].Window != nil {
		window = fmt.Sprintf("%s to %s", results[0].Window.Start.Format(contract.DateTimeFormat), results[0].Window.End.Format(contract.DateTimeFormat))
	}
	if _, err := fmt.Fprintf(w, "Window: %s (%s buckets)\n", window, cfg.Granularity); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Computed %d metrics in %v with %d workers. Event backend: %s\n", len(results), duration, cfg.Workers, cfg.EventBackend); err != nil {
		return err
	}
	return nil
}

// writeSeriesTable writes the bucketed series of one result.
func writeSeriesTable(w io.Writer, r schema.MetricResult, fmtFloat func(float64) string, intFmt string) error {
	if _, err := fmt.Fprintf(w, "\n%s\n", r.Metadata.Title); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Period", "Value", "Inflow", "Outflow", "Cum Inflow", "Cum Outflow"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(r.Series))
	for _, p := range r.Series {
		data = append(data, []string{
			p.Label,
			fmtFloat(p.Value),
			fmt.Sprintf(intFmt, p.Inflow),
			fmt.Sprintf(intFmt, p.Outflow),
			fmt.Sprintf(intFmt, p.CumulativeInflow),
			fmt.Sprintf(intFmt, p.CumulativeOutflow),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func stateLabel(s schema.ChartDataState, useColors bool) string {
	if useColors {
		return contract.GetStateLabel(s)
	}
	return string(s)
}

func classificationLabel(c schema.Classification, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(c)
	}
	return contract.GetPlainLabel(c)
}
