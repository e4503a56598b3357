package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/olekukonko/tablewriter"
)

// catalogRow is the flat view of one metric binding.
type catalogRow struct {
	metric    string
	source    string
	rule      string
	inflow    string
	outflow   string
	direction string
	target    string
	warning   string
	title     string
}

// PrintMetricCatalog outputs the configured metric bindings.
func PrintMetricCatalog(configs []schema.MetricConfig, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	rows := make([]catalogRow, 0, len(configs))
	for _, c := range configs {
		rows = append(rows, newCatalogRow(c, fmtFloat))
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, configs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVCatalog(w, rows)
		}, "Wrote CSV")
	case schema.ParquetOut, schema.PromOut:
		return fmt.Errorf("output %s is not supported for the metric catalog", cfg.Output)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCatalogTable(w, rows, cfg)
		}, "Wrote table")
	}
}

func newCatalogRow(c schema.MetricConfig, fmtFloat func(float64) string) catalogRow {
	row := catalogRow{
		metric:  string(c.Metric),
		source:  string(c.Source),
		rule:    string(c.Rule),
		inflow:  joinKinds(c.InflowKinds),
		outflow: joinKinds(c.OutflowKinds),
		title:   c.Display.Title,
	}
	if c.Thresholds == nil {
		return row
	}
	row.direction = string(c.Thresholds.Direction)
	if row.direction == "" {
		row.direction = string(schema.HigherIsBetter)
	}
	if c.Thresholds.Default != nil {
		row.target = fmtFloat(c.Thresholds.Default.Target)
		if c.Thresholds.Default.Warning != nil {
			row.warning = fmtFloat(*c.Thresholds.Default.Warning)
		}
	}
	return row
}

func joinKinds(kinds []schema.EventKind) string {
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, "|")
}

func writeCatalogTable(w io.Writer, rows []catalogRow, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Source", "Rule", "Inflow", "Outflow", "Direction", "Target", "Warning", "Title"})

	titleWidth := getMaxTableTextWidth(cfg, 110)
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.metric, r.source, r.rule, r.inflow, r.outflow, r.direction, r.target, r.warning,
			contract.TruncateText(r.title, titleWidth),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeCSVCatalog(w io.Writer, rows []catalogRow) error {
	header := []string{"metric", "source", "rule", "inflow_kinds", "outflow_kinds", "direction", "target", "warning", "title"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rows {
			if err := cw.Write([]string{r.metric, r.source, r.rule, r.inflow, r.outflow, r.direction, r.target, r.warning, r.title}); err != nil {
				return err
			}
		}
		return nil
	})
}
