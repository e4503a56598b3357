package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// PrintEventPage outputs one page of raw events, dispatching based on the output format configured.
func PrintEventPage(metric schema.Metric, page schema.EventPage, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, page)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVEvents(w, page.Events, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut, schema.PromOut:
		return fmt.Errorf("output %s is not supported for event listings", cfg.Output)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeEventTable(w, metric, page, cfg, fmtFloat)
		}, "Wrote table")
	}
}

// writeEventTable writes the events of one page, newest first.
func writeEventTable(w io.Writer, metric schema.Metric, page schema.EventPage, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Time", "Kind", "Assignee", "Repository", "Title", "Value"})

	titleWidth := getMaxTableTextWidth(cfg, 75)
	data := make([][]string, 0, len(page.Events))
	for _, e := range page.Events {
		data = append(data, []string{
			e.Timestamp.Format(contract.DateTimeFormat),
			string(e.Kind),
			schema.AbbreviateName(e.Assignee),
			e.Repository,
			contract.TruncateText(e.Title, titleWidth),
			fmtFloat(e.Value),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s: page %d of %d (%d events)\n", metric, page.PageNumber, page.TotalPages, page.TotalCount); err != nil {
		return err
	}
	assignees := lo.Uniq(lo.Map(page.Events, func(e schema.RawEvent, _ int) string { return e.Assignee }))
	if names := schema.DisplayAuthors(assignees); names != "" {
		if _, err := fmt.Fprintf(w, "Assignees on this page: %s\n", names); err != nil {
			return err
		}
	}
	return nil
}

// writeCSVEvents writes raw events with every field.
func writeCSVEvents(w io.Writer, events []schema.RawEvent, fmtFloat func(float64) string) error {
	header := []string{"id", "org_id", "kind", "timestamp", "team_id", "assignee", "repository", "pull_request_id", "title", "value"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, e := range events {
			rec := []string{
				e.ID,
				e.OrgID,
				string(e.Kind),
				e.Timestamp.Format(contract.DateTimeFormat),
				e.TeamID,
				e.Assignee,
				e.Repository,
				e.PullRequestID,
				e.Title,
				fmtFloat(e.Value),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}
