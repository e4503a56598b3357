package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
)

// writeJSONResults writes a single result as an object and several as an array.
func writeJSONResults(w io.Writer, results []schema.MetricResult) error {
	if len(results) == 1 {
		return writeJSON(w, results[0])
	}
	return writeJSON(w, results)
}

// writeCSVResults writes one row per presented point of the current and previous series.
// Results without a series get a single row carrying their state and error.
func writeCSVResults(w io.Writer, results []schema.MetricResult, fmtFloat func(float64) string, intFmt string) error {
	header := []string{
		"request_id",
		"metric",
		"granularity",
		"state",
		"period",
		"label",
		"start",
		"end",
		"value",
		"inflow",
		"outflow",
		"cumulative_inflow",
		"cumulative_outflow",
		"classification",
		"error",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			classification := ""
			if r.Threshold != nil {
				classification = string(r.Threshold.Classification)
			}
			message := ""
			if r.Error != nil {
				message = r.Error.Message
			}
			base := []string{r.RequestID, string(r.Metric), string(r.Granularity), string(r.State)}

			if len(r.Series) == 0 && len(r.PreviousSeries) == 0 {
				row := append(append([]string{}, base...), "", "", "", "", "", "", "", "", "", classification, message)
				if err := cw.Write(row); err != nil {
					return err
				}
				continue
			}

			periods := []struct {
				name   string
				points []schema.ChartPoint
			}{
				{schema.CurrentPeriod, r.Series},
				{schema.PreviousPeriod, r.PreviousSeries},
			}
			for _, period := range periods {
				for _, p := range period.points {
					row := append(append([]string{}, base...),
						period.name,
						p.Label,
						p.Start.Format(contract.DateTimeFormat),
						p.End.Format(contract.DateTimeFormat),
						fmtFloat(p.Value),
						fmt.Sprintf(intFmt, p.Inflow),
						fmt.Sprintf(intFmt, p.Outflow),
						fmt.Sprintf(intFmt, p.CumulativeInflow),
						fmt.Sprintf(intFmt, p.CumulativeOutflow),
						classification,
						message,
					)
					if err := cw.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}
