package schema

import "time"

// ChartMetadata is the display information of an assembled result.
type ChartMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Source      Source `json:"source"`
}

// ChartError carries the message and remediation link of a failed computation.
type ChartError struct {
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}

// ChartPoint is one presented point of a series.
type ChartPoint struct {
	Label             string    `json:"label"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	Value             float64   `json:"value"`
	Inflow            int       `json:"inflow"`
	Outflow           int       `json:"outflow"`
	CumulativeInflow  int       `json:"cumulative_inflow"`
	CumulativeOutflow int       `json:"cumulative_outflow"`
}

// MetricRequest is the input of a single metric computation.
// Page only applies to the list of raw events behind the metric.
type MetricRequest struct {
	Metric      Metric       `json:"metric"`
	Granularity Granularity  `json:"granularity"`
	Filter      Filter       `json:"filter"`
	Page        *PageRequest `json:"page,omitempty"`
}

// MetricResult is the assembled, presentation-ready outcome of a computation.
// State tells which variant it is; Error is set for every state except READY.
type MetricResult struct {
	RequestID   string         `json:"request_id"`
	Metric      Metric         `json:"metric"`
	Granularity Granularity    `json:"granularity"`
	Metadata    ChartMetadata  `json:"metadata"`
	State       ChartDataState `json:"state"`
	Phase       Phase          `json:"phase"`

	Window         *Window `json:"window,omitempty"`
	PreviousWindow *Window `json:"previous_window,omitempty"`

	Series         []ChartPoint `json:"series"`
	PreviousSeries []ChartPoint `json:"previous_series,omitempty"`
	Total          float64      `json:"total"`

	PreviousPeriodStat *PreviousPeriodStat `json:"previous_period_stat,omitempty"`
	Threshold          *ThresholdResult    `json:"threshold,omitempty"`
	Details            *EventPage          `json:"details,omitempty"`
	Error              *ChartError         `json:"error,omitempty"`
}

// NewChartPoints joins a bucketed series with its derived values and rounds for presentation.
func NewChartPoints(series Series, derived DerivedSeries) []ChartPoint {
	points := make([]ChartPoint, 0, len(derived.Points))
	for i, p := range derived.Points {
		cp := ChartPoint{
			Label: p.Label,
			Start: p.Start,
			End:   p.End,
			Value: RoundHalfUp(p.Value, PresentationPrecision),
		}
		if i < len(series.Buckets) {
			b := series.Buckets[i]
			cp.Inflow = b.Inflow
			cp.Outflow = b.Outflow
			cp.CumulativeInflow = b.CumulativeInflow
			cp.CumulativeOutflow = b.CumulativeOutflow
		}
		points = append(points, cp)
	}
	return points
}

// RoundStat returns a copy of the stat rounded for presentation.
func RoundStat(stat PreviousPeriodStat) PreviousPeriodStat {
	out := stat
	out.Current = RoundHalfUp(stat.Current, PresentationPrecision)
	out.Previous = RoundHalfUp(stat.Previous, PresentationPrecision)
	out.Delta = RoundHalfUp(stat.Delta, PresentationPrecision)
	if stat.PercentChange != nil {
		pct := RoundHalfUp(*stat.PercentChange, PresentationPrecision)
		out.PercentChange = &pct
	}
	return out
}
