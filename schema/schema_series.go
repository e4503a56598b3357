package schema

import "time"

// Bucket is one time slice of a series.
// Cumulative totals carry forward from the previous bucket.
type Bucket struct {
	Label             string            `json:"label"`
	Start             time.Time         `json:"start"`
	End               time.Time         `json:"end"`
	Counts            map[EventKind]int `json:"counts"`
	Inflow            int               `json:"inflow"`
	Outflow           int               `json:"outflow"`
	OutflowValue      float64           `json:"outflow_value"` // sum of RawEvent.Value over outflow events
	CumulativeInflow  int               `json:"cumulative_inflow"`
	CumulativeOutflow int               `json:"cumulative_outflow"`
}

// Series is the ordered, zero-filled buckets for one window and granularity.
type Series struct {
	Granularity Granularity `json:"granularity"`
	Window      Window      `json:"window"`
	Buckets     []Bucket    `json:"buckets"`
}

// Last returns the final bucket of the series.
func (s Series) Last() (Bucket, bool) {
	if len(s.Buckets) == 0 {
		return Bucket{}, false
	}
	return s.Buckets[len(s.Buckets)-1], true
}

// DerivedPoint is a single value of a derived series.
type DerivedPoint struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Value float64   `json:"value"`
}

// DerivedSeries is a series re-expressed in the metric's reporting shape.
// Values are not rounded.
type DerivedSeries struct {
	Metric Metric         `json:"metric"`
	Rule   Rule           `json:"rule"`
	Points []DerivedPoint `json:"points"`
	Total  float64        `json:"total"`
}

// Last returns the final value of the derived series.
func (d DerivedSeries) Last() (float64, bool) {
	if len(d.Points) == 0 {
		return 0, false
	}
	return d.Points[len(d.Points)-1].Value, true
}
