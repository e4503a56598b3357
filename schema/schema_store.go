package schema

import "time"

// RunRecord represents a row from the flow_runs table.
type RunRecord struct {
	RunID         int64
	RequestID     string
	Metric        string
	Granularity   string
	OrgID         string
	State         string
	Phase         string
	WindowStart   *time.Time
	WindowEnd     *time.Time
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	ErrorMessage  *string
	FilterParams  *string
}

// RunPointRecord represents a row from the flow_run_points table.
type RunPointRecord struct {
	RunID             int64
	Period            string // "current" or "previous"
	Position          int32
	Label             string
	BucketStart       time.Time
	BucketEnd         time.Time
	Value             float64
	CumulativeInflow  int32
	CumulativeOutflow int32
}

// Run periods stored with each point.
const (
	CurrentPeriod  = "current"
	PreviousPeriod = "previous"
)
