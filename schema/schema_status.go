package schema

import "time"

// EventStoreStatus represents the status of the event store.
type EventStoreStatus struct {
	Backend         string           `json:"backend"`
	Connected       bool             `json:"connected"`
	TotalEvents     int              `json:"total_events"`
	NewestEventTime time.Time        `json:"newest_event_time"`
	OldestEventTime time.Time        `json:"oldest_event_time"`
	TableSizes      map[string]int64 `json:"table_sizes"`
}

// RunStoreStatus represents the status of the run history store.
type RunStoreStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	FailedRuns    int              `json:"failed_runs"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}
