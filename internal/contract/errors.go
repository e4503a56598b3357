package contract

import "errors"

// Sentinel errors shared by the engine and its collaborators.
var (
	ErrSprintNotFound      = errors.New("sprint not found")
	ErrMetricNotConfigured = errors.New("metric is not configured")
	ErrFetchTruncated      = errors.New("event fetch exceeded the configured limit")
)
