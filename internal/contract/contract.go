// Package contract provides interfaces and shared utilities for flowlens's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/flowlens/schema"
)

// EventFetcher defines the read operations the engine needs from a raw event source.
// This allows the core computation to be tested without a real database.
type EventFetcher interface {
	// FetchEvents returns the events matching the query ordered by timestamp.
	// Every event lies strictly within the query window. A result that would exceed the
	// fetch limit is reported with ErrFetchTruncated instead of being cut short.
	FetchEvents(ctx context.Context, query schema.EventQuery) ([]schema.RawEvent, error)

	// ListEvents returns one page of the matching events, newest first.
	ListEvents(ctx context.Context, query schema.EventQuery, page schema.PageRequest) (schema.EventPage, error)
}

// MetricConfigResolver resolves the binding of a metric to its source and derivation rule.
type MetricConfigResolver interface {
	// ResolveMetricConfig returns ErrMetricNotConfigured when the metric has no binding.
	ResolveMetricConfig(metric schema.Metric) (schema.MetricConfig, error)
}

// MetricCatalog is a MetricConfigResolver that can also enumerate its bindings.
type MetricCatalog interface {
	MetricConfigResolver
	ListMetricConfigs() []schema.MetricConfig
}

// IntegrationChecker reports whether an organization has an integration connected.
type IntegrationChecker interface {
	IsIntegrationActive(ctx context.Context, orgID string, source schema.Source) (bool, error)
}

// SprintResolver resolves a sprint id into its time window.
type SprintResolver interface {
	// ResolveSprintWindow returns ErrSprintNotFound when the sprint is unknown.
	ResolveSprintWindow(ctx context.Context, sprintID string) (schema.Window, error)
}

// ErrorReporter receives general computation errors once per request.
type ErrorReporter interface {
	Report(ctx context.Context, err error, fields map[string]any)
}

// StoreManager defines the interface for managing persistence stores.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetEventStore() EventStore
	GetRunStore() RunStore
}

// EventStore is the local event database. It serves the engine's read interfaces
// and accepts imported events, sprints and integrations.
type EventStore interface {
	EventFetcher
	IntegrationChecker
	SprintResolver

	// ImportEvents upserts events by id and returns the number written.
	ImportEvents(ctx context.Context, events []schema.RawEvent) (int, error)

	// ImportSprints upserts sprints by id and returns the number written.
	ImportSprints(ctx context.Context, sprints []schema.Sprint) (int, error)

	// ImportIntegrations upserts integrations by org and source and returns the number written.
	ImportIntegrations(ctx context.Context, integrations []schema.Integration) (int, error)

	// GetStatus returns status information about the event store
	GetStatus() (schema.EventStoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

// RunStore defines the interface for tracking metric computations and their presented points.
type RunStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, req schema.MetricRequest, requestID string) (int64, error)

	// EndRun updates the run with the final state of the result
	EndRun(runID int64, endTime time.Time, result schema.MetricResult) error

	// RecordPoints stores the presented points of one period of a run
	RecordPoints(runID int64, period string, points []schema.ChartPoint) error

	// GetStatus returns status information about the run store
	GetStatus() (schema.RunStoreStatus, error)

	// GetAllRuns returns every recorded run ordered by id
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllRunPoints returns every recorded point ordered by run, period and position
	GetAllRunPoints() ([]schema.RunPointRecord, error)

	// Close closes the underlying connection
	Close() error
}
