package contract

import (
	"context"

	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/mock"
)

// MockEventFetcher is a mock implementation of EventFetcher for testing.
type MockEventFetcher struct {
	mock.Mock
}

var _ EventFetcher = &MockEventFetcher{} // Compile-time check

// FetchEvents implements the EventFetcher interface.
func (m *MockEventFetcher) FetchEvents(ctx context.Context, query schema.EventQuery) ([]schema.RawEvent, error) {
	args := m.Called(ctx, query)
	events, _ := args.Get(0).([]schema.RawEvent)
	return events, args.Error(1)
}

// ListEvents implements the EventFetcher interface.
func (m *MockEventFetcher) ListEvents(ctx context.Context, query schema.EventQuery, page schema.PageRequest) (schema.EventPage, error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(schema.EventPage), args.Error(1)
}

// MockMetricConfigResolver is a mock implementation of MetricCatalog for testing.
type MockMetricConfigResolver struct {
	mock.Mock
}

var _ MetricCatalog = &MockMetricConfigResolver{} // Compile-time check

// ResolveMetricConfig implements the MetricConfigResolver interface.
func (m *MockMetricConfigResolver) ResolveMetricConfig(metric schema.Metric) (schema.MetricConfig, error) {
	args := m.Called(metric)
	return args.Get(0).(schema.MetricConfig), args.Error(1)
}

// ListMetricConfigs implements the MetricCatalog interface.
func (m *MockMetricConfigResolver) ListMetricConfigs() []schema.MetricConfig {
	args := m.Called()
	configs, _ := args.Get(0).([]schema.MetricConfig)
	return configs
}

// MockIntegrationChecker is a mock implementation of IntegrationChecker for testing.
type MockIntegrationChecker struct {
	mock.Mock
}

var _ IntegrationChecker = &MockIntegrationChecker{} // Compile-time check

// IsIntegrationActive implements the IntegrationChecker interface.
func (m *MockIntegrationChecker) IsIntegrationActive(ctx context.Context, orgID string, source schema.Source) (bool, error) {
	args := m.Called(ctx, orgID, source)
	return args.Bool(0), args.Error(1)
}

// MockSprintResolver is a mock implementation of SprintResolver for testing.
type MockSprintResolver struct {
	mock.Mock
}

var _ SprintResolver = &MockSprintResolver{} // Compile-time check

// ResolveSprintWindow implements the SprintResolver interface.
func (m *MockSprintResolver) ResolveSprintWindow(ctx context.Context, sprintID string) (schema.Window, error) {
	args := m.Called(ctx, sprintID)
	return args.Get(0).(schema.Window), args.Error(1)
}

// MockErrorReporter is a mock implementation of ErrorReporter for testing.
type MockErrorReporter struct {
	mock.Mock
}

var _ ErrorReporter = &MockErrorReporter{} // Compile-time check

// Report implements the ErrorReporter interface.
func (m *MockErrorReporter) Report(ctx context.Context, err error, fields map[string]any) {
	m.Called(ctx, err, fields)
}
