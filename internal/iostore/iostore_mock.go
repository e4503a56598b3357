package iostore

import (
	"context"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetEventStore implements the StoreManager interface.
func (m *MockStoreManager) GetEventStore() contract.EventStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.EventStore)
	return store
}

// GetRunStore implements the StoreManager interface.
func (m *MockStoreManager) GetRunStore() contract.RunStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.RunStore)
	return store
}

// MockEventStore is a mock implementation of EventStore for testing.
type MockEventStore struct {
	mock.Mock
}

var _ contract.EventStore = &MockEventStore{} // Compile-time check

// FetchEvents implements the EventStore interface.
func (m *MockEventStore) FetchEvents(ctx context.Context, query schema.EventQuery) ([]schema.RawEvent, error) {
	args := m.Called(ctx, query)
	events, _ := args.Get(0).([]schema.RawEvent)
	return events, args.Error(1)
}

// ListEvents implements the EventStore interface.
func (m *MockEventStore) ListEvents(ctx context.Context, query schema.EventQuery, page schema.PageRequest) (schema.EventPage, error) {
	args := m.Called(ctx, query, page)
	return args.Get(0).(schema.EventPage), args.Error(1)
}

// IsIntegrationActive implements the EventStore interface.
func (m *MockEventStore) IsIntegrationActive(ctx context.Context, orgID string, source schema.Source) (bool, error) {
	args := m.Called(ctx, orgID, source)
	return args.Bool(0), args.Error(1)
}

// ResolveSprintWindow implements the EventStore interface.
func (m *MockEventStore) ResolveSprintWindow(ctx context.Context, sprintID string) (schema.Window, error) {
	args := m.Called(ctx, sprintID)
	return args.Get(0).(schema.Window), args.Error(1)
}

// ImportEvents implements the EventStore interface.
func (m *MockEventStore) ImportEvents(ctx context.Context, events []schema.RawEvent) (int, error) {
	args := m.Called(ctx, events)
	return args.Int(0), args.Error(1)
}

// ImportSprints implements the EventStore interface.
func (m *MockEventStore) ImportSprints(ctx context.Context, sprints []schema.Sprint) (int, error) {
	args := m.Called(ctx, sprints)
	return args.Int(0), args.Error(1)
}

// ImportIntegrations implements the EventStore interface.
func (m *MockEventStore) ImportIntegrations(ctx context.Context, integrations []schema.Integration) (int, error) {
	args := m.Called(ctx, integrations)
	return args.Int(0), args.Error(1)
}

// GetStatus implements the EventStore interface.
func (m *MockEventStore) GetStatus() (schema.EventStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.EventStoreStatus), args.Error(1)
}

// Close implements the EventStore interface.
func (m *MockEventStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockRunStore is a mock implementation of RunStore for testing.
type MockRunStore struct {
	mock.Mock
}

var _ contract.RunStore = &MockRunStore{} // Compile-time check

// BeginRun implements the RunStore interface.
func (m *MockRunStore) BeginRun(startTime time.Time, req schema.MetricRequest, requestID string) (int64, error) {
	args := m.Called(startTime, req, requestID)
	return args.Get(0).(int64), args.Error(1)
}

// EndRun implements the RunStore interface.
func (m *MockRunStore) EndRun(runID int64, endTime time.Time, result schema.MetricResult) error {
	args := m.Called(runID, endTime, result)
	return args.Error(0)
}

// RecordPoints implements the RunStore interface.
func (m *MockRunStore) RecordPoints(runID int64, period string, points []schema.ChartPoint) error {
	args := m.Called(runID, period, points)
	return args.Error(0)
}

// GetStatus implements the RunStore interface.
func (m *MockRunStore) GetStatus() (schema.RunStoreStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.RunStoreStatus), args.Error(1)
}

// GetAllRuns implements the RunStore interface.
func (m *MockRunStore) GetAllRuns() ([]schema.RunRecord, error) {
	args := m.Called()
	runs, _ := args.Get(0).([]schema.RunRecord)
	return runs, args.Error(1)
}

// GetAllRunPoints implements the RunStore interface.
func (m *MockRunStore) GetAllRunPoints() ([]schema.RunPointRecord, error) {
	args := m.Called()
	points, _ := args.Get(0).([]schema.RunPointRecord)
	return points, args.Error(1)
}

// Close implements the RunStore interface.
func (m *MockRunStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
