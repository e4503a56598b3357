package core

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/flowlens/internal/iostore"
	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func readyFixture() *fixture {
	f := newFixture()
	f.catalog.On("ResolveMetricConfig", schema.IssueThroughput).Return(issueConfig(), nil)
	f.integrations.On("IsIntegrationActive", mock.Anything, "acme", schema.IssueTrackerSource).Return(true, nil)
	f.fetcher.On("FetchEvents", mock.Anything, windowStarting(weekOne)).Return(scenarioEvents(), nil)
	f.fetcher.On("FetchEvents", mock.Anything, windowStarting(prevStart)).Return([]schema.RawEvent{}, nil)
	return f
}

func TestComputeAndRecord(t *testing.T) {
	f := readyFixture()
	req := schema.MetricRequest{Metric: schema.IssueThroughput, Filter: threeWeekFilter()}

	store := &iostore.MockRunStore{}
	store.On("BeginRun", mock.Anything, req, mock.AnythingOfType("string")).Return(int64(7), nil)
	store.On("RecordPoints", int64(7), schema.CurrentPeriod, mock.MatchedBy(func(p []schema.ChartPoint) bool { return len(p) == 3 })).Return(nil)
	store.On("RecordPoints", int64(7), schema.PreviousPeriod, mock.Anything).Return(nil)
	store.On("EndRun", int64(7), mock.Anything, mock.MatchedBy(func(r schema.MetricResult) bool {
		return r.State == schema.ReadyState
	})).Return(nil)

	res := ComputeAndRecord(context.Background(), f.deps(), store, req)
	assert.Equal(t, schema.ReadyState, res.State)
	store.AssertExpectations(t)

	// The run and the result share the request id
	requestID := store.Calls[0].Arguments.String(2)
	assert.Equal(t, res.RequestID, requestID)
}

func TestComputeAndRecordTrackingFailure(t *testing.T) {
	f := readyFixture()
	req := schema.MetricRequest{Metric: schema.IssueThroughput, Filter: threeWeekFilter()}

	store := &iostore.MockRunStore{}
	store.On("BeginRun", mock.Anything, req, mock.Anything).Return(int64(0), errors.New("database is locked"))

	res := ComputeAndRecord(context.Background(), f.deps(), store, req)
	assert.Equal(t, schema.ReadyState, res.State, "tracking failures never change the result")
	store.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeAndRecordTerminalState(t *testing.T) {
	f := newFixture()
	f.catalog.On("ResolveMetricConfig", schema.IssueThroughput).Return(issueConfig(), nil)
	f.integrations.On("IsIntegrationActive", mock.Anything, "acme", schema.IssueTrackerSource).Return(false, nil)
	req := schema.MetricRequest{Metric: schema.IssueThroughput, Filter: threeWeekFilter()}

	store := &iostore.MockRunStore{}
	store.On("BeginRun", mock.Anything, req, mock.Anything).Return(int64(3), nil)
	store.On("EndRun", int64(3), mock.Anything, mock.Anything).Return(nil)

	res := ComputeAndRecord(context.Background(), f.deps(), store, req)
	assert.Equal(t, schema.NoIntegrationState, res.State)
	store.AssertNotCalled(t, "RecordPoints", mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestComputeAndRecordNilStore(t *testing.T) {
	f := readyFixture()
	res := ComputeAndRecord(context.Background(), f.deps(), nil, schema.MetricRequest{Metric: schema.IssueThroughput, Filter: threeWeekFilter()})
	assert.Equal(t, schema.ReadyState, res.State)
}

func TestComputeDashboardAndRecordSQLite(t *testing.T) {
	f := readyFixture()
	f.catalog.On("ResolveMetricConfig", schema.BugThroughput).Return(schema.MetricConfig{}, errors.New("not bound"))

	store, err := iostore.NewRunStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	results := ComputeDashboardAndRecord(context.Background(), f.deps(), store,
		[]schema.Metric{schema.IssueThroughput, schema.BugThroughput}, schema.WeekGranularity, threeWeekFilter())
	require.Len(t, results, 2)
	assert.Equal(t, schema.ReadyState, results[0].State)
	assert.Equal(t, schema.NotConfiguredState, results[1].State)

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	states := []string{runs[0].State, runs[1].State}
	assert.ElementsMatch(t, []string{string(schema.ReadyState), string(schema.NotConfiguredState)}, states)

	points, err := store.GetAllRunPoints()
	require.NoError(t, err)
	assert.Len(t, points, 6, "three current and three previous points of the ready run")
}
