package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/internal/catalog"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/iostore"
	mcp_internal "github.com/huangsam/flowlens/internal/mcp"
	"github.com/huangsam/flowlens/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weekOne = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)

func newServer(t *testing.T) *server.MCPServer {
	t.Helper()
	store, err := iostore.NewEventStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	_, err = store.ImportIntegrations(ctx, []schema.Integration{{OrgID: "acme", Source: schema.GitSource, Active: true}})
	require.NoError(t, err)
	_, err = store.ImportEvents(ctx, []schema.RawEvent{
		{ID: "c1", OrgID: "acme", Kind: schema.CommitPushed, Timestamp: weekOne.Add(time.Hour), Repository: "api"},
		{ID: "c2", OrgID: "acme", Kind: schema.CommitPushed, Timestamp: weekOne.AddDate(0, 0, 2), Repository: "web"},
		{ID: "c3", OrgID: "acme", Kind: schema.CommitPushed, Timestamp: weekOne.AddDate(0, 0, 9), Repository: "api"},
	})
	require.NoError(t, err)

	cat := catalog.Default()
	baseCfg := &contract.Config{
		Filter:      schema.Filter{OrgID: "acme"},
		Granularity: schema.WeekGranularity,
	}
	deps := core.Deps{Catalog: cat, Fetcher: store, Integrations: store, Sprints: store}
	return mcp_internal.NewMCPServer(baseCfg, deps, cat, nil)
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func text(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestComputeMetricTool(t *testing.T) {
	s := newServer(t)
	res := call(t, s, "compute_metric", map[string]any{
		"metric": "commit_count",
		"start":  "2025-01-06",
		"end":    "2025-01-20",
	})
	require.False(t, res.IsError, text(res))

	var result schema.MetricResult
	require.NoError(t, json.Unmarshal([]byte(text(res)), &result))
	assert.Equal(t, schema.ReadyState, result.State)
	assert.Equal(t, 3.0, result.Total)
	require.Len(t, result.Series, 2)
	assert.Equal(t, 2.0, result.Series[0].Value)
	assert.Equal(t, 1.0, result.Series[1].Value)
}

func TestComputeMetricToolTerminalState(t *testing.T) {
	s := newServer(t)
	res := call(t, s, "compute_metric", map[string]any{
		"metric": "issue_throughput",
		"start":  "2025-01-06",
		"end":    "2025-01-20",
	})
	assert.False(t, res.IsError, "terminal states are returned in-band")

	var result schema.MetricResult
	require.NoError(t, json.Unmarshal([]byte(text(res)), &result))
	assert.Equal(t, schema.NoIntegrationState, result.State)
}

func TestComputeDashboardTool(t *testing.T) {
	s := newServer(t)
	res := call(t, s, "compute_dashboard", map[string]any{
		"metrics":     "commit_count,pr_merged_count",
		"granularity": "month",
		"start":       "2025-01-01",
		"end":         "2025-02-01",
	})
	require.False(t, res.IsError, text(res))

	var results []schema.MetricResult
	require.NoError(t, json.Unmarshal([]byte(text(res)), &results))
	require.Len(t, results, 2)
	assert.Equal(t, schema.CommitCount, results[0].Metric)
	assert.Equal(t, schema.MonthGranularity, results[0].Granularity)
	assert.Equal(t, 3.0, results[0].Total)
	assert.Equal(t, schema.ReadyState, results[1].State)
	assert.Equal(t, 0.0, results[1].Total)
}

func TestListMetricDetailsTool(t *testing.T) {
	s := newServer(t)
	res := call(t, s, "list_metric_details", map[string]any{
		"metric":    "COMMIT_COUNT",
		"start":     "2025-01-06",
		"end":       "2025-01-20",
		"repos":     "api",
		"page":      1.0,
		"page_size": 1.0,
	})
	require.False(t, res.IsError, text(res))

	var page schema.EventPage
	require.NoError(t, json.Unmarshal([]byte(text(res)), &page))
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "c3", page.Events[0].ID)
}

func TestListMetricsTool(t *testing.T) {
	s := newServer(t)
	res := call(t, s, "list_metrics", map[string]any{})
	require.False(t, res.IsError)

	var configs []schema.MetricConfig
	require.NoError(t, json.Unmarshal([]byte(text(res)), &configs))
	assert.Len(t, configs, len(catalog.DefaultConfigs()))
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s := newServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{name: "missing metric", tool: "compute_metric", args: map[string]any{}, want: "metric is required"},
		{name: "bad granularity", tool: "compute_metric", args: map[string]any{"metric": "commit_count", "granularity": "fortnight"}, want: "invalid granularity"},
		{name: "bad start", tool: "compute_dashboard", args: map[string]any{"start": "soon"}, want: "invalid start date"},
		{name: "bad time zone", tool: "compute_dashboard", args: map[string]any{"timezone": "Mars/Olympus"}, want: "invalid time zone"},
		{name: "page size", tool: "list_metric_details", args: map[string]any{"metric": "commit_count", "page": 1.0, "page_size": 900.0}, want: "page_size"},
		{name: "not configured", tool: "list_metric_details", args: map[string]any{"metric": "lead_time"}, want: "not configured"},
		{name: "no integration", tool: "list_metric_details", args: map[string]any{"metric": "bug_throughput"}, want: "no active issue_tracker integration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, text(res), tt.want)
		})
	}
}
