package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	deps    core.Deps
	catalog contract.MetricCatalog
	runs    contract.RunStore
	now     func() time.Time
}

// requestConfig applies the tool arguments on top of the base configuration.
func (h *toolHandler) requestConfig(request mcp.CallToolRequest) (*contract.Config, error) {
	input := &contract.ConfigRawInput{
		Org:       lo.CoalesceOrEmpty(request.GetString("org", ""), h.baseCfg.Filter.OrgID),
		Team:      request.GetString("team", ""),
		Sprint:    request.GetString("sprint", ""),
		Start:     request.GetString("start", ""),
		End:       request.GetString("end", ""),
		TimeZone:  lo.CoalesceOrEmpty(request.GetString("timezone", ""), h.baseCfg.Filter.TimeZone),
		Assignees: request.GetString("assignees", ""),
		Repos:     request.GetString("repos", ""),
		PRIDs:     request.GetString("pr_ids", ""),
	}
	filter, loc, err := contract.ParseFilter(input, h.now())
	if err != nil {
		return nil, err
	}
	cfg := h.baseCfg.CloneWithFilter(filter)
	cfg.Location = loc

	if g := request.GetString("granularity", ""); g != "" {
		cfg.Granularity = schema.Granularity(strings.ToUpper(g))
		if _, ok := schema.ValidGranularities[cfg.Granularity]; !ok {
			return nil, fmt.Errorf("invalid granularity '%s'. must be day, week, month, quarter", g)
		}
	}
	if cfg.Granularity == "" {
		cfg.Granularity = contract.DefaultGranularity
	}

	cfg.Page = nil
	page := request.GetInt("page", 0)
	size := request.GetInt("page_size", 0)
	if page < 0 {
		return nil, fmt.Errorf("page must not be negative (received %d)", page)
	}
	if size < 0 || size > contract.MaxPageSize {
		return nil, fmt.Errorf("page_size must be between 1 and %d (received %d)", contract.MaxPageSize, size)
	}
	if page > 0 {
		cfg.Page = &schema.PageRequest{Number: page, Size: size}
	}
	return cfg, nil
}

func metricArg(request mcp.CallToolRequest) (schema.Metric, error) {
	metric := strings.ToUpper(strings.TrimSpace(request.GetString("metric", "")))
	if metric == "" {
		return "", errors.New("metric is required")
	}
	return schema.Metric(metric), nil
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleComputeMetric(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metric, err := metricArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	// Terminal states are part of the result, not tool errors
	result := core.ComputeAndRecord(ctx, h.deps, h.runs, cfg.MetricRequest(metric))
	return jsonResult(result)
}

func (h *toolHandler) handleComputeDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	metrics := contract.ParseMetricList(request.GetString("metrics", ""))
	if len(metrics) == 0 {
		metrics = cfg.Metrics
	}
	if len(metrics) == 0 {
		metrics = lo.Map(h.catalog.ListMetricConfigs(), func(c schema.MetricConfig, _ int) schema.Metric { return c.Metric })
	}

	results := core.ComputeDashboardAndRecord(ctx, h.deps, h.runs, metrics, cfg.Granularity, cfg.Filter)
	return jsonResult(results)
}

func (h *toolHandler) handleListMetricDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metric, err := metricArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, err := h.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	page := schema.PageRequest{Number: 1}
	if cfg.Page != nil {
		page = *cfg.Page
	}
	listed, err := core.ListMetricDetails(ctx, h.deps, metric, cfg.Filter, page)
	if err != nil {
		if core.IsExpected(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("listing details failed: %v", err)), nil
	}
	return jsonResult(listed)
}

func (h *toolHandler) handleListMetrics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.catalog.ListMetricConfigs())
}
