// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"time"

	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// filterOptions are the arguments shared by every computing tool.
func filterOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("org", mcp.Description("Organization id (defaults to the configured organization).")),
		mcp.WithString("team", mcp.Description("Restrict to one team.")),
		mcp.WithString("sprint", mcp.Description("Sprint id; replaces start and end.")),
		mcp.WithString("start", mcp.Description("Window start: YYYY-MM-DD, RFC3339 or 'N units ago'. Defaults to 84 days before end.")),
		mcp.WithString("end", mcp.Description("Window end (exclusive). Defaults to now.")),
		mcp.WithString("timezone", mcp.Description("IANA time zone used for bucketing (e.g. 'Europe/Berlin').")),
		mcp.WithString("assignees", mcp.Description("Comma separated assignees.")),
		mcp.WithString("repos", mcp.Description("Comma separated repositories.")),
		mcp.WithString("pr_ids", mcp.Description("Comma separated pull request ids.")),
	}
}

func withGranularity() mcp.ToolOption {
	return mcp.WithString("granularity",
		mcp.Description("Bucket size. Defaults to the configured granularity."),
		mcp.Enum("day", "week", "month", "quarter"),
	)
}

func withPaging() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("page", mcp.Description("1-based page of the raw events to list.")),
		mcp.WithNumber("page_size", mcp.Description("Events per page (max 500).")),
	}
}

// NewMCPServer initializes and configures the flowlens MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, deps core.Deps, catalog contract.MetricCatalog, runs contract.RunStore) *server.MCPServer {
	s := server.NewMCPServer(
		"Flowlens Metrics Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		deps:    deps,
		catalog: catalog,
		runs:    runs,
		now:     time.Now,
	}

	// --- 1. Tool: compute_metric ---
	opts := []mcp.ToolOption{
		mcp.WithDescription("Compute one flow metric with its bucketed series, previous-period comparison and threshold classification."),
		mcp.WithString("metric", mcp.Description("Metric id, e.g. ISSUE_THROUGHPUT."), mcp.Required()),
		withGranularity(),
	}
	opts = append(opts, filterOptions()...)
	opts = append(opts, withPaging()...)
	s.AddTool(mcp.NewTool("compute_metric", opts...), h.handleComputeMetric)

	// --- 2. Tool: compute_dashboard ---
	opts = []mcp.ToolOption{
		mcp.WithDescription("Compute several flow metrics for one filter. Each metric succeeds or fails on its own."),
		mcp.WithString("metrics", mcp.Description("Comma separated metric ids (defaults to the configured or all catalog metrics).")),
		withGranularity(),
	}
	opts = append(opts, filterOptions()...)
	s.AddTool(mcp.NewTool("compute_dashboard", opts...), h.handleComputeDashboard)

	// --- 3. Tool: list_metric_details ---
	opts = []mcp.ToolOption{
		mcp.WithDescription("List the raw events behind a metric, newest first, one page at a time."),
		mcp.WithString("metric", mcp.Description("Metric id, e.g. PR_MERGED_COUNT."), mcp.Required()),
	}
	opts = append(opts, filterOptions()...)
	opts = append(opts, withPaging()...)
	s.AddTool(mcp.NewTool("list_metric_details", opts...), h.handleListMetricDetails)

	// --- 4. Tool: list_metrics ---
	s.AddTool(mcp.NewTool("list_metrics",
		mcp.WithDescription("List the configured metrics with their source, event kinds, rule and thresholds."),
	), h.handleListMetrics)

	return s
}

// StartMCPServer starts the flowlens MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, deps core.Deps, catalog contract.MetricCatalog, runs contract.RunStore) error {
	s := NewMCPServer(baseCfg, deps, catalog, runs)
	return server.ServeStdio(s)
}
