package cmd

import (
	"strings"
	"time"

	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/iostore"
	"github.com/huangsam/flowlens/internal/outwriter"
	"github.com/huangsam/flowlens/schema"
	"github.com/spf13/cobra"
)

// metricCmd computes one flow metric.
var metricCmd = &cobra.Command{
	Use:   "metric <METRIC>",
	Short: "Compute one flow metric with its previous-period comparison",
	Long: `Compute one flow metric for an organization and time window.

The window is split into buckets of the chosen granularity. Each bucket is
derived with the metric's rule (ratio, count or mean), then compared with the
equally long period right before it. Metrics with targets are graded as
Meets, Warning or Breach.

A metric that cannot be computed is still printed with its state:
  NO_INTEGRATION  - the organization has no active integration for the source
  NOT_CONFIGURED  - the metric or the filter is not usable
  ERROR           - the computation failed (the error is also logged)

Examples:
  # Weekly issue throughput for the last 12 weeks
  flowlens metric issue_throughput --org acme

  # PR cycle time for one sprint in JSON
  flowlens metric pr_cycle_time --org acme --sprint 2025-S3 --output json

  # Monthly commit counts with the first page of raw commits
  flowlens metric commit_count --org acme -g month --start 2025-01-01 --page 1`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		start := time.Now()
		req := cfg.MetricRequest(schema.Metric(strings.ToUpper(args[0])))
		result := core.ComputeAndRecord(rootCtx, engineDeps(), iostore.Manager.GetRunStore(), req)
		if err := outwriter.NewOutWriter().WriteResults([]schema.MetricResult{result}, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Cannot write metric result", err)
		}
	},
}

// dashboardCmd computes several metrics for one filter.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Compute several flow metrics side by side",
	Long: `Compute a set of flow metrics for the same organization and window.

Every metric is computed independently, so a missing integration or a failure
in one metric never hides the others.

The metric list comes from --metrics, then the metrics config key, then the
whole metric catalog.

Examples:
  # Every catalog metric for the last 12 weeks
  flowlens dashboard --org acme

  # Two metrics as Prometheus text for a scrape file
  flowlens dashboard --org acme --metrics bug_throughput,build_success_rate --output prom --output-file flow.prom`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start := time.Now()
		metrics := cfg.Metrics
		if len(metrics) == 0 {
			metrics = metricConfig.Metrics()
		}
		results := core.ComputeDashboardAndRecord(rootCtx, engineDeps(), iostore.Manager.GetRunStore(), metrics, cfg.Granularity, cfg.Filter)
		if err := outwriter.NewOutWriter().WriteResults(results, cfg, time.Since(start)); err != nil {
			contract.LogFatal("Cannot write dashboard results", err)
		}
	},
}

// detailsCmd lists the raw events behind a metric.
var detailsCmd = &cobra.Command{
	Use:   "details <METRIC>",
	Short: "List the raw events behind a flow metric",
	Long: `List one page of the raw events a metric is computed from, newest first.

Only events of the metric's inflow and outflow kinds inside the window are
listed, with the same scope filters as the metric itself.

Examples:
  # Second page of merged and opened pull requests
  flowlens details pr_throughput --org acme --page 2

  # Export the bugs of one team to CSV
  flowlens details bug_throughput --org acme --team platform --page-size 500 --output csv --output-file bugs.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		metric := schema.Metric(strings.ToUpper(args[0]))
		page := schema.PageRequest{Number: 1, Size: contract.DefaultPageSize}
		if cfg.Page != nil {
			page = *cfg.Page
		}

		listed, err := core.ListMetricDetails(rootCtx, engineDeps(), metric, cfg.Filter, page)
		if err != nil {
			contract.LogFatal("Cannot list metric details", err)
		}
		if err := outwriter.NewOutWriter().WriteDetails(metric, listed, cfg); err != nil {
			contract.LogFatal("Cannot write metric details", err)
		}
	},
}

// metricsCmd displays the configured metric bindings.
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display the metric catalog with sources, rules and targets",
	Long: `Show every metric binding: its event source, derivation rule, inflow and
outflow event kinds, and its default target and warning cutoffs.

No events are read - this is purely informational.

Use this to:
- Check which integration a metric needs
- Review targets before grading a team against them
- Validate a custom --metrics-file

Examples:
  # Show the built-in catalog
  flowlens metrics

  # View the catalog with overrides
  flowlens metrics --metrics-file metrics.yaml --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := outwriter.NewOutWriter().WriteCatalog(metricConfig.ListMetricConfigs(), cfg); err != nil {
			contract.LogFatal("Cannot display metrics", err)
		}
	},
}
