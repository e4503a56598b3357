package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"golang.org/x/sync/errgroup"
)

// ComputeAndRecord computes one metric and records the run in the store when one is configured.
// Tracking failures are logged as warnings and never change the result.
func ComputeAndRecord(ctx context.Context, deps Deps, store contract.RunStore, req schema.MetricRequest) schema.MetricResult {
	if store == nil {
		return ComputeMetric(ctx, deps, req)
	}

	builder := NewMetricResultBuilder(ctx, deps, req)
	runID, err := store.BeginRun(time.Now(), req, builder.RequestID())
	if err != nil {
		logTrackingError("BeginRun", req.Metric, err)
	}

	result := builder.
		ResolveConfig().
		ResolveFilter().
		FetchData().
		Aggregate().
		Derive().
		Compare().
		BuildResult().
		GetResult()

	if runID > 0 {
		recordRun(store, runID, result)
	}
	return result
}

// ComputeDashboardAndRecord is ComputeDashboard with run tracking for every metric.
func ComputeDashboardAndRecord(ctx context.Context, deps Deps, store contract.RunStore, metrics []schema.Metric, granularity schema.Granularity, filter schema.Filter) []schema.MetricResult {
	if store == nil {
		return ComputeDashboard(ctx, deps, metrics, granularity, filter)
	}
	deps = deps.withDefaults()
	results := make([]schema.MetricResult, len(metrics))

	var g errgroup.Group
	g.SetLimit(deps.Options.Workers)
	for i, metric := range metrics {
		g.Go(func() error {
			results[i] = ComputeAndRecord(ctx, deps, store, schema.MetricRequest{
				Metric:      metric,
				Granularity: granularity,
				Filter:      filter,
			})
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// recordRun stores the presented points of both periods and closes the run.
func recordRun(store contract.RunStore, runID int64, result schema.MetricResult) {
	if len(result.Series) > 0 {
		if err := store.RecordPoints(runID, schema.CurrentPeriod, result.Series); err != nil {
			logTrackingError("RecordPoints", result.Metric, err)
		}
	}
	if len(result.PreviousSeries) > 0 {
		if err := store.RecordPoints(runID, schema.PreviousPeriod, result.PreviousSeries); err != nil {
			logTrackingError("RecordPoints", result.Metric, err)
		}
	}
	if err := store.EndRun(runID, time.Now(), result); err != nil {
		logTrackingError("EndRun", result.Metric, err)
	}
}

// logTrackingError logs database tracking errors to stderr without disrupting the computation.
func logTrackingError(operation string, metric schema.Metric, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, metric), err)
}
