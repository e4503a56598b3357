// Package core has the flow metric engine: period resolution, orchestration,
// comparison and threshold evaluation.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/flowlens/core/algo"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"golang.org/x/sync/errgroup"
)

// Options bounds the work of one computation.
type Options struct {
	Workers      int
	FetchTimeout time.Duration
	FetchLimit   int
	WeekStart    time.Weekday
}

// Deps are the collaborators of the engine. Catalog and Fetcher are required;
// a nil Integrations treats every source as active and a nil Reporter drops reports.
type Deps struct {
	Catalog      contract.MetricConfigResolver
	Registry     *algo.Registry
	Fetcher      contract.EventFetcher
	Integrations contract.IntegrationChecker
	Sprints      contract.SprintResolver
	Reporter     contract.ErrorReporter
	Options      Options
}

// OptionsFromConfig copies the execution bounds from a validated config.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout,
		FetchLimit:   cfg.FetchLimit,
		WeekStart:    cfg.WeekStart,
	}
}

func (d Deps) withDefaults() Deps {
	if d.Registry == nil {
		d.Registry = algo.NewRegistry()
	}
	if d.Options.Workers <= 0 {
		d.Options.Workers = contract.DefaultWorkers
	}
	if d.Options.FetchTimeout <= 0 {
		d.Options.FetchTimeout = contract.DefaultFetchTimeout
	}
	return d
}

// ComputeMetric runs one metric request end to end. Failures are reported in-band
// through the result state; the returned result is always well-formed.
func ComputeMetric(ctx context.Context, deps Deps, req schema.MetricRequest) schema.MetricResult {
	return NewMetricResultBuilder(ctx, deps, req).
		ResolveConfig().
		ResolveFilter().
		FetchData().
		Aggregate().
		Derive().
		Compare().
		BuildResult().
		GetResult()
}

// ComputeDashboard computes several metrics for one filter. Each metric is an
// independent request, so one failing metric never affects the others.
// Results keep the order of metrics.
func ComputeDashboard(ctx context.Context, deps Deps, metrics []schema.Metric, granularity schema.Granularity, filter schema.Filter) []schema.MetricResult {
	deps = deps.withDefaults()
	results := make([]schema.MetricResult, len(metrics))

	var g errgroup.Group
	g.SetLimit(deps.Options.Workers)
	for i, metric := range metrics {
		g.Go(func() error {
			results[i] = ComputeMetric(ctx, deps, schema.MetricRequest{
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

// ListMetricDetails returns one page of the raw events behind a metric, newest first.
// Configuration and integration problems are returned as typed errors.
func ListMetricDetails(ctx context.Context, deps Deps, metric schema.Metric, filter schema.Filter, page schema.PageRequest) (_ schema.EventPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = generalError(schema.FetchingDataPhase, fmt.Errorf("panic: %v", r))
		}
	}()

	b := NewMetricResultBuilder(ctx, deps, schema.MetricRequest{Metric: metric, Filter: filter}).
		ResolveConfig().
		ResolveFilter()
	if err := b.Err(); err != nil {
		return schema.EventPage{}, err
	}

	deps = b.deps
	if deps.Integrations != nil {
		active, err := deps.Integrations.IsIntegrationActive(ctx, b.resolved.OrgID, b.cfg.Source)
		if err != nil {
			return schema.EventPage{}, generalError(schema.FetchingDataPhase, err)
		}
		if !active {
			return schema.EventPage{}, &IntegrationAbsentError{OrgID: b.resolved.OrgID, Source: b.cfg.Source, Link: integrationLink(b.cfg)}
		}
	}
	if deps.Fetcher == nil {
		return schema.EventPage{}, generalError(schema.FetchingDataPhase, fmt.Errorf("no event fetcher"))
	}

	fctx, cancel := context.WithTimeout(ctx, deps.Options.FetchTimeout)
	defer cancel()
	listed, err := deps.Fetcher.ListEvents(fctx, eventQuery(b.resolved, b.cfg, 0), NormalizePage(page))
	if err != nil {
		return schema.EventPage{}, generalError(schema.FetchingDataPhase, err)
	}
	return listed, nil
}

// NormalizePage applies the default and maximum page sizes and a 1-based page number.
func NormalizePage(page schema.PageRequest) schema.PageRequest {
	if page.Number < 1 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = contract.DefaultPageSize
	}
	if page.Size > contract.MaxPageSize {
		page.Size = contract.MaxPageSize
	}
	return page
}
