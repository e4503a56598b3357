package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/flowlens/core/agg"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"golang.org/x/sync/errgroup"
)

// MetricResultBuilder runs one metric computation phase by phase.
// A failed phase records its error and turns every later phase into a no-op,
// so GetResult always returns a well-formed result.
type MetricResultBuilder struct {
	ctx  context.Context
	deps Deps
	req  schema.MetricRequest

	requestID string
	phase     schema.Phase
	err       error

	cfg      schema.MetricConfig
	resolved schema.ResolvedFilter
	previous schema.ResolvedFilter

	currentEvents  []schema.RawEvent
	previousEvents []schema.RawEvent
	details        *schema.EventPage

	currentSeries  schema.Series
	previousSeries schema.Series

	currentDerived  *schema.DerivedSeries
	previousDerived *schema.DerivedSeries

	stat      *schema.PreviousPeriodStat
	threshold *schema.ThresholdResult
	result    *schema.MetricResult
}

// NewMetricResultBuilder creates a new builder for one metric request.
func NewMetricResultBuilder(ctx context.Context, deps Deps, req schema.MetricRequest) *MetricResultBuilder {
	if req.Granularity == "" {
		req.Granularity = schema.WeekGranularity
	}
	requestID := requestIDFrom(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &MetricResultBuilder{
		ctx:       ctx,
		deps:      deps.withDefaults(),
		req:       req,
		requestID: requestID,
		phase:     schema.ResolvingFilterPhase,
	}
}

// RequestID returns the correlation id of the computation.
func (b *MetricResultBuilder) RequestID() string {
	return b.requestID
}

// Err returns the error that stopped the computation, if any.
func (b *MetricResultBuilder) Err() error {
	return b.err
}

func (b *MetricResultBuilder) fail(err error) *MetricResultBuilder {
	b.err = err
	return b
}

// recoverPhase turns a panic in the running phase into a general error.
// It must be deferred directly by the phase method.
func (b *MetricResultBuilder) recoverPhase() {
	if r := recover(); r != nil {
		b.fail(generalError(b.phase, fmt.Errorf("panic: %v", r)))
	}
}

// goSafe runs fn in g and returns a panic as the goroutine's error,
// since errgroup does not recover on behalf of the caller.
func goSafe(g *errgroup.Group, fn func() error) {
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	})
}

// ResolveConfig resolves the metric binding and checks that a derivation exists for it.
func (b *MetricResultBuilder) ResolveConfig() *MetricResultBuilder {
	if b.err != nil {
		return b
	}
	defer b.recoverPhase()
	b.phase = schema.ResolvingFilterPhase

	if _, ok := schema.ValidGranularities[b.req.Granularity]; !ok {
		return b.fail(configError(fmt.Sprintf("unsupported granularity %q", b.req.Granularity), nil))
	}
	if b.deps.Catalog == nil {
		return b.fail(configError("no metric catalog", contract.ErrMetricNotConfigured))
	}

	cfg, err := b.deps.Catalog.ResolveMetricConfig(b.req.Metric)
	if err != nil {
		return b.fail(configError(fmt.Sprintf("metric %s is not configured", b.req.Metric), err))
	}
	if _, err := b.deps.Registry.Lookup(cfg); err != nil {
		return b.fail(configError(fmt.Sprintf("metric %s is not supported", b.req.Metric), err))
	}
	b.cfg = cfg
	return b
}

// ResolveFilter resolves the sprint or explicit dates and the previous period.
func (b *MetricResultBuilder) ResolveFilter() *MetricResultBuilder {
	if b.err != nil {
		return b
	}
	defer b.recoverPhase()
	b.phase = schema.ResolvingFilterPhase

	resolved, err := ResolveFilter(b.ctx, b.req.Filter, b.deps.Sprints)
	if err != nil {
		return b.fail(err)
	}
	b.resolved = resolved
	b.previous = PreviousPeriod(resolved)
	return b
}

// FetchData checks the integration, then fetches both periods concurrently.
// When a page was requested, the detail listing is fetched in the same group.
func (b *MetricResultBuilder) FetchData() *MetricResultBuilder {
	if b.err != nil {
		return b
	}
	defer b.recoverPhase()
	b.phase = schema.FetchingDataPhase

	if b.deps.Integrations != nil {
		active, err := b.deps.Integrations.IsIntegrationActive(b.ctx, b.resolved.OrgID, b.cfg.Source)
		if err != nil {
			return b.fail(generalError(b.phase, fmt.Errorf("checking %s integration: %w", b.cfg.Source, err)))
		}
		if !active {
			return b.fail(&IntegrationAbsentError{
				OrgID:  b.resolved.OrgID,
				Source: b.cfg.Source,
				Link:   integrationLink(b.cfg),
			})
		}
	}
	if b.deps.Fetcher == nil {
		return b.fail(generalError(b.phase, errors.New("no event fetcher")))
	}

	opts := b.deps.Options
	g, gctx := errgroup.WithContext(b.ctx)
	g.SetLimit(opts.Workers)

	goSafe(g, func() error {
		events, err := fetchWithTimeout(gctx, opts.FetchTimeout, b.deps.Fetcher, eventQuery(b.resolved, b.cfg, opts.FetchLimit))
		if err != nil {
			return fmt.Errorf("current period: %w", err)
		}
		b.currentEvents = events
		return nil
	})
	goSafe(g, func() error {
		events, err := fetchWithTimeout(gctx, opts.FetchTimeout, b.deps.Fetcher, eventQuery(b.previous, b.cfg, opts.FetchLimit))
		if err != nil {
			return fmt.Errorf("previous period: %w", err)
		}
		b.previousEvents = events
		return nil
	})
	if b.req.Page != nil {
		page := NormalizePage(*b.req.Page)
		goSafe(g, func() error {
			fctx, cancel := context.WithTimeout(gctx, opts.FetchTimeout)
			defer cancel()
			listed, err := b.deps.Fetcher.ListEvents(fctx, eventQuery(b.resolved, b.cfg, 0), page)
			if err != nil {
				return fmt.Errorf("listing details: %w", err)
			}
			b.details = &listed
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return b.fail(generalError(b.phase, err))
	}
	return b
}

// Aggregate buckets the events of both periods.
func (b *MetricResultBuilder) Aggregate() *MetricResultBuilder {
	if b.err != nil {
		return b
	}
	defer b.recoverPhase()
	b.phase = schema.AggregatingPhase

	flow := b.cfg.FlowMapping()
	opts := agg.Options{
		Granularity: b.req.Granularity,
		WeekStart:   b.deps.Options.WeekStart,
		Location:    b.resolved.Location,
	}

	current, err := agg.Bucketize(b.currentEvents, flow, opts, b.resolved.Window)
	if err != nil {
		return b.fail(generalError(b.phase, fmt.Errorf("current period: %w", err)))
	}
	previous, err := agg.Bucketize(b.previousEvents, flow, opts, b.previous.Window)
	if err != nil {
		return b.fail(generalError(b.phase, fmt.Errorf("previous period: %w", err)))
	}
	b.currentSeries = current
	b.previousSeries = previous
	return b
}

// Derive applies the metric's derivation rule to both periods.
func (b *MetricResultBuilder) Derive() *MetricResultBuilder {
	if b.err != nil {
		return b
	}
	defer b.recoverPhase()
	b.phase = schema.DerivingPhase

	current, err := b.deps.Registry.Derive(b.cfg, b.currentSeries)
	if err != nil {
		return b.fail(generalError(b.phase, err))
	}
	b.currentDerived = &current

	previous, err := b.deps.Registry.Derive(b.cfg, b.previousSeries)
	if err != nil {
		return b.fail(generalError(b.phase, err))
	}
	b.previousDerived = &previous
	return b
}

// Compare computes the previous-period stat and evaluates thresholds on the unrounded value.
func (b *MetricResultBuilder) Compare() *MetricResultBuilder {
	if b.err != nil {
		return b
	}
	defer b.recoverPhase()
	b.phase = schema.ComparingPhase

	stat := Compare(*b.currentDerived, *b.previousDerived)
	b.stat = &stat

	if b.cfg.SupportsThresholds() {
		if value, ok := b.currentDerived.Last(); ok {
			if tr, ok := Evaluate(value, b.cfg.Thresholds, b.req.Granularity); ok {
				b.threshold = &tr
			}
		}
	}
	return b
}

// BuildResult assembles the presentation-ready result. Errors are converted into
// their terminal states here, and general errors are reported exactly once.
func (b *MetricResultBuilder) BuildResult() *MetricResultBuilder {
	if b.result != nil {
		return b
	}

	res := &schema.MetricResult{
		RequestID:   b.requestID,
		Metric:      b.req.Metric,
		Granularity: b.req.Granularity,
		Metadata:    b.metadata(),
		Series:      []schema.ChartPoint{},
	}
	if !b.resolved.Window.Start.IsZero() || !b.resolved.Window.End.IsZero() {
		current, previous := b.resolved.Window, b.previous.Window
		res.Window = &current
		res.PreviousWindow = &previous
	}
	if b.currentDerived != nil {
		res.Series = schema.NewChartPoints(b.currentSeries, *b.currentDerived)
		res.Total = schema.RoundHalfUp(b.currentDerived.Total, schema.PresentationPrecision)
	}
	if b.previousDerived != nil {
		res.PreviousSeries = schema.NewChartPoints(b.previousSeries, *b.previousDerived)
	}
	res.Details = b.details

	if b.err == nil {
		stat := schema.RoundStat(*b.stat)
		res.PreviousPeriodStat = &stat
		if b.threshold != nil {
			tr := *b.threshold
			tr.Value = schema.RoundHalfUp(tr.Value, schema.PresentationPrecision)
			res.Threshold = &tr
		}
		res.State = schema.ReadyState
		res.Phase = schema.AssembledPhase
		b.phase = schema.AssembledPhase
		b.result = res
		return b
	}

	res.Phase = b.phase
	var cfgErr *ConfigurationError
	var intErr *IntegrationAbsentError
	switch {
	case errors.As(b.err, &cfgErr):
		res.State = schema.NotConfiguredState
		res.Series = nil
		res.PreviousSeries = nil
		res.Error = &schema.ChartError{Message: cfgErr.Error(), Link: cfgErr.Link}
	case errors.As(b.err, &intErr):
		res.State = schema.NoIntegrationState
		res.Series = nil
		res.Error = &schema.ChartError{Message: intErr.Error(), Link: intErr.Link}
	default:
		res.State = schema.ErrorState
		res.Error = &schema.ChartError{Message: b.err.Error()}
		b.report()
	}
	b.result = res
	return b
}

// GetResult returns the built MetricResult, building it first if needed.
func (b *MetricResultBuilder) GetResult() schema.MetricResult {
	if b.result == nil {
		b.BuildResult()
	}
	return *b.result
}

func (b *MetricResultBuilder) report() {
	if b.deps.Reporter == nil {
		return
	}
	// Reporter panics are dropped
	defer func() { _ = recover() }()
	b.deps.Reporter.Report(b.ctx, b.err, map[string]any{
		"request_id":  b.requestID,
		"metric":      string(b.req.Metric),
		"granularity": string(b.req.Granularity),
		"org_id":      b.req.Filter.OrgID,
		"phase":       string(b.phase),
	})
}

func (b *MetricResultBuilder) metadata() schema.ChartMetadata {
	title := b.cfg.Display.Title
	if title == "" {
		title = string(b.req.Metric)
	}
	return schema.ChartMetadata{
		Title:       title,
		Description: b.cfg.Display.Description,
		Unit:        b.cfg.Display.Unit,
		Source:      b.cfg.Source,
	}
}

func integrationLink(cfg schema.MetricConfig) string {
	if cfg.SetupLink != "" {
		return cfg.SetupLink
	}
	return IntegrationSettingsLink + "/" + string(cfg.Source)
}

// fetchWithTimeout wraps one fetch with the configured timeout.
func fetchWithTimeout(ctx context.Context, timeout time.Duration, fetcher contract.EventFetcher, q schema.EventQuery) ([]schema.RawEvent, error) {
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fetcher.FetchEvents(fctx, q)
}
