package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
)

// ResolveFilter turns a caller filter into a concrete window in the filter's time zone.
// A sprint id replaces the explicit dates. It runs once per request.
func ResolveFilter(ctx context.Context, filter schema.Filter, sprints contract.SprintResolver) (schema.ResolvedFilter, error) {
	if strings.TrimSpace(filter.OrgID) == "" {
		return schema.ResolvedFilter{}, configError("invalid filter", errors.New("organization id is required"))
	}

	loc, err := contract.LoadLocation(filter.TimeZone)
	if err != nil {
		return schema.ResolvedFilter{}, configError("invalid filter", err)
	}

	window := schema.Window{Start: filter.Start, End: filter.End}
	if filter.SprintID != "" {
		if sprints == nil {
			return schema.ResolvedFilter{}, configError("sprint filters are not supported", contract.ErrSprintNotFound)
		}
		window, err = sprints.ResolveSprintWindow(ctx, filter.SprintID)
		if errors.Is(err, contract.ErrSprintNotFound) {
			return schema.ResolvedFilter{}, configError(fmt.Sprintf("unknown sprint %q", filter.SprintID), err)
		}
		if err != nil {
			return schema.ResolvedFilter{}, generalError(schema.ResolvingFilterPhase, fmt.Errorf("resolving sprint %q: %w", filter.SprintID, err))
		}
	}

	if window.Start.IsZero() || window.End.IsZero() {
		return schema.ResolvedFilter{}, configError("invalid filter", errors.New("start and end are required without a sprint"))
	}
	if window.Start.After(window.End) {
		return schema.ResolvedFilter{}, configError("invalid filter", fmt.Errorf("start %s is after end %s",
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339)))
	}

	return schema.ResolvedFilter{
		OrgID:    filter.OrgID,
		SprintID: filter.SprintID,
		Scope:    filter.Scope,
		Window:   schema.Window{Start: window.Start.In(loc), End: window.End.In(loc)},
		TimeZone: loc.String(),
		Location: loc,
	}, nil
}

// PreviousPeriod returns the window of identical length that ends where r starts.
func PreviousPeriod(r schema.ResolvedFilter) schema.ResolvedFilter {
	span := r.Window.Duration()
	prev := r
	prev.Window = schema.Window{Start: r.Window.Start.Add(-span), End: r.Window.Start}
	return prev
}

// eventQuery builds the fetch request for a resolved filter and metric config.
func eventQuery(r schema.ResolvedFilter, cfg schema.MetricConfig, limit int) schema.EventQuery {
	return schema.EventQuery{
		OrgID:    r.OrgID,
		Scope:    r.Scope,
		Kinds:    cfg.Kinds(),
		Window:   r.Window,
		Location: r.Location,
		Limit:    limit,
	}
}
