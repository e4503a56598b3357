package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
)

// FilterParams selects the events of a computation. List fields are comma separated.
type FilterParams struct {
	Org         string `json:"org" validate:"max=255"`
	Team        string `json:"team" validate:"max=255"`
	Sprint      string `json:"sprint" validate:"max=255"`
	Start       string `json:"start" validate:"max=64"`
	End         string `json:"end" validate:"max=64"`
	TimeZone    string `json:"timezone" validate:"omitempty,timezone"`
	Assignees   string `json:"assignees"`
	Repos       string `json:"repos"`
	PRIDs       string `json:"pr_ids"`
	Granularity string `json:"granularity" validate:"omitempty,oneof=DAY WEEK MONTH QUARTER"`
}

// MetricParams are the query parameters of a single metric.
type MetricParams struct {
	FilterParams
	Format   string `json:"format" validate:"omitempty,oneof=json prom"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" validate:"gte=0,lte=500"`
}

// DashboardRequest is the body of a dashboard computation. Without metrics,
// the configured metrics or else every catalog metric is computed.
type DashboardRequest struct {
	FilterParams
	Metrics []string `json:"metrics" validate:"max=50,dive,required,max=64"`
}

func filterParamsFromQuery(q url.Values) FilterParams {
	return FilterParams{
		Org:         q.Get("org"),
		Team:        q.Get("team"),
		Sprint:      q.Get("sprint"),
		Start:       q.Get("start"),
		End:         q.Get("end"),
		TimeZone:    q.Get("timezone"),
		Assignees:   q.Get("assignees"),
		Repos:       q.Get("repos"),
		PRIDs:       q.Get("pr-ids"),
		Granularity: strings.ToUpper(q.Get("granularity")),
	}
}

func metricParamsFromQuery(q url.Values) (MetricParams, error) {
	params := MetricParams{
		FilterParams: filterParamsFromQuery(q),
		Format:       strings.ToLower(q.Get("format")),
	}
	var err error
	if params.Page, err = intParam(q, "page"); err != nil {
		return params, err
	}
	if params.PageSize, err = intParam(q, "page-size"); err != nil {
		return params, err
	}
	return params, nil
}

func intParam(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an integer", key, raw)
	}
	return v, nil
}

// toFilter resolves the parameters against the server defaults.
func (p FilterParams) toFilter(base *contract.Config, now time.Time) (schema.Filter, schema.Granularity, error) {
	input := &contract.ConfigRawInput{
		Org:       lo.CoalesceOrEmpty(p.Org, base.Filter.OrgID),
		Team:      p.Team,
		Sprint:    p.Sprint,
		Start:     p.Start,
		End:       p.End,
		TimeZone:  lo.CoalesceOrEmpty(p.TimeZone, base.Filter.TimeZone),
		Assignees: p.Assignees,
		Repos:     p.Repos,
		PRIDs:     p.PRIDs,
	}
	filter, _, err := contract.ParseFilter(input, now)
	if err != nil {
		return schema.Filter{}, "", err
	}
	granularity := schema.Granularity(strings.ToUpper(p.Granularity))
	if granularity == "" {
		granularity = lo.CoalesceOrEmpty(base.Granularity, contract.DefaultGranularity)
	}
	return filter, granularity, nil
}

// page returns the requested page, or nil when none was requested.
func (p MetricParams) page() *schema.PageRequest {
	if p.Page == 0 {
		return nil
	}
	return &schema.PageRequest{Number: p.Page, Size: p.PageSize}
}
