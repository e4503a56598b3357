package schema_test

import (
	"testing"
	"time"

	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChartPoints(t *testing.T) {
	start := time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	series := schema.Series{
		Granularity: schema.WeekGranularity,
		Buckets: []schema.Bucket{
			{Label: "2025-01-06", Start: start, End: start.AddDate(0, 0, 7), Inflow: 3, Outflow: 1, CumulativeInflow: 3, CumulativeOutflow: 1},
			{Label: "2025-01-13", Start: start.AddDate(0, 0, 7), End: start.AddDate(0, 0, 14), Inflow: 0, Outflow: 1, CumulativeInflow: 3, CumulativeOutflow: 2},
		},
	}
	derived := schema.DerivedSeries{
		Metric: schema.IssueThroughput,
		Rule:   schema.RatioRule,
		Points: []schema.DerivedPoint{
			{Label: "2025-01-06", Start: start, End: start.AddDate(0, 0, 7), Value: 100.0 / 3.0},
			{Label: "2025-01-13", Start: start.AddDate(0, 0, 7), End: start.AddDate(0, 0, 14), Value: 200.0 / 3.0},
		},
	}

	points := schema.NewChartPoints(series, derived)
	require.Len(t, points, 2)
	assert.Equal(t, 33.33, points[0].Value)
	assert.Equal(t, 66.67, points[1].Value)
	assert.Equal(t, 3, points[1].CumulativeInflow)
	assert.Equal(t, 2, points[1].CumulativeOutflow)
	assert.Equal(t, 1, points[1].Outflow)
}

func TestRoundStat(t *testing.T) {
	pct := 33.3333
	stat := schema.PreviousPeriodStat{Current: 40.005, Previous: 30, Delta: 10.005, PercentChange: &pct, Trend: schema.TrendUp, HasHistory: true}

	rounded := schema.RoundStat(stat)
	assert.Equal(t, 40.01, rounded.Current)
	assert.Equal(t, 10.01, rounded.Delta)
	require.NotNil(t, rounded.PercentChange)
	assert.Equal(t, 33.33, *rounded.PercentChange)
	assert.Equal(t, 33.3333, pct, "the original stat must not be modified")

	unavailable := schema.RoundStat(schema.PreviousPeriodStat{Current: 20, Delta: 20})
	assert.False(t, unavailable.PercentAvailable())
}

func TestThresholdCutoffsFor(t *testing.T) {
	warn := 60.0
	cfg := schema.ThresholdConfig{
		Direction:     schema.HigherIsBetter,
		Default:       &schema.Cutoffs{Target: 70},
		ByGranularity: map[schema.Granularity]schema.Cutoffs{schema.MonthGranularity: {Target: 80, Warning: &warn}},
	}

	c, ok := cfg.CutoffsFor(schema.MonthGranularity)
	assert.True(t, ok)
	assert.Equal(t, 80.0, c.Target)

	c, ok = cfg.CutoffsFor(schema.WeekGranularity)
	assert.True(t, ok)
	assert.Equal(t, 70.0, c.Target)

	_, ok = schema.ThresholdConfig{Direction: schema.LowerIsBetter}.CutoffsFor(schema.DayGranularity)
	assert.False(t, ok)
}

func TestMetricConfigKinds(t *testing.T) {
	cfg := schema.MetricConfig{
		InflowKinds:  []schema.EventKind{schema.BuildStarted},
		OutflowKinds: []schema.EventKind{schema.BuildSucceeded, schema.BuildStarted},
	}
	assert.Equal(t, []schema.EventKind{schema.BuildStarted, schema.BuildSucceeded}, cfg.Kinds())

	flow := cfg.FlowMapping()
	assert.Contains(t, flow.Inflow, schema.BuildStarted)
	assert.Contains(t, flow.Outflow, schema.BuildSucceeded)
	assert.NotContains(t, flow.Inflow, schema.BuildSucceeded)
}

func TestEventPageMetadata(t *testing.T) {
	page := schema.NewEventPage(nil, schema.PageRequest{Number: 2, Size: 20}, 45)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 45, page.TotalCount)
	assert.NotNil(t, page.Events)
	assert.Equal(t, 20, schema.PageRequest{Number: 2, Size: 20}.Offset())
	assert.Equal(t, 0, schema.PageRequest{Number: 0, Size: 20}.Offset())
}
