package catalog

import "github.com/huangsam/flowlens/schema"

func cutoffs(target float64, warning float64) *schema.Cutoffs {
	return &schema.Cutoffs{Target: target, Warning: &warning}
}

// DefaultConfigs returns the built-in bindings of every metric that ships with flowlens.
func DefaultConfigs() []schema.MetricConfig {
	return []schema.MetricConfig{
		{
			Metric:       schema.IssueThroughput,
			Source:       schema.IssueTrackerSource,
			Rule:         schema.RatioRule,
			InflowKinds:  []schema.EventKind{schema.IssueOpened},
			OutflowKinds: []schema.EventKind{schema.IssueClosed},
			Display: schema.DisplayRules{
				Title:       "Issue throughput",
				Description: "Closed issues as a share of opened issues",
				Unit:        "%",
			},
			Thresholds: &schema.ThresholdConfig{Direction: schema.HigherIsBetter, Default: cutoffs(80, 60)},
		},
		{
			Metric:       schema.BugThroughput,
			Source:       schema.IssueTrackerSource,
			Rule:         schema.RatioRule,
			InflowKinds:  []schema.EventKind{schema.BugOpened},
			OutflowKinds: []schema.EventKind{schema.BugClosed},
			Display: schema.DisplayRules{
				Title:       "Bug throughput",
				Description: "Fixed bugs as a share of reported bugs",
				Unit:        "%",
			},
			Thresholds: &schema.ThresholdConfig{Direction: schema.HigherIsBetter, Default: cutoffs(90, 70)},
		},
		{
			Metric:       schema.PRThroughput,
			Source:       schema.GitSource,
			Rule:         schema.RatioRule,
			InflowKinds:  []schema.EventKind{schema.PROpened},
			OutflowKinds: []schema.EventKind{schema.PRMerged},
			Display: schema.DisplayRules{
				Title:       "Pull request throughput",
				Description: "Merged pull requests as a share of opened pull requests",
				Unit:        "%",
			},
			Thresholds: &schema.ThresholdConfig{Direction: schema.HigherIsBetter, Default: cutoffs(75, 50)},
		},
		{
			Metric:       schema.CommitCount,
			Source:       schema.GitSource,
			Rule:         schema.CountRule,
			OutflowKinds: []schema.EventKind{schema.CommitPushed},
			Display:      schema.DisplayRules{Title: "Commits", Description: "Commits pushed per bucket"},
		},
		{
			Metric:       schema.PRMergedCount,
			Source:       schema.GitSource,
			Rule:         schema.CountRule,
			OutflowKinds: []schema.EventKind{schema.PRMerged},
			Display:      schema.DisplayRules{Title: "Merged pull requests", Description: "Pull requests merged per bucket"},
		},
		{
			Metric:       schema.PRCycleTime,
			Source:       schema.GitSource,
			Rule:         schema.MeanRule,
			OutflowKinds: []schema.EventKind{schema.PRMerged},
			Display: schema.DisplayRules{
				Title:       "Pull request cycle time",
				Description: "Mean hours from opening to merge",
				Unit:        "h",
			},
			Thresholds: &schema.ThresholdConfig{
				Direction: schema.LowerIsBetter,
				Default:   cutoffs(24, 48),
				ByGranularity: map[schema.Granularity]schema.Cutoffs{
					schema.DayGranularity: *cutoffs(12, 24),
				},
			},
		},
		{
			Metric:       schema.BuildSuccessRate,
			Source:       schema.CISource,
			Rule:         schema.RatioRule,
			InflowKinds:  []schema.EventKind{schema.BuildStarted},
			OutflowKinds: []schema.EventKind{schema.BuildSucceeded},
			Display: schema.DisplayRules{
				Title:       "Build success rate",
				Description: "Successful builds as a share of started builds",
				Unit:        "%",
			},
			Thresholds: &schema.ThresholdConfig{Direction: schema.HigherIsBetter, Default: cutoffs(95, 85)},
		},
		{
			Metric:       schema.BuildDuration,
			Source:       schema.CISource,
			Rule:         schema.MeanRule,
			OutflowKinds: []schema.EventKind{schema.BuildSucceeded, schema.BuildFailed},
			Display: schema.DisplayRules{
				Title:       "Build duration",
				Description: "Mean hours per finished build",
				Unit:        "h",
			},
			Thresholds: &schema.ThresholdConfig{Direction: schema.LowerIsBetter, Default: cutoffs(0.5, 1)},
		},
		{
			Metric:       schema.VulnerabilityCount,
			Source:       schema.SecuritySource,
			Rule:         schema.CountRule,
			OutflowKinds: []schema.EventKind{schema.VulnerabilityDetected},
			Display:      schema.DisplayRules{Title: "Vulnerabilities", Description: "Vulnerabilities detected per bucket"},
			Thresholds:   &schema.ThresholdConfig{Direction: schema.LowerIsBetter, Default: cutoffs(0, 2)},
		},
	}
}
