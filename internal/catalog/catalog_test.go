package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const leadTimeYAML = `
metrics:
  - metric: LEAD_TIME
    source: issue_tracker
    rule: mean
    outflow: [ISSUE_CLOSED]
    title: Lead time
    unit: h
    thresholds:
      direction: LOWER_IS_BETTER
      target: 72
      warning: 120
      by_granularity:
        DAY:
          target: 48
`

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	configs := c.ListMetricConfigs()
	require.Len(t, configs, 9)
	assert.Equal(t, schema.IssueThroughput, configs[0].Metric)

	for _, cfg := range configs {
		assert.NotEmpty(t, cfg.Source, cfg.Metric)
		assert.Contains(t, schema.ValidRules, cfg.Rule, cfg.Metric)
		assert.NotEmpty(t, cfg.OutflowKinds, cfg.Metric)
		assert.NotEmpty(t, cfg.Display.Title, cfg.Metric)
		if cfg.Rule == schema.RatioRule {
			assert.NotEmpty(t, cfg.InflowKinds, cfg.Metric)
		}
	}

	cfg, err := c.ResolveMetricConfig(schema.BugThroughput)
	require.NoError(t, err)
	assert.Equal(t, []schema.EventKind{schema.BugOpened}, cfg.InflowKinds)
	assert.Equal(t, []schema.EventKind{schema.BugClosed}, cfg.OutflowKinds)
}

func TestResolveUnknownMetric(t *testing.T) {
	_, err := Default().ResolveMetricConfig("LEAD_TIME")
	assert.ErrorIs(t, err, contract.ErrMetricNotConfigured)
	assert.ErrorContains(t, err, "LEAD_TIME")
}

func TestParse(t *testing.T) {
	configs, err := Parse([]byte(leadTimeYAML))
	require.NoError(t, err)
	require.Len(t, configs, 1)

	cfg := configs[0]
	assert.Equal(t, schema.Metric("LEAD_TIME"), cfg.Metric)
	assert.Equal(t, schema.MeanRule, cfg.Rule)
	assert.Nil(t, cfg.InflowKinds)
	assert.Equal(t, "Lead time", cfg.Display.Title)
	require.NotNil(t, cfg.Thresholds)
	assert.Equal(t, schema.LowerIsBetter, cfg.Thresholds.Direction)
	assert.Equal(t, 72.0, cfg.Thresholds.Default.Target)
	assert.Equal(t, 120.0, *cfg.Thresholds.Default.Warning)

	day, ok := cfg.Thresholds.CutoffsFor(schema.DayGranularity)
	require.True(t, ok)
	assert.Equal(t, 48.0, day.Target)
	assert.Nil(t, day.Warning)
}

func TestParseDefaultsDirection(t *testing.T) {
	configs, err := Parse([]byte(`
metrics:
  - metric: DEPLOYS
    source: ci
    rule: count
    outflow: [DEPLOYED]
    thresholds:
      target: 5
`))
	require.NoError(t, err)
	assert.Equal(t, schema.HigherIsBetter, configs[0].Thresholds.Direction)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"not yaml":                "metrics: [",
		"empty":                   "metrics: []",
		"unknown key":             "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    colour: red\n",
		"unknown rule":            "metrics:\n  - metric: X\n    source: git\n    rule: median\n    outflow: [COMMIT]\n",
		"missing outflow":         "metrics:\n  - metric: X\n    source: git\n    rule: count\n",
		"lowercase metric":        "metrics:\n  - metric: lead_time\n    source: git\n    rule: count\n    outflow: [COMMIT]\n",
		"ratio no inflow":         "metrics:\n  - metric: X\n    source: git\n    rule: ratio\n    outflow: [COMMIT]\n",
		"bad direction":           "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    thresholds:\n      direction: UP\n      target: 1\n",
		"bad granularity":         "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    thresholds:\n      by_granularity:\n        HOUR:\n          target: 1\n",
		"warning only":            "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    thresholds:\n      warning: 1\n",
		"warning above target":    "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    thresholds:\n      target: 10\n      warning: 12\n",
		"warning at target":       "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    thresholds:\n      target: 10\n      warning: 10\n",
		"warning below lower":     "metrics:\n  - metric: X\n    source: git\n    rule: mean\n    outflow: [COMMIT]\n    thresholds:\n      direction: LOWER_IS_BETTER\n      target: 72\n      warning: 48\n",
		"inverted by granularity": "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n    thresholds:\n      by_granularity:\n        WEEK:\n          target: 5\n          warning: 9\n",
		"duplicate metric":        "metrics:\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n  - metric: X\n    source: git\n    rule: count\n    outflow: [COMMIT]\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		c, err := Load("")
		require.NoError(t, err)
		assert.Len(t, c.ListMetricConfigs(), 9)
	})

	t.Run("file overlays defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "metrics.yaml")
		body := leadTimeYAML + `
  - metric: COMMIT_COUNT
    source: git
    rule: count
    outflow: [COMMIT]
    title: Pushes
`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		c, err := Load(path)
		require.NoError(t, err)
		assert.Len(t, c.ListMetricConfigs(), 10)
		assert.Equal(t, schema.Metric("LEAD_TIME"), c.Metrics()[9])

		cfg, err := c.ResolveMetricConfig(schema.CommitCount)
		require.NoError(t, err)
		assert.Equal(t, "Pushes", cfg.Display.Title)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestReplaceKeepsPriorSnapshots(t *testing.T) {
	c := Default()
	before := c.ListMetricConfigs()
	c.Replace([]schema.MetricConfig{{Metric: "ONLY", Rule: schema.CountRule, OutflowKinds: []schema.EventKind{schema.CommitPushed}}})

	assert.Len(t, before, 9)
	assert.Equal(t, []schema.Metric{"ONLY"}, c.Metrics())
	_, err := c.ResolveMetricConfig(schema.IssueThroughput)
	assert.ErrorIs(t, err, contract.ErrMetricNotConfigured)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics: ["), 0o644))

	c := Default()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, path, zap.NewNop()) }()

	// Keep rewriting until the watcher has picked up a valid file
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(leadTimeYAML), 0o644)
		_, err := c.ResolveMetricConfig("LEAD_TIME")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	assert.Len(t, c.ListMetricConfigs(), 10)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchAtomicSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metrics.yaml")
	initial := "metrics:\n  - metric: REVIEW_COUNT\n    source: git\n    rule: count\n    outflow: [COMMIT]\n"
	require.NoError(t, os.WriteFile(path, []byte(initial), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Watch(ctx, path, zap.NewNop()) }()

	// Write a temp file and rename it over the watched one, the way editors save
	save := func(body string) func() bool {
		return func() bool {
			tmp := filepath.Join(dir, "metrics.yaml.tmp")
			if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
				return false
			}
			if err := os.Rename(tmp, path); err != nil {
				return false
			}
			_, err := c.ResolveMetricConfig("LEAD_TIME")
			return err == nil
		}
	}
	assert.Eventually(t, save(leadTimeYAML), 5*time.Second, 50*time.Millisecond)

	// A second atomic save is still picked up after the first replaced the file
	c.Replace(DefaultConfigs())
	assert.Eventually(t, save(leadTimeYAML), 5*time.Second, 50*time.Millisecond)
}

func TestWatchMissingFile(t *testing.T) {
	err := Default().Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), zap.NewNop())
	assert.Error(t, err)
}
