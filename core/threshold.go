package core

import "github.com/huangsam/flowlens/schema"

// Evaluate classifies value against the cutoffs for the granularity.
// It reports false when the metric has no thresholds or no cutoffs apply.
func Evaluate(value float64, cfg *schema.ThresholdConfig, g schema.Granularity) (schema.ThresholdResult, bool) {
	if cfg == nil {
		return schema.ThresholdResult{}, false
	}
	cutoffs, ok := cfg.CutoffsFor(g)
	if !ok {
		return schema.ThresholdResult{}, false
	}

	better := func(a, b float64) bool { return a >= b }
	if cfg.Direction == schema.LowerIsBetter {
		better = func(a, b float64) bool { return a <= b }
	}

	classification := schema.Breach
	switch {
	case better(value, cutoffs.Target):
		classification = schema.Meets
	case cutoffs.Warning != nil && better(value, *cutoffs.Warning):
		classification = schema.Warning
	}

	return schema.ThresholdResult{
		Value:          value,
		Classification: classification,
		Direction:      cfg.Direction,
		Granularity:    g,
		Target:         cutoffs.Target,
		Warning:        cutoffs.Warning,
	}, true
}
