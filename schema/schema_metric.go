package schema

import "github.com/samber/lo"

// DisplayRules holds the presentation metadata of a metric.
type DisplayRules struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

// Cutoffs are the boundaries for one granularity.
// Warning is optional; without it there is no WARNING band.
type Cutoffs struct {
	Target  float64  `json:"target"`
	Warning *float64 `json:"warning,omitempty"`
}

// ThresholdConfig holds the threshold rules of a metric.
type ThresholdConfig struct {
	Direction     Direction               `json:"direction"`
	Default       *Cutoffs                `json:"default,omitempty"`
	ByGranularity map[Granularity]Cutoffs `json:"by_granularity,omitempty"`
}

// CutoffsFor returns the cutoffs for g, falling back to the default cutoffs.
func (t ThresholdConfig) CutoffsFor(g Granularity) (Cutoffs, bool) {
	if c, ok := t.ByGranularity[g]; ok {
		return c, true
	}
	if t.Default != nil {
		return *t.Default, true
	}
	return Cutoffs{}, false
}

// MetricConfig binds a metric to its source, event kinds, rule and display rules.
type MetricConfig struct {
	Metric       Metric           `json:"metric"`
	Source       Source           `json:"source"`
	Rule         Rule             `json:"rule"`
	InflowKinds  []EventKind      `json:"inflow_kinds,omitempty"`
	OutflowKinds []EventKind      `json:"outflow_kinds"`
	Display      DisplayRules     `json:"display"`
	Thresholds   *ThresholdConfig `json:"thresholds,omitempty"`
	SetupLink    string           `json:"setup_link,omitempty"`
}

// SupportsThresholds reports whether the metric declares threshold rules.
func (c MetricConfig) SupportsThresholds() bool {
	return c.Thresholds != nil
}

// Kinds returns every event kind the metric reads, without duplicates.
func (c MetricConfig) Kinds() []EventKind {
	return lo.Uniq(append(append([]EventKind{}, c.InflowKinds...), c.OutflowKinds...))
}

// FlowMapping tells the bucketizer which kinds count as inflow and outflow.
func (c MetricConfig) FlowMapping() FlowMapping {
	return FlowMapping{
		Inflow:  lo.SliceToMap(c.InflowKinds, func(k EventKind) (EventKind, struct{}) { return k, struct{}{} }),
		Outflow: lo.SliceToMap(c.OutflowKinds, func(k EventKind) (EventKind, struct{}) { return k, struct{}{} }),
	}
}

// FlowMapping classifies event kinds for aggregation.
// A kind may be both inflow and outflow.
type FlowMapping struct {
	Inflow  map[EventKind]struct{}
	Outflow map[EventKind]struct{}
}
