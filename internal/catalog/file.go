package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// fileFormat is the layout of a metrics file.
//
//	metrics:
//	  - metric: LEAD_TIME
//	    source: issue_tracker
//	    rule: mean
//	    outflow: [ISSUE_CLOSED]
//	    title: Lead time
//	    unit: h
//	    thresholds:
//	      direction: LOWER_IS_BETTER
//	      target: 72
//	      warning: 120
type fileFormat struct {
	Metrics []metricEntry `yaml:"metrics" validate:"required,min=1,dive"`
}

type metricEntry struct {
	Metric      string          `yaml:"metric" validate:"required,uppercase"`
	Source      string          `yaml:"source" validate:"required,lowercase"`
	Rule        string          `yaml:"rule" validate:"required,oneof=ratio count mean"`
	Inflow      []string        `yaml:"inflow" validate:"omitempty,dive,required,uppercase"`
	Outflow     []string        `yaml:"outflow" validate:"required,min=1,dive,required,uppercase"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Unit        string          `yaml:"unit" validate:"max=8"`
	SetupLink   string          `yaml:"setup_link" validate:"omitempty,startswith=/|url"`
	Thresholds  *thresholdEntry `yaml:"thresholds" validate:"omitempty"`
}

type thresholdEntry struct {
	Direction     string                 `yaml:"direction" validate:"omitempty,oneof=HIGHER_IS_BETTER LOWER_IS_BETTER"`
	Target        *float64               `yaml:"target"`
	Warning       *float64               `yaml:"warning"`
	ByGranularity map[string]cutoffEntry `yaml:"by_granularity" validate:"omitempty,dive,keys,oneof=DAY WEEK MONTH QUARTER,endkeys"`
}

type cutoffEntry struct {
	Target  float64  `yaml:"target"`
	Warning *float64 `yaml:"warning"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReadFile parses and validates the metrics file at path.
func ReadFile(path string) ([]schema.MetricConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metrics file: %w", err)
	}
	configs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return configs, nil
}

// Parse decodes a metrics file. Unknown keys are rejected.
func Parse(data []byte) ([]schema.MetricConfig, error) {
	var file fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding metrics file: %w", err)
	}
	if err := validate.Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid metrics file: %w", err)
	}

	dupes := lo.FindDuplicatesBy(file.Metrics, func(e metricEntry) string { return e.Metric })
	if len(dupes) > 0 {
		return nil, fmt.Errorf("metric %s is defined more than once", dupes[0].Metric)
	}

	configs := make([]schema.MetricConfig, 0, len(file.Metrics))
	for _, e := range file.Metrics {
		cfg, err := e.toConfig()
		if err != nil {
			return nil, fmt.Errorf("metric %s: %w", e.Metric, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (e metricEntry) toConfig() (schema.MetricConfig, error) {
	rule := schema.Rule(e.Rule)
	if rule == schema.RatioRule && len(e.Inflow) == 0 {
		return schema.MetricConfig{}, errors.New("ratio rule needs inflow kinds")
	}

	toKinds := func(kinds []string) []schema.EventKind {
		return lo.Map(kinds, func(k string, _ int) schema.EventKind { return schema.EventKind(k) })
	}
	cfg := schema.MetricConfig{
		Metric:       schema.Metric(e.Metric),
		Source:       schema.Source(e.Source),
		Rule:         rule,
		InflowKinds:  toKinds(e.Inflow),
		OutflowKinds: toKinds(e.Outflow),
		Display: schema.DisplayRules{
			Title:       e.Title,
			Description: e.Description,
			Unit:        e.Unit,
		},
		SetupLink: e.SetupLink,
	}
	if len(cfg.InflowKinds) == 0 {
		cfg.InflowKinds = nil
	}

	if e.Thresholds != nil {
		t := e.Thresholds
		direction := schema.Direction(t.Direction)
		if direction == "" {
			direction = schema.HigherIsBetter
		}
		tc := &schema.ThresholdConfig{Direction: direction}
		if t.Target != nil {
			tc.Default = &schema.Cutoffs{Target: *t.Target, Warning: t.Warning}
		} else if t.Warning != nil {
			return schema.MetricConfig{}, errors.New("threshold warning without target")
		}
		if len(t.ByGranularity) > 0 {
			tc.ByGranularity = make(map[schema.Granularity]schema.Cutoffs, len(t.ByGranularity))
			for g, c := range t.ByGranularity {
				tc.ByGranularity[schema.Granularity(g)] = schema.Cutoffs{Target: c.Target, Warning: c.Warning}
			}
		}
		if tc.Default == nil && tc.ByGranularity == nil {
			return schema.MetricConfig{}, errors.New("thresholds need a target")
		}
		if tc.Default != nil {
			if err := checkCutoffs(direction, *tc.Default); err != nil {
				return schema.MetricConfig{}, err
			}
		}
		for g, c := range tc.ByGranularity {
			if err := checkCutoffs(direction, c); err != nil {
				return schema.MetricConfig{}, fmt.Errorf("%s: %w", g, err)
			}
		}
		cfg.Thresholds = tc
	}
	return cfg, nil
}

// checkCutoffs rejects a warning cutoff that is not strictly worse than the target,
// which would leave no WARNING band.
func checkCutoffs(direction schema.Direction, c schema.Cutoffs) error {
	if c.Warning == nil {
		return nil
	}
	w := *c.Warning
	switch direction {
	case schema.LowerIsBetter:
		if w <= c.Target {
			return fmt.Errorf("warning %v must be above target %v when lower is better", w, c.Target)
		}
	default:
		if w >= c.Target {
			return fmt.Errorf("warning %v must be below target %v when higher is better", w, c.Target)
		}
	}
	return nil
}
