// Package algo has the derivation rules that turn bucketed series into metric values.
package algo

import (
	"errors"
	"fmt"

	"github.com/huangsam/flowlens/schema"
)

// ErrNoRule is returned when neither the metric nor its configured rule has a derivation.
var ErrNoRule = errors.New("no derivation rule")

// DeriveFunc re-expresses a series in a metric's reporting shape. It must be pure.
type DeriveFunc func(series schema.Series) schema.DerivedSeries

// Registry maps metrics and rules to derivation functions.
// Registration is not safe for concurrent use; lookups are.
type Registry struct {
	byMetric map[schema.Metric]DeriveFunc
	byRule   map[schema.Rule]DeriveFunc
}

// NewRegistry returns a registry with the built-in ratio, count and mean rules.
func NewRegistry() *Registry {
	return &Registry{
		byMetric: map[schema.Metric]DeriveFunc{},
		byRule: map[schema.Rule]DeriveFunc{
			schema.RatioRule: Ratio,
			schema.CountRule: Count,
			schema.MeanRule:  Mean,
		},
	}
}

// Register binds a derivation to a single metric, taking precedence over its configured rule.
func (r *Registry) Register(metric schema.Metric, fn DeriveFunc) {
	r.byMetric[metric] = fn
}

// RegisterRule adds or replaces a named rule.
func (r *Registry) RegisterRule(rule schema.Rule, fn DeriveFunc) {
	r.byRule[rule] = fn
}

// Lookup returns the derivation for the metric config.
func (r *Registry) Lookup(cfg schema.MetricConfig) (DeriveFunc, error) {
	if fn, ok := r.byMetric[cfg.Metric]; ok {
		return fn, nil
	}
	if fn, ok := r.byRule[cfg.Rule]; ok {
		return fn, nil
	}
	return nil, fmt.Errorf("%w for metric %s (rule %q)", ErrNoRule, cfg.Metric, cfg.Rule)
}

// Derive applies the metric's derivation to the series.
func (r *Registry) Derive(cfg schema.MetricConfig, series schema.Series) (schema.DerivedSeries, error) {
	fn, err := r.Lookup(cfg)
	if err != nil {
		return schema.DerivedSeries{}, err
	}
	out := fn(series)
	out.Metric = cfg.Metric
	out.Rule = cfg.Rule
	return out, nil
}

// Ratio reports cumulative outflow as a percentage of cumulative inflow.
// A bucket with no cumulative inflow is 0. The total is the final value.
func Ratio(series schema.Series) schema.DerivedSeries {
	out := newDerived(series, func(b schema.Bucket) float64 {
		if b.CumulativeInflow == 0 {
			return 0
		}
		return float64(b.CumulativeOutflow) / float64(b.CumulativeInflow) * 100
	})
	if v, ok := out.Last(); ok {
		out.Total = v
	}
	return out
}

// Count reports the outflow count of each bucket. The total is the sum.
func Count(series schema.Series) schema.DerivedSeries {
	out := newDerived(series, func(b schema.Bucket) float64 {
		return float64(b.Outflow)
	})
	sum := 0
	for _, b := range series.Buckets {
		sum += b.Outflow
	}
	out.Total = float64(sum)
	return out
}

// Mean reports the mean outflow value of each bucket, 0 when a bucket has no outflow.
// The total is the mean over every outflow event of the period.
func Mean(series schema.Series) schema.DerivedSeries {
	out := newDerived(series, func(b schema.Bucket) float64 {
		if b.Outflow == 0 {
			return 0
		}
		return b.OutflowValue / float64(b.Outflow)
	})
	var count int
	var sum float64
	for _, b := range series.Buckets {
		count += b.Outflow
		sum += b.OutflowValue
	}
	if count > 0 {
		out.Total = sum / float64(count)
	}
	return out
}

func newDerived(series schema.Series, value func(schema.Bucket) float64) schema.DerivedSeries {
	points := make([]schema.DerivedPoint, 0, len(series.Buckets))
	for _, b := range series.Buckets {
		points = append(points, schema.DerivedPoint{
			Label: b.Label,
			Start: b.Start,
			End:   b.End,
			Value: value(b),
		})
	}
	return schema.DerivedSeries{Points: points}
}
