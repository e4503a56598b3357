package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/flowlens/schema"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// PromContentType is the content type of the text exposition format.
var PromContentType = string(expfmt.NewFormat(expfmt.TypeTextPlain))

// gaugeFamily accumulates the samples of one gauge.
type gaugeFamily struct {
	name, help string
	metrics    []*dto.Metric
}

func (g *gaugeFamily) add(value float64, labels ...string) {
	pairs := make([]*dto.LabelPair, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		pairs = append(pairs, &dto.LabelPair{Name: proto.String(labels[i]), Value: proto.String(labels[i+1])})
	}
	g.metrics = append(g.metrics, &dto.Metric{Label: pairs, Gauge: &dto.Gauge{Value: proto.Float64(value)}})
}

// BuildMetricFamilies converts results into gauge families. Every result reports its state;
// values, comparison and classification are only reported for ready results.
// Families without samples are left out.
func BuildMetricFamilies(results []schema.MetricResult) []*dto.MetricFamily {
	state := &gaugeFamily{name: "flowlens_metric_state", help: "Computation state of a metric, 1 for the reported state."}
	total := &gaugeFamily{name: "flowlens_metric_total", help: "Total of a metric over the current period."}
	previous := &gaugeFamily{name: "flowlens_metric_previous_total", help: "Final value of a metric over the previous period."}
	delta := &gaugeFamily{name: "flowlens_metric_delta", help: "Change of a metric against the previous period."}
	change := &gaugeFamily{name: "flowlens_metric_percent_change", help: "Percentage change against the previous period when the previous value is non-zero."}
	target := &gaugeFamily{name: "flowlens_metric_threshold_target", help: "Target cutoff applied to a metric."}
	classification := &gaugeFamily{name: "flowlens_metric_classification", help: "Threshold classification of a metric, 1 for the reported class."}
	bucket := &gaugeFamily{name: "flowlens_metric_bucket_value", help: "Value of a metric in one bucket of the current period."}

	for _, r := range results {
		metric, granularity := string(r.Metric), string(r.Granularity)
		state.add(1, "metric", metric, "granularity", granularity, "state", string(r.State))
		if r.State != schema.ReadyState {
			continue
		}

		total.add(r.Total, "metric", metric, "granularity", granularity)
		if s := r.PreviousPeriodStat; s != nil {
			previous.add(s.Previous, "metric", metric, "granularity", granularity)
			delta.add(s.Delta, "metric", metric, "granularity", granularity)
			if s.PercentChange != nil {
				change.add(*s.PercentChange, "metric", metric, "granularity", granularity)
			}
		}
		if t := r.Threshold; t != nil {
			target.add(t.Target, "metric", metric, "granularity", granularity, "direction", string(t.Direction))
			classification.add(1, "metric", metric, "granularity", granularity, "classification", string(t.Classification))
		}
		for _, p := range r.Series {
			bucket.add(p.Value, "metric", metric, "granularity", granularity, "bucket", p.Label)
		}
	}

	var families []*dto.MetricFamily
	for _, g := range []*gaugeFamily{state, total, previous, delta, change, target, classification, bucket} {
		if len(g.metrics) == 0 {
			continue
		}
		families = append(families, &dto.MetricFamily{
			Name:   proto.String(g.name),
			Help:   proto.String(g.help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: g.metrics,
		})
	}
	return families
}

// WritePrometheus writes results in the Prometheus text exposition format.
func WritePrometheus(w io.Writer, results []schema.MetricResult) error {
	for _, mf := range BuildMetricFamilies(results) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
