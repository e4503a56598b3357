// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteResults prints metric results using the configured output format.
func (ow *OutWriter) WriteResults(results []schema.MetricResult, cfg *contract.Config, duration time.Duration) error {
	return PrintMetricResults(results, cfg, duration)
}

// WriteDetails prints one page of the raw events behind a metric.
func (ow *OutWriter) WriteDetails(metric schema.Metric, page schema.EventPage, cfg *contract.Config) error {
	return PrintEventPage(metric, page, cfg)
}

// WriteCatalog prints the configured metric bindings.
func (ow *OutWriter) WriteCatalog(configs []schema.MetricConfig, cfg *contract.Config) error {
	return PrintMetricCatalog(configs, cfg)
}
