// Package catalog holds the metric bindings: which source, event kinds, rule and
// thresholds each metric uses.
package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/schema"
	"go.uber.org/zap"
)

type snapshot struct {
	byMetric map[schema.Metric]schema.MetricConfig
	order    []schema.Metric
}

func newSnapshot(configs []schema.MetricConfig) *snapshot {
	s := &snapshot{byMetric: make(map[schema.Metric]schema.MetricConfig, len(configs))}
	for _, cfg := range configs {
		if _, seen := s.byMetric[cfg.Metric]; !seen {
			s.order = append(s.order, cfg.Metric)
		}
		s.byMetric[cfg.Metric] = cfg
	}
	return s
}

// Catalog is a MetricCatalog whose contents can be swapped while requests are running.
// Each lookup reads one consistent snapshot.
type Catalog struct {
	current atomic.Pointer[snapshot]
}

var _ contract.MetricCatalog = &Catalog{} // Compile-time check

// New creates a catalog from the given bindings. A later binding for the same metric wins.
func New(configs []schema.MetricConfig) *Catalog {
	c := &Catalog{}
	c.Replace(configs)
	return c
}

// Default creates a catalog with the built-in bindings.
func Default() *Catalog {
	return New(DefaultConfigs())
}

// Load creates a catalog from the built-in bindings overlaid with the metrics file at path.
// An empty path yields the built-in bindings only.
func Load(path string) (*Catalog, error) {
	configs, err := loadConfigs(path)
	if err != nil {
		return nil, err
	}
	return New(configs), nil
}

func loadConfigs(path string) ([]schema.MetricConfig, error) {
	if path == "" {
		return DefaultConfigs(), nil
	}
	fromFile, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return append(DefaultConfigs(), fromFile...), nil
}

// Replace swaps the catalog contents atomically.
func (c *Catalog) Replace(configs []schema.MetricConfig) {
	c.current.Store(newSnapshot(configs))
}

// ResolveMetricConfig returns the binding of metric.
func (c *Catalog) ResolveMetricConfig(metric schema.Metric) (schema.MetricConfig, error) {
	cfg, ok := c.current.Load().byMetric[metric]
	if !ok {
		return schema.MetricConfig{}, fmt.Errorf("%w: %s", contract.ErrMetricNotConfigured, metric)
	}
	return cfg, nil
}

// ListMetricConfigs returns every binding in the order the metrics were first defined.
func (c *Catalog) ListMetricConfigs() []schema.MetricConfig {
	snap := c.current.Load()
	out := make([]schema.MetricConfig, 0, len(snap.order))
	for _, m := range snap.order {
		out = append(out, snap.byMetric[m])
	}
	return out
}

// Metrics returns the ids of every bound metric in listing order.
func (c *Catalog) Metrics() []schema.Metric {
	configs := c.ListMetricConfigs()
	out := make([]schema.Metric, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, cfg.Metric)
	}
	return out
}

// Watch reloads the catalog from path every time the file changes, until ctx is done.
// A reload that fails keeps the previous contents.
func (c *Catalog) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watching metrics file: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// The directory is watched so atomic saves, which rename a new file over path, are seen
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching metrics file: %w", err)
	}
	logger.Info("watching metrics file", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			configs, err := loadConfigs(path)
			if err != nil {
				logger.Error("metrics file reload failed, keeping previous catalog", zap.String("path", path), zap.Error(err))
				continue
			}
			c.Replace(configs)
			logger.Info("metrics file reloaded", zap.String("path", path), zap.Int("metrics", len(configs)))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("metrics file watcher error", zap.Error(err))
		}
	}
}
