// Package report delivers general computation errors to the log.
package report

import (
	"context"
	"sort"

	"github.com/huangsam/flowlens/internal/contract"
	"go.uber.org/zap"
)

// ZapReporter logs every reported error at error level with its request fields.
type ZapReporter struct {
	logger *zap.Logger
}

var _ contract.ErrorReporter = (*ZapReporter)(nil)

// NewZapReporter creates a reporter. A nil logger discards reports.
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapReporter{logger: logger.Named("report")}
}

// Report implements contract.ErrorReporter.
func (r *ZapReporter) Report(_ context.Context, err error, fields map[string]any) {
	if err == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zf := make([]zap.Field, 0, len(keys)+1)
	zf = append(zf, zap.Error(err))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	r.logger.Error("metric computation failed", zf...)
}
