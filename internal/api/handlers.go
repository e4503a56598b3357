package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huangsam/flowlens/core"
	"github.com/huangsam/flowlens/internal/contract"
	"github.com/huangsam/flowlens/internal/outwriter"
	"github.com/huangsam/flowlens/schema"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DetailsResponse carries one page of events, or the reason there is none, in-band.
type DetailsResponse struct {
	RequestID string                `json:"request_id"`
	Metric    schema.Metric         `json:"metric"`
	State     schema.ChartDataState `json:"state"`
	Page      *schema.EventPage     `json:"page,omitempty"`
	Error     *schema.ChartError    `json:"error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"metrics": len(s.catalog.ListMetricConfigs()),
	})
}

func (s *Server) listMetrics(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.ListMetricConfigs())
}

func (s *Server) computeMetric(w http.ResponseWriter, r *http.Request) {
	metric, ok := s.metricParam(w, r)
	if !ok {
		return
	}
	params, err := metricParamsFromQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := s.validate.Struct(&params); err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "validation error: "+err.Error())
		return
	}
	filter, granularity, err := params.toFilter(s.cfg, s.now())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	req := schema.MetricRequest{Metric: metric, Granularity: granularity, Filter: filter, Page: params.page()}
	result := core.ComputeAndRecord(s.requestContext(r), s.deps, s.runs, req)

	if params.Format == "prom" {
		w.Header().Set("Content-Type", outwriter.PromContentType)
		w.WriteHeader(http.StatusOK)
		if err := outwriter.WritePrometheus(w, []schema.MetricResult{result}); err != nil {
			s.logger.Warn("failed to write Prometheus response", zap.Error(err))
		}
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) metricDetails(w http.ResponseWriter, r *http.Request) {
	metric, ok := s.metricParam(w, r)
	if !ok {
		return
	}
	params, err := metricParamsFromQuery(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}
	if err := s.validate.Struct(&params); err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "validation error: "+err.Error())
		return
	}
	filter, _, err := params.toFilter(s.cfg, s.now())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	page := schema.PageRequest{Number: params.Page, Size: params.PageSize}
	ctx := s.requestContext(r)
	resp := DetailsResponse{RequestID: middleware.GetReqID(ctx), Metric: metric}

	listed, err := core.ListMetricDetails(ctx, s.deps, metric, filter, page)
	var cfgErr *core.ConfigurationError
	var intErr *core.IntegrationAbsentError
	switch {
	case err == nil:
		resp.State = schema.ReadyState
		resp.Page = &listed
	case errors.As(err, &cfgErr):
		resp.State = schema.NotConfiguredState
		resp.Error = &schema.ChartError{Message: cfgErr.Error(), Link: cfgErr.Link}
	case errors.As(err, &intErr):
		resp.State = schema.NoIntegrationState
		resp.Error = &schema.ChartError{Message: intErr.Error(), Link: intErr.Link}
	default:
		s.logger.Error("listing details failed", zap.String("metric", string(metric)), zap.Error(err))
		resp.State = schema.ErrorState
		resp.Error = &schema.ChartError{Message: err.Error()}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	var body DashboardRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	body.Granularity = strings.ToUpper(body.Granularity)
	if err := s.validate.Struct(&body); err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "validation error: "+err.Error())
		return
	}
	filter, granularity, err := body.toFilter(s.cfg, s.now())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	metrics := contract.ParseMetricList(strings.Join(body.Metrics, ","))
	if len(metrics) == 0 {
		metrics = s.defaultMetrics()
	}
	results := core.ComputeDashboardAndRecord(r.Context(), s.deps, s.runs, metrics, granularity, filter)
	s.respondJSON(w, http.StatusOK, results)
}

// metricParam reads and validates the metric path segment.
func (s *Server) metricParam(w http.ResponseWriter, r *http.Request) (schema.Metric, bool) {
	raw := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "metric")))
	if err := s.validate.Var(raw, "required,max=64"); err != nil {
		s.respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, fmt.Sprintf("invalid metric %q", raw))
		return "", false
	}
	return schema.Metric(raw), true
}

// requestContext makes the engine reuse the HTTP request id as its correlation id.
func (s *Server) requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if id := middleware.GetReqID(ctx); id != "" {
		return core.WithRequestID(ctx, id)
	}
	return ctx
}

func (s *Server) defaultMetrics() []schema.Metric {
	if len(s.cfg.Metrics) > 0 {
		return s.cfg.Metrics
	}
	return lo.Map(s.catalog.ListMetricConfigs(), func(c schema.MetricConfig, _ int) schema.Metric { return c.Metric })
}
