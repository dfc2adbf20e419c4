// Package chi is the HTTP transport: routing, entity resolution, cache
// administration, usage, and health endpoints.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/plant"
	decision "github.com/hugomontan/newave-agent-sub004/internal/domain/routing"
	"github.com/hugomontan/newave-agent-sub004/internal/repository/embcache"
	healthuc "github.com/hugomontan/newave-agent-sub004/internal/usecase/health"
	usageuc "github.com/hugomontan/newave-agent-sub004/internal/usecase/usage"
)

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeUnauthorized       errorCode = "unauthorized"
	codeRoutingUnavailable errorCode = "routing_unavailable"
	codeQuotaExceeded      errorCode = "embedding_quota_exceeded"
	codeInternalError      errorCode = "internal_error"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// Router produces routing decisions.
type Router interface {
	Route(ctx context.Context, rawQuery string) (decision.Decision, error)
	RouteWithFilter(ctx context.Context, rawQuery string, filterByCapability bool) (decision.Decision, error)
}

// Resolver resolves plant references against live snapshots.
type Resolver interface {
	ExtractCode(ctx context.Context, query string, live []plant.Entity) (plant.Resolution, bool)
	ExtractCodeBatch(ctx context.Context, query string, snapshots map[string][]plant.Entity) map[string]plant.Resolution
}

// CacheAdmin exposes embedding cache administration.
type CacheAdmin interface {
	InvalidateAll()
	Stats() embcache.Stats
}

// ToolLister exposes the registered tool set.
type ToolLister interface {
	Tools() []domain.Tool
	Labels() map[string]string
}

// UsageReader reports token usage.
type UsageReader interface {
	GetReport(ctx context.Context) usageuc.Report
}

// HealthChecker runs component health checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API server.
type Server struct {
	router        Router
	resolver      Resolver
	cache         CacheAdmin
	tools         ToolLister
	usage         UsageReader
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	router Router,
	resolver Resolver,
	cache CacheAdmin,
	tools ToolLister,
	usage UsageReader,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:   router,
		resolver: resolver,
		cache:    cache,
		tools:    tools,
		usage:    usage,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, codeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeRoutingUnavailable),
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/route", s.RouteQuery)
	r.Post("/v1/resolve", s.ResolveEntity)
	r.Get("/v1/tools", s.ListTools)
	r.Get("/v1/cache/stats", s.CacheStats)
	r.Delete("/v1/cache", s.InvalidateCache)
	r.Get("/v1/usage", s.Usage)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// routeRequest is the POST /v1/route body.
type routeRequest struct {
	Query string `json:"query"`
	// FilterByCapability overrides the configured policy when present.
	FilterByCapability *bool `json:"filter_by_capability,omitempty"`
}

// RouteQuery handles POST /v1/route.
func (s *Server) RouteQuery(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query is required")
		return
	}

	var (
		d   decision.Decision
		err error
	)
	if req.FilterByCapability != nil {
		d, err = s.router.RouteWithFilter(r.Context(), req.Query, *req.FilterByCapability)
	} else {
		d, err = s.router.Route(r.Context(), req.Query)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// resolveRequest is the POST /v1/resolve body. Either entities (single
// snapshot) or snapshots (batch) must be present.
type resolveRequest struct {
	Query     string                     `json:"query"`
	Entities  []resolveEntity            `json:"entities,omitempty"`
	Snapshots map[string][]resolveEntity `json:"snapshots,omitempty"`
}

type resolveEntity struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type resolutionResponse struct {
	Resolved bool    `json:"resolved"`
	Code     int     `json:"code,omitempty"`
	Name     string  `json:"name,omitempty"`
	Strategy string  `json:"strategy,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

func resolutionToResponse(res plant.Resolution) resolutionResponse {
	return resolutionResponse{
		Resolved: true,
		Code:     res.Code(),
		Name:     res.Name(),
		Strategy: string(res.Strategy()),
		Score:    res.Score(),
	}
}

// ResolveEntity handles POST /v1/resolve.
func (s *Server) ResolveEntity(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "query is required")
		return
	}
	if len(req.Entities) == 0 && len(req.Snapshots) == 0 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "entities or snapshots is required")
		return
	}

	if len(req.Snapshots) > 0 {
		snapshots := make(map[string][]plant.Entity, len(req.Snapshots))
		for label, es := range req.Snapshots {
			snapshots[label] = entitiesFromRequest(es)
		}
		results := s.resolver.ExtractCodeBatch(r.Context(), req.Query, snapshots)

		out := make(map[string]resolutionResponse, len(results))
		for label, res := range results {
			out[label] = resolutionToResponse(res)
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": out})
		return
	}

	res, ok := s.resolver.ExtractCode(r.Context(), req.Query, entitiesFromRequest(req.Entities))
	if !ok {
		writeJSON(w, http.StatusOK, resolutionResponse{Resolved: false})
		return
	}
	writeJSON(w, http.StatusOK, resolutionToResponse(res))
}

func entitiesFromRequest(es []resolveEntity) []plant.Entity {
	out := make([]plant.Entity, len(es))
	for i, e := range es {
		out[i] = plant.NewEntity(e.Code, e.Name)
	}
	return out
}

// toolItem is one GET /v1/tools entry.
type toolItem struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ListTools handles GET /v1/tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	labels := s.tools.Labels()
	tools := s.tools.Tools()

	items := make([]toolItem, len(tools))
	for i, t := range tools {
		items[i] = toolItem{
			Name:        t.Name(),
			Label:       labels[t.Name()],
			Description: t.Description(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": items})
}

// CacheStats handles GET /v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

// InvalidateCache handles DELETE /v1/cache.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	s.cache.InvalidateAll()
	s.logger.Info("Embedding cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

// Usage handles GET /v1/usage.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.usage.GetReport(r.Context()))
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrAliasTableNotFound,
		domain.ErrNoTools,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
