// Package chi exposes the search layer over HTTP using hand-written
// chi handlers.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	domgraph "github.com/kailas-cloud/crmsearch/internal/domain/graph"
	expansionrepo "github.com/kailas-cloud/crmsearch/internal/repository/expansion"
	metricsrepo "github.com/kailas-cloud/crmsearch/internal/repository/metrics"
	graphuc "github.com/kailas-cloud/crmsearch/internal/usecase/graph"
	healthuc "github.com/kailas-cloud/crmsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/crmsearch/internal/usecase/search"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires usecase services to the REST surface.
type Server struct {
	search        *searchuc.Service
	graph         *graphuc.Service
	expansions    *expansionrepo.Repo
	metrics       *metricsrepo.Repo
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	graph *graphuc.Service,
	expansions *expansionrepo.Repo,
	metrics *metricsrepo.Repo,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		graph:      graph,
		expansions: expansions,
		metrics:    metrics,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownFacet, http.StatusBadRequest, codeUnknownFacet),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrTenantMissing, http.StatusBadRequest, codeTenantMissing),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, codeForbidden),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, codeBackendUnavailable),
	}
	return s
}

// Routes mounts the API under /api/v1.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search/", s.Search)
		r.Get("/search/autocomplete/", s.Autocomplete)
		r.Get("/search/health/", s.HealthCheck)
		r.Get("/search/graph/", s.GraphPaths)
		r.Get("/search/graph/related/", s.GraphRelated)
		r.Post("/search/graph/rebuild/", s.GraphRebuild)
		r.Post("/search/track/", s.Track)
		r.Get("/search/query-expansion/", s.ListExpansions)
		r.Post("/search/query-expansion/", s.UpsertExpansion)
		r.Put("/search/query-expansion/{id}", s.UpsertExpansion)
		r.Delete("/search/query-expansion/{id}", s.DeleteExpansion)
		r.Get("/search/metrics/summary/", s.MetricsSummary)
	})
	r.Get("/metrics", s.Metrics)
}

// Search handles POST /api/v1/search/.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := req.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Autocomplete handles GET /api/v1/search/autocomplete/.
func (s *Server) Autocomplete(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	prefix := r.URL.Query().Get("query")
	if field == "" || prefix == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "field and query parameters are required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	suggestions, err := s.search.Autocomplete(r.Context(), field, prefix, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	writeJSON(w, http.StatusOK, autocompleteResponse{
		Field:       field,
		Prefix:      prefix,
		Suggestions: suggestions,
	})
}

// GraphPaths handles GET /api/v1/search/graph/. With a target_type it
// returns paths to that type; without one it lists related objects,
// same as the /related/ alias.
func (s *Server) GraphPaths(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantFromContext(r.Context())
	if tenantID == "" {
		s.handleDomainError(w, domain.ErrTenantMissing)
		return
	}

	qs := r.URL.Query()
	source, err := graphKey(qs.Get("source_type"), qs.Get("source_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	if qs.Get("target_type") == "" {
		s.GraphRelated(w, r)
		return
	}
	targetType, err := entity.Parse(qs.Get("target_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "target_type: "+err.Error())
		return
	}
	maxHops, _ := strconv.Atoi(qs.Get("depth"))

	paths := s.graph.FindPaths(tenantID, source, targetType, maxHops)
	if paths == nil {
		paths = []domgraph.Path{}
	}
	if maxHops <= 0 || maxHops > graphuc.DefaultMaxHops {
		maxHops = graphuc.DefaultMaxHops
	}

	writeJSON(w, http.StatusOK, graphResponse{
		Source:     source,
		TargetType: string(targetType),
		MaxHops:    maxHops,
		Paths:      paths,
	})
}

// GraphRelated handles GET /api/v1/search/graph/related/.
func (s *Server) GraphRelated(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantFromContext(r.Context())
	if tenantID == "" {
		s.handleDomainError(w, domain.ErrTenantMissing)
		return
	}

	qs := r.URL.Query()
	source, err := graphKey(qs.Get("source_type"), qs.Get("source_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	related := make(map[string][]domgraph.Key)
	for et, keys := range s.graph.Related(tenantID, source) {
		related[string(et)] = keys
	}

	writeJSON(w, http.StatusOK, relatedResponse{Source: source, Related: related})
}

// GraphRebuild handles POST /api/v1/search/graph/rebuild/.
func (s *Server) GraphRebuild(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantFromContext(r.Context())
	if tenantID == "" {
		s.handleDomainError(w, domain.ErrTenantMissing)
		return
	}

	report, err := s.graph.Rebuild(r.Context(), tenantID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, rebuildResponse{
		Edges:   report.Edges,
		Skipped: report.Skipped,
	})
}

// Track handles POST /api/v1/search/track/.
func (s *Server) Track(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantFromContext(r.Context())
	if tenantID == "" {
		s.handleDomainError(w, domain.ErrTenantMissing)
		return
	}

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.MetricID == "" || req.ResultID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "metric_id and result_id are required")
		return
	}

	ev, err := s.metrics.RecordInteraction(r.Context(), req.toInteraction(tenantID))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ev)
}

// ListExpansions handles GET /api/v1/search/query-expansion/.
func (s *Server) ListExpansions(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	rules, err := s.expansions.List(r.Context(), tenantID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, expansionListResponse{Items: rules, Total: len(rules)})
}

// UpsertExpansion handles POST and PUT /api/v1/search/query-expansion/.
func (s *Server) UpsertExpansion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	var req expansionRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.ID = id
	}

	created := req.ID == ""
	rule, err := s.expansions.Upsert(r.Context(), req.toRule(tenantID))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rule)
}

// DeleteExpansion handles DELETE /api/v1/search/query-expansion/{id}.
func (s *Server) DeleteExpansion(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := s.requireAdmin(w, r)
	if !ok {
		return
	}

	if err := s.expansions.Delete(r.Context(), tenantID, chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MetricsSummary handles GET /api/v1/search/metrics/summary/.
func (s *Server) MetricsSummary(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantFromContext(r.Context())
	if tenantID == "" {
		s.handleDomainError(w, domain.ErrTenantMissing)
		return
	}

	summary, err := s.metrics.Summary(r.Context(), tenantID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// HealthCheck handles GET /api/v1/search/health/.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// requireAdmin resolves the tenant and checks the admin role.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := domain.TenantFromContext(r.Context())
	if tenantID == "" {
		s.handleDomainError(w, domain.ErrTenantMissing)
		return "", false
	}
	if !domain.PrincipalFromContext(r.Context()).IsAdmin() {
		s.handleDomainError(w, domain.ErrForbidden)
		return "", false
	}
	return tenantID, true
}

func graphKey(rawType, id string) (domgraph.Key, error) {
	if id == "" {
		return domgraph.Key{}, errors.New("source_id is required")
	}
	et, err := entity.Parse(rawType)
	if err != nil {
		return domgraph.Key{}, err
	}
	return domgraph.Key{Type: et, ID: id}, nil
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
		domain.ErrValidation,
		domain.ErrUnknownFacet,
		domain.ErrTenantMissing,
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrBackendUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
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
