// Package search orchestrates one search call: cache check, query
// expansion, per-entity-type backend fan-out, facet and GDPR filtering,
// personalized ranking, pagination, and metric recording.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/metric"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/response"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/result"
	"github.com/kailas-cloud/crmsearch/internal/metrics"
	"github.com/kailas-cloud/crmsearch/internal/usecase/explain"
	"github.com/kailas-cloud/crmsearch/internal/usecase/facet"
	"github.com/kailas-cloud/crmsearch/internal/usecase/gdpr"
	"github.com/kailas-cloud/crmsearch/internal/usecase/rank"
)

// DefaultBackendTimeout bounds each entity type's backend fan-out call.
const DefaultBackendTimeout = 5 * time.Second

// Service is the search facade, the only entry point other components use.
type Service struct {
	backend        Finder
	expander       Expander
	cache          Cache
	facets         *facet.Service
	gdpr           *gdpr.Service
	ranker         *rank.Service
	explainer      *explain.Service
	metrics        MetricRecorder
	logger         *zap.Logger
	backendTimeout time.Duration
	now            Clock
}

// New creates the search facade.
func New(
	finder Finder,
	expander Expander,
	cache Cache,
	facets *facet.Service,
	gdprSvc *gdpr.Service,
	ranker *rank.Service,
	explainer *explain.Service,
	recorder MetricRecorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		backend:        finder,
		expander:       expander,
		cache:          cache,
		facets:         facets,
		gdpr:           gdprSvc,
		ranker:         ranker,
		explainer:      explainer,
		metrics:        recorder,
		logger:         logger,
		backendTimeout: DefaultBackendTimeout,
		now:            time.Now,
	}
}

// WithBackendTimeout overrides the per-entity-type backend deadline.
func (s *Service) WithBackendTimeout(d time.Duration) *Service {
	if d > 0 {
		s.backendTimeout = d
	}
	return s
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now Clock) *Service {
	s.now = now
	return s
}

// Search executes one search call for the tenant and principal carried
// in ctx. Entity types whose backend fails are omitted and flagged;
// the call only errors when every requested type is unavailable.
func (s *Service) Search(ctx context.Context, q *query.Query) (*response.Response, error) {
	tenantID := domain.TenantFromContext(ctx)
	if tenantID == "" {
		return nil, domain.ErrTenantMissing
	}
	principal := domain.PrincipalFromContext(ctx)

	if err := s.facets.Validate(q.Facets()); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	start := s.now()
	fingerprint := s.cache.Fingerprint(tenantID, q)

	if cached, ok := s.cache.Get(ctx, fingerprint); ok {
		// The fingerprint ignores offset and limit, so cached entries
		// carry the full result list. Slice the requested page here.
		page := paginate(cached.Results, q.Offset(), q.Limit())
		cached.Results = page
		cached.Pagination = response.Pagination{
			Offset:  q.Offset(),
			Limit:   q.Limit(),
			HasMore: q.Offset()+len(page) < cached.Total,
		}
		cached.CacheHit = true
		cached.TookMillis = s.now().Sub(start).Milliseconds()
		metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
		s.record(ctx, tenantID, q, cached)
		return cached, nil
	}
	metrics.SearchCacheTotal.WithLabelValues("miss").Inc()

	variants, err := s.expander.Expand(ctx, tenantID, q.Text())
	if err != nil {
		// Expansion is an enrichment; fall back to the literal query.
		s.logger.Warn("query expansion failed", zap.Error(err))
		variants = []string{q.Text()}
	}
	metrics.QueryExpansionsTotal.Add(float64(len(variants) - 1))

	candidates, failures := s.fanOut(ctx, tenantID, q, variants)
	if len(failures) == len(q.Types()) {
		return nil, fmt.Errorf("%w: all entity types failed", domain.ErrBackendUnavailable)
	}

	facetCounts := s.facets.Counts(candidates)
	filtered, err := s.facets.Filter(candidates, q.Facets())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	results := s.score(ctx, tenantID, principal, q, filtered)

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	total := len(results)
	page := paginate(results, q.Offset(), q.Limit())

	resp := &response.Response{
		Query:       q.Text(),
		EntityTypes: typeNames(q.Types()),
		Results:     page,
		Total:       total,
		TookMillis:  s.now().Sub(start).Milliseconds(),
		Backend:     s.backend.Name(),
		Degraded:    len(failures) > 0,
		Failures:    failures,
		FacetCounts: facetCounts,
		Pagination: response.Pagination{
			Offset:  q.Offset(),
			Limit:   q.Limit(),
			HasMore: q.Offset()+len(page) < total,
		},
	}

	// A cancelled caller must not leave orphaned cache writes.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("search cancelled: %w", ctx.Err())
	}
	// Cache the full list, not the page, so later calls with a
	// different offset still hit.
	full := *resp
	full.Results = results
	s.cache.Put(ctx, fingerprint, &full)
	s.record(ctx, tenantID, q, resp)
	return resp, nil
}

// fanOut queries every requested entity type concurrently. Each type
// searches every expanded variant and unions candidates by record id,
// keeping the highest lexical score. Failures are isolated per type.
func (s *Service) fanOut(
	ctx context.Context, tenantID string, q *query.Query, variants []string,
) ([]backend.Candidate, map[string]string) {
	var mu sync.Mutex
	merged := make(map[string]backend.Candidate)
	failures := make(map[string]string)

	g, gctx := errgroup.WithContext(ctx)
	for _, et := range q.Types() {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(gctx, s.backendTimeout)
			defer cancel()

			// Candidates stay local until every variant succeeds. A type
			// that fails mid-way is flagged unavailable and contributes
			// nothing, even from variants that already returned.
			local := make(map[string]backend.Candidate)
			for _, variant := range variants {
				found, err := s.backend.Find(ctx, tenantID, et, variant, q.Fuzzy())
				if err != nil {
					metrics.BackendErrorsTotal.WithLabelValues(string(et)).Inc()
					s.logger.Warn("entity type unavailable",
						zap.String("entity_type", string(et)),
						zap.Error(err),
					)
					mu.Lock()
					failures[string(et)] = domain.ErrBackendUnavailable.Error()
					mu.Unlock()
					// Isolate: other entity types keep searching.
					return nil
				}
				for _, c := range found {
					key := string(et) + ":" + c.Record.ID
					if prev, ok := local[key]; !ok || c.Lexical > prev.Lexical {
						local[key] = c
					}
				}
			}

			mu.Lock()
			for key, c := range local {
				merged[key] = c
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := make([]backend.Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	return out, failures
}

// score applies GDPR masking and personalized ranking to each candidate.
func (s *Service) score(
	ctx context.Context,
	tenantID string,
	principal domain.Principal,
	q *query.Query,
	candidates []backend.Candidate,
) []result.Result {
	results := make([]result.Result, 0, len(candidates))
	for _, c := range candidates {
		data := c.Record.CloneFields()
		piiFiltered := false
		if q.ApplyGDPR() && s.gdpr.Enabled() {
			data, piiFiltered = s.gdpr.Apply(principal, c.Record.Fields)
		}

		breakdown := s.ranker.Score(
			ctx, tenantID, principal.UserID,
			c.Record.ID, c.Record.OwnerID, c.Record.CreatedAt, c.Lexical,
		)

		r := result.Result{
			EntityType:    c.Record.Type,
			ID:            c.Record.ID,
			Score:         breakdown.Composite,
			Data:          data,
			MatchedFields: c.MatchedFields,
			PIIFiltered:   piiFiltered,
		}
		if q.Explain() {
			r.Explanation = s.explainer.Build(breakdown)
		}
		results = append(results, r)
	}
	return results
}

// Autocomplete returns suggestions for one field prefix.
func (s *Service) Autocomplete(
	ctx context.Context, field, prefix string, limit int,
) ([]string, error) {
	tenantID := domain.TenantFromContext(ctx)
	if tenantID == "" {
		return nil, domain.ErrTenantMissing
	}
	if limit <= 0 || limit > 25 {
		limit = 10
	}

	seen := make(map[string]struct{})
	var out []string
	for _, et := range entity.All() {
		if _, searchable := et.FieldWeights()[field]; !searchable {
			continue
		}
		values, err := s.backend.Suggest(ctx, tenantID, et, field, prefix, limit)
		if err != nil {
			s.logger.Warn("autocomplete entity type skipped",
				zap.String("entity_type", string(et)),
				zap.Error(err),
			)
			continue
		}
		for _, v := range values {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) record(ctx context.Context, tenantID string, q *query.Query, resp *response.Response) {
	m := metric.Search{
		TenantID:    tenantID,
		Query:       q.Text(),
		EntityTypes: typeNames(q.Types()),
		TookMillis:  resp.TookMillis,
		CacheHit:    resp.CacheHit,
	}
	if _, err := s.metrics.RecordSearch(ctx, m); err != nil {
		s.logger.Warn("search metric not recorded", zap.Error(err))
	}
}

func paginate(results []result.Result, offset, limit int) []result.Result {
	if offset >= len(results) {
		return []result.Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

func typeNames(types []entity.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
