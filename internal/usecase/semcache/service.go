// Package semcache fingerprints normalized queries and caches full
// responses. A store failure degrades to always-miss; search proceeds
// uncached rather than failing.
package semcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/response"
)

// DefaultTTL is the cache entry lifetime when config does not override it.
const DefaultTTL = 3600 * time.Second

// Service is the semantic cache.
type Service struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a semantic cache service.
func New(store Store, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: store, ttl: ttl, logger: logger}
}

// TTL returns the configured entry lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// Fingerprint derives the deterministic cache key: tenant id, normalized
// query string, sorted facet pairs, and the sorted entity-type set.
// Offset and limit are deliberately excluded; entries hold the full
// result list and the caller slices the page per request.
func (s *Service) Fingerprint(tenantID string, q *query.Query) string {
	var b strings.Builder
	b.WriteString(tenantID)
	b.WriteByte('\n')
	b.WriteString(q.Normalized())
	b.WriteByte('\n')

	facets := q.Facets()
	keys := make([]string, 0, len(facets))
	for k := range facets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(facets[k])
		b.WriteByte(';')
	}
	b.WriteByte('\n')

	types := make([]string, 0, len(q.Types()))
	for _, t := range q.Types() {
		types = append(types, string(t))
	}
	sort.Strings(types)
	b.WriteString(strings.Join(types, ","))
	b.WriteByte('\n')
	if q.Fuzzy() {
		b.WriteString("fuzzy")
	}
	if q.ApplyGDPR() {
		b.WriteString("gdpr")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns a deep copy of the cached response, or found=false.
// Callers own the returned value and may mutate it freely.
func (s *Service) Get(ctx context.Context, fingerprint string) (*response.Response, bool) {
	payload, found, err := s.store.Get(ctx, fingerprint)
	if err != nil {
		s.logger.Warn("cache degraded to miss",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)))
		return nil, false
	}
	if !found {
		return nil, false
	}

	// JSON round-trip doubles as the deep copy isolating callers from
	// shared cache state.
	var resp response.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		s.logger.Warn("discarding undecodable cache entry", zap.Error(err))
		return nil, false
	}
	return &resp, true
}

// Put installs a complete new entry. Best-effort: a store failure is
// logged and the response is served uncached.
func (s *Service) Put(ctx context.Context, fingerprint string, resp *response.Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, fingerprint, payload, s.ttl); err != nil {
		s.logger.Warn("cache write failed",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrCacheUnavailable, err)))
	}
}
