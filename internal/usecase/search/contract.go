package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/metric"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/response"
)

// Finder is the active search backend.
type Finder interface {
	Name() string
	Find(ctx context.Context, tenantID string, et entity.Type, queryText string, fuzzy bool) ([]backend.Candidate, error)
	Suggest(ctx context.Context, tenantID string, et entity.Type, field, prefix string, limit int) ([]string, error)
}

// Expander rewrites the query into bounded variants.
type Expander interface {
	Expand(ctx context.Context, tenantID, queryText string) ([]string, error)
}

// Cache is the semantic response cache.
type Cache interface {
	Fingerprint(tenantID string, q *query.Query) string
	Get(ctx context.Context, fingerprint string) (*response.Response, bool)
	Put(ctx context.Context, fingerprint string, resp *response.Response)
}

// MetricRecorder appends search metrics.
type MetricRecorder interface {
	RecordSearch(ctx context.Context, m metric.Search) (metric.Search, error)
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
