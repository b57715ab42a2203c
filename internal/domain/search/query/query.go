package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
)

// Query parameter limits.
const (
	MinQueryLength = 2
	MaxQueryLength = 1024
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Query is a validated, immutable search query.
type Query struct {
	text      string
	types     []entity.Type
	facets    map[string]string
	fuzzy     bool
	limit     int
	offset    int
	applyGDPR bool
	explain   bool
}

// New validates and normalizes search parameters.
// Defaults: all entity types, limit=20. Enforces limit <= 100, offset >= 0.
func New(
	text string,
	types []entity.Type,
	facets map[string]string,
	fuzzy bool,
	limit, offset int,
	applyGDPR, explain bool,
) (Query, error) {
	text = strings.TrimSpace(text)
	if len(text) < MinQueryLength {
		return Query{}, fmt.Errorf("query must be at least %d characters", MinQueryLength)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return Query{}, fmt.Errorf("limit must not exceed %d", MaxLimit)
	}
	if offset < 0 {
		return Query{}, fmt.Errorf("offset must not be negative")
	}
	if len(types) == 0 {
		types = entity.All()
	}
	for _, t := range types {
		if !t.IsValid() {
			return Query{}, fmt.Errorf("unknown entity type %q", t)
		}
	}

	return Query{
		text:      text,
		types:     types,
		facets:    facets,
		fuzzy:     fuzzy,
		limit:     limit,
		offset:    offset,
		applyGDPR: applyGDPR,
		explain:   explain,
	}, nil
}

// Text returns the trimmed query string.
func (q *Query) Text() string { return q.text }

// Types returns the requested entity types.
func (q *Query) Types() []entity.Type { return q.types }

// Facets returns the structural facet filters.
func (q *Query) Facets() map[string]string { return q.facets }

// Fuzzy reports whether fuzzy matching is requested.
func (q *Query) Fuzzy() bool { return q.fuzzy }

// Limit returns the maximum number of results per page.
func (q *Query) Limit() int { return q.limit }

// Offset returns the pagination offset.
func (q *Query) Offset() int { return q.offset }

// ApplyGDPR reports whether PII/PHI masking is requested.
func (q *Query) ApplyGDPR() bool { return q.applyGDPR }

// Explain reports whether per-result score breakdowns are requested.
func (q *Query) Explain() bool { return q.explain }

// Normalized returns the canonical query string used for fingerprinting:
// lowercased, single-spaced.
func (q *Query) Normalized() string {
	return strings.Join(strings.Fields(strings.ToLower(q.text)), " ")
}
