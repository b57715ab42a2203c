package response

import (
	"github.com/kailas-cloud/crmsearch/internal/domain/search/result"
)

// Response is the full outcome of one search call. It is serialized as-is
// into the semantic cache, so every field must round-trip through JSON.
type Response struct {
	Query       string                    `json:"query"`
	EntityTypes []string                  `json:"entity_types"`
	Results     []result.Result           `json:"results"`
	Total       int                       `json:"total"`
	TookMillis  int64                     `json:"took_ms"`
	Backend     string                    `json:"backend"`
	CacheHit    bool                      `json:"cache_hit"`
	Degraded    bool                      `json:"degraded"`
	Failures    map[string]string         `json:"failures,omitempty"`
	FacetCounts map[string]map[string]int `json:"facet_counts,omitempty"`
	Pagination  Pagination                `json:"pagination"`
}

// Pagination describes the returned page.
type Pagination struct {
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}
