package metric

import "time"

// Search is one append-only record per executed search, used for
// popularity and cache-rate reporting.
type Search struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Query       string    `json:"query"`
	EntityTypes []string  `json:"entity_types"`
	TookMillis  int64     `json:"took_ms"`
	CacheHit    bool      `json:"cache_hit"`
	At          time.Time `json:"at"`
}

// Interaction is one ranking-feedback event: the caller clicked a result
// at a given rank. Append-only; consumed fresh by the ranking service.
type Interaction struct {
	ID       string    `json:"id"`
	MetricID string    `json:"metric_id"`
	TenantID string    `json:"tenant_id"`
	ResultID string    `json:"result_id"`
	Rank     int       `json:"rank"`
	At       time.Time `json:"at"`
}

// Summary aggregates search metrics for the observability endpoint.
type Summary struct {
	TotalSearches int            `json:"total_searches"`
	CacheHits     int            `json:"cache_hits"`
	CacheHitRate  float64        `json:"cache_hit_rate"`
	AvgTookMillis float64        `json:"avg_took_ms"`
	TopQueries    []QueryCount   `json:"top_queries"`
	ByEntityType  map[string]int `json:"by_entity_type"`
}

// QueryCount is one popular query with its occurrence count.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}
