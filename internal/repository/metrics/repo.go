// Package metrics stores append-only search metrics and interaction
// events. Interaction rows carry the ranking feedback window as their
// TTL, so the trailing-window count is simply the number of live keys.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/crmsearch/internal/db"
	"github.com/kailas-cloud/crmsearch/internal/domain/metric"
)

const (
	metricPrefix      = "metric:"
	interactionPrefix = "interaction:"

	// interactionWindow is the trailing window ranking reads from.
	interactionWindow = 30 * 24 * time.Hour
	// metricRetention bounds the summary endpoint's working set.
	metricRetention = 90 * 24 * time.Hour

	topQueryCount = 10
)

// Repo stores search metrics on the shared store.
type Repo struct {
	store db.KVStore
}

// New creates a metrics repository.
func New(store db.KVStore) *Repo {
	return &Repo{store: store}
}

// RecordSearch appends one search metric and returns it with its id set.
func (r *Repo) RecordSearch(ctx context.Context, m metric.Search) (metric.Search, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.At.IsZero() {
		m.At = time.Now().UTC()
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return metric.Search{}, fmt.Errorf("encode metric: %w", err)
	}
	k := metricPrefix + m.TenantID + ":" + m.ID
	if err := r.store.SetWithTTL(ctx, k, raw, metricRetention); err != nil {
		return metric.Search{}, fmt.Errorf("store metric: %w", err)
	}
	return m, nil
}

// RecordInteraction appends one ranking-feedback event.
func (r *Repo) RecordInteraction(ctx context.Context, ev metric.Interaction) (metric.Interaction, error) {
	if ev.MetricID == "" || ev.ResultID == "" {
		return metric.Interaction{}, fmt.Errorf("metric_id and result_id are required")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return metric.Interaction{}, fmt.Errorf("encode interaction: %w", err)
	}
	k := interactionPrefix + ev.TenantID + ":" + ev.ResultID + ":" + ev.ID
	if err := r.store.SetWithTTL(ctx, k, raw, interactionWindow); err != nil {
		return metric.Interaction{}, fmt.Errorf("store interaction: %w", err)
	}
	return ev, nil
}

// InteractionCount returns the number of live interaction events for a
// record. Expired rows age out of the store, so live keys are exactly
// the trailing window.
func (r *Repo) InteractionCount(ctx context.Context, tenantID, resultID string) (int, error) {
	keys, err := r.store.Scan(ctx, interactionPrefix+tenantID+":"+resultID+":*")
	if err != nil {
		return 0, fmt.Errorf("scan interactions: %w", err)
	}
	return len(keys), nil
}

// Summary aggregates the tenant's retained search metrics.
func (r *Repo) Summary(ctx context.Context, tenantID string) (metric.Summary, error) {
	keys, err := r.store.Scan(ctx, metricPrefix+tenantID+":*")
	if err != nil {
		return metric.Summary{}, fmt.Errorf("scan metrics: %w", err)
	}

	s := metric.Summary{ByEntityType: make(map[string]int)}
	queryCounts := make(map[string]int)
	var tookTotal int64

	for _, k := range keys {
		raw, err := r.store.Get(ctx, k)
		if err == db.ErrKeyNotFound {
			continue
		}
		if err != nil {
			return metric.Summary{}, fmt.Errorf("read metric: %w", err)
		}
		var m metric.Search
		if err := json.Unmarshal(raw, &m); err != nil {
			return metric.Summary{}, fmt.Errorf("decode metric: %w", err)
		}

		s.TotalSearches++
		if m.CacheHit {
			s.CacheHits++
		}
		tookTotal += m.TookMillis
		queryCounts[m.Query]++
		for _, et := range m.EntityTypes {
			s.ByEntityType[et]++
		}
	}

	if s.TotalSearches > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(s.TotalSearches)
		s.AvgTookMillis = float64(tookTotal) / float64(s.TotalSearches)
	}

	for q, c := range queryCounts {
		s.TopQueries = append(s.TopQueries, metric.QueryCount{Query: q, Count: c})
	}
	sort.Slice(s.TopQueries, func(i, j int) bool {
		if s.TopQueries[i].Count != s.TopQueries[j].Count {
			return s.TopQueries[i].Count > s.TopQueries[j].Count
		}
		return s.TopQueries[i].Query < s.TopQueries[j].Query
	})
	if len(s.TopQueries) > topQueryCount {
		s.TopQueries = s.TopQueries[:topQueryCount]
	}
	return s, nil
}
