package crmsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	domexp "github.com/kailas-cloud/crmsearch/internal/domain/expansion"
	domgraph "github.com/kailas-cloud/crmsearch/internal/domain/graph"
	"github.com/kailas-cloud/crmsearch/internal/domain/metric"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/response"
)

// Record is one CRM row registered with the embedded provider.
type Record struct {
	Type      string
	ID        string
	OwnerID   string
	CreatedAt time.Time
	Fields    map[string]string
}

// Relation is one relationship link between two records.
type Relation struct {
	SourceType string
	SourceID   string
	Label      string
	TargetType string
	TargetID   string
	Weight     float64
}

// AddRecord registers a row for the tenant.
func (c *Client) AddRecord(tenantID string, r Record) error {
	et, err := entity.Parse(r.Type)
	if err != nil {
		return fmt.Errorf("crmsearch: %w", err)
	}
	c.provider.AddRecord(tenantID, record.Record{
		Type:      et,
		ID:        r.ID,
		OwnerID:   r.OwnerID,
		CreatedAt: r.CreatedAt,
		Fields:    r.Fields,
	})
	return nil
}

// AddRelation registers a relationship link for the tenant. The link
// becomes visible to graph queries after the next RebuildGraph.
func (c *Client) AddRelation(tenantID string, rel Relation) {
	c.provider.AddRelation(tenantID, record.Relation{
		SourceType: rel.SourceType,
		SourceID:   rel.SourceID,
		Label:      rel.Label,
		TargetType: rel.TargetType,
		TargetID:   rel.TargetID,
		Weight:     rel.Weight,
	})
}

// SearchParams holds one search call's parameters. Zero values fall
// back to the service defaults (all entity types, limit 20).
type SearchParams struct {
	Query   string
	Models  []string
	Filters map[string]string
	Fuzzy   bool
	Limit   int
	Offset  int
	// SkipGDPR disables PII/PHI masking for this call.
	SkipGDPR bool
	Explain  bool
}

// Search executes one search call. The context must carry a tenant
// (WithTenant) and optionally a principal (WithUser).
func (c *Client) Search(ctx context.Context, p SearchParams) (*response.Response, error) {
	types := make([]entity.Type, 0, len(p.Models))
	for _, m := range p.Models {
		t, err := entity.Parse(m)
		if err != nil {
			return nil, fmt.Errorf("crmsearch: %w", err)
		}
		types = append(types, t)
	}

	q, err := query.New(
		p.Query, types, p.Filters, p.Fuzzy,
		p.Limit, p.Offset, !p.SkipGDPR, p.Explain,
	)
	if err != nil {
		return nil, fmt.Errorf("crmsearch: %w: %w", domain.ErrValidation, err)
	}

	return c.searchSvc.Search(ctx, &q)
}

// Autocomplete returns distinct field values starting with prefix.
func (c *Client) Autocomplete(ctx context.Context, field, prefix string, limit int) ([]string, error) {
	return c.searchSvc.Autocomplete(ctx, field, prefix, limit)
}

// RebuildGraph repopulates the tenant's relationship graph from the
// registered relations and reports edge and skip counts.
func (c *Client) RebuildGraph(ctx context.Context, tenantID string) (edges, skipped int, err error) {
	report, err := c.graphSvc.Rebuild(ctx, tenantID)
	if err != nil {
		return 0, 0, err
	}
	return report.Edges, report.Skipped, nil
}

// Related returns one-hop neighbors of a record, grouped by type.
func (c *Client) Related(tenantID, sourceType, sourceID string) (map[string][]domgraph.Key, error) {
	et, err := entity.Parse(sourceType)
	if err != nil {
		return nil, fmt.Errorf("crmsearch: %w", err)
	}
	out := make(map[string][]domgraph.Key)
	for t, keys := range c.graphSvc.Related(tenantID, domgraph.Key{Type: et, ID: sourceID}) {
		out[string(t)] = keys
	}
	return out, nil
}

// FindPaths returns shortest relationship paths from a record to any
// record of targetType, at most maxHops edges long.
func (c *Client) FindPaths(
	tenantID, sourceType, sourceID, targetType string, maxHops int,
) ([]domgraph.Path, error) {
	st, err := entity.Parse(sourceType)
	if err != nil {
		return nil, fmt.Errorf("crmsearch: %w", err)
	}
	tt, err := entity.Parse(targetType)
	if err != nil {
		return nil, fmt.Errorf("crmsearch: %w", err)
	}
	return c.graphSvc.FindPaths(tenantID, domgraph.Key{Type: st, ID: sourceID}, tt, maxHops), nil
}

// UpsertExpansionRule creates or replaces a query-expansion rule.
func (c *Client) UpsertExpansionRule(ctx context.Context, rule domexp.Rule) (domexp.Rule, error) {
	return c.expansions.Upsert(ctx, rule)
}

// ListExpansionRules returns the tenant's rules, priority descending.
func (c *Client) ListExpansionRules(ctx context.Context, tenantID string) ([]domexp.Rule, error) {
	return c.expansions.List(ctx, tenantID)
}

// DeleteExpansionRule removes one rule.
func (c *Client) DeleteExpansionRule(ctx context.Context, tenantID, id string) error {
	return c.expansions.Delete(ctx, tenantID, id)
}

// TrackInteraction records one ranking-feedback event.
func (c *Client) TrackInteraction(ctx context.Context, tenantID, metricID, resultID string, rank int) error {
	_, err := c.metrics.RecordInteraction(ctx, metric.Interaction{
		MetricID: metricID,
		TenantID: tenantID,
		ResultID: resultID,
		Rank:     rank,
	})
	return err
}

// MetricsSummary aggregates the tenant's retained search metrics.
func (c *Client) MetricsSummary(ctx context.Context, tenantID string) (metric.Summary, error) {
	return c.metrics.Summary(ctx, tenantID)
}
