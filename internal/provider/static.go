package provider

import (
	"context"
	"sync"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
)

// Compile-time check: Static implements Provider.
var _ Provider = (*Static)(nil)

// Static is an in-memory provider for the local environment and tests.
type Static struct {
	mu        sync.RWMutex
	records   map[string]map[entity.Type][]record.Record
	relations map[string][]record.Relation
}

// NewStatic creates an empty static provider.
func NewStatic() *Static {
	return &Static{
		records:   make(map[string]map[entity.Type][]record.Record),
		relations: make(map[string][]record.Relation),
	}
}

// AddRecord registers a row for a tenant.
func (p *Static) AddRecord(tenantID string, r record.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	byType, ok := p.records[tenantID]
	if !ok {
		byType = make(map[entity.Type][]record.Record)
		p.records[tenantID] = byType
	}
	byType[r.Type] = append(byType[r.Type], r)
}

// AddRelation registers a relationship link for a tenant.
func (p *Static) AddRelation(tenantID string, rel record.Relation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.relations[tenantID] = append(p.relations[tenantID], rel)
}

// Records returns the registered rows of one entity type.
func (p *Static) Records(_ context.Context, tenantID string, et entity.Type) ([]record.Record, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rows := p.records[tenantID][et]
	out := make([]record.Record, len(rows))
	copy(out, rows)
	return out, nil
}

// Relations returns the registered relationship links.
func (p *Static) Relations(_ context.Context, tenantID string) ([]record.Relation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	rels := p.relations[tenantID]
	out := make([]record.Relation, len(rels))
	copy(out, rels)
	return out, nil
}
