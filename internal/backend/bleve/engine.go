// Package bleve implements the external-engine backend variant on an
// embedded bleve full-text index. Unlike the provider-scan variant it
// maintains its own index, so it also exposes bulk-index, delete, and
// rebuild operations.
package bleve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bleve2 "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
	"github.com/kailas-cloud/crmsearch/internal/provider"
)

// Metadata fields stored alongside record data in the index.
const (
	fieldTenant  = "_tenant"
	fieldType    = "_type"
	fieldOwner   = "_owner"
	fieldCreated = "_created"
)

// Compile-time check: Engine implements backend.Engine.
var _ backend.Engine = (*Engine)(nil)

// Engine is the bleve-backed search variant.
type Engine struct {
	mu       sync.RWMutex
	index    bleve2.Index
	provider provider.Provider
	logger   *zap.Logger
}

// New opens (or creates) a bleve index at path. An empty path creates an
// in-memory index.
func New(path string, p provider.Provider, logger *zap.Logger) (*Engine, error) {
	mapping := buildMapping()

	var idx bleve2.Index
	var err error
	if path == "" {
		idx, err = bleve2.NewMemOnly(mapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("create index dir: %w", mkErr)
		}
		idx, err = bleve2.Open(path)
		if err == bleve2.ErrorIndexPathDoesNotExist {
			idx, err = bleve2.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Engine{index: idx, provider: p, logger: logger}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve2.NewIndexMapping()
	dm := bleve2.NewDocumentMapping()

	kw := bleve2.NewKeywordFieldMapping()
	dm.AddFieldMappingsAt(fieldTenant, kw)
	dm.AddFieldMappingsAt(fieldType, kw)
	dm.AddFieldMappingsAt(fieldOwner, kw)
	dm.AddFieldMappingsAt(fieldCreated, kw)

	im.DefaultMapping = dm
	return im
}

// Name identifies the backend in response metadata.
func (e *Engine) Name() string { return "bleve" }

// HealthCheck verifies the index answers a count request.
func (e *Engine) HealthCheck(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, err := e.index.DocCount(); err != nil {
		return fmt.Errorf("index doc count: %w", err)
	}
	return nil
}

func docID(tenantID string, et entity.Type, id string) string {
	return tenantID + "|" + string(et) + "|" + id
}

func toDoc(tenantID string, r record.Record) map[string]any {
	doc := make(map[string]any, len(r.Fields)+4)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc[fieldTenant] = tenantID
	doc[fieldType] = string(r.Type)
	doc[fieldOwner] = r.OwnerID
	doc[fieldCreated] = r.CreatedAt.UTC().Format(time.RFC3339)
	return doc
}

// BulkIndex adds or replaces documents for the given records.
func (e *Engine) BulkIndex(_ context.Context, tenantID string, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := e.index.NewBatch()
	for _, r := range records {
		if err := batch.Index(docID(tenantID, r.Type, r.ID), toDoc(tenantID, r)); err != nil {
			return fmt.Errorf("index record %s: %w", r.ID, err)
		}
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("execute batch: %w", err)
	}
	return nil
}

// Delete removes one document from the index.
func (e *Engine) Delete(_ context.Context, tenantID string, et entity.Type, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.Delete(docID(tenantID, et, id)); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// RebuildIndex drops every document of the tenant and repopulates the
// index from the provider. Returns the number of records indexed.
func (e *Engine) RebuildIndex(ctx context.Context, tenantID string) (int, error) {
	ids, err := e.tenantDocIDs(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	batch := e.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := e.index.Batch(batch); err != nil {
		e.mu.Unlock()
		return 0, fmt.Errorf("clear tenant docs: %w", err)
	}
	e.mu.Unlock()

	total := 0
	for _, et := range entity.All() {
		rows, err := e.provider.Records(ctx, tenantID, et)
		if err != nil {
			return total, fmt.Errorf("read %s records: %w", et, err)
		}
		if err := e.BulkIndex(ctx, tenantID, rows); err != nil {
			return total, err
		}
		total += len(rows)
	}

	e.logger.Info("index rebuilt",
		zap.String("tenant_id", tenantID),
		zap.Int("records", total),
	)
	return total, nil
}

func (e *Engine) tenantDocIDs(ctx context.Context, tenantID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tq := query.NewTermQuery(tenantID)
	tq.SetField(fieldTenant)

	count, _ := e.index.DocCount()
	req := bleve2.NewSearchRequest(tq)
	req.Size = int(count) + 1

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("list tenant docs: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Find queries the engine for one entity type and maps native scores
// into [0, max field weight] so both backend variants rank on the same
// scale.
func (e *Engine) Find(
	ctx context.Context, tenantID string, et entity.Type, queryText string, fuzzy bool,
) ([]backend.Candidate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	mq := bleve2.NewMatchQuery(queryText)
	if fuzzy {
		mq.SetFuzziness(1)
	}

	tq := query.NewTermQuery(tenantID)
	tq.SetField(fieldTenant)
	eq := query.NewTermQuery(string(et))
	eq.SetField(fieldType)

	req := bleve2.NewSearchRequest(bleve2.NewConjunctionQuery(mq, tq, eq))
	req.Size = 500
	req.Fields = []string{"*"}
	req.IncludeLocations = true

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, domain.NewBackendError(string(et), err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}

	// Normalize: best native hit maps to the type's max field weight.
	top := res.Hits[0].Score
	if top <= 0 {
		top = 1
	}
	scale := et.MaxWeight() / top

	out := make([]backend.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		rec, ok := hitToRecord(hit.ID, et, hit.Fields)
		if !ok {
			continue
		}
		out = append(out, backend.Candidate{
			Record:        rec,
			Lexical:       hit.Score * scale,
			MatchedFields: matchedFields(hit.Locations),
		})
	}
	return out, nil
}

func hitToRecord(id string, et entity.Type, fields map[string]any) (record.Record, bool) {
	parts := strings.SplitN(id, "|", 3)
	if len(parts) != 3 {
		return record.Record{}, false
	}

	rec := record.Record{Type: et, ID: parts[2], Fields: make(map[string]string)}
	for k, v := range fields {
		s, isStr := v.(string)
		if !isStr {
			continue
		}
		switch k {
		case fieldOwner:
			rec.OwnerID = s
		case fieldCreated:
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				rec.CreatedAt = t
			}
		case fieldTenant, fieldType:
			// metadata, not payload
		default:
			rec.Fields[k] = s
		}
	}
	return rec, true
}

func matchedFields(locations search.FieldTermLocationMap) []string {
	if len(locations) == 0 {
		return nil
	}
	out := make([]string, 0, len(locations))
	for field := range locations {
		if strings.HasPrefix(field, "_") {
			continue
		}
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// Suggest returns distinct values of one field with the given prefix.
func (e *Engine) Suggest(
	ctx context.Context, tenantID string, et entity.Type, field, prefix string, limit int,
) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pq := bleve2.NewPrefixQuery(strings.ToLower(prefix))
	pq.SetField(field)
	tq := query.NewTermQuery(tenantID)
	tq.SetField(fieldTenant)
	eq := query.NewTermQuery(string(et))
	eq.SetField(fieldType)

	req := bleve2.NewSearchRequest(bleve2.NewConjunctionQuery(pq, tq, eq))
	req.Size = 100
	req.Fields = []string{field}

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, domain.NewBackendError(string(et), err)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, hit := range res.Hits {
		value, _ := hit.Fields[field].(string)
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close releases the underlying index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index.Close()
}
