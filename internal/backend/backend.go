// Package backend abstracts the lookup mechanism behind search. The
// concrete variant is selected once at service construction from
// configuration; callers never inspect the implementation type.
package backend

import (
	"context"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
)

// Candidate is one raw match with its lexical score, before filtering,
// masking, and personalization.
type Candidate struct {
	Record        record.Record
	Lexical       float64
	MatchedFields []string
}

// Finder is the minimal lookup contract every backend satisfies.
type Finder interface {
	// Name identifies the active backend in response metadata.
	Name() string

	// Find returns candidates for one entity type and query string.
	// An unreachable backend returns domain.ErrBackendUnavailable.
	Find(ctx context.Context, tenantID string, et entity.Type, queryText string, fuzzy bool) ([]Candidate, error)

	// Suggest returns up to limit distinct field values starting with
	// prefix, for autocomplete.
	Suggest(ctx context.Context, tenantID string, et entity.Type, field, prefix string, limit int) ([]string, error)

	// HealthCheck reports backend reachability.
	HealthCheck(ctx context.Context) error
}

// Engine extends Finder with index lifecycle operations. Only external
// search engines maintain an index; the record-scan variant reads the
// provider directly and has nothing to rebuild.
type Engine interface {
	Finder

	// BulkIndex adds or replaces documents for the given records.
	BulkIndex(ctx context.Context, tenantID string, records []record.Record) error

	// Delete removes one document.
	Delete(ctx context.Context, tenantID string, et entity.Type, id string) error

	// RebuildIndex drops and repopulates the index from the provider.
	RebuildIndex(ctx context.Context, tenantID string) (int, error)
}
