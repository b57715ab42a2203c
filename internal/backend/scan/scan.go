// Package scan implements the structured-store backend variant: it reads
// rows from the record provider and matches fields in-process, exact or
// trigram-fuzzy, weighted by the entity type's field table.
package scan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/provider"
)

// fuzzyThreshold discards trigram matches too weak to be intentional.
const fuzzyThreshold = 0.2

// Compile-time check: Backend implements backend.Finder.
var _ backend.Finder = (*Backend)(nil)

// Backend is the provider-scan search variant.
type Backend struct {
	provider provider.Provider
}

// New creates a provider-scan backend.
func New(p provider.Provider) *Backend {
	return &Backend{provider: p}
}

// Name identifies the backend in response metadata.
func (b *Backend) Name() string { return "provider-scan" }

// HealthCheck probes the provider with a minimal read.
func (b *Backend) HealthCheck(ctx context.Context) error {
	if _, err := b.provider.Records(ctx, "", entity.Accounts); err != nil {
		return fmt.Errorf("record provider: %w", err)
	}
	return nil
}

// Find matches queryText against every configured field of the entity
// type. Exact (case-insensitive equality or substring) matches score 1.0
// per field; fuzzy matches score trigram similarity in [0,1]. The
// candidate's lexical score is the max per-field score times that
// field's weight.
func (b *Backend) Find(
	ctx context.Context, tenantID string, et entity.Type, queryText string, fuzzy bool,
) ([]backend.Candidate, error) {
	rows, err := b.provider.Records(ctx, tenantID, et)
	if err != nil {
		return nil, domain.NewBackendError(string(et), err)
	}

	needle := strings.ToLower(strings.TrimSpace(queryText))
	if needle == "" {
		return nil, nil
	}

	weights := et.FieldWeights()
	var out []backend.Candidate
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewBackendError(string(et), err)
		}

		best := 0.0
		var matched []string
		for field, weight := range weights {
			value := row.Field(field)
			if value == "" {
				continue
			}
			score := fieldScore(value, needle, fuzzy)
			if score <= 0 {
				continue
			}
			matched = append(matched, field)
			if s := score * weight; s > best {
				best = s
			}
		}
		if best > 0 {
			sort.Strings(matched)
			out = append(out, backend.Candidate{
				Record:        row,
				Lexical:       best,
				MatchedFields: matched,
			})
		}
	}
	return out, nil
}

func fieldScore(value, needle string, fuzzy bool) float64 {
	lower := strings.ToLower(value)
	if lower == needle || strings.Contains(lower, needle) {
		return 1.0
	}
	if !fuzzy {
		return 0
	}
	if sim := trigramSimilarity(lower, needle); sim >= fuzzyThreshold {
		return sim
	}
	return 0
}

// Suggest returns distinct field values with the given prefix, sorted,
// capped at limit.
func (b *Backend) Suggest(
	ctx context.Context, tenantID string, et entity.Type, field, prefix string, limit int,
) ([]string, error) {
	rows, err := b.provider.Records(ctx, tenantID, et)
	if err != nil {
		return nil, domain.NewBackendError(string(et), err)
	}

	prefix = strings.ToLower(strings.TrimSpace(prefix))
	seen := make(map[string]struct{})
	var out []string
	for _, row := range rows {
		value := row.Field(field)
		if value == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(value), prefix) {
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
