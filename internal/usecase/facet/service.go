// Package facet narrows candidate sets by structural facets and computes
// per-value counts on the pre-filter set for UI filter widgets.
package facet

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	"github.com/kailas-cloud/crmsearch/internal/domain"
)

// Keys is the closed set of facet dimensions. Unknown keys are rejected
// rather than silently ignored.
var Keys = []string{"owner", "status", "territory", "type", "rating", "source"}

// Service applies facet filters.
type Service struct {
	allowed map[string]struct{}
}

// New creates a facet service over the configured key set.
func New() *Service {
	allowed := make(map[string]struct{}, len(Keys))
	for _, k := range Keys {
		allowed[k] = struct{}{}
	}
	return &Service{allowed: allowed}
}

// Validate rejects facet maps containing unknown keys.
func (s *Service) Validate(facets map[string]string) error {
	for k := range facets {
		if _, ok := s.allowed[k]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnknownFacet, k)
		}
	}
	return nil
}

// Filter returns the candidates whose payload matches every facet
// exactly (case-insensitive). The facet "owner" matches the record's
// owner id rather than a payload field.
func (s *Service) Filter(candidates []backend.Candidate, facets map[string]string) ([]backend.Candidate, error) {
	if err := s.Validate(facets); err != nil {
		return nil, err
	}
	if len(facets) == 0 {
		return candidates, nil
	}

	out := make([]backend.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if matchesAll(c, facets) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matchesAll(c backend.Candidate, facets map[string]string) bool {
	for k, want := range facets {
		got := facetValue(c, k)
		if !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

func facetValue(c backend.Candidate, key string) string {
	if key == "owner" {
		return c.Record.OwnerID
	}
	return c.Record.Field(key)
}

// Counts computes, per configured facet, the number of pre-filter
// candidates per distinct value. Empty values are omitted.
func (s *Service) Counts(candidates []backend.Candidate) map[string]map[string]int {
	counts := make(map[string]map[string]int, len(Keys))
	for _, key := range Keys {
		for _, c := range candidates {
			value := facetValue(c, key)
			if value == "" {
				continue
			}
			if counts[key] == nil {
				counts[key] = make(map[string]int)
			}
			counts[key][value]++
		}
	}
	return counts
}
