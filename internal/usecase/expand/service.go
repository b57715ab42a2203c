// Package expand rewrites queries using per-tenant synonym and acronym
// dictionaries, bounding the number of variants so backend fan-out stays
// predictable.
package expand

import (
	"context"
	"fmt"
	"strings"
)

// DefaultMaxExpansions caps additional query variants per search.
const DefaultMaxExpansions = 5

// Compile-time check: Service implements Expander.
var _ Expander = (*Service)(nil)

// Service is the dictionary expansion strategy.
type Service struct {
	rules         RuleReader
	maxExpansions int
}

// New creates a dictionary expander.
func New(rules RuleReader) *Service {
	return &Service{rules: rules, maxExpansions: DefaultMaxExpansions}
}

// WithMaxExpansions overrides the expansion cap.
func (s *Service) WithMaxExpansions(n int) *Service {
	if n > 0 {
		s.maxExpansions = n
	}
	return s
}

// Expand tokenizes on whitespace, matches active rules case-insensitively
// (priority descending), and substitutes one token per variant. The
// original query is always first and always searched.
func (s *Service) Expand(ctx context.Context, tenantID, queryText string) ([]string, error) {
	out := []string{queryText}

	rules, err := s.rules.List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list expansion rules: %w", err)
	}
	if len(rules) == 0 {
		return out, nil
	}

	tokens := strings.Fields(queryText)
	seen := map[string]struct{}{strings.ToLower(queryText): {}}

	// Rules arrive priority-descending; higher priority substitutions
	// claim the expansion budget first.
	for _, rule := range rules {
		for i, token := range tokens {
			if !rule.Matches(token) {
				continue
			}
			for _, exp := range rule.Expansions {
				if len(out)-1 >= s.maxExpansions {
					return out, nil
				}
				variant := substitute(tokens, i, exp)
				lower := strings.ToLower(variant)
				if _, dup := seen[lower]; dup {
					continue
				}
				seen[lower] = struct{}{}
				out = append(out, variant)
			}
		}
	}
	return out, nil
}

func substitute(tokens []string, i int, replacement string) string {
	parts := make([]string, len(tokens))
	copy(parts, tokens)
	parts[i] = replacement
	return strings.Join(parts, " ")
}
