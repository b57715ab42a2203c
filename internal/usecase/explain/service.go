// Package explain reconstructs per-result factor breakdowns from scores
// already computed during ranking. It never re-runs the backend query.
package explain

import (
	"github.com/kailas-cloud/crmsearch/internal/domain/search/result"
	"github.com/kailas-cloud/crmsearch/internal/usecase/rank"
)

// Service builds explanations.
type Service struct {
	weights rank.Weights
}

// New creates an explainability service sharing the ranking weights.
func New(weights rank.Weights) *Service {
	return &Service{weights: weights}
}

// Build flattens a ranking breakdown into named factors. Boosts are the
// weighted contributions actually applied to the composite score.
func (s *Service) Build(b rank.Breakdown) *result.Explanation {
	return &result.Explanation{
		Lexical: b.Lexical,
		Factors: []result.Factor{
			{Factor: "recency", Boost: s.weights.Recency * b.Recency},
			{Factor: "ownership", Boost: s.weights.Ownership * b.Ownership},
			{Factor: "interaction", Boost: s.weights.Interaction * b.Interaction},
		},
	}
}
