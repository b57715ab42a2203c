// Package rank computes the personalized composite score: lexical match
// strength boosted, never replaced, by recency, ownership, and
// interaction-history signals.
package rank

import (
	"context"
	"time"
)

// Weights configures the relative influence of each signal. The three
// weights sum to 1.0 of relative influence; they are documented defaults,
// not derived from data.
type Weights struct {
	Recency     float64
	Ownership   float64
	Interaction float64
	// DecayDays is the window over which recency decays linearly to zero.
	DecayDays int
	// RecentBonus is added flat for records created within RecentDays.
	RecentBonus float64
	RecentDays  int
	// InteractionCap is the count at which the interaction signal saturates.
	InteractionCap int
}

// DefaultWeights returns the documented default signal configuration.
func DefaultWeights() Weights {
	return Weights{
		Recency:        0.30,
		Ownership:      0.40,
		Interaction:    0.30,
		DecayDays:      365,
		RecentBonus:    0.2,
		RecentDays:     7,
		InteractionCap: 10,
	}
}

// Breakdown records each factor's contribution for explainability.
type Breakdown struct {
	Lexical     float64
	Recency     float64
	Ownership   float64
	Interaction float64
	Composite   float64
}

// Service scores candidates.
type Service struct {
	interactions InteractionCounter
	weights      Weights
	now          func() time.Time
}

// New creates a ranking service.
func New(interactions InteractionCounter, weights Weights) *Service {
	return &Service{interactions: interactions, weights: weights, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Score computes the composite score for one candidate:
// lexical × (1 + weighted personalization sum). An interaction-store
// failure zeroes that signal rather than failing the search.
func (s *Service) Score(
	ctx context.Context,
	tenantID, userID, recordID, ownerID string,
	createdAt time.Time,
	lexical float64,
) Breakdown {
	recency := s.recencyScore(createdAt)
	ownership := ownershipScore(userID, ownerID)
	interaction := s.interactionScore(ctx, tenantID, recordID)

	boost := s.weights.Recency*recency +
		s.weights.Ownership*ownership +
		s.weights.Interaction*interaction

	return Breakdown{
		Lexical:     lexical,
		Recency:     recency,
		Ownership:   ownership,
		Interaction: interaction,
		Composite:   lexical * (1 + boost),
	}
}

// recencyScore decays linearly from 1.0 now to 0.0 at DecayDays old,
// with a flat bonus for records created within RecentDays, clamped to [0,1].
func (s *Service) recencyScore(createdAt time.Time) float64 {
	if createdAt.IsZero() {
		return 0
	}
	age := s.now().Sub(createdAt)
	if age < 0 {
		age = 0
	}

	window := time.Duration(s.weights.DecayDays) * 24 * time.Hour
	score := 1 - age.Seconds()/window.Seconds()
	if score < 0 {
		score = 0
	}
	if age <= time.Duration(s.weights.RecentDays)*24*time.Hour {
		score += s.weights.RecentBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

func ownershipScore(userID, ownerID string) float64 {
	if userID != "" && userID == ownerID {
		return 1.0
	}
	return 0.5
}

func (s *Service) interactionScore(ctx context.Context, tenantID, recordID string) float64 {
	count, err := s.interactions.InteractionCount(ctx, tenantID, recordID)
	if err != nil {
		return 0
	}
	if count >= s.weights.InteractionCap {
		return 1.0
	}
	return float64(count) / float64(s.weights.InteractionCap)
}
