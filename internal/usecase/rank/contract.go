package rank

import "context"

// InteractionCounter reads trailing-window interaction counts. Counts
// are read fresh per request; the ranking service keeps no state across
// requests.
type InteractionCounter interface {
	InteractionCount(ctx context.Context, tenantID, resultID string) (int, error)
}
