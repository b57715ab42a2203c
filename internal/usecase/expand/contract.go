package expand

import (
	"context"

	domexp "github.com/kailas-cloud/crmsearch/internal/domain/expansion"
)

// Expander rewrites a query string into an ordered set of query strings.
// The original query is always first. The strategy is selected once at
// service construction.
type Expander interface {
	Expand(ctx context.Context, tenantID, queryText string) ([]string, error)
}

// RuleReader supplies the tenant's expansion rules.
type RuleReader interface {
	List(ctx context.Context, tenantID string) ([]domexp.Rule, error)
}
