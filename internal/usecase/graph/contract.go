package graph

import (
	"context"

	"github.com/kailas-cloud/crmsearch/internal/domain/record"
)

// RelationReader supplies the current relationship fields for rebuild.
type RelationReader interface {
	Relations(ctx context.Context, tenantID string) ([]record.Relation, error)
}
