// Package provider defines the read-only record provider capability the
// search layer consumes. Record lifecycle is owned elsewhere; the search
// layer only reads tenant-scoped rows and relationship fields.
package provider

import (
	"context"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
)

// Provider supplies raw rows and relationship links per tenant.
type Provider interface {
	// Records returns all rows of one entity type for a tenant.
	Records(ctx context.Context, tenantID string, et entity.Type) ([]record.Record, error)

	// Relations returns the current cross-record relationship fields for
	// a tenant (lead conversion links, contact memberships, deal
	// associations). Consumed by graph rebuild.
	Relations(ctx context.Context, tenantID string) ([]record.Relation, error)
}
