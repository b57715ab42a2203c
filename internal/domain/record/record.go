package record

import (
	"time"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
)

// Record is a raw row supplied by the record provider. The search layer
// never mutates records; field maps are copied before masking.
type Record struct {
	Type      entity.Type
	ID        string
	OwnerID   string
	CreatedAt time.Time
	Fields    map[string]string
}

// Field returns a named field value, or "" when absent.
func (r Record) Field(name string) string { return r.Fields[name] }

// CloneFields returns an independent copy of the field map.
func (r Record) CloneFields() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}

// Relation is a raw cross-record link as reported by the provider,
// before graph validation. Malformed relations are skipped during
// rebuild rather than failing the whole pass.
type Relation struct {
	SourceType string
	SourceID   string
	Label      string
	TargetType string
	TargetID   string
	Weight     float64
}
