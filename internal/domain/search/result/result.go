package result

import "github.com/kailas-cloud/crmsearch/internal/domain/entity"

// Result is a single ranked search hit with its masked payload.
type Result struct {
	EntityType    entity.Type       `json:"entity_type"`
	ID            string            `json:"id"`
	Score         float64           `json:"score"`
	Data          map[string]string `json:"data"`
	MatchedFields []string          `json:"matched_fields,omitempty"`
	PIIFiltered   bool              `json:"pii_filtered"`
	Explanation   *Explanation      `json:"explanation,omitempty"`
}

// Explanation is the per-result factor breakdown reconstructed from
// scores already computed during ranking.
type Explanation struct {
	Lexical float64  `json:"lexical"`
	Factors []Factor `json:"factors"`
}

// Factor is one named ranking contribution.
type Factor struct {
	Factor string  `json:"factor"`
	Boost  float64 `json:"boost"`
}
