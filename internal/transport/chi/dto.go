package chi

import (
	"fmt"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	domexp "github.com/kailas-cloud/crmsearch/internal/domain/expansion"
	domgraph "github.com/kailas-cloud/crmsearch/internal/domain/graph"
	"github.com/kailas-cloud/crmsearch/internal/domain/metric"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
)

// errorCode identifies the error class in API responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeUnknownFacet       errorCode = "unknown_facet"
	codeNotFound           errorCode = "not_found"
	codeForbidden          errorCode = "forbidden"
	codeTenantMissing      errorCode = "tenant_missing"
	codeBackendUnavailable errorCode = "backend_unavailable"
	codeInternalError      errorCode = "internal_error"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// searchRequest is the wire form of one search call.
type searchRequest struct {
	Query      string            `json:"query"`
	Models     []string          `json:"models,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	Fuzzy      bool              `json:"fuzzy,omitempty"`
	MaxResults int               `json:"max_results,omitempty"`
	Offset     int               `json:"offset,omitempty"`
	ApplyGDPR  *bool             `json:"apply_gdpr,omitempty"`
	Explain    bool              `json:"explain,omitempty"`
}

// toQuery validates the request into a domain query.
// apply_gdpr defaults to true when omitted.
func (r searchRequest) toQuery() (query.Query, error) {
	types := make([]entity.Type, 0, len(r.Models))
	for _, m := range r.Models {
		t, err := entity.Parse(m)
		if err != nil {
			return query.Query{}, fmt.Errorf("models: %w", err)
		}
		types = append(types, t)
	}
	applyGDPR := r.ApplyGDPR == nil || *r.ApplyGDPR

	return query.New(
		r.Query, types, r.Filters, r.Fuzzy,
		r.MaxResults, r.Offset, applyGDPR, r.Explain,
	)
}

// autocompleteResponse lists distinct field-value suggestions.
type autocompleteResponse struct {
	Field       string   `json:"field"`
	Prefix      string   `json:"prefix"`
	Suggestions []string `json:"suggestions"`
}

// graphResponse answers a path query.
type graphResponse struct {
	Source     domgraph.Key    `json:"source"`
	TargetType string          `json:"target_type"`
	MaxHops    int             `json:"max_hops"`
	Paths      []domgraph.Path `json:"paths"`
}

// relatedResponse answers a one-hop neighbor query.
type relatedResponse struct {
	Source  domgraph.Key              `json:"source"`
	Related map[string][]domgraph.Key `json:"related"`
}

// rebuildResponse reports a graph rebuild pass.
type rebuildResponse struct {
	Edges   int `json:"edges"`
	Skipped int `json:"skipped"`
}

// trackRequest is one ranking-feedback event.
type trackRequest struct {
	MetricID string `json:"search_metric_id"`
	ResultID string `json:"result_id"`
	Rank     int    `json:"result_rank"`
}

func (r trackRequest) toInteraction(tenantID string) metric.Interaction {
	return metric.Interaction{
		MetricID: r.MetricID,
		TenantID: tenantID,
		ResultID: r.ResultID,
		Rank:     r.Rank,
	}
}

// expansionRuleRequest creates or replaces a query-expansion rule.
type expansionRuleRequest struct {
	ID         string   `json:"id,omitempty"`
	Term       string   `json:"term"`
	Expansions []string `json:"expansions"`
	Kind       string   `json:"kind"`
	Priority   int      `json:"priority"`
	Active     *bool    `json:"active,omitempty"`
}

// toRule builds a domain rule. active defaults to true when omitted.
func (r expansionRuleRequest) toRule(tenantID string) domexp.Rule {
	return domexp.Rule{
		ID:         r.ID,
		TenantID:   tenantID,
		Term:       r.Term,
		Expansions: r.Expansions,
		Kind:       domexp.Kind(r.Kind),
		Priority:   r.Priority,
		Active:     r.Active == nil || *r.Active,
	}
}

// expansionListResponse lists the tenant's rules.
type expansionListResponse struct {
	Items []domexp.Rule `json:"items"`
	Total int           `json:"total"`
}
