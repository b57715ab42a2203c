package expansion

import (
	"fmt"
	"strings"
)

// Kind distinguishes synonym rules from acronym rules.
type Kind string

const (
	Synonym Kind = "synonym"
	Acronym Kind = "acronym"
)

// IsValid reports whether k is a known rule kind.
func (k Kind) IsValid() bool { return k == Synonym || k == Acronym }

// Rule is one per-tenant query-expansion entry. Rules are created and
// edited by administrators and consulted read-only at query time.
type Rule struct {
	ID         string   `json:"id"`
	TenantID   string   `json:"tenant_id"`
	Term       string   `json:"term"`
	Expansions []string `json:"expansions"`
	Kind       Kind     `json:"kind"`
	Priority   int      `json:"priority"`
	Active     bool     `json:"active"`
}

// Validate checks a rule before persisting it.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Term) == "" {
		return fmt.Errorf("term is required")
	}
	if len(r.Expansions) == 0 {
		return fmt.Errorf("at least one expansion is required")
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("kind must be %q or %q", Synonym, Acronym)
	}
	return nil
}

// Matches reports whether the rule's canonical term matches a query token,
// case-insensitively.
func (r Rule) Matches(token string) bool {
	return r.Active && strings.EqualFold(r.Term, token)
}
