package expand

import (
	"context"
	"errors"
	"testing"

	domexp "github.com/kailas-cloud/crmsearch/internal/domain/expansion"
)

// --- Mocks ---

type mockRules struct {
	rules []domexp.Rule
	err   error
}

func (m *mockRules) List(_ context.Context, _ string) ([]domexp.Rule, error) {
	return m.rules, m.err
}

func rule(t *testing.T, term string, priority int, active bool, expansions ...string) domexp.Rule {
	t.Helper()
	return domexp.Rule{
		ID:         term,
		TenantID:   "t1",
		Term:       term,
		Expansions: expansions,
		Kind:       domexp.Synonym,
		Priority:   priority,
		Active:     active,
	}
}

func TestExpandOriginalFirst(t *testing.T) {
	svc := New(&mockRules{rules: []domexp.Rule{
		rule(t, "ceo", 1, true, "chief executive officer"),
	}})

	got, err := svc.Expand(context.Background(), "t1", "acme CEO")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if got[0] != "acme CEO" {
		t.Fatalf("variants[0] = %q, want the original query", got[0])
	}
	if len(got) != 2 || got[1] != "acme chief executive officer" {
		t.Fatalf("variants = %v, want substituted variant second", got)
	}
}

func TestExpandPriorityOrder(t *testing.T) {
	// Rules arrive priority-descending from the repository.
	svc := New(&mockRules{rules: []domexp.Rule{
		rule(t, "vp", 10, true, "vice president"),
		rule(t, "vp", 1, true, "veep"),
	}}).WithMaxExpansions(1)

	got, err := svc.Expand(context.Background(), "t1", "vp sales")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(got) != 2 || got[1] != "vice president sales" {
		t.Fatalf("variants = %v, want the higher-priority expansion to win the budget", got)
	}
}

func TestExpandCap(t *testing.T) {
	svc := New(&mockRules{rules: []domexp.Rule{
		rule(t, "crm", 1, true, "a", "b", "c", "d", "e", "f", "g"),
	}})

	got, err := svc.Expand(context.Background(), "t1", "crm tool")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(got) != DefaultMaxExpansions+1 {
		t.Fatalf("len(variants) = %d, want original + %d expansions", len(got), DefaultMaxExpansions)
	}
}

func TestExpandSkipsInactiveRules(t *testing.T) {
	svc := New(&mockRules{rules: []domexp.Rule{
		rule(t, "ceo", 1, false, "chief executive officer"),
	}})

	got, err := svc.Expand(context.Background(), "t1", "acme ceo")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("variants = %v, want only the original (rule inactive)", got)
	}
}

func TestExpandDeduplicates(t *testing.T) {
	svc := New(&mockRules{rules: []domexp.Rule{
		rule(t, "ceo", 2, true, "boss"),
		rule(t, "ceo", 1, true, "Boss"),
	}})

	got, err := svc.Expand(context.Background(), "t1", "acme ceo")
	if err != nil {
		t.Fatalf("Expand() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("variants = %v, want case-insensitive dedupe", got)
	}
}

func TestExpandRuleStoreError(t *testing.T) {
	svc := New(&mockRules{err: errors.New("store down")})

	if _, err := svc.Expand(context.Background(), "t1", "acme"); err == nil {
		t.Fatal("Expand() error = nil, want store error surfaced to the caller")
	}
}
