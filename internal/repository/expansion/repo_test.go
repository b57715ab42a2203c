package expansion

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/crmsearch/internal/db/memory"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	domexp "github.com/kailas-cloud/crmsearch/internal/domain/expansion"
)

func testRule(t *testing.T, term string, priority int) domexp.Rule {
	t.Helper()
	return domexp.Rule{
		TenantID:   "t1",
		Term:       term,
		Expansions: []string{term + " expanded"},
		Kind:       domexp.Synonym,
		Priority:   priority,
		Active:     true,
	}
}

func TestUpsertAssignsID(t *testing.T) {
	repo := New(memory.NewStore())

	rule, err := repo.Upsert(context.Background(), testRule(t, "ceo", 1))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if rule.ID == "" {
		t.Fatal("Upsert() left ID empty")
	}
}

func TestUpsertRejectsInvalidRule(t *testing.T) {
	repo := New(memory.NewStore())

	bad := testRule(t, "", 1)
	if _, err := repo.Upsert(context.Background(), bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Upsert() error = %v, want ErrValidation", err)
	}
}

func TestListPriorityDescending(t *testing.T) {
	repo := New(memory.NewStore())
	ctx := context.Background()

	for _, p := range []int{1, 10, 5} {
		if _, err := repo.Upsert(ctx, testRule(t, "term", p)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	rules, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("List() = %d rules, want 3", len(rules))
	}
	if rules[0].Priority != 10 || rules[1].Priority != 5 || rules[2].Priority != 1 {
		t.Fatalf("List() order = %v, want priority descending", rules)
	}
}

func TestListTenantIsolation(t *testing.T) {
	repo := New(memory.NewStore())
	ctx := context.Background()

	r := testRule(t, "ceo", 1)
	if _, err := repo.Upsert(ctx, r); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	rules, err := repo.List(ctx, "t-other")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("List() leaked %d rules across tenants", len(rules))
	}
}

func TestDelete(t *testing.T) {
	repo := New(memory.NewStore())
	ctx := context.Background()

	rule, err := repo.Upsert(ctx, testRule(t, "ceo", 1))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := repo.Delete(ctx, "t1", rule.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	rules, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 0 {
		t.Fatalf("List() = %v after Delete, want empty", rules)
	}
}

func TestRulesPersistAsHashRows(t *testing.T) {
	store := memory.NewStore()
	repo := New(store)
	ctx := context.Background()

	rule, err := repo.Upsert(ctx, testRule(t, "ceo", 7))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	fields, err := store.HGetAll(ctx, "expansion:t1:"+rule.ID)
	if err != nil {
		t.Fatalf("HGetAll() error = %v", err)
	}
	if fields["term"] != "ceo" || fields["priority"] != "7" || fields["active"] != "true" {
		t.Fatalf("hash fields = %v, want flattened rule", fields)
	}

	rules, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("List() = %d rules, want 1", len(rules))
	}
	got := rules[0]
	if got.Kind != domexp.Synonym || len(got.Expansions) != 1 || got.Expansions[0] != "ceo expanded" {
		t.Fatalf("List() round-trip = %+v, want the stored rule", got)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	repo := New(memory.NewStore())
	ctx := context.Background()

	rule, err := repo.Upsert(ctx, testRule(t, "ceo", 1))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	rule.Priority = 99
	if _, err := repo.Upsert(ctx, rule); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	rules, err := repo.List(ctx, "t1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 1 || rules[0].Priority != 99 {
		t.Fatalf("List() = %v, want the replaced rule only", rules)
	}
}
