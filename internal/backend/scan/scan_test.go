package scan

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
	"github.com/kailas-cloud/crmsearch/internal/provider"
)

func seededBackend(t *testing.T) *Backend {
	t.Helper()
	p := provider.NewStatic()
	p.AddRecord("t1", record.Record{
		Type: entity.Contacts, ID: "c-1", OwnerID: "u1",
		CreatedAt: time.Now(),
		Fields: map[string]string{
			"name":  "Dana Smith",
			"email": "dana@acme.example",
			"title": "CEO",
		},
	})
	p.AddRecord("t1", record.Record{
		Type: entity.Contacts, ID: "c-2", OwnerID: "u2",
		CreatedAt: time.Now(),
		Fields: map[string]string{
			"name":  "Danna Smyth", // close but not exact
			"notes": "met at the Acme conference",
		},
	})
	p.AddRecord("t1", record.Record{
		Type: entity.Accounts, ID: "a-1", OwnerID: "u1",
		CreatedAt: time.Now(),
		Fields:    map[string]string{"name": "Acme Steel"},
	})
	return New(p)
}

func TestFindExactSubstring(t *testing.T) {
	b := seededBackend(t)

	got, err := b.Find(context.Background(), "t1", entity.Contacts, "dana", false)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 1 || got[0].Record.ID != "c-1" {
		t.Fatalf("Find() = %v, want only the exact substring match c-1", got)
	}
	// Both name and email match; name weighs 10 and wins the max.
	if got[0].Lexical != 10 {
		t.Errorf("Lexical = %v, want 1.0 x name weight 10", got[0].Lexical)
	}
	if len(got[0].MatchedFields) != 2 || got[0].MatchedFields[0] != "email" || got[0].MatchedFields[1] != "name" {
		t.Errorf("MatchedFields = %v, want sorted [email name]", got[0].MatchedFields)
	}
}

func TestFindFuzzyTrigram(t *testing.T) {
	b := seededBackend(t)

	got, err := b.Find(context.Background(), "t1", entity.Contacts, "dana smith", true)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Find(fuzzy) found %d candidates, want the misspelled c-2 included", len(got))
	}

	byID := map[string]float64{}
	for _, c := range got {
		byID[c.Record.ID] = c.Lexical
	}
	if byID["c-1"] <= byID["c-2"] {
		t.Fatalf("exact match %v <= fuzzy match %v", byID["c-1"], byID["c-2"])
	}
}

func TestFindFieldWeightsOrderResults(t *testing.T) {
	p := provider.NewStatic()
	p.AddRecord("t1", record.Record{
		Type: entity.Contacts, ID: "by-name", OwnerID: "u1", CreatedAt: time.Now(),
		Fields: map[string]string{"name": "acme"},
	})
	p.AddRecord("t1", record.Record{
		Type: entity.Contacts, ID: "by-notes", OwnerID: "u1", CreatedAt: time.Now(),
		Fields: map[string]string{"notes": "acme"},
	})
	b := New(p)

	got, err := b.Find(context.Background(), "t1", entity.Contacts, "acme", false)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	scores := map[string]float64{}
	for _, c := range got {
		scores[c.Record.ID] = c.Lexical
	}
	if scores["by-name"] <= scores["by-notes"] {
		t.Fatalf("name-field score %v <= notes-field score %v", scores["by-name"], scores["by-notes"])
	}
}

func TestFindEmptyQuery(t *testing.T) {
	b := seededBackend(t)
	got, err := b.Find(context.Background(), "t1", entity.Contacts, "   ", false)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Find(blank) = %v, want none", got)
	}
}

func TestFindTenantIsolation(t *testing.T) {
	b := seededBackend(t)
	got, err := b.Find(context.Background(), "t-other", entity.Contacts, "dana", false)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Find() leaked %d rows across tenants", len(got))
	}
}

func TestSuggest(t *testing.T) {
	b := seededBackend(t)

	got, err := b.Suggest(context.Background(), "t1", entity.Contacts, "name", "dan", 10)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Suggest() = %v, want both Dan* names", got)
	}
	if got[0] != "Dana Smith" {
		t.Errorf("Suggest()[0] = %q, want sorted output", got[0])
	}
}

func TestSuggestLimit(t *testing.T) {
	b := seededBackend(t)
	got, err := b.Suggest(context.Background(), "t1", entity.Contacts, "name", "dan", 1)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Suggest(limit=1) = %v, want 1", got)
	}
}

func TestTrigramSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"dana", "dana", true},
		{"dana", "zzzz", false},
	}
	for _, tt := range tests {
		sim := trigramSimilarity(tt.a, tt.b)
		if tt.same && sim != 1.0 {
			t.Errorf("trigramSimilarity(%q, %q) = %v, want 1.0", tt.a, tt.b, sim)
		}
		if !tt.same && sim != 0 {
			t.Errorf("trigramSimilarity(%q, %q) = %v, want 0", tt.a, tt.b, sim)
		}
	}

	if trigramSimilarity("dana smith", "danna smyth") < fuzzyThreshold {
		t.Error("near-miss name pair fell below the fuzzy threshold")
	}
}
