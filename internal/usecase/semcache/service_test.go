package semcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/response"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/result"
)

// --- Mocks ---

type mockStore struct {
	entries map[string][]byte
	getErr  error
	putErr  error
	lastTTL time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[string][]byte)}
}

func (m *mockStore) Get(_ context.Context, fingerprint string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	payload, ok := m.entries[fingerprint]
	return payload, ok, nil
}

func (m *mockStore) Put(_ context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[fingerprint] = payload
	m.lastTTL = ttl
	return nil
}

func makeQuery(t *testing.T, text string, types []entity.Type, facets map[string]string, fuzzy bool) *query.Query {
	t.Helper()
	q, err := query.New(text, types, facets, fuzzy, 0, 0, true, false)
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}
	return &q
}

func TestFingerprintDeterministic(t *testing.T) {
	svc := New(newMockStore(), 0, zap.NewNop())

	a := svc.Fingerprint("t1", makeQuery(t, "Acme  Steel", nil, map[string]string{"status": "active", "owner": "u1"}, false))
	b := svc.Fingerprint("t1", makeQuery(t, "acme steel", nil, map[string]string{"owner": "u1", "status": "active"}, false))
	if a != b {
		t.Fatal("fingerprints differ for equivalent queries")
	}
}

func TestFingerprintDiscriminates(t *testing.T) {
	svc := New(newMockStore(), 0, zap.NewNop())
	base := svc.Fingerprint("t1", makeQuery(t, "acme", nil, nil, false))

	variants := map[string]string{
		"tenant": svc.Fingerprint("t2", makeQuery(t, "acme", nil, nil, false)),
		"text":   svc.Fingerprint("t1", makeQuery(t, "acme inc", nil, nil, false)),
		"facets": svc.Fingerprint("t1", makeQuery(t, "acme", nil, map[string]string{"status": "active"}, false)),
		"types":  svc.Fingerprint("t1", makeQuery(t, "acme", []entity.Type{entity.Deals}, nil, false)),
		"fuzzy":  svc.Fingerprint("t1", makeQuery(t, "acme", nil, nil, true)),
	}
	for name, fp := range variants {
		if fp == base {
			t.Errorf("%s variant collided with the base fingerprint", name)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	store := newMockStore()
	svc := New(store, 90*time.Second, zap.NewNop())
	ctx := context.Background()

	resp := &response.Response{
		Query: "acme",
		Total: 1,
		Results: []result.Result{{
			EntityType: entity.Accounts,
			ID:         "a-1",
			Score:      1.5,
			Data:       map[string]string{"name": "Acme"},
		}},
	}
	svc.Put(ctx, "fp", resp)

	if store.lastTTL != 90*time.Second {
		t.Errorf("ttl = %v, want 90s", store.lastTTL)
	}

	got, found := svc.Get(ctx, "fp")
	if !found {
		t.Fatal("Get() found = false after Put")
	}
	if got.Total != 1 || got.Results[0].ID != "a-1" || got.Results[0].Data["name"] != "Acme" {
		t.Fatalf("Get() = %+v, want round-tripped response", got)
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	svc := New(newMockStore(), 0, zap.NewNop())
	ctx := context.Background()

	svc.Put(ctx, "fp", &response.Response{
		Results: []result.Result{{ID: "a-1", Data: map[string]string{"name": "Acme"}}},
	})

	first, _ := svc.Get(ctx, "fp")
	first.Results[0].Data["name"] = "mutated"

	second, _ := svc.Get(ctx, "fp")
	if second.Results[0].Data["name"] != "Acme" {
		t.Fatal("cache entry shared state with a previous caller")
	}
}

func TestStoreFailureDegradesToMiss(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("store down")
	svc := New(store, 0, zap.NewNop())

	if _, found := svc.Get(context.Background(), "fp"); found {
		t.Fatal("Get() found = true on store failure, want miss")
	}
}

func TestPutFailureIsSilent(t *testing.T) {
	store := newMockStore()
	store.putErr = errors.New("store down")
	svc := New(store, 0, zap.NewNop())

	// Must not panic or surface the error.
	svc.Put(context.Background(), "fp", &response.Response{})
}

func TestUndecodableEntryIsMiss(t *testing.T) {
	store := newMockStore()
	store.entries["fp"] = []byte("{not json")
	svc := New(store, 0, zap.NewNop())

	if _, found := svc.Get(context.Background(), "fp"); found {
		t.Fatal("Get() found = true for an undecodable entry")
	}
}

func TestDefaultTTL(t *testing.T) {
	svc := New(newMockStore(), 0, zap.NewNop())
	if svc.TTL() != DefaultTTL {
		t.Fatalf("TTL() = %v, want %v", svc.TTL(), DefaultTTL)
	}
}
