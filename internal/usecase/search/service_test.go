package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	"github.com/kailas-cloud/crmsearch/internal/domain/metric"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/query"
	"github.com/kailas-cloud/crmsearch/internal/domain/search/response"
	"github.com/kailas-cloud/crmsearch/internal/usecase/explain"
	"github.com/kailas-cloud/crmsearch/internal/usecase/facet"
	"github.com/kailas-cloud/crmsearch/internal/usecase/gdpr"
	"github.com/kailas-cloud/crmsearch/internal/usecase/rank"
)

// --- Mocks ---

type mockFinder struct {
	candidates map[entity.Type][]backend.Candidate
	errs       map[entity.Type]error
	errAfter   map[entity.Type]int // fail once this many Find calls succeeded
	suggest    []string
	suggestErr error

	mu    sync.Mutex
	finds map[entity.Type]int
}

func (m *mockFinder) Name() string { return "mock" }

func (m *mockFinder) Find(
	_ context.Context, _ string, et entity.Type, _ string, _ bool,
) ([]backend.Candidate, error) {
	m.mu.Lock()
	if m.finds == nil {
		m.finds = make(map[entity.Type]int)
	}
	m.finds[et]++
	nth := m.finds[et]
	m.mu.Unlock()

	if err := m.errs[et]; err != nil {
		return nil, err
	}
	if limit, ok := m.errAfter[et]; ok && nth > limit {
		return nil, domain.NewBackendError(string(et), errors.New("engine down"))
	}
	return m.candidates[et], nil
}

func (m *mockFinder) Suggest(
	_ context.Context, _ string, _ entity.Type, _, _ string, _ int,
) ([]string, error) {
	return m.suggest, m.suggestErr
}

type mockExpander struct {
	variants []string
	err      error
	calls    int
}

func (m *mockExpander) Expand(_ context.Context, _, queryText string) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.variants != nil {
		return m.variants, nil
	}
	return []string{queryText}, nil
}

type mockCache struct {
	entries map[string]*response.Response
	puts    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string]*response.Response)}
}

func (m *mockCache) Fingerprint(tenantID string, q *query.Query) string {
	return tenantID + "|" + q.Normalized()
}

func (m *mockCache) Get(_ context.Context, fingerprint string) (*response.Response, bool) {
	resp, ok := m.entries[fingerprint]
	if !ok {
		return nil, false
	}
	copied := *resp
	return &copied, true
}

func (m *mockCache) Put(_ context.Context, fingerprint string, resp *response.Response) {
	m.puts++
	copied := *resp
	m.entries[fingerprint] = &copied
}

type mockRecorder struct {
	recorded []metric.Search
}

func (m *mockRecorder) RecordSearch(_ context.Context, s metric.Search) (metric.Search, error) {
	m.recorded = append(m.recorded, s)
	return s, nil
}

type mockCounter struct {
	counts map[string]int
}

func (m *mockCounter) InteractionCount(_ context.Context, _, resultID string) (int, error) {
	return m.counts[resultID], nil
}

// --- Helpers ---

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	ctx := domain.ContextWithTenant(context.Background(), "t1")
	return domain.ContextWithPrincipal(ctx, domain.Principal{UserID: "u1", Role: "sales"})
}

func makeQuery(t *testing.T, text string, types []entity.Type, facets map[string]string) *query.Query {
	t.Helper()
	q, err := query.New(text, types, facets, false, 0, 0, true, false)
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}
	return &q
}

func candidate(et entity.Type, id, ownerID string, lexical float64, fields map[string]string) backend.Candidate {
	return backend.Candidate{
		Record: record.Record{
			Type:      et,
			ID:        id,
			OwnerID:   ownerID,
			CreatedAt: testNow.AddDate(0, -1, 0),
			Fields:    fields,
		},
		Lexical: lexical,
	}
}

type fixture struct {
	svc      *Service
	finder   *mockFinder
	expander *mockExpander
	cache    *mockCache
	recorder *mockRecorder
}

func newFixture(t *testing.T, finder *mockFinder) *fixture {
	t.Helper()
	expander := &mockExpander{}
	cache := newMockCache()
	recorder := &mockRecorder{}
	weights := rank.DefaultWeights()

	gdprCfg := gdpr.DefaultConfig()
	svc := New(
		finder,
		expander,
		cache,
		facet.New(),
		gdpr.New(gdprCfg),
		rank.New(&mockCounter{}, weights).WithClock(func() time.Time { return testNow }),
		explain.New(weights),
		recorder,
		zap.NewNop(),
	).WithClock(func() time.Time { return testNow })

	return &fixture{svc: svc, finder: finder, expander: expander, cache: cache, recorder: recorder}
}

// --- Tests ---

func TestSearchRequiresTenant(t *testing.T) {
	f := newFixture(t, &mockFinder{})
	_, err := f.svc.Search(context.Background(), makeQuery(t, "acme", nil, nil))
	if !errors.Is(err, domain.ErrTenantMissing) {
		t.Fatalf("Search() error = %v, want ErrTenantMissing", err)
	}
}

func TestSearchUnknownFacet(t *testing.T) {
	f := newFixture(t, &mockFinder{})
	_, err := f.svc.Search(testCtx(), makeQuery(t, "acme", nil, map[string]string{"color": "red"}))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Search() error = %v, want ErrValidation", err)
	}
	if !errors.Is(err, domain.ErrUnknownFacet) {
		t.Fatalf("Search() error = %v, want ErrUnknownFacet in the chain", err)
	}
}

func TestSearchRanksOwnedAboveOthers(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Accounts: {
			candidate(entity.Accounts, "a-other", "u2", 0.9, map[string]string{"name": "Acme West"}),
			candidate(entity.Accounts, "a-mine", "u1", 0.9, map[string]string{"name": "Acme East"}),
		},
	}}
	f := newFixture(t, finder)

	resp, err := f.svc.Search(testCtx(), makeQuery(t, "acme", []entity.Type{entity.Accounts}, nil))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("Total = %d, want 2", resp.Total)
	}
	if resp.Results[0].ID != "a-mine" {
		t.Fatalf("first result = %s, want the owned record (equal lexical)", resp.Results[0].ID)
	}
	if resp.Backend != "mock" || resp.CacheHit || resp.Degraded {
		t.Fatalf("response metadata = %+v, want backend=mock, no cache hit, not degraded", resp)
	}
}

func TestSearchPartialBackendFailure(t *testing.T) {
	finder := &mockFinder{
		candidates: map[entity.Type][]backend.Candidate{
			entity.Accounts: {candidate(entity.Accounts, "a-1", "u1", 0.8, map[string]string{"name": "Acme"})},
		},
		errs: map[entity.Type]error{
			entity.Leads: domain.NewBackendError("leads", errors.New("engine down")),
		},
	}
	f := newFixture(t, finder)

	resp, err := f.svc.Search(testCtx(),
		makeQuery(t, "acme", []entity.Type{entity.Accounts, entity.Leads}, nil))
	if err != nil {
		t.Fatalf("Search() error = %v, want partial results", err)
	}
	if !resp.Degraded {
		t.Fatal("Degraded = false, want true")
	}
	if _, ok := resp.Failures["leads"]; !ok {
		t.Fatalf("Failures = %v, want leads entry", resp.Failures)
	}
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want accounts results only", resp.Total)
	}
}

func TestSearchFailedTypeContributesNothing(t *testing.T) {
	finder := &mockFinder{
		candidates: map[entity.Type][]backend.Candidate{
			entity.Accounts: {candidate(entity.Accounts, "a-1", "u1", 0.8, map[string]string{"name": "Acme"})},
			entity.Leads:    {candidate(entity.Leads, "l-1", "u1", 0.7, map[string]string{"name": "Acme Lead"})},
		},
		// Leads answers the first variant, then the engine dies.
		errAfter: map[entity.Type]int{entity.Leads: 1},
	}
	f := newFixture(t, finder)
	f.expander.variants = []string{"acme", "acme corp"}

	resp, err := f.svc.Search(testCtx(),
		makeQuery(t, "acme", []entity.Type{entity.Accounts, entity.Leads}, nil))
	if err != nil {
		t.Fatalf("Search() error = %v, want partial results", err)
	}
	if _, ok := resp.Failures["leads"]; !ok {
		t.Fatalf("Failures = %v, want leads entry", resp.Failures)
	}
	for _, r := range resp.Results {
		if r.EntityType == entity.Leads {
			t.Fatalf("result %s: a type reported unavailable must not surface results", r.ID)
		}
	}
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want accounts results only", resp.Total)
	}
}

func TestSearchCancelledSkipsCacheWrite(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Accounts: {candidate(entity.Accounts, "a-1", "u1", 0.8, map[string]string{"name": "Acme"})},
	}}
	f := newFixture(t, finder)

	ctx, cancel := context.WithCancel(testCtx())
	cancel()

	_, err := f.svc.Search(ctx, makeQuery(t, "acme", []entity.Type{entity.Accounts}, nil))
	if err == nil {
		t.Fatal("Search() error = nil for a cancelled request")
	}
	if f.cache.puts != 0 {
		t.Fatalf("cache writes = %d, want none after cancellation", f.cache.puts)
	}
}

func TestSearchAllBackendsFailed(t *testing.T) {
	finder := &mockFinder{errs: map[entity.Type]error{
		entity.Accounts: errors.New("down"),
		entity.Leads:    errors.New("down"),
	}}
	f := newFixture(t, finder)

	_, err := f.svc.Search(testCtx(),
		makeQuery(t, "acme", []entity.Type{entity.Accounts, entity.Leads}, nil))
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("Search() error = %v, want ErrBackendUnavailable", err)
	}
}

func TestSearchCacheHit(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Accounts: {candidate(entity.Accounts, "a-1", "u1", 0.8, map[string]string{"name": "Acme"})},
	}}
	f := newFixture(t, finder)
	q := makeQuery(t, "acme", []entity.Type{entity.Accounts}, nil)

	first, err := f.svc.Search(testCtx(), q)
	if err != nil {
		t.Fatalf("first Search() error = %v", err)
	}
	if first.CacheHit {
		t.Fatal("first call reported a cache hit")
	}

	second, err := f.svc.Search(testCtx(), q)
	if err != nil {
		t.Fatalf("second Search() error = %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second call missed the cache")
	}
	if second.Total != first.Total {
		t.Fatalf("cached Total = %d, want %d", second.Total, first.Total)
	}
	if f.expander.calls != 1 {
		t.Fatalf("expander called %d times, want 1 (cache hit skips expansion)", f.expander.calls)
	}
	if len(f.recorder.recorded) != 2 {
		t.Fatalf("metrics recorded = %d, want both calls", len(f.recorder.recorded))
	}
}

func TestSearchCacheHitServesRequestedPage(t *testing.T) {
	var candidates []backend.Candidate
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("a-%02d", i)
		candidates = append(candidates,
			candidate(entity.Accounts, id, "u2", 0.5, map[string]string{"name": "Acme " + id}))
	}
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{entity.Accounts: candidates}}
	f := newFixture(t, finder)

	pageQuery := func(offset int) *query.Query {
		q, err := query.New("acme", []entity.Type{entity.Accounts}, nil, false, 10, offset, true, false)
		if err != nil {
			t.Fatalf("query.New() error = %v", err)
		}
		return &q
	}

	first, err := f.svc.Search(testCtx(), pageQuery(0))
	if err != nil {
		t.Fatalf("first Search() error = %v", err)
	}
	if first.CacheHit || len(first.Results) != 10 {
		t.Fatalf("first page = %d results, cacheHit=%v", len(first.Results), first.CacheHit)
	}

	second, err := f.svc.Search(testCtx(), pageQuery(10))
	if err != nil {
		t.Fatalf("second Search() error = %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second call missed the cache despite the page-agnostic fingerprint")
	}
	if len(second.Results) != 10 {
		t.Fatalf("cached page = %d results, want 10", len(second.Results))
	}
	if second.Results[0].ID != "a-10" {
		t.Fatalf("cached page starts at %s, want a-10", second.Results[0].ID)
	}
	if second.Pagination.Offset != 10 || !second.Pagination.HasMore {
		t.Fatalf("pagination = %+v, want offset 10 with more pages", second.Pagination)
	}
}

func TestSearchExpansionFailureFallsBack(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Accounts: {candidate(entity.Accounts, "a-1", "u1", 0.8, map[string]string{"name": "Acme"})},
	}}
	f := newFixture(t, finder)
	f.expander.err = errors.New("rules store down")

	resp, err := f.svc.Search(testCtx(), makeQuery(t, "acme", []entity.Type{entity.Accounts}, nil))
	if err != nil {
		t.Fatalf("Search() error = %v, want literal-query fallback", err)
	}
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want 1", resp.Total)
	}
}

func TestSearchUnionsVariantsKeepingMaxScore(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Accounts: {candidate(entity.Accounts, "a-1", "u2", 0.6, map[string]string{"name": "Acme"})},
	}}
	f := newFixture(t, finder)
	f.expander.variants = []string{"acme", "acme corp"}

	resp, err := f.svc.Search(testCtx(), makeQuery(t, "acme", []entity.Type{entity.Accounts}, nil))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// Same record found by both variants must appear once.
	if resp.Total != 1 {
		t.Fatalf("Total = %d, want deduplicated union", resp.Total)
	}
}

func TestSearchPagination(t *testing.T) {
	var candidates []backend.Candidate
	for i := 0; i < 30; i++ {
		id := "a-" + string(rune('a'+i))
		candidates = append(candidates,
			candidate(entity.Accounts, id, "u2", 0.5, map[string]string{"name": "Acme " + id}))
	}
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{entity.Accounts: candidates}}
	f := newFixture(t, finder)

	q, err := query.New("acme", []entity.Type{entity.Accounts}, nil, false, 10, 25, true, false)
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}
	resp, err := f.svc.Search(testCtx(), &q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 30 {
		t.Fatalf("Total = %d, want 30", resp.Total)
	}
	if len(resp.Results) != 5 {
		t.Fatalf("page size = %d, want tail of 5", len(resp.Results))
	}
	if resp.Pagination.HasMore {
		t.Fatal("HasMore = true on the last page")
	}
}

func TestSearchGDPRMasksResults(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Contacts: {candidate(entity.Contacts, "c-1", "u1", 0.9, map[string]string{
			"name":  "Dana",
			"email": "dana@example.com",
		})},
	}}
	f := newFixture(t, finder)

	resp, err := f.svc.Search(testCtx(), makeQuery(t, "dana", []entity.Type{entity.Contacts}, nil))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	r := resp.Results[0]
	if !r.PIIFiltered {
		t.Fatal("PIIFiltered = false, want true")
	}
	if r.Data["email"] != "d***@example.com" {
		t.Fatalf("email = %q, want masked", r.Data["email"])
	}
}

func TestSearchExplainBreakdown(t *testing.T) {
	finder := &mockFinder{candidates: map[entity.Type][]backend.Candidate{
		entity.Accounts: {candidate(entity.Accounts, "a-1", "u1", 0.8, map[string]string{"name": "Acme"})},
	}}
	f := newFixture(t, finder)

	q, err := query.New("acme", []entity.Type{entity.Accounts}, nil, false, 0, 0, true, true)
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}
	resp, err := f.svc.Search(testCtx(), &q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	exp := resp.Results[0].Explanation
	if exp == nil {
		t.Fatal("Explanation = nil with explain requested")
	}
	if exp.Lexical != 0.8 {
		t.Errorf("explanation lexical = %v, want 0.8", exp.Lexical)
	}
	if len(exp.Factors) == 0 {
		t.Error("explanation has no factors")
	}
}

func TestAutocomplete(t *testing.T) {
	finder := &mockFinder{suggest: []string{"Acme Steel", "Acme West"}}
	f := newFixture(t, finder)

	got, err := f.svc.Autocomplete(testCtx(), "name", "acm", 10)
	if err != nil {
		t.Fatalf("Autocomplete() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("suggestions = %v, want 2", got)
	}
}

func TestAutocompleteUnsearchableField(t *testing.T) {
	finder := &mockFinder{suggest: []string{"should not appear"}}
	f := newFixture(t, finder)

	got, err := f.svc.Autocomplete(testCtx(), "favorite_color", "bl", 10)
	if err != nil {
		t.Fatalf("Autocomplete() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("suggestions = %v for an unsearchable field, want none", got)
	}
}
