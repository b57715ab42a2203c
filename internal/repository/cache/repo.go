// Package cache persists fingerprinted search responses. A small
// in-process expirable LRU fronts the shared store so hot fingerprints
// skip a round-trip; the store remains the source of truth for TTL and
// hit counters.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/crmsearch/internal/db"
)

const keyPrefix = "cache:"

// Entry is the stored cache row.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	TTLSec    int             `json:"ttl_sec"`
}

// Repo reads and writes cache entries on the shared store.
type Repo struct {
	store db.KVStore
	l1    *expirable.LRU[string, []byte]
}

// New creates a cache repository. l1Size <= 0 disables the in-process layer.
func New(store db.KVStore, l1Size int, l1TTL time.Duration) *Repo {
	r := &Repo{store: store}
	if l1Size > 0 {
		r.l1 = expirable.NewLRU[string, []byte](l1Size, nil, l1TTL)
	}
	return r
}

func key(fingerprint string) string { return keyPrefix + fingerprint }

func hitsKey(fingerprint string) string { return keyPrefix + fingerprint + ":hits" }

// Get returns the stored entry bytes for a fingerprint, with found=false
// on miss. Each hit increments the entry's hit counter.
func (r *Repo) Get(ctx context.Context, fingerprint string) ([]byte, bool, error) {
	if r.l1 != nil {
		if data, ok := r.l1.Get(fingerprint); ok {
			// Counter lives in the store; a counting failure never
			// invalidates the hit.
			_, _ = r.store.IncrBy(ctx, hitsKey(fingerprint), 1)
			return data, true, nil
		}
	}

	raw, err := r.store.Get(ctx, key(fingerprint))
	if err == db.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}

	if _, err := r.store.IncrBy(ctx, hitsKey(fingerprint), 1); err != nil {
		return nil, false, fmt.Errorf("cache hit counter: %w", err)
	}
	if r.l1 != nil {
		r.l1.Add(fingerprint, e.Payload)
	}
	return e.Payload, true, nil
}

// Put installs a complete new entry with the given TTL.
func (r *Repo) Put(ctx context.Context, fingerprint string, payload []byte, ttl time.Duration) error {
	e := Entry{
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		TTLSec:    int(ttl.Seconds()),
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, key(fingerprint), raw, ttl); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	if r.l1 != nil {
		r.l1.Add(fingerprint, payload)
	}
	return nil
}

// Hits returns the hit counter of a fingerprint.
func (r *Repo) Hits(ctx context.Context, fingerprint string) (int64, error) {
	n, err := r.store.IncrBy(ctx, hitsKey(fingerprint), 0)
	if err != nil {
		return 0, fmt.Errorf("read hit counter: %w", err)
	}
	return n, nil
}
