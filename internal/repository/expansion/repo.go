// Package expansion persists per-tenant query-expansion rules as hash
// rows keyed by tenant and rule id.
package expansion

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/kailas-cloud/crmsearch/internal/db"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	domexp "github.com/kailas-cloud/crmsearch/internal/domain/expansion"
)

const keyPrefix = "expansion:"

// Store is the persistence surface the repository uses: hash rows for
// the rules themselves, key scans for listing, Del for removal.
type Store interface {
	db.KVStore
	db.HashStore
}

// Repo stores expansion rules on the shared store.
type Repo struct {
	store Store
}

// New creates an expansion-rule repository.
func New(store Store) *Repo {
	return &Repo{store: store}
}

func key(tenantID, id string) string {
	return keyPrefix + tenantID + ":" + id
}

// Upsert validates and persists a rule, assigning an id when absent.
func (r *Repo) Upsert(ctx context.Context, rule domexp.Rule) (domexp.Rule, error) {
	if err := rule.Validate(); err != nil {
		return domexp.Rule{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	fields, err := encodeRule(rule)
	if err != nil {
		return domexp.Rule{}, fmt.Errorf("encode rule: %w", err)
	}
	if err := r.store.HSet(ctx, key(rule.TenantID, rule.ID), fields); err != nil {
		return domexp.Rule{}, fmt.Errorf("store rule: %w", err)
	}
	return rule, nil
}

// List returns all rules of a tenant, priority descending.
func (r *Repo) List(ctx context.Context, tenantID string) ([]domexp.Rule, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+tenantID+":*")
	if err != nil {
		return nil, fmt.Errorf("scan rules: %w", err)
	}

	rules := make([]domexp.Rule, 0, len(keys))
	for _, k := range keys {
		fields, err := r.store.HGetAll(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("read rule: %w", err)
		}
		if len(fields) == 0 {
			// Removed between the scan and the read.
			continue
		}
		rule, err := decodeRule(fields)
		if err != nil {
			return nil, fmt.Errorf("decode rule: %w", err)
		}
		rules = append(rules, rule)
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
	return rules, nil
}

// Delete removes one rule.
func (r *Repo) Delete(ctx context.Context, tenantID, id string) error {
	if err := r.store.Del(ctx, key(tenantID, id)); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	return nil
}

// encodeRule flattens a rule into hash fields. Expansions stay a JSON
// array so terms may contain commas.
func encodeRule(rule domexp.Rule) (map[string]string, error) {
	expansions, err := json.Marshal(rule.Expansions)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"id":         rule.ID,
		"tenant_id":  rule.TenantID,
		"term":       rule.Term,
		"expansions": string(expansions),
		"kind":       string(rule.Kind),
		"priority":   strconv.Itoa(rule.Priority),
		"active":     strconv.FormatBool(rule.Active),
	}, nil
}

func decodeRule(fields map[string]string) (domexp.Rule, error) {
	var expansions []string
	if raw := fields["expansions"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &expansions); err != nil {
			return domexp.Rule{}, fmt.Errorf("expansions: %w", err)
		}
	}
	priority, err := strconv.Atoi(fields["priority"])
	if err != nil {
		return domexp.Rule{}, fmt.Errorf("priority: %w", err)
	}
	return domexp.Rule{
		ID:         fields["id"],
		TenantID:   fields["tenant_id"],
		Term:       fields["term"],
		Expansions: expansions,
		Kind:       domexp.Kind(fields["kind"]),
		Priority:   priority,
		Active:     fields["active"] == "true",
	}, nil
}
