// Package graph maintains the per-tenant relationship graph and answers
// one-hop and multi-hop path queries. Rebuilds install a fresh immutable
// snapshot; readers always traverse one consistent snapshot.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
	domgraph "github.com/kailas-cloud/crmsearch/internal/domain/graph"
	"github.com/kailas-cloud/crmsearch/internal/domain/record"
	"github.com/kailas-cloud/crmsearch/internal/metrics"
)

const (
	// DefaultMaxHops bounds path queries.
	DefaultMaxHops = 3
	// MaxPaths caps the number of returned shortest paths.
	MaxPaths = 10
)

// RebuildReport summarizes one rebuild pass.
type RebuildReport struct {
	Edges   int `json:"edges"`
	Skipped int `json:"skipped"`
}

// Service owns the tenant snapshots.
type Service struct {
	relations RelationReader
	logger    *zap.Logger

	mu        sync.RWMutex
	snapshots map[string]*domgraph.Snapshot
}

// New creates a relationship graph service.
func New(relations RelationReader, logger *zap.Logger) *Service {
	return &Service{
		relations: relations,
		logger:    logger,
		snapshots: make(map[string]*domgraph.Snapshot),
	}
}

// snapshot returns the tenant's current snapshot, or an empty one.
func (s *Service) snapshot(tenantID string) *domgraph.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if snap, ok := s.snapshots[tenantID]; ok {
		return snap
	}
	return domgraph.NewSnapshot(nil)
}

// Rebuild clears and repopulates the tenant's graph from the provider's
// current relationship fields. Malformed relations are skipped and
// counted, never fatal. Idempotent; concurrent readers keep traversing
// the previous snapshot until the swap.
func (s *Service) Rebuild(ctx context.Context, tenantID string) (RebuildReport, error) {
	started := time.Now()
	relations, err := s.relations.Relations(ctx, tenantID)
	if err != nil {
		return RebuildReport{}, fmt.Errorf("read relations: %w", err)
	}

	edges := make([]domgraph.Edge, 0, len(relations))
	skipped := 0
	for _, rel := range relations {
		edge, err := validateRelation(rel)
		if err != nil {
			skipped++
			s.logger.Warn("skipping malformed relation",
				zap.String("tenant_id", tenantID),
				zap.String("source_id", rel.SourceID),
				zap.String("target_id", rel.TargetID),
				zap.Error(err),
			)
			continue
		}
		edges = append(edges, edge)
	}

	snap := domgraph.NewSnapshot(edges)
	s.mu.Lock()
	s.snapshots[tenantID] = snap
	s.mu.Unlock()

	metrics.GraphRebuildDuration.Observe(time.Since(started).Seconds())
	s.logger.Info("relationship graph rebuilt",
		zap.String("tenant_id", tenantID),
		zap.Int("edges", len(edges)),
		zap.Int("skipped", skipped),
	)
	return RebuildReport{Edges: len(edges), Skipped: skipped}, nil
}

func validateRelation(rel record.Relation) (domgraph.Edge, error) {
	st, err := entity.Parse(rel.SourceType)
	if err != nil {
		return domgraph.Edge{}, fmt.Errorf("%w: %w", domain.ErrGraphInconsistency, err)
	}
	tt, err := entity.Parse(rel.TargetType)
	if err != nil {
		return domgraph.Edge{}, fmt.Errorf("%w: %w", domain.ErrGraphInconsistency, err)
	}
	if rel.SourceID == "" || rel.TargetID == "" {
		return domgraph.Edge{}, fmt.Errorf("%w: relation endpoints must have ids", domain.ErrGraphInconsistency)
	}
	weight := rel.Weight
	if weight <= 0 {
		weight = 1
	}
	return domgraph.Edge{
		Source:   domgraph.Key{Type: st, ID: rel.SourceID},
		Relation: rel.Label,
		Target:   domgraph.Key{Type: tt, ID: rel.TargetID},
		Weight:   weight,
	}, nil
}

// Related returns one-hop outgoing neighbors grouped by target type.
func (s *Service) Related(tenantID string, source domgraph.Key) map[entity.Type][]domgraph.Key {
	snap := s.snapshot(tenantID)
	out := make(map[entity.Type][]domgraph.Key)
	for _, e := range snap.Outgoing(source) {
		out[e.Target.Type] = append(out[e.Target.Type], e.Target)
	}
	return out
}

// FindPaths returns all distinct shortest-length paths from source to
// any node of targetType, at most maxHops edges long, capped at
// MaxPaths. BFS with a visited set guarantees termination on cyclic
// graphs.
func (s *Service) FindPaths(
	tenantID string, source domgraph.Key, targetType entity.Type, maxHops int,
) []domgraph.Path {
	if maxHops <= 0 || maxHops > DefaultMaxHops {
		maxHops = DefaultMaxHops
	}
	snap := s.snapshot(tenantID)

	type frame struct {
		node domgraph.Key
		path domgraph.Path
	}

	visited := map[domgraph.Key]struct{}{source: {}}
	frontier := []frame{{node: source}}
	var paths []domgraph.Path
	foundDepth := 0

	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		// Shortest-length only: once a depth yields matches, stop after it.
		if foundDepth > 0 && depth > foundDepth {
			break
		}

		var next []frame
		for _, f := range frontier {
			for _, e := range snap.Outgoing(f.node) {
				if _, seen := visited[e.Target]; seen {
					continue
				}

				path := make(domgraph.Path, len(f.path), len(f.path)+1)
				copy(path, f.path)
				path = append(path, domgraph.Hop{
					Node:     e.Target,
					Relation: e.Relation,
					Weight:   e.Weight,
				})

				if e.Target.Type == targetType {
					if len(paths) < MaxPaths {
						paths = append(paths, path)
					}
					foundDepth = depth
					continue
				}

				visited[e.Target] = struct{}{}
				next = append(next, frame{node: e.Target, path: path})
			}
		}
		frontier = next
	}
	return paths
}

// EdgeCount returns the current snapshot's edge count.
func (s *Service) EdgeCount(tenantID string) int {
	return s.snapshot(tenantID).EdgeCount()
}
