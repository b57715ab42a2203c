package graph

import (
	"sort"

	"github.com/kailas-cloud/crmsearch/internal/domain/entity"
)

// Key addresses a node by (type, id). Nodes are never held by pointer;
// traversal resolves neighbors through the snapshot's adjacency map.
type Key struct {
	Type entity.Type `json:"type"`
	ID   string      `json:"id"`
}

// Edge is one directed, weighted relationship between two records.
type Edge struct {
	Source   Key     `json:"source"`
	Relation string  `json:"relation"`
	Target   Key     `json:"target"`
	Weight   float64 `json:"weight"`
}

// Hop is one traversed edge on a path.
type Hop struct {
	Node     Key     `json:"node"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
}

// Path is an ordered hop sequence from a source node to a target node.
type Path []Hop

// Snapshot is an immutable adjacency view of the relationship graph.
// Rebuilds construct a fresh Snapshot and swap it in whole; readers
// always traverse one consistent snapshot.
type Snapshot struct {
	out   map[Key][]Edge
	edges int
}

// NewSnapshot builds a snapshot from a validated edge set.
func NewSnapshot(edges []Edge) *Snapshot {
	out := make(map[Key][]Edge)
	for _, e := range edges {
		out[e.Source] = append(out[e.Source], e)
	}
	// Stable neighbor order keeps path results deterministic.
	for k := range out {
		es := out[k]
		sort.Slice(es, func(i, j int) bool {
			if es[i].Target.Type != es[j].Target.Type {
				return es[i].Target.Type < es[j].Target.Type
			}
			return es[i].Target.ID < es[j].Target.ID
		})
	}
	return &Snapshot{out: out, edges: len(edges)}
}

// Outgoing returns the outgoing edges of a node.
func (s *Snapshot) Outgoing(k Key) []Edge { return s.out[k] }

// EdgeCount returns the number of edges in the snapshot.
func (s *Snapshot) EdgeCount() int { return s.edges }
