// Package graph implements the Graph Builder: it assembles
// forward and reverse citation adjacency over the full set of ingested
// sections and materializes bounded, cycle-suppressing transitive
// chains from each section with outgoing citations.
package graph

import (
	"sort"

	"github.com/IntXgers/ohio-code/pkg/models"
)

// Snapshotter supplies the denormalized fields a chain embeds for each
// of its entries, without requiring the graph package to know about
// the KV store.
type Snapshotter interface {
	Snapshot(id string) (models.ChainSnapshot, bool)
}

// Graph accumulates forward adjacency as citations are extracted and
// derives reverse adjacency and chains from it in one pass each.
// Within one source, target lists preserve first-occurrence order.
type Graph struct {
	order   []string            // insertion order of source ids, for deterministic iteration
	forward map[string][]string // source -> targets, first-occurrence order, deduped
	seen    map[string]map[string]bool
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		forward: make(map[string][]string),
		seen:    make(map[string]map[string]bool),
	}
}

// AddEdges records source's outgoing targets in first-occurrence
// order. Calling this more than once for the same source is a no-op
// for targets already recorded (append-only batches re-ingesting an
// id must not duplicate edges).
func (g *Graph) AddEdges(source string, targets []string) {
	if _, ok := g.forward[source]; !ok {
		g.order = append(g.order, source)
		g.forward[source] = nil
		g.seen[source] = make(map[string]bool)
	}
	dedup := g.seen[source]
	for _, t := range targets {
		if dedup[t] {
			continue
		}
		dedup[t] = true
		g.forward[source] = append(g.forward[source], t)
	}
}

// Forward returns source's outgoing targets in first-occurrence order.
func (g *Graph) Forward(source string) []string {
	return g.forward[source]
}

// Sources returns every source id passed to AddEdges, in insertion
// order, including sources recorded with no targets.
func (g *Graph) Sources() []string {
	return g.order
}

// Reverse computes rev[t] = {s : (s,t) in forward}, sorted by source
// id at write time for determinism.
func (g *Graph) Reverse() map[string][]string {
	rev := make(map[string][]string)
	for _, s := range g.order {
		for _, t := range g.forward[s] {
			rev[t] = append(rev[t], s)
		}
	}
	for t := range rev {
		sort.Strings(rev[t])
	}
	return rev
}

// ChainParams bounds BFS chain construction (defaults: fanout=3,
// max_size=8, complex threshold=4).
type ChainParams struct {
	Fanout    int
	MaxSize   int
	Threshold int
}

// DefaultChainParams returns the documented default chain parameters.
func DefaultChainParams() ChainParams {
	return ChainParams{Fanout: 3, MaxSize: 8, Threshold: 4}
}

// BuildChain performs a bounded BFS expansion for a single primary
// section: push primary, repeatedly pop, append up to the first
// Fanout unvisited targets, stop at MaxSize entries or an empty
// queue. visited is global within one chain's construction, so a
// section cannot appear twice in its own chain (cycle suppression).
func (g *Graph) BuildChain(primary string, p ChainParams) []string {
	visited := map[string]bool{primary: true}
	chain := []string{primary}
	queue := []string{primary}

	for len(queue) > 0 && len(chain) < p.MaxSize {
		cur := queue[0]
		queue = queue[1:]

		added := 0
		for _, t := range g.forward[cur] {
			if added >= p.Fanout {
				break
			}
			if visited[t] {
				continue
			}
			visited[t] = true
			chain = append(chain, t)
			queue = append(queue, t)
			added++
			if len(chain) >= p.MaxSize {
				break
			}
		}
	}
	return chain
}

// BuildChainRecord builds and, if the chain meets p.Threshold, returns
// a fully materialized ChainRecord with embedded snapshots. Returns
// nil if primary has no outgoing edges or the resulting chain is not
// "complex" (spec invariant 5).
func (g *Graph) BuildChainRecord(primary string, p ChainParams, snap Snapshotter) *models.ChainRecord {
	if len(g.forward[primary]) == 0 {
		return nil
	}
	chain := g.BuildChain(primary, p)
	if len(chain) < p.Threshold {
		return nil
	}

	snapshots := make([]models.ChainSnapshot, 0, len(chain))
	for _, id := range chain {
		if s, ok := snap.Snapshot(id); ok {
			snapshots = append(snapshots, s)
		} else {
			snapshots = append(snapshots, models.ChainSnapshot{ID: id})
		}
	}

	return &models.ChainRecord{
		PrimarySection:  primary,
		ChainSections:   chain,
		ChainDepth:      len(chain),
		CompleteChain:   snapshots,
		ReferencesCount: len(g.forward[primary]),
	}
}
