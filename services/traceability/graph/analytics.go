// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// =============================================================================
// Cycle Detection (Tarjan's SCC)
// =============================================================================

// Cycle is a strongly connected set of artifacts over primary edges.
type Cycle struct {
	// Members are the artifact ids in component order.
	Members []model.ArtifactID

	// SelfLoop is true for a single artifact referencing itself.
	SelfLoop bool
}

// PrimaryCycles finds cycles formed by primary edges only.
//
// Description:
//
//	Inverse edges are ignored: each declared relationship has an inverse,
//	so including them would turn every relationship into a 2-cycle. Runs
//	Tarjan's strongly connected components algorithm and returns every
//	component of two or more artifacts, plus single artifacts with a
//	primary self-loop.
//
//	Time complexity: O(V + E)
//	Space complexity: O(V)
//
//	Uses an explicit call stack so deep hierarchies cannot overflow the
//	goroutine stack.
//
// Outputs:
//
//	[]Cycle - Cycles in discovery order.
//
// Thread Safety: Safe for concurrent use on frozen graphs.
func (g *KnowledgeGraph) PrimaryCycles() []Cycle {
	return g.cycles(func(e *Edge) bool { return e.Kind.IsPrimary() })
}

// HasPrimaryCycle reports whether any primary-edge cycle exists.
func (g *KnowledgeGraph) HasPrimaryCycle() bool {
	return len(g.PrimaryCycles()) > 0
}

func (g *KnowledgeGraph) cycles(follow func(*Edge) bool) []Cycle {
	const unvisited = -1

	n := len(g.nodes)
	index := make([]int, n)
	lowLink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}
	sccStack := make([]int, 0)
	counter := 0
	result := make([]Cycle, 0)

	// callFrame replaces a recursive strongConnect call.
	type callFrame struct {
		node      int
		edgeIndex int // next index into Outgoing
		child     int // child just returned from, -1 if none
	}

	strongConnect := func(start int) {
		index[start] = counter
		lowLink[start] = counter
		counter++
		sccStack = append(sccStack, start)
		onStack[start] = true
		callStack := []callFrame{{node: start, child: -1}}

		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]

			if frame.child >= 0 {
				lowLink[frame.node] = min(lowLink[frame.node], lowLink[frame.child])
				frame.child = -1
			}

			pushed := false
			outgoing := g.nodes[frame.node].Outgoing
			for frame.edgeIndex < len(outgoing) {
				edge := outgoing[frame.edgeIndex]
				frame.edgeIndex++
				if !follow(edge) {
					continue
				}
				w := g.index[edge.ToID]
				if index[w] == unvisited {
					index[w] = counter
					lowLink[w] = counter
					counter++
					sccStack = append(sccStack, w)
					onStack[w] = true
					frame.child = w
					callStack = append(callStack, callFrame{node: w, child: -1})
					pushed = true
					break
				}
				if onStack[w] {
					lowLink[frame.node] = min(lowLink[frame.node], index[w])
				}
			}
			if pushed {
				continue
			}

			v := frame.node
			if lowLink[v] == index[v] {
				var members []int
				for {
					w := sccStack[len(sccStack)-1]
					sccStack = sccStack[:len(sccStack)-1]
					onStack[w] = false
					members = append(members, w)
					if w == v {
						break
					}
				}
				if c, ok := g.asCycle(members, follow); ok {
					result = append(result, c)
				}
			}
			callStack = callStack[:len(callStack)-1]
		}
	}

	for i := range g.nodes {
		if index[i] == unvisited {
			strongConnect(i)
		}
	}
	return result
}

// asCycle converts a strongly connected component to a Cycle, or reports
// false for a single artifact without a self-loop.
func (g *KnowledgeGraph) asCycle(members []int, follow func(*Edge) bool) (Cycle, bool) {
	if len(members) == 1 {
		node := g.nodes[members[0]]
		for _, e := range node.Outgoing {
			if e.ToID == node.ID && follow(e) {
				return Cycle{Members: []model.ArtifactID{node.ID}, SelfLoop: true}, true
			}
		}
		return Cycle{}, false
	}
	ids := make([]model.ArtifactID, len(members))
	for i, m := range members {
		ids[i] = g.nodes[m].ID
	}
	return Cycle{Members: ids}, true
}

// =============================================================================
// Statistics
// =============================================================================

// GraphStats summarizes a graph.
type GraphStats struct {
	// ItemCount is the number of artifacts.
	ItemCount int `json:"item_count"`

	// RelationshipCount is the number of edges, inverses included.
	RelationshipCount int `json:"relationship_count"`

	// ItemsByType counts artifacts per type. Types with no artifacts are
	// omitted.
	ItemsByType map[model.ArtifactType]int `json:"items_by_type"`

	// EdgesByKind counts edges per kind.
	EdgesByKind map[model.RelationshipKind]int `json:"edges_by_kind"`

	// OrphanCount is the number of non-root artifacts without an upstream edge.
	OrphanCount int `json:"orphan_count"`

	// State is the lifecycle state.
	State GraphState `json:"-"`

	// BuiltAtMilli is when the graph was frozen.
	BuiltAtMilli int64 `json:"built_at_milli"`
}

// Stats returns statistics about the graph.
//
// Complexity: O(V + E).
//
// Thread Safety: Safe for concurrent use on frozen graphs.
func (g *KnowledgeGraph) Stats() GraphStats {
	byType := make(map[model.ArtifactType]int)
	for _, node := range g.nodes {
		byType[node.Artifact.Type]++
	}
	byKind := make(map[model.RelationshipKind]int)
	for _, e := range g.edges {
		byKind[e.Kind]++
	}
	return GraphStats{
		ItemCount:         len(g.nodes),
		RelationshipCount: len(g.edges),
		ItemsByType:       byType,
		EdgesByKind:       byKind,
		OrphanCount:       len(g.Orphans()),
		State:             g.state,
		BuiltAtMilli:      g.BuiltAtMilli,
	}
}
