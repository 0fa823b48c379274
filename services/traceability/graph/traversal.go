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
	"context"
	"slices"
	"time"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// Direction selects which way a traversal walks the hierarchy.
type Direction int

const (
	// Upstream walks toward Solution.
	Upstream Direction = iota

	// Downstream walks toward the detailed designs.
	Downstream
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case Upstream:
		return "upstream"
	case Downstream:
		return "downstream"
	default:
		return "unknown"
	}
}

// TraversalOptions bounds a traversal.
type TraversalOptions struct {
	// MaxDepth limits the number of hops from the origin. Negative means
	// unlimited.
	MaxDepth int

	// Types restricts which artifacts appear in the result. Empty means all.
	// Excluded artifacts are still walked through.
	Types []model.ArtifactType
}

// DefaultTraversalOptions returns unlimited depth and no type filter.
func DefaultTraversalOptions() TraversalOptions {
	return TraversalOptions{MaxDepth: -1}
}

// TraversalOption is a functional option for configuring a traversal.
type TraversalOption func(*TraversalOptions)

// WithMaxDepth limits traversal to n hops from the origin.
func WithMaxDepth(n int) TraversalOption {
	return func(o *TraversalOptions) {
		o.MaxDepth = n
	}
}

// WithTypes restricts the result to the given artifact types.
func WithTypes(types ...model.ArtifactType) TraversalOption {
	return func(o *TraversalOptions) {
		o.Types = append(o.Types, types...)
	}
}

func (o TraversalOptions) depthAllowed(depth int) bool {
	return o.MaxDepth < 0 || depth <= o.MaxDepth
}

func (o TraversalOptions) includes(t model.ArtifactType) bool {
	return len(o.Types) == 0 || slices.Contains(o.Types, t)
}

// TraversalNode is one artifact reached by a traversal.
type TraversalNode struct {
	// ID is the artifact reached.
	ID model.ArtifactID `json:"id"`

	// Depth is the number of hops from the origin.
	Depth int `json:"depth"`

	// Relationship is the kind of the edge that reached this node, as seen
	// walking in the traversal direction. KindUnknown for the origin.
	Relationship model.RelationshipKind `json:"relationship"`

	// Parent is the nearest included ancestor on the BFS path. Empty when
	// no ancestor was included.
	Parent model.ArtifactID `json:"parent,omitempty"`
}

// TraversalResult is the ordered outcome of a traversal.
type TraversalResult struct {
	// Origin is the artifact where traversal began.
	Origin model.ArtifactID `json:"origin"`

	// Direction is the direction walked.
	Direction Direction `json:"-"`

	// Items are the included nodes in BFS order.
	Items []TraversalNode `json:"items"`

	// MaxDepth is the greatest depth among included nodes.
	MaxDepth int `json:"max_depth"`
}

type traversalEntry struct {
	node          *Node
	depth         int
	relationship  model.RelationshipKind
	displayParent model.ArtifactID
}

type step struct {
	target model.ArtifactID
	kind   model.RelationshipKind
}

// Traverse walks the graph breadth-first from origin.
//
// Description:
//
//	Each node is visited at most once, at its shortest depth. A node at
//	depth > MaxDepth is never expanded; a node at exactly MaxDepth is
//	reported (if it passes the type filter) but its neighbors are not
//	queued. Nodes filtered out by Types still consume depth and pass their
//	own display parent down to their children, so filtered results still
//	form a tree.
//
//	Upstream follows outgoing upstream edges. Downstream follows incoming
//	upstream edges (reported with the inverse kind) together with outgoing
//	downstream edges.
//
// Outputs:
//
//	*TraversalResult - The included nodes in BFS order.
//	bool - False if origin is not in the graph.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen graphs.
func (g *KnowledgeGraph) Traverse(ctx context.Context, origin model.ArtifactID, direction Direction, opts ...TraversalOption) (*TraversalResult, bool) {
	options := DefaultTraversalOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return g.TraverseWith(ctx, origin, direction, options)
}

// TraverseWith is Traverse with an explicit options value.
func (g *KnowledgeGraph) TraverseWith(ctx context.Context, origin model.ArtifactID, direction Direction, options TraversalOptions) (*TraversalResult, bool) {
	start, ok := g.Node(origin)
	if !ok {
		return nil, false
	}

	ctx, span := startTraverseSpan(ctx, direction, origin.String())
	defer span.End()
	began := time.Now()

	result := &TraversalResult{
		Origin:    origin,
		Direction: direction,
		Items:     make([]TraversalNode, 0),
	}

	visited := make([]bool, len(g.nodes))
	visited[start.Index] = true
	queue := []traversalEntry{{node: start}}

	for len(queue) > 0 {
		entry := queue[0]
		queue = queue[1:]

		if !options.depthAllowed(entry.depth) {
			continue
		}

		nextParent := entry.displayParent
		if options.includes(entry.node.Type()) {
			result.Items = append(result.Items, TraversalNode{
				ID:           entry.node.ID,
				Depth:        entry.depth,
				Relationship: entry.relationship,
				Parent:       entry.displayParent,
			})
			result.MaxDepth = max(result.MaxDepth, entry.depth)
			nextParent = entry.node.ID
		}

		nextDepth := entry.depth + 1
		if !options.depthAllowed(nextDepth) {
			continue
		}
		for _, s := range g.steps(entry.node, direction) {
			next, ok := g.Node(s.target)
			if !ok || visited[next.Index] {
				continue
			}
			visited[next.Index] = true
			queue = append(queue, traversalEntry{
				node:          next,
				depth:         nextDepth,
				relationship:  s.kind,
				displayParent: nextParent,
			})
		}
	}

	setTraverseSpanResult(span, len(result.Items), result.MaxDepth)
	recordTraverseMetrics(ctx, direction, time.Since(began))
	return result, true
}

// steps lists the neighbors reachable from node in direction, in edge order.
func (g *KnowledgeGraph) steps(node *Node, direction Direction) []step {
	var out []step
	switch direction {
	case Upstream:
		for _, e := range node.Outgoing {
			if e.Kind.IsUpstream() {
				out = append(out, step{target: e.ToID, kind: e.Kind})
			}
		}
	case Downstream:
		for _, e := range node.Incoming {
			if e.Kind.IsUpstream() {
				out = append(out, step{target: e.FromID, kind: e.Kind.Inverse()})
			}
		}
		for _, e := range node.Outgoing {
			if e.Kind.IsDownstream() {
				out = append(out, step{target: e.ToID, kind: e.Kind})
			}
		}
	}
	return out
}

// TraverseUpstream walks toward Solution from origin.
func (g *KnowledgeGraph) TraverseUpstream(ctx context.Context, origin model.ArtifactID, opts ...TraversalOption) (*TraversalResult, bool) {
	return g.Traverse(ctx, origin, Upstream, opts...)
}

// TraverseDownstream walks toward the detailed designs from origin.
func (g *KnowledgeGraph) TraverseDownstream(ctx context.Context, origin model.ArtifactID, opts ...TraversalOption) (*TraversalResult, bool) {
	return g.Traverse(ctx, origin, Downstream, opts...)
}

// IDs returns the ids of the included nodes in BFS order.
func (r *TraversalResult) IDs() []model.ArtifactID {
	out := make([]model.ArtifactID, len(r.Items))
	for i, item := range r.Items {
		out[i] = item.ID
	}
	return out
}

// TreeNode is a node of a reconstructed traversal tree.
type TreeNode struct {
	ID           model.ArtifactID       `json:"id"`
	Relationship model.RelationshipKind `json:"relationship"`
	Depth        int                    `json:"depth"`
	Children     []*TreeNode            `json:"children,omitempty"`
}

// Tree is a traversal result reshaped along its display-parent pointers.
type Tree struct {
	// Root is the traversal origin.
	Root model.ArtifactID `json:"root"`

	// Children are the top-level subtrees. When the origin is included,
	// these are the nodes whose display parent is the origin. When the
	// origin is filtered out, every node without an included ancestor is
	// a top-level subtree.
	Children []*TreeNode `json:"children"`
}

// Tree rebuilds the traversal as a tree. Sibling order is BFS order.
// Returns nil for an empty result.
func (r *TraversalResult) Tree() *Tree {
	if len(r.Items) == 0 {
		return nil
	}

	byParent := make(map[model.ArtifactID][]TraversalNode)
	for _, item := range r.Items {
		byParent[item.Parent] = append(byParent[item.Parent], item)
	}

	var build func(parent model.ArtifactID) []*TreeNode
	build = func(parent model.ArtifactID) []*TreeNode {
		items := byParent[parent]
		out := make([]*TreeNode, 0, len(items))
		for _, item := range items {
			out = append(out, &TreeNode{
				ID:           item.ID,
				Relationship: item.Relationship,
				Depth:        item.Depth,
				Children:     build(item.ID),
			})
		}
		return out
	}

	tree := &Tree{Root: r.Origin}
	if r.Items[0].ID == r.Origin {
		tree.Children = build(r.Origin)
	} else {
		tree.Children = build("")
	}
	return tree
}
