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
	"fmt"
	"time"

	"github.com/AleutianAI/reqgraph/services/traceability/model"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of artifacts a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddEdge calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// Edge is a directed, typed relationship between two artifacts.
//
// The graph is a multigraph: the same (from, to, kind) triple may appear
// more than once when an artifact declares a relationship that its target
// also declares in the opposite direction.
type Edge struct {
	// FromID is the source artifact.
	FromID model.ArtifactID

	// ToID is the target artifact.
	ToID model.ArtifactID

	// Kind is the relationship kind.
	Kind model.RelationshipKind
}

// String renders the edge as "from -kind-> to".
func (e *Edge) String() string {
	return fmt.Sprintf("%s -%s-> %s", e.FromID, e.Kind, e.ToID)
}

// Node is an artifact in the graph with its relationships.
type Node struct {
	// ID is the artifact id.
	ID model.ArtifactID

	// Index is the dense position of the node in the arena.
	Index int

	// Artifact is the artifact the node represents. Not owned by the node.
	Artifact *model.Artifact

	// Outgoing contains edges where this node is the source.
	Outgoing []*Edge

	// Incoming contains edges where this node is the target.
	Incoming []*Edge
}

// Type returns the artifact type of the node.
func (n *Node) Type() model.ArtifactType {
	return n.Artifact.Type
}

// GraphOptions configures KnowledgeGraph limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of artifacts the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring KnowledgeGraph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of artifacts the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// KnowledgeGraph owns the artifact nodes and typed edges of one artifact set.
//
// Thread Safety:
//
//	KnowledgeGraph is NOT safe for concurrent use during building. After
//	Freeze() it can be read from multiple goroutines without locking.
type KnowledgeGraph struct {
	// nodes is the arena, in insertion order of first occurrence.
	nodes []*Node

	// index maps artifact id to arena position.
	index map[model.ArtifactID]int

	// edges contains all edges in insertion order.
	edges []*Edge

	state   GraphState
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze() was called.
	// Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewKnowledgeGraph creates an empty graph in the Building state.
//
// Example:
//
//	g := NewKnowledgeGraph(WithMaxNodes(10_000))
func NewKnowledgeGraph(opts ...GraphOption) *KnowledgeGraph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &KnowledgeGraph{
		nodes:   make([]*Node, 0),
		index:   make(map[model.ArtifactID]int),
		edges:   make([]*Edge, 0),
		state:   GraphStateBuilding,
		options: options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *KnowledgeGraph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *KnowledgeGraph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze makes the graph read-only. Calling Freeze twice is a no-op.
func (g *KnowledgeGraph) Freeze() {
	if g.state == GraphStateReadOnly {
		return
	}
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// Len returns the number of artifacts in the graph.
func (g *KnowledgeGraph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges, inverses included.
func (g *KnowledgeGraph) EdgeCount() int {
	return len(g.edges)
}

// AddNode inserts an artifact.
//
// Description:
//
//	If an artifact with the same id is already present, the new artifact
//	replaces it in place (last write wins). Duplicate detection is the job
//	of validation.PreValidate and must run before building.
//
// Outputs:
//
//	*Node - The node now holding the artifact.
//	error - Non-nil if the graph is frozen, full, or the artifact is invalid.
//
// Ownership:
//
//	The graph stores a pointer to the artifact but does NOT own it.
func (g *KnowledgeGraph) AddNode(a *model.Artifact) (*Node, error) {
	if g.state == GraphStateReadOnly {
		return nil, ErrGraphFrozen
	}
	if a == nil {
		return nil, fmt.Errorf("%w: artifact is nil", ErrInvalidNode)
	}
	if a.ID == "" {
		return nil, fmt.Errorf("%w: artifact has empty id", ErrInvalidNode)
	}

	if idx, exists := g.index[a.ID]; exists {
		node := g.nodes[idx]
		node.Artifact = a
		return node, nil
	}

	if len(g.nodes) >= g.options.MaxNodes {
		return nil, ErrMaxNodesExceeded
	}

	node := &Node{
		ID:       a.ID,
		Index:    len(g.nodes),
		Artifact: a,
		Outgoing: make([]*Edge, 0),
		Incoming: make([]*Edge, 0),
	}
	g.index[a.ID] = node.Index
	g.nodes = append(g.nodes, node)
	return node, nil
}

// AddEdge creates a directed edge between two existing nodes. Adding an
// edge that already exists (same endpoints and kind) is a no-op.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrNodeNotFound - Source or target node doesn't exist
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *KnowledgeGraph) AddEdge(fromID, toID model.ArtifactID, kind model.RelationshipKind) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	fromNode, fromOK := g.Node(fromID)
	if !fromOK {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, fromID)
	}
	toNode, toOK := g.Node(toID)
	if !toOK {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, toID)
	}

	for _, e := range fromNode.Outgoing {
		if e.ToID == toID && e.Kind == kind {
			return nil
		}
	}

	if len(g.edges) >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	edge := &Edge{FromID: fromID, ToID: toID, Kind: kind}
	g.edges = append(g.edges, edge)
	fromNode.Outgoing = append(fromNode.Outgoing, edge)
	toNode.Incoming = append(toNode.Incoming, edge)
	return nil
}

// Node returns the node for id.
func (g *KnowledgeGraph) Node(id model.ArtifactID) (*Node, bool) {
	idx, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[idx], true
}

// Get returns the artifact for id.
func (g *KnowledgeGraph) Get(id model.ArtifactID) (*model.Artifact, bool) {
	node, ok := g.Node(id)
	if !ok {
		return nil, false
	}
	return node.Artifact, true
}

// Contains reports whether an artifact with id is in the graph.
func (g *KnowledgeGraph) Contains(id model.ArtifactID) bool {
	_, ok := g.index[id]
	return ok
}

// Nodes returns an iterator over all nodes in arena order.
//
// Example:
//
//	for id, node := range g.Nodes() {
//	    fmt.Printf("%s: %s\n", id, node.Artifact.Name)
//	}
func (g *KnowledgeGraph) Nodes() func(yield func(model.ArtifactID, *Node) bool) {
	return func(yield func(model.ArtifactID, *Node) bool) {
		for _, node := range g.nodes {
			if !yield(node.ID, node) {
				return
			}
		}
	}
}

// Artifacts returns all artifacts in arena order.
func (g *KnowledgeGraph) Artifacts() []*model.Artifact {
	out := make([]*model.Artifact, len(g.nodes))
	for i, node := range g.nodes {
		out[i] = node.Artifact
	}
	return out
}

// IDs returns all artifact ids in arena order.
func (g *KnowledgeGraph) IDs() []model.ArtifactID {
	out := make([]model.ArtifactID, len(g.nodes))
	for i, node := range g.nodes {
		out[i] = node.ID
	}
	return out
}

// Edges returns the internal edge slice. Callers should NOT modify it.
func (g *KnowledgeGraph) Edges() []*Edge {
	return g.edges
}

// ArtifactsByType returns the artifacts of type t in arena order.
func (g *KnowledgeGraph) ArtifactsByType(t model.ArtifactType) []*model.Artifact {
	var out []*model.Artifact
	for _, node := range g.nodes {
		if node.Artifact.Type == t {
			out = append(out, node.Artifact)
		}
	}
	return out
}

// Parents returns the targets of upstream edges leaving id, in edge order.
// Returns nil if id is not in the graph.
func (g *KnowledgeGraph) Parents(id model.ArtifactID) []*model.Artifact {
	node, ok := g.Node(id)
	if !ok {
		return nil
	}
	var out []*model.Artifact
	for _, e := range node.Outgoing {
		if e.Kind.IsUpstream() {
			if target, ok := g.Get(e.ToID); ok {
				out = append(out, target)
			}
		}
	}
	return out
}

// Children returns the sources of upstream edges entering id, in edge order.
// Returns nil if id is not in the graph.
func (g *KnowledgeGraph) Children(id model.ArtifactID) []*model.Artifact {
	node, ok := g.Node(id)
	if !ok {
		return nil
	}
	var out []*model.Artifact
	for _, e := range node.Incoming {
		if e.Kind.IsUpstream() {
			if source, ok := g.Get(e.FromID); ok {
				out = append(out, source)
			}
		}
	}
	return out
}

// Orphans returns non-root artifacts with no upstream relationship: they
// declare no upstream reference themselves and no parent declares them as a
// downstream child. A declared upstream reference to an absent artifact is
// a broken reference, not an orphan.
func (g *KnowledgeGraph) Orphans() []*model.Artifact {
	var out []*model.Artifact
	for _, node := range g.nodes {
		if node.Artifact.Type.IsRoot() {
			continue
		}
		if !node.Artifact.HasUpstream() && !hasUpstreamEdge(node) {
			out = append(out, node.Artifact)
		}
	}
	return out
}

func hasUpstreamEdge(node *Node) bool {
	for _, e := range node.Outgoing {
		if e.Kind.IsUpstream() {
			return true
		}
	}
	return false
}

// RelationshipTriple is an edge reduced to comparable values.
type RelationshipTriple struct {
	From model.ArtifactID       `json:"from"`
	To   model.ArtifactID       `json:"to"`
	Kind model.RelationshipKind `json:"kind"`
}

// Relationships returns every edge as a triple, in insertion order.
func (g *KnowledgeGraph) Relationships() []RelationshipTriple {
	out := make([]RelationshipTriple, len(g.edges))
	for i, e := range g.edges {
		out[i] = RelationshipTriple{From: e.FromID, To: e.ToID, Kind: e.Kind}
	}
	return out
}

// UnresolvedReference is a declared reference whose target is absent.
type UnresolvedReference struct {
	From model.ArtifactID
	To   model.ArtifactID
	Kind model.RelationshipKind
}

// UnresolvedReferences lists every declared or peer reference whose target
// is not in the graph, in arena then declaration order.
func (g *KnowledgeGraph) UnresolvedReferences() []UnresolvedReference {
	var out []UnresolvedReference
	for _, node := range g.nodes {
		for _, ref := range node.Artifact.AllReferences() {
			if !g.Contains(ref.Target) {
				out = append(out, UnresolvedReference{From: node.ID, To: ref.Target, Kind: ref.Kind})
			}
		}
	}
	return out
}
