// Copyright 2026 The Latticeproof Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package digraph implements a directed graph with externally attached
// vertex values. Vertices carry an arbitrary payload (in this module,
// tree.NodeHandle values -- see the refinement package); the graph
// itself only knows about VertexHandle identity and edges between
// handles.
//
// Unlike tree.Tree, vertices here ARE removed (RemoveVertex, called by
// refinement.Refine when a leaf becomes interior). Removed slots are
// tracked on a free-list and reused by later AddVertex calls, so
// VertexHandle carries a generation tag: a handle from before a
// RemoveVertex/AddVertex pair that reused its slot is stale and
// rejected rather than silently resolving to the new vertex (the ABA
// problem the fixed-branch tree's design notes flag as a concern for
// any arena that recycles storage).
package digraph

import "fmt"

// VertexHandle identifies a vertex. The zero value is the handle of the
// first vertex added to a graph.
type VertexHandle struct {
	index      uint32
	generation uint32
}

// String returns a stable, human-readable identifier for h, suitable
// for use as a graph-drawing node name. It is not parseable back into
// a handle.
func (h VertexHandle) String() string {
	return fmt.Sprintf("v%d_%d", h.index, h.generation)
}

type vertexSlot[V any] struct {
	value      V
	live       bool
	generation uint32
	out        []VertexHandle
	outSet     map[VertexHandle]struct{}
	in         []VertexHandle
	inSet      map[VertexHandle]struct{}
}

func newVertexSlot[V any](value V, generation uint32) vertexSlot[V] {
	return vertexSlot[V]{
		value:      value,
		live:       true,
		generation: generation,
		outSet:     map[VertexHandle]struct{}{},
		inSet:      map[VertexHandle]struct{}{},
	}
}

// appendHandle adds h to list/set if not already present, preserving
// insertion order in list.
func appendHandle(list []VertexHandle, set map[VertexHandle]struct{}, h VertexHandle) []VertexHandle {
	if _, ok := set[h]; ok {
		return list
	}
	set[h] = struct{}{}
	return append(list, h)
}

// removeHandle removes h from list/set, preserving the relative order
// of everything else.
func removeHandle(list []VertexHandle, set map[VertexHandle]struct{}, h VertexHandle) []VertexHandle {
	if _, ok := set[h]; !ok {
		return list
	}
	delete(set, h)
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Graph is a directed graph over vertices carrying a value of type V.
// Edges are idempotent (adding the same edge twice is a no-op) and
// self-loops are permitted.
type Graph[V any] struct {
	slots    []vertexSlot[V]
	freeList []uint32
	order    []VertexHandle // insertion order of currently-live vertices, for deterministic iteration
}

// NewGraph constructs an empty graph.
func NewGraph[V any]() *Graph[V] {
	return &Graph[V]{}
}

// AddVertex adds a new vertex carrying value and returns its handle.
func (g *Graph[V]) AddVertex(value V) VertexHandle {
	var idx uint32
	var gen uint32
	if n := len(g.freeList); n > 0 {
		idx = g.freeList[n-1]
		g.freeList = g.freeList[:n-1]
		gen = g.slots[idx].generation + 1
		g.slots[idx] = newVertexSlot(value, gen)
	} else {
		idx = uint32(len(g.slots))
		gen = 0
		g.slots = append(g.slots, newVertexSlot(value, gen))
	}
	h := VertexHandle{index: idx, generation: gen}
	g.order = append(g.order, h)
	return h
}

func (g *Graph[V]) mustGet(h VertexHandle) *vertexSlot[V] {
	if int(h.index) >= len(g.slots) {
		panic(fmt.Sprintf("digraph: handle index %d out of range", h.index))
	}
	s := &g.slots[h.index]
	if !s.live || s.generation != h.generation {
		panic("digraph: stale vertex handle")
	}
	return s
}

// RemoveVertex deletes h and every edge incident to it (both
// directions). The slot is recycled by a later AddVertex under a new
// generation.
func (g *Graph[V]) RemoveVertex(h VertexHandle) {
	s := g.mustGet(h)
	for _, other := range s.out {
		o := g.mustGet(other)
		o.in = removeHandle(o.in, o.inSet, h)
	}
	for _, other := range s.in {
		o := g.mustGet(other)
		o.out = removeHandle(o.out, o.outSet, h)
	}
	s.live = false
	s.out = nil
	s.outSet = nil
	s.in = nil
	s.inSet = nil
	g.freeList = append(g.freeList, h.index)

	for i, oh := range g.order {
		if oh == h {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// AddEdge inserts an edge src->trg. Idempotent; self-loops allowed.
func (g *Graph[V]) AddEdge(src, trg VertexHandle) {
	s := g.mustGet(src)
	// trg must also be live; mustGet enforces that and panics otherwise.
	t := g.mustGet(trg)
	s.out = appendHandle(s.out, s.outSet, trg)
	t.in = appendHandle(t.in, t.inSet, src)
}

// Value returns the payload attached to h.
func (g *Graph[V]) Value(h VertexHandle) V {
	return g.mustGet(h).value
}

// InEdges returns the handles with an edge into h, in the order those
// edges were added (AddEdge is idempotent, so each handle appears at
// most once, at the position of its first insertion).
func (g *Graph[V]) InEdges(h VertexHandle) []VertexHandle {
	s := g.mustGet(h)
	out := make([]VertexHandle, len(s.in))
	copy(out, s.in)
	return out
}

// OutEdges returns the handles h has an edge to, in the order those
// edges were added.
func (g *Graph[V]) OutEdges(h VertexHandle) []VertexHandle {
	s := g.mustGet(h)
	out := make([]VertexHandle, len(s.out))
	copy(out, s.out)
	return out
}

// FindVertex returns the handle of the first live vertex whose value
// equals want under eq, and true. If none match, it returns the zero
// handle and false.
func (g *Graph[V]) FindVertex(want V, eq func(a, b V) bool) (VertexHandle, bool) {
	for _, h := range g.order {
		if eq(g.slots[h.index].value, want) {
			return h, true
		}
	}
	return VertexHandle{}, false
}

// Vertices returns every currently-live vertex handle, in the order
// they were added (removals do not reorder survivors).
func (g *Graph[V]) Vertices() []VertexHandle {
	out := make([]VertexHandle, len(g.order))
	copy(out, g.order)
	return out
}
