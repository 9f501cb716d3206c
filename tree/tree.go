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

// Package tree implements a fixed-branching tree: every interior node
// has exactly N children, where N is fixed at construction time for a
// given Tree. Node identity is a generationally-tagged handle rather
// than a pointer, so the tree can be stored as a flat arena with no
// pointer cycles and no retain counts (see the refinement package,
// which pairs a Tree with a digraph.Graph over the tree's leaves).
//
// Expanding a node changes that node's leaf-ness only; nodes are never
// removed, so every handle, including the expanded node's own and the
// newly created children's, stays valid for the tree's lifetime.
package tree

import "fmt"

// NodeHandle identifies a node in a Tree. The zero value is the root's
// handle.
type NodeHandle struct {
	index      uint32
	generation uint32
}

// Tree is a fixed-branching tree over values of type V. The branching
// factor N is fixed by NewTree and enforced on every Expand call.
type Tree[V any] struct {
	branching int
	nodes     []node[V]
	root      NodeHandle
}

type node[V any] struct {
	value      V
	children   []NodeHandle // empty for a leaf
	generation uint32
	live       bool
}

// NewTree constructs a tree with a single root leaf holding rootValue.
// branching must be at least 1.
func NewTree[V any](branching int, rootValue V) *Tree[V] {
	if branching < 1 {
		panic(fmt.Sprintf("tree: branching factor must be >= 1, got %d", branching))
	}
	t := &Tree[V]{branching: branching}
	t.nodes = append(t.nodes, node[V]{value: rootValue, live: true})
	t.root = NodeHandle{index: 0, generation: 0}
	return t
}

// Branching returns the fixed branching factor N.
func (t *Tree[V]) Branching() int { return t.branching }

// Root returns the handle of the tree's root node. The root is never
// removed, so this handle is valid for the lifetime of the tree.
func (t *Tree[V]) Root() NodeHandle { return t.root }

// Size returns the total number of nodes ever created (interior and
// leaf), used by callers to check a node-count budget.
func (t *Tree[V]) Size() int { return len(t.nodes) }

func (t *Tree[V]) mustGet(h NodeHandle) *node[V] {
	if int(h.index) >= len(t.nodes) {
		panic(fmt.Sprintf("tree: handle index %d out of range", h.index))
	}
	n := &t.nodes[h.index]
	if !n.live || n.generation != h.generation {
		panic("tree: stale node handle")
	}
	return n
}

// Value returns the value stored at h.
func (t *Tree[V]) Value(h NodeHandle) V {
	return t.mustGet(h).value
}

// IsLeaf reports whether h currently has no children.
func (t *Tree[V]) IsLeaf(h NodeHandle) bool {
	return len(t.mustGet(h).children) == 0
}

// Children returns the handles of h's children in order. It is empty
// for a leaf.
func (t *Tree[V]) Children(h NodeHandle) []NodeHandle {
	n := t.mustGet(h)
	out := make([]NodeHandle, len(n.children))
	copy(out, n.children)
	return out
}

// Expand turns the leaf h into an interior node with exactly
// Branching() new leaf children holding values, in order. It panics if
// h is not currently a leaf or if len(values) != Branching().
//
// h itself remains a valid handle after Expand: it becomes an interior
// node and Value(h) still returns its (unchanged) value. Only IsLeaf(h)
// and Children(h) change.
func (t *Tree[V]) Expand(h NodeHandle, values []V) []NodeHandle {
	n := t.mustGet(h)
	if len(n.children) != 0 {
		panic("tree: Expand called on a non-leaf node")
	}
	if len(values) != t.branching {
		panic(fmt.Sprintf("tree: Expand needs exactly %d values, got %d", t.branching, len(values)))
	}

	children := make([]NodeHandle, t.branching)
	for i, v := range values {
		idx := uint32(len(t.nodes))
		t.nodes = append(t.nodes, node[V]{value: v, live: true})
		children[i] = NodeHandle{index: idx, generation: 0}
	}

	// re-fetch: appending to t.nodes may have reallocated the backing
	// array, invalidating the n pointer taken above.
	parent := &t.nodes[h.index]
	parent.children = children
	return children
}

// Leaves returns every current leaf in the subtree rooted at h, in a
// stable depth-first, left-to-right order.
func (t *Tree[V]) Leaves(h NodeHandle) []NodeHandle {
	var out []NodeHandle
	t.collectLeaves(h, &out)
	return out
}

func (t *Tree[V]) collectLeaves(h NodeHandle, out *[]NodeHandle) {
	n := t.mustGet(h)
	if len(n.children) == 0 {
		*out = append(*out, h)
		return
	}
	for _, c := range n.children {
		t.collectLeaves(c, out)
	}
}
