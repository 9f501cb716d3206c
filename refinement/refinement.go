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

// Package refinement composes a fixed-branching tree of box refinements
// with an adjacency digraph tracking how those boxes map into each
// other under a system's dynamics. Together they form the abstraction
// CEGAR refines: every tree leaf owns exactly one graph vertex, and an
// edge u->v means "the image of u's box possibly overlaps v's box".
//
// The abstraction also carries an implicit "outside" sink: a
// distinguished vertex with no corresponding tree leaf, standing in for
// escape from the root box. NodeValue reports its absence with a false
// second return. IsSafe reports it as False, NodesEqual treats it as
// equal only to itself, Image and IsReachable reach it by an
// escapes-the-root check, and Refine panics on it.
package refinement

import (
	"fmt"
	"strings"

	"github.com/latticeproof/cegar/digraph"
	"github.com/latticeproof/cegar/kleenean"
	"github.com/latticeproof/cegar/numeric"
	"github.com/latticeproof/cegar/tree"
)

// TreeValue is the payload carried by every tree node (interior or
// leaf). Safe records whether the node's enclosure has been shown to
// overlap the constraint set's safe region -- it is only meaningful at
// leaves, since interior nodes are never queried once refined.
type TreeValue struct {
	Enclosure numeric.Enclosure
	Safe      kleenean.Lower
}

// NodeHandle addresses a graph vertex, and by the tree/graph bijection
// this package maintains, the leaf box it stands for.
type NodeHandle = digraph.VertexHandle

// leafRef is the digraph payload: which tree leaf a vertex stands for,
// or sink=true for the outside vertex, which stands for none.
type leafRef struct {
	node tree.NodeHandle
	sink bool
}

// Strategy partitions an enclosure into exactly Branching() pieces
// whose union covers it. Implementations live in the strategy package;
// this package only consumes the interface.
type Strategy interface {
	Refine(e numeric.Enclosure) []numeric.Enclosure
}

// RefinementTree is the C4 component: the tree/graph pair plus the
// numeric-kernel collaborators needed to compute enclosure images.
type RefinementTree struct {
	tr        *tree.Tree[TreeValue]
	graph     *digraph.Graph[leafRef]
	vertexOf  map[tree.NodeHandle]NodeHandle
	sink      NodeHandle
	constraints numeric.ConstraintSet
	dynamics    numeric.VectorFunction
	effort      numeric.Effort
	branching   int
}

// New builds a RefinementTree with a single root leaf spanning the
// entire initial enclosure. branching fixes how many pieces every call
// to Refine must produce; it is typically the strategy's own arity
// (e.g. 2 for bisection).
//
// New reports an error -- never a panic -- for client contract
// violations: an empty initial enclosure, or a dimension mismatch
// between the enclosure and the dynamics.
func New(initial numeric.Enclosure, constraints numeric.ConstraintSet, dynamics numeric.VectorFunction, effort numeric.Effort, branching int) (*RefinementTree, error) {
	if kleenean.Definitely(initial.IsEmpty()) {
		return nil, fmt.Errorf("refinement: initial enclosure is empty")
	}
	if initial.Dim() != dynamics.Dim() {
		return nil, fmt.Errorf("refinement: initial enclosure has dimension %d, dynamics expects %d", initial.Dim(), dynamics.Dim())
	}
	if branching < 1 {
		return nil, fmt.Errorf("refinement: branching must be at least 1, got %d", branching)
	}

	rootValue := TreeValue{Enclosure: initial, Safe: constraints.Overlaps(initial)}
	tr := tree.NewTree(branching, rootValue)
	graph := digraph.NewGraph[leafRef]()

	rt := &RefinementTree{
		tr:          tr,
		graph:       graph,
		vertexOf:    make(map[tree.NodeHandle]NodeHandle),
		constraints: constraints,
		dynamics:    dynamics,
		effort:      effort,
		branching:   branching,
	}
	rt.sink = graph.AddVertex(leafRef{sink: true})

	root := graph.AddVertex(leafRef{node: tr.Root()})
	rt.vertexOf[tr.Root()] = root
	rt.computeEdgesFrom(root, tr.Root())

	return rt, nil
}

// Branching returns the fixed arity every Refine call must produce.
func (rt *RefinementTree) Branching() int { return rt.branching }

// Constraints returns the safe-region predicate this tree was built with.
func (rt *RefinementTree) Constraints() numeric.ConstraintSet { return rt.constraints }

// Dynamics returns the vector field this tree's edges were computed from.
func (rt *RefinementTree) Dynamics() numeric.VectorFunction { return rt.dynamics }

// Root returns the graph vertex for the tree's root leaf. It panics
// once the root has been refined, since the root tree node is then
// interior and no longer owns a vertex; callers that need "the current
// leaves covering the state space" want Leaves, and callers that need
// the root box itself regardless of refinement want RootEnclosure.
func (rt *RefinementTree) Root() NodeHandle {
	v, ok := rt.vertexOf[rt.tr.Root()]
	if !ok {
		panic("refinement: root has been refined and no longer addresses a single vertex")
	}
	return v
}

// Sink returns the distinguished outside vertex.
func (rt *RefinementTree) Sink() NodeHandle { return rt.sink }

// RootEnclosure returns the box the whole tree was built over. Unlike
// Root, this stays valid for the tree's entire lifetime: the root tree
// node's own value never changes, only whether it is still a leaf.
func (rt *RefinementTree) RootEnclosure() numeric.Enclosure {
	return rt.tr.Value(rt.tr.Root()).Enclosure
}

// NodeValue returns the tree payload a vertex stands for. The second
// return is false exactly when h is the outside sink.
func (rt *RefinementTree) NodeValue(h NodeHandle) (*TreeValue, bool) {
	ref := rt.graph.Value(h)
	if ref.sink {
		return nil, false
	}
	v := rt.tr.Value(ref.node)
	return &v, true
}

// IsSafe reports whether h's enclosure has been shown to overlap the
// safe region. The outside sink stands for every state that has left
// the root box entirely, which is by definition not part of the safe
// region tracked by the constraints -- its safety flag is the fixed
// value False, not merely Indeterminate.
func (rt *RefinementTree) IsSafe(h NodeHandle) kleenean.Lower {
	v, ok := rt.NodeValue(h)
	if !ok {
		return kleenean.LowerFalse()
	}
	return v.Safe
}

// NodesEqual is the loop-avoidance comparison used by counterexample
// search: two sink references are always equal, a sink and a real leaf
// are never equal, and two real leaves are equal iff their enclosures are.
func (rt *RefinementTree) NodesEqual(a, b NodeHandle) kleenean.Lower {
	va, aok := rt.NodeValue(a)
	vb, bok := rt.NodeValue(b)
	if !aok && !bok {
		return kleenean.LowerTrue()
	}
	if aok != bok {
		return kleenean.LowerFalse()
	}
	return va.Enclosure.Equal(vb.Enclosure)
}

// Leaves returns the graph vertex of every current tree leaf, in the
// tree's stable DFS order. The outside sink is not included.
func (rt *RefinementTree) Leaves() []NodeHandle {
	leaves := rt.tr.Leaves(rt.tr.Root())
	out := make([]NodeHandle, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, rt.vertexOf[l])
	}
	return out
}

// Image returns the vertices whose enclosure possibly overlaps e,
// plus the outside sink if e is not definitely contained in the
// current root box. This is how an arbitrary set (the system's
// initial condition, typically) is located within the abstraction.
func (rt *RefinementTree) Image(e numeric.Enclosure) []NodeHandle {
	return rt.imageAmong(e, rt.tr.Leaves(rt.tr.Root()))
}

// ImageAmong restricts the overlap test to a specific set of vertices
// instead of every current leaf -- no sink membership check is added.
// A CEGAR driver uses this to relocate the part of a stale image that
// pointed at a node which has just been split, by passing that node's
// freshly returned children.
func (rt *RefinementTree) ImageAmong(e numeric.Enclosure, candidates []NodeHandle) []NodeHandle {
	var out []NodeHandle
	for _, v := range candidates {
		val, ok := rt.NodeValue(v)
		if !ok {
			out = append(out, v) // the sink is trivially a candidate for any escaping set
			continue
		}
		inter := val.Enclosure.Intersection(e)
		if !kleenean.Definitely(inter.IsEmpty()) {
			out = append(out, v)
		}
	}
	return out
}

func (rt *RefinementTree) imageAmong(e numeric.Enclosure, leaves []tree.NodeHandle) []NodeHandle {
	var out []NodeHandle
	for _, leaf := range leaves {
		lv := rt.tr.Value(leaf)
		inter := lv.Enclosure.Intersection(e)
		if !kleenean.Definitely(inter.IsEmpty()) {
			out = append(out, rt.vertexOf[leaf])
		}
	}
	root := rt.tr.Value(rt.tr.Root())
	within := root.Enclosure.Intersection(e).Equal(e)
	if !kleenean.Definitely(within) {
		out = append(out, rt.sink)
	}
	return out
}

// computeEdgesFrom adds v's outgoing edges: the image of leaf's box
// under the dynamics, located among the current leaves (plus the sink
// if the image possibly escapes the root box). Existing edges from v
// to targets already found are left alone -- AddEdge is idempotent.
func (rt *RefinementTree) computeEdgesFrom(v NodeHandle, leaf tree.NodeHandle) {
	lv := rt.tr.Value(leaf)
	img := lv.Enclosure.Image(rt.dynamics)
	for _, target := range rt.Image(img) {
		rt.graph.AddEdge(v, target)
	}
}

// computeEdgesAmong is computeEdgesFrom restricted to a candidate
// target list plus the same O(1) escapes-the-root check imageAmong
// uses for the sink, instead of a full scan of every current leaf.
// Refine uses this to recompute a neighbourhood rather than the whole
// abstraction.
func (rt *RefinementTree) computeEdgesAmong(v NodeHandle, leaf tree.NodeHandle, targets []NodeHandle) {
	lv := rt.tr.Value(leaf)
	img := lv.Enclosure.Image(rt.dynamics)
	for _, target := range rt.ImageAmong(img, targets) {
		rt.graph.AddEdge(v, target)
	}
	root := rt.tr.Value(rt.tr.Root())
	within := root.Enclosure.Intersection(img).Equal(img)
	if !kleenean.Definitely(within) {
		rt.graph.AddEdge(v, rt.sink)
	}
}

// excludeHandle returns hs with every occurrence of x removed,
// preserving order.
func excludeHandle(hs []NodeHandle, x NodeHandle) []NodeHandle {
	out := make([]NodeHandle, 0, len(hs))
	for _, h := range hs {
		if h != x {
			out = append(out, h)
		}
	}
	return out
}

// Postimage returns the vertices h's box possibly maps into under the
// dynamics, as cached in the digraph. The edges are computed when h is
// created (construction, or the refine that created h) and updated when
// a neighbour of h is refined.
func (rt *RefinementTree) Postimage(h NodeHandle) []NodeHandle {
	return rt.graph.OutEdges(h)
}

// Preimage returns the vertices whose cached image possibly includes h.
func (rt *RefinementTree) Preimage(h NodeHandle) []NodeHandle {
	return rt.graph.InEdges(h)
}

// IsReachable is a single dynamics evaluation, not a path search: it
// reports whether the image of src's box under the dynamics possibly
// overlaps trg's box. Because the image is an over-approximation, an
// overlap only shows trg is possibly reached in one step; failing to
// overlap is a sound proof that trg is definitely not reached in one
// step, which is exactly the direction an Upper Kleenean can promise.
// This is the same one-step test computeEdgesFrom/computeEdgesAmong
// use to decide whether to add an edge in the first place -- IsReachable
// exposes it directly, for a caller that wants the answer without
// mutating or having already mutated the cached graph.
//
// If trg is the outside sink, the test becomes "does the image escape
// the root box" instead of an intersection with a box the sink does not
// have. A src of the outside sink has no box to evaluate the dynamics
// on, so the answer is always Indeterminate.
func (rt *RefinementTree) IsReachable(src, trg NodeHandle) kleenean.Upper {
	srcVal, ok := rt.NodeValue(src)
	if !ok {
		return kleenean.UpperOf(kleenean.Indeterminate)
	}
	img := srcVal.Enclosure.Image(rt.dynamics)

	trgVal, ok := rt.NodeValue(trg)
	if !ok {
		root := rt.tr.Value(rt.tr.Root())
		within := root.Enclosure.Intersection(img).Equal(img)
		if kleenean.Definitely(within) {
			return kleenean.UpperFalse()
		}
		return kleenean.UpperOf(kleenean.Indeterminate)
	}

	inter := img.Intersection(trgVal.Enclosure)
	if kleenean.Definitely(inter.IsEmpty()) {
		return kleenean.UpperFalse()
	}
	return kleenean.UpperOf(kleenean.Indeterminate)
}

// Refine replaces the leaf at h with Branching() children produced by
// strategy, splitting h's enclosure. It panics if h addresses the sink
// or an already-refined node (the refined node's vertex was removed, so
// the digraph rejects h as stale), and if strategy returns the wrong
// number of pieces.
//
// Only h's former neighbourhood needs edges recomputed: P = preimage(h)
// and S = postimage(h), plus the new children standing in for h itself
// (h's own image, and anything that reached h, only ever concerned
// P ∪ S ∪ {h} to begin with). A child's box is a subset of h's former
// box, so under an inclusion-isotone enclosure its image can only land
// among targets h's image already reached or a fresh sibling; the
// mirror holds for anything that used to reach h. This is the
// neighbourhood-restricted recompute spec's design notes call for --
// refining never rescans every current leaf.
//
// Refine returns the vertices of the newly created children, in the
// order the strategy produced their enclosures, so a caller tracking
// handles into the leaf that was just split (e.g. a CEGAR driver's
// cached image of some other set) can relocate them without a fresh
// full-tree scan.
func (rt *RefinementTree) Refine(h NodeHandle, strategy Strategy) []NodeHandle {
	ref := rt.graph.Value(h)
	if ref.sink {
		panic("refinement: cannot refine the outside sink")
	}
	leaf := ref.node
	oldValue := rt.tr.Value(leaf)

	pieces := strategy.Refine(oldValue.Enclosure)
	if len(pieces) != rt.branching {
		panic(fmt.Sprintf("refinement: strategy produced %d pieces, tree branching is %d", len(pieces), rt.branching))
	}

	childValues := make([]TreeValue, len(pieces))
	for i, p := range pieces {
		childValues[i] = TreeValue{Enclosure: p, Safe: rt.constraints.Overlaps(p)}
	}

	// P and S, excluding h itself and the sink: h's own contribution is
	// replaced by the new children below, and the sink is handled by a
	// direct O(1) containment check rather than by list membership.
	preds := excludeHandle(rt.graph.InEdges(h), h)
	posts := excludeHandle(excludeHandle(rt.graph.OutEdges(h), h), rt.sink)

	childLeaves := rt.tr.Expand(leaf, childValues)

	rt.graph.RemoveVertex(h)
	delete(rt.vertexOf, leaf)

	childVertices := make([]NodeHandle, len(childLeaves))
	for i, cl := range childLeaves {
		cv := rt.graph.AddVertex(leafRef{node: cl})
		rt.vertexOf[cl] = cv
		childVertices[i] = cv
	}

	targets := append(append([]NodeHandle(nil), posts...), childVertices...)
	for i, cv := range childVertices {
		rt.computeEdgesAmong(cv, childLeaves[i], targets)
	}

	for _, p := range preds {
		predRef := rt.graph.Value(p)
		if predRef.sink {
			continue // the sink is never a source of computed edges
		}
		pImg := rt.tr.Value(predRef.node).Enclosure.Image(rt.dynamics)
		for _, target := range rt.ImageAmong(pImg, childVertices) {
			rt.graph.AddEdge(p, target)
		}
	}

	return childVertices
}

// Size returns the current number of tree nodes (interior and leaf),
// the quantity a node budget such as cegar.Run's maxNodes bounds.
func (rt *RefinementTree) Size() int {
	return rt.tr.Size()
}

// ToDOT renders the current abstraction -- leaves and the outside sink
// as nodes, cached postimage edges as arrows -- as Graphviz DOT.
func (rt *RefinementTree) ToDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph refinement {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [fontname=\"Helvetica\"];\n\n")

	for _, v := range rt.graph.Vertices() {
		ref := rt.graph.Value(v)
		if ref.sink {
			sb.WriteString(fmt.Sprintf("  %s [label=\"outside\" shape=doublecircle];\n", v))
			continue
		}
		val := rt.tr.Value(ref.node)
		shape := "box"
		if kleenean.Definitely(val.Safe) {
			shape = "ellipse"
		}
		sb.WriteString(fmt.Sprintf("  %s [label=%q shape=%s];\n", v, fmt.Sprint(val.Enclosure), shape))
	}
	sb.WriteString("\n")

	for _, v := range rt.graph.Vertices() {
		for _, t := range rt.graph.OutEdges(v) {
			sb.WriteString(fmt.Sprintf("  %s -> %s;\n", v, t))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
