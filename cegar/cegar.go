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

// Package cegar drives counterexample-guided abstraction refinement
// over a refinement.RefinementTree: search for a candidate unsafe
// trajectory, check it for spuriousness against the real dynamics, and
// refine the abstraction where the check failed. It composes
// components C5 (counterexample search), C6 (spuriousness check) and
// C7 (the driver loop).
package cegar

import (
	"time"

	"github.com/latticeproof/cegar/kleenean"
	"github.com/latticeproof/cegar/locator"
	"github.com/latticeproof/cegar/numeric"
	"github.com/latticeproof/cegar/refinement"
	"github.com/latticeproof/cegar/runctx"
)

// Path is a candidate trajectory through the abstraction, ordered from
// the initial set's image to the node the search stopped at.
type Path []refinement.NodeHandle

// PostimageOrder controls the order counterexample search visits a
// node's postimage in. StableOrder and ReverseOrder cover the common
// cases; a caller can supply anything, e.g. an ordering biased toward
// unsafe-looking nodes, the same way a work queue can be BFS, DFS or
// priority-ordered.
type PostimageOrder func(nodes []refinement.NodeHandle) []refinement.NodeHandle

// StableOrder visits a node's postimage in the order the digraph
// reports it, which is edge insertion order (see
// digraph.Graph.OutEdges).
func StableOrder(nodes []refinement.NodeHandle) []refinement.NodeHandle { return nodes }

// ReverseOrder visits a node's postimage back to front.
func ReverseOrder(nodes []refinement.NodeHandle) []refinement.NodeHandle {
	out := make([]refinement.NodeHandle, len(nodes))
	for i, n := range nodes {
		out[len(nodes)-1-i] = n
	}
	return out
}

// FindCounterexample runs a depth-first search from images, the
// abstraction nodes the initial set was located in, stopping the first
// time it reaches a node that is not definitely safe. A branch already
// visited on the current path is not revisited -- comparisons use
// rt.NodesEqual rather than handle identity, so two distinct leaf
// vertices whose enclosures compare equal also count as a loop.
//
// It returns nil if every path from images stays definitely safe
// without ever looping back on itself, which for a finite abstraction
// means the search terminates having found nothing.
func FindCounterexample(rt *refinement.RefinementTree, images []refinement.NodeHandle, order PostimageOrder) Path {
	if order == nil {
		order = StableOrder
	}
	return findCounterexample(rt, order(images), nil, order)
}

func findCounterexample(rt *refinement.RefinementTree, images []refinement.NodeHandle, path Path, order PostimageOrder) Path {
	for _, n := range images {
		if pathContains(rt, path, n) {
			continue
		}
		extended := append(append(Path(nil), path...), n)
		if !kleenean.Definitely(rt.IsSafe(n)) {
			return extended
		}
		post := order(rt.Postimage(n))
		if cex := findCounterexample(rt, post, extended, order); cex != nil {
			return cex
		}
	}
	return nil
}

func pathContains(rt *refinement.RefinementTree, path Path, n refinement.NodeHandle) bool {
	for _, p := range path {
		if kleenean.Definitely(rt.NodesEqual(n, p)) {
			return true
		}
	}
	return false
}

// IsSpurious checks whether path is an artifact of over-approximation
// rather than a real trajectory, by tracing the representative centre
// point of path's first node forward through the actual dynamics and
// checking it stays inside each subsequent node's enclosure.
//
// A False result (Definitely(IsSpurious(...).Not())) certifies path is
// a genuine counterexample: some real point follows exactly that
// route into an unsafe state. Anything else -- including a definite
// escape from the traced trajectory -- only means the check could not
// confirm it, never that the path is safe.
func IsSpurious(rt *refinement.RefinementTree, path Path, initialEnclosure numeric.Enclosure, initialImage []refinement.NodeHandle) kleenean.Upper {
	if len(path) == 0 {
		panic("cegar: IsSpurious requires a non-empty path")
	}

	beginVal, ok := rt.NodeValue(path[0])
	if !ok {
		return spuriousFromEscapedStart(rt, initialEnclosure, initialImage)
	}

	currPoint := beginVal.Enclosure.Centre()
	if !anyPossiblyContains(rt, initialImage, currPoint) {
		return kleenean.UpperOf(kleenean.True)
	}

	for i := 0; i+1 < len(path); i++ {
		mapped := rt.Dynamics().Evaluate(currPoint)
		nextVal, nextOk := rt.NodeValue(path[i+1])

		var stillOnTrack bool
		if nextOk {
			stillOnTrack = kleenean.Possibly(nextVal.Enclosure.Contains(mapped))
		} else {
			stillOnTrack = !kleenean.Definitely(rt.RootEnclosure().Contains(mapped))
		}
		if !stillOnTrack {
			return kleenean.UpperOf(kleenean.True) // trajectory diverged from the candidate path
		}
		currPoint = mapped
	}
	return kleenean.UpperFalse()
}

// spuriousFromEscapedStart handles the case where the counterexample
// path begins at the outside sink: there is no single representative
// point to trace, so the check falls back to asking whether every node
// the initial set was located in is fully covered by the initial set.
// If not, some point near the boundary really could already be outside,
// which is enough to call the escape genuine.
func spuriousFromEscapedStart(rt *refinement.RefinementTree, initialEnclosure numeric.Enclosure, initialImage []refinement.NodeHandle) kleenean.Upper {
	for _, n := range initialImage {
		nv, ok := rt.NodeValue(n)
		if !ok {
			continue
		}
		inter := initialEnclosure.Intersection(nv.Enclosure)
		if !kleenean.Definitely(inter.Equal(nv.Enclosure)) {
			return kleenean.UpperFalse()
		}
	}
	return kleenean.UpperOf(kleenean.True)
}

func anyPossiblyContains(rt *refinement.RefinementTree, nodes []refinement.NodeHandle, p numeric.Point) bool {
	for _, n := range nodes {
		nv, ok := rt.NodeValue(n)
		if !ok {
			continue
		}
		if kleenean.Possibly(nv.Enclosure.Contains(p)) {
			return true
		}
	}
	return false
}

// RunStats reports how much work a Run call did, for logging and
// metrics -- it plays no part in the returned verdict.
type RunStats struct {
	Iterations int
	NodesFinal int
	Duration   time.Duration
}

// Run is the C7 driver: repeatedly search for a counterexample, check
// it for spuriousness, and refine the nodes a Locator selects, until
// either no counterexample remains (proved safe), a genuine one
// survives the spuriousness check (proved unsafe), or the tree's size
// reaches maxNodes (budget exhausted, Indeterminate).
func Run(rt *refinement.RefinementTree, initialEnclosure numeric.Enclosure, strategy refinement.Strategy, loc locator.Locator, order PostimageOrder, maxNodes int, clk runctx.Clock, log runctx.Logger, metrics runctx.MetricsCollector) (kleenean.Kleenean, Path, RunStats) {
	start := clk.Now()
	if log == nil {
		log = runctx.NoOpLogger{}
	}
	if metrics == nil {
		metrics = runctx.NoOpMetrics{}
	}

	initialImage := rt.Image(initialEnclosure)
	stats := RunStats{}

	for rt.Size() < maxNodes {
		stats.Iterations++
		metrics.Inc("cegar_iterations_total")

		cex := FindCounterexample(rt, initialImage, order)
		if cex == nil {
			log.Info("cegar: no counterexample found, system is safe", map[string]interface{}{"iterations": stats.Iterations})
			stats.NodesFinal = rt.Size()
			stats.Duration = clk.Now().Sub(start)
			return kleenean.Of(kleenean.True), nil, stats
		}

		spurious := IsSpurious(rt, cex, initialEnclosure, initialImage)
		if kleenean.Definitely(spurious.Not()) && kleenean.Definitely(rt.IsSafe(cex[len(cex)-1]).Not()) {
			log.Info("cegar: confirmed genuine counterexample", map[string]interface{}{"iterations": stats.Iterations, "path_length": len(cex)})
			stats.NodesFinal = rt.Size()
			stats.Duration = clk.Now().Sub(start)
			return kleenean.Of(kleenean.False), cex, stats
		}

		log.Debug("cegar: refining spurious counterexample", map[string]interface{}{"path_length": len(cex)})
		for _, n := range loc.Locate([]refinement.NodeHandle(cex)) {
			if n == rt.Sink() {
				continue // the outside sink can never be refined
			}
			wasInInitialImage := containsHandle(initialImage, n)
			children := rt.Refine(n, strategy)
			if wasInInitialImage {
				initialImage = removeHandle(initialImage, n)
				initialImage = append(initialImage, rt.ImageAmong(initialEnclosure, children)...)
			}
		}
		metrics.Set("cegar_tree_size", float64(rt.Size()))
	}

	log.Info("cegar: node budget exhausted", map[string]interface{}{"max_nodes": maxNodes})
	stats.NodesFinal = rt.Size()
	stats.Duration = clk.Now().Sub(start)
	return kleenean.Of(kleenean.Indeterminate), nil, stats
}

func containsHandle(hs []refinement.NodeHandle, h refinement.NodeHandle) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}

func removeHandle(hs []refinement.NodeHandle, h refinement.NodeHandle) []refinement.NodeHandle {
	out := hs[:0:0]
	for _, x := range hs {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}
