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

// Package locator selects which nodes along a candidate counterexample
// path get refined once the path has been found spurious. Refining
// more of the path converges in fewer CEGAR iterations at the cost of
// more nodes per iteration; refining less does the opposite.
package locator

import "github.com/latticeproof/cegar/refinement"

// Locator picks a subset of path to hand to RefinementTree.Refine.
// path is ordered from the initial-set image to the terminal node the
// counterexample search stopped at; a Locator must not mutate it.
type Locator interface {
	Locate(path []refinement.NodeHandle) []refinement.NodeHandle
}

// None refines nothing, regardless of path. Pairing it with a single
// CEGAR iteration is how a caller demonstrates that step left the
// abstraction untouched -- there is no smaller refinement than none.
type None struct{}

func (None) Locate(path []refinement.NodeHandle) []refinement.NodeHandle { return nil }

// All refines every node along the path. This converges in the fewest
// CEGAR iterations but does the most refinement work per iteration.
type All struct{}

func (All) Locate(path []refinement.NodeHandle) []refinement.NodeHandle {
	out := make([]refinement.NodeHandle, len(path))
	copy(out, path)
	return out
}

// Terminal refines only the last node of the path -- the one whose
// safety verdict actually terminated the search. This is the smallest
// possible per-iteration refinement, trading more CEGAR iterations for
// cheaper ones.
type Terminal struct{}

func (Terminal) Locate(path []refinement.NodeHandle) []refinement.NodeHandle {
	if len(path) == 0 {
		return nil
	}
	return []refinement.NodeHandle{path[len(path)-1]}
}

// AllButTerminal refines every node along the path except the terminal
// one. It is a useful default when the terminal node's own safety
// verdict is expected to sharpen on its own once its neighbours split
// (e.g. a leaf that only looks unsafe because a coarse predecessor's
// image over-approximates past it).
type AllButTerminal struct{}

func (AllButTerminal) Locate(path []refinement.NodeHandle) []refinement.NodeHandle {
	if len(path) <= 1 {
		return nil
	}
	out := make([]refinement.NodeHandle, len(path)-1)
	copy(out, path[:len(path)-1])
	return out
}

// EveryNth refines every Nth node along the path (1-indexed from the
// start), always including the terminal node regardless of where the
// stride lands, since that node is the one the path actually failed at.
type EveryNth struct {
	N int
}

func (e EveryNth) Locate(path []refinement.NodeHandle) []refinement.NodeHandle {
	if e.N < 1 {
		panic("locator: EveryNth.N must be at least 1")
	}
	if len(path) == 0 {
		return nil
	}
	var out []refinement.NodeHandle
	for i := e.N - 1; i < len(path); i += e.N {
		out = append(out, path[i])
	}
	last := path[len(path)-1]
	if len(out) == 0 || out[len(out)-1] != last {
		out = append(out, last)
	}
	return out
}
