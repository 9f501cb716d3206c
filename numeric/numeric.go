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

// Package numeric declares the contracts the CEGAR core consumes from a
// validated numeric kernel: enclosures (boxes), points, dynamics
// (vector functions) and constraint sets. This package intentionally
// contains no arithmetic -- validated interval/box arithmetic is
// deliberately out of scope for the core (see spec §1); it is supplied
// by whatever kernel a caller wires in. The boxnum package is one such
// implementation, used by this module's own tests.
package numeric

import "github.com/latticeproof/cegar/kleenean"

// Effort is the opaque precision/search budget threaded through every
// three-valued predicate evaluated by a numeric kernel.
type Effort = kleenean.Effort

// Point is a validated point in state space. It is opaque to the core;
// the only operations the core needs are supplied by VectorFunction
// (to advance a point) and Enclosure.Contains/Centre (to relate a
// point back to boxes).
type Point interface {
	// Dim returns the point's dimension, used only for the
	// dimensional-compatibility check at construction time (spec §7).
	Dim() int
}

// VectorFunction is a dynamics map advancing one Point to another.
// Evaluate must be a validated point evaluation: given the same input
// it always returns the same output (the core relies on this for
// reproducibility, spec §5).
type VectorFunction interface {
	// Dim returns the function's expected input and output dimension.
	Dim() int
	Evaluate(p Point) Point
}

// Enclosure is an axis-aligned box (or other convex over-approximation)
// over state space. Every predicate below returns a three-valued
// verdict because interval arithmetic over-approximates: Contains and
// IsEmpty are Lower Kleeneans, promising never to assert True wrongly.
// A kernel precise enough to resolve the negative outright (boxnum's
// exact float64 arithmetic does) is free to return a certified False
// rather than fall back to Indeterminate; a kernel that cannot afford
// the extra work may always fall back instead. Equal likewise.
type Enclosure interface {
	// Dim returns the enclosure's dimension.
	Dim() int

	// Contains reports whether p is definitely inside the enclosure.
	Contains(p Point) kleenean.Lower

	// Intersection returns the (possibly empty) intersection of e with
	// other. Emptiness of the result is checked via IsEmpty.
	Intersection(other Enclosure) Enclosure

	// IsEmpty reports whether the enclosure is definitely empty.
	IsEmpty() kleenean.Lower

	// Centre returns a representative point of the enclosure, used by
	// the spuriousness check (C6) to trace a concrete trajectory.
	Centre() Point

	// Image returns an outer enclosure of f applied to e -- an
	// over-approximation of {f(x) : x in e}.
	Image(f VectorFunction) Enclosure

	// Equal reports whether e and other denote the same box, used for
	// the loop-avoidance comparisons in counterexample search
	// (refinement.RefinementTree.NodesEqual).
	Equal(other Enclosure) kleenean.Lower
}

// ConstraintSet describes the "safe" region of state space. Overlaps
// reports whether e is definitely (at least partially) inside the
// region the caller has defined as safe -- this is the predicate
// TreeValue.Safe is built from (spec §3).
type ConstraintSet interface {
	Overlaps(e Enclosure) kleenean.Lower
}
