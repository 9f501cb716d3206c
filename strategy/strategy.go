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

// Package strategy provides refinement.Strategy implementations. Every
// strategy in this package operates on boxnum.Box; a caller wiring in
// a different numeric kernel needs its own strategy that knows how to
// split that kernel's Enclosure representation.
package strategy

import (
	"fmt"

	"github.com/latticeproof/cegar/boxnum"
	"github.com/latticeproof/cegar/numeric"
)

// Bisect splits a box in half along the single axis Axis. It always
// produces exactly 2 pieces, so a RefinementTree built to use it must
// be constructed with branching 2.
type Bisect struct {
	// Axis selects which coordinate to split. Successive calls do not
	// advance it automatically -- callers that want round-robin
	// splitting across dimensions should construct a fresh Bisect (or
	// AxisRoundRobin, below) for each refinement.
	Axis int
}

func (b Bisect) Refine(e numeric.Enclosure) []numeric.Enclosure {
	box := e.(boxnum.Box)
	if b.Axis < 0 || b.Axis >= box.Dim() {
		panic(fmt.Sprintf("strategy: axis %d out of range for a %d-dimensional box", b.Axis, box.Dim()))
	}
	lo, hi := box.Lo[b.Axis], box.Hi[b.Axis]
	mid := lo + (hi-lo)/2

	left := cloneBox(box)
	left.Hi[b.Axis] = mid
	right := cloneBox(box)
	right.Lo[b.Axis] = mid

	return []numeric.Enclosure{left, right}
}

func cloneBox(b boxnum.Box) boxnum.Box {
	out := boxnum.Box{Lo: make([]float64, len(b.Lo)), Hi: make([]float64, len(b.Hi))}
	copy(out.Lo, b.Lo)
	copy(out.Hi, b.Hi)
	return out
}

// AxisRoundRobin picks the axis to bisect based on tree depth, cycling
// through all of a box's dimensions so that refinement does not
// perpetually narrow the same coordinate. Depth is supplied by the
// caller (refinement.RefinementTree does not itself track depth,
// see spec discussion of node lifecycle); cegar.Run passes its strategy
// through unchanged and does not set it.
type AxisRoundRobin struct {
	Depth int
}

func (r AxisRoundRobin) Refine(e numeric.Enclosure) []numeric.Enclosure {
	box := e.(boxnum.Box)
	axis := r.Depth % box.Dim()
	return Bisect{Axis: axis}.Refine(e)
}
