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

// Package boxnum is a plain float64 reference implementation of the
// numeric package's contracts. It is not a validated numeric kernel --
// there is no rounding-mode control and every predicate resolves
// exactly, so it returns kleenean.Indeterminate only when Contains or
// Equal is given an argument of another type or dimension. It
// exists to exercise refinement and cegar end to end in this module's
// own test suite and examples, without depending on any external
// validated-arithmetic library.
package boxnum

import (
	"fmt"
	"math"

	"github.com/latticeproof/cegar/kleenean"
	"github.com/latticeproof/cegar/numeric"
)

// Point is an n-dimensional point with exact float64 coordinates.
type Point []float64

func (p Point) Dim() int { return len(p) }

// Box is an axis-aligned hyperrectangle: Lo[i] <= x[i] <= Hi[i].
type Box struct {
	Lo, Hi []float64
}

// New builds a Box from paired (lo, hi) bounds, one pair per dimension.
func New(bounds ...[2]float64) Box {
	b := Box{Lo: make([]float64, len(bounds)), Hi: make([]float64, len(bounds))}
	for i, p := range bounds {
		b.Lo[i], b.Hi[i] = p[0], p[1]
	}
	return b
}

// Interval1D is a convenience constructor for the common 1-D case used
// throughout this module's tests and examples.
func Interval1D(lo, hi float64) Box {
	return New([2]float64{lo, hi})
}

func (b Box) Dim() int { return len(b.Lo) }

func (b Box) String() string {
	s := "["
	for i := range b.Lo {
		if i > 0 {
			s += "x"
		}
		s += fmt.Sprintf("%g,%g", b.Lo[i], b.Hi[i])
	}
	return s + "]"
}

const epsilon = 1e-9

func (b Box) Contains(p numeric.Point) kleenean.Lower {
	pt, ok := p.(Point)
	if !ok || len(pt) != len(b.Lo) {
		return kleenean.LowerOf(kleenean.Indeterminate)
	}
	for i := range b.Lo {
		if pt[i] < b.Lo[i]-epsilon || pt[i] > b.Hi[i]+epsilon {
			return kleenean.LowerFalse()
		}
	}
	return kleenean.LowerTrue()
}

func (b Box) Intersection(other numeric.Enclosure) numeric.Enclosure {
	ob, ok := other.(Box)
	if !ok || ob.Dim() != b.Dim() {
		return Box{}
	}
	out := Box{Lo: make([]float64, b.Dim()), Hi: make([]float64, b.Dim())}
	for i := range b.Lo {
		out.Lo[i] = math.Max(b.Lo[i], ob.Lo[i])
		out.Hi[i] = math.Min(b.Hi[i], ob.Hi[i])
	}
	return out
}

func (b Box) IsEmpty() kleenean.Lower {
	if len(b.Lo) == 0 {
		return kleenean.LowerTrue()
	}
	for i := range b.Lo {
		if b.Lo[i] > b.Hi[i]+epsilon {
			return kleenean.LowerTrue()
		}
	}
	return kleenean.LowerFalse()
}

func (b Box) Centre() numeric.Point {
	c := make(Point, len(b.Lo))
	for i := range b.Lo {
		c[i] = (b.Lo[i] + b.Hi[i]) / 2
	}
	return c
}

func (b Box) Image(f numeric.VectorFunction) numeric.Enclosure {
	vf, ok := f.(Func)
	if !ok {
		panic("boxnum: Image requires a boxnum.Func")
	}
	return vf.imageOfBox(b)
}

func (b Box) Equal(other numeric.Enclosure) kleenean.Lower {
	ob, ok := other.(Box)
	if !ok || ob.Dim() != b.Dim() {
		return kleenean.LowerOf(kleenean.Indeterminate)
	}
	for i := range b.Lo {
		if math.Abs(b.Lo[i]-ob.Lo[i]) > epsilon || math.Abs(b.Hi[i]-ob.Hi[i]) > epsilon {
			return kleenean.LowerFalse()
		}
	}
	return kleenean.LowerTrue()
}

// Func is a componentwise dynamics function: each output dimension is
// computed from the full input point independently. It is monotone
// per component is NOT assumed; Image samples the box's corners and
// centre to build an enclosure, which is exact for monotone or affine
// components but is not guaranteed to contain the true image otherwise.
type Func struct {
	dim   int
	Apply func(p Point) Point
}

// NewFunc builds a Func of the given input/output dimension.
func NewFunc(dim int, apply func(p Point) Point) Func {
	return Func{dim: dim, Apply: apply}
}

func (f Func) Dim() int { return f.dim }

func (f Func) Evaluate(p numeric.Point) numeric.Point {
	pt, ok := p.(Point)
	if !ok {
		panic("boxnum: Evaluate requires a boxnum.Point")
	}
	return f.Apply(pt)
}

// imageOfBox evaluates f at every corner of b plus its centre and
// returns the axis-aligned bounding box of the results. This is an
// outer enclosure for the affine and monotone dynamics this module's
// tests and examples use; it is not sound in general for non-monotone
// functions, which is a limitation acceptable in a reference/test
// implementation but not in a real validated numeric kernel.
func (f Func) imageOfBox(b Box) Box {
	n := b.Dim()
	corners := 1 << n
	var lo, hi []float64
	for c := 0; c < corners; c++ {
		p := make(Point, n)
		for i := 0; i < n; i++ {
			if c&(1<<i) != 0 {
				p[i] = b.Hi[i]
			} else {
				p[i] = b.Lo[i]
			}
		}
		out := f.Apply(p)
		if lo == nil {
			lo = append([]float64(nil), out...)
			hi = append([]float64(nil), out...)
			continue
		}
		for i := range out {
			lo[i] = math.Min(lo[i], out[i])
			hi[i] = math.Max(hi[i], out[i])
		}
	}
	centre := b.Centre().(Point)
	cOut := f.Apply(centre)
	for i := range cOut {
		lo[i] = math.Min(lo[i], cOut[i])
		hi[i] = math.Max(hi[i], cOut[i])
	}
	out := Box{Lo: lo, Hi: hi}
	return out
}

// Constraints is a ConstraintSet whose safe region is a single box:
// Overlaps(e) is definitely true iff e intersects the safe box.
type Constraints struct {
	Safe Box
}

func (c Constraints) Overlaps(e numeric.Enclosure) kleenean.Lower {
	inter := c.Safe.Intersection(e).(Box)
	if kleenean.Definitely(inter.IsEmpty()) {
		// Exact float64 bounds, no rounding to hedge against: disjoint
		// means genuinely disjoint, so this Lower is entitled to say so
		// outright rather than fall back to Indeterminate.
		return kleenean.LowerFalse()
	}
	return kleenean.LowerTrue()
}
