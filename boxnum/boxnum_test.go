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

package boxnum

import (
	"testing"

	"github.com/latticeproof/cegar/kleenean"
)

func TestContainsInsideAndOutside(t *testing.T) {
	b := Interval1D(0, 1)
	if !kleenean.Definitely(b.Contains(Point{0.5})) {
		t.Error("0.5 should be definitely inside [0,1]")
	}
	if kleenean.Definitely(b.Contains(Point{2})) {
		t.Error("2 should not be definitely inside [0,1]")
	}
	// Exact float64 comparison against the bounds means "outside" is
	// certain too, not merely unresolved.
	if kleenean.Possibly(b.Contains(Point{2})) {
		t.Error("2 is exactly outside [0,1]; Contains should certify False")
	}
}

func TestIntersectionAndEmpty(t *testing.T) {
	a := Interval1D(0, 1)
	b := Interval1D(2, 3)
	inter := a.Intersection(b).(Box)
	if !kleenean.Definitely(inter.IsEmpty()) {
		t.Error("[0,1] and [2,3] should not intersect")
	}

	c := Interval1D(0.5, 2)
	inter2 := a.Intersection(c).(Box)
	if kleenean.Definitely(inter2.IsEmpty()) {
		t.Error("[0,1] and [0.5,2] should intersect")
	}
}

func TestCentre(t *testing.T) {
	b := Interval1D(0, 2)
	c := b.Centre().(Point)
	if c[0] != 1 {
		t.Errorf("Centre() = %v, want [1]", c)
	}
}

func TestImageOfAffineFunction(t *testing.T) {
	b := Interval1D(0, 2)
	half := NewFunc(1, func(p Point) Point { return Point{p[0] / 2} })
	img := b.Image(half).(Box)
	if img.Lo[0] != 0 || img.Hi[0] != 1 {
		t.Errorf("Image(x/2) of [0,2] = %v, want [0,1]", img)
	}
}

func TestEqual(t *testing.T) {
	a := Interval1D(0, 1)
	b := Interval1D(0, 1)
	c := Interval1D(0, 2)
	if !kleenean.Definitely(a.Equal(b)) {
		t.Error("identical boxes should compare equal")
	}
	if kleenean.Definitely(a.Equal(c)) {
		t.Error("different boxes should not compare equal")
	}
}

func TestConstraintsOverlaps(t *testing.T) {
	safe := Constraints{Safe: Interval1D(-1, 1)}
	inside := Interval1D(0, 0.5)
	outside := Interval1D(2, 3)

	if !kleenean.Definitely(safe.Overlaps(inside)) {
		t.Error("[0,0.5] should overlap safe region [-1,1]")
	}
	if kleenean.Definitely(safe.Overlaps(outside)) {
		t.Error("[2,3] should not be provably overlapping [-1,1]")
	}
	// Exact float64 bounds let Overlaps certify disjointness outright
	// rather than fall back to Indeterminate.
	if !kleenean.Definitely(safe.Overlaps(outside).Not()) {
		t.Error("[2,3] is exactly disjoint from [-1,1]; Overlaps should certify False")
	}
}
