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

package cegar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/latticeproof/cegar/boxnum"
	"github.com/latticeproof/cegar/kleenean"
	"github.com/latticeproof/cegar/locator"
	"github.com/latticeproof/cegar/refinement"
	"github.com/latticeproof/cegar/runctx"
	"github.com/latticeproof/cegar/strategy"
)

func identity() boxnum.Func {
	return boxnum.NewFunc(1, func(p boxnum.Point) boxnum.Point { return p })
}

// TestRunProvesTriviallySafeSystem covers a system whose whole domain
// is inside the safe region and never leaves it: no refinement should
// ever be necessary.
func TestRunProvesTriviallySafeSystem(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(-10, 10)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	verdict, cex, stats := Run(rt, boxnum.Interval1D(0, 1), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 100, runctx.RealClock{}, nil, nil)

	require.True(t, kleenean.Definitely(verdict))
	require.Nil(t, cex)
	require.Equal(t, 1, stats.Iterations)
}

// TestRunDisprovesImmediatelyUnsafeSystem covers a system whose
// initial set starts entirely outside the safe region: the very first
// search should terminate at an unsafe leaf with no refinement needed.
func TestRunDisprovesImmediatelyUnsafeSystem(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 10),
		boxnum.Constraints{Safe: boxnum.Interval1D(-1, -0.5)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	verdict, cex, _ := Run(rt, boxnum.Interval1D(0, 1), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 100, runctx.RealClock{}, nil, nil)

	require.True(t, kleenean.Definitely(verdict.Not()))
	require.NotEmpty(t, cex)
}

// TestRunExhaustsBudget covers a maxNodes so small the driver cannot
// finish either proof before giving up.
func TestRunExhaustsBudget(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 10),
		boxnum.Constraints{Safe: boxnum.Interval1D(4, 6)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	verdict, cex, stats := Run(rt, boxnum.Interval1D(0, 10), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 1, runctx.RealClock{}, nil, nil)

	require.Equal(t, kleenean.Indeterminate, verdict.Value())
	require.Nil(t, cex)
	require.Equal(t, 1, stats.NodesFinal)
}

// TestRunUsesVirtualClockForStats exercises the runctx.Clock plumbing:
// RunStats.Duration should reflect exactly what the clock reports
// elapsing, with no dependency on wall-clock time.
func TestRunUsesVirtualClockForStats(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(-10, 10)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	clk := runctx.NewVirtualClock(time.Unix(0, 0))
	_, _, stats := Run(rt, boxnum.Interval1D(0, 1), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 100, clk, nil, nil)
	require.Equal(t, time.Duration(0), stats.Duration)
}

func TestFindCounterexampleNilWhenAllSafe(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(-10, 10)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	cex := FindCounterexample(rt, []refinement.NodeHandle{rt.Root()}, nil)
	require.Nil(t, cex)
}

func TestFindCounterexampleAvoidsRevisitingLoop(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(-10, 10)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	// Under identity dynamics, the single leaf maps to itself: without
	// loop avoidance this recursion never terminates.
	done := make(chan Path, 1)
	go func() { done <- FindCounterexample(rt, []refinement.NodeHandle{rt.Root()}, nil) }()
	select {
	case cex := <-done:
		require.Nil(t, cex)
	case <-time.After(2 * time.Second):
		t.Fatal("FindCounterexample did not terminate on a self-loop")
	}
}

func TestIsSpuriousConfirmsGenuineCounterexample(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 10),
		boxnum.Constraints{Safe: boxnum.Interval1D(20, 30)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	initialImage := rt.Image(boxnum.Interval1D(0, 10))
	path := Path{rt.Root()}
	spurious := IsSpurious(rt, path, boxnum.Interval1D(0, 10), initialImage)
	require.True(t, kleenean.Definitely(spurious.Not()), "identity dynamics should confirm the path as a genuine, non-spurious counterexample")
}

// TestNoOpLocatorLeavesTreeUnchanged covers idempotence of empty
// refinement: a locator that selects nothing must leave the
// abstraction exactly as it was, even when a spurious counterexample
// was found and would ordinarily drive a refinement.
func TestNoOpLocatorLeavesTreeUnchanged(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(-10, 10),
		boxnum.Constraints{Safe: boxnum.Interval1D(0, 1e9)},
		boxnum.NewFunc(1, func(p boxnum.Point) boxnum.Point { return boxnum.Point{p[0] + 1} }),
		0, 2,
	)
	require.NoError(t, err)

	initialImage := rt.Image(boxnum.Interval1D(0, 0.1))
	cex := FindCounterexample(rt, initialImage, nil)
	require.NotEmpty(t, cex, "a corner escape from the root box should surface a candidate counterexample")

	before := rt.ToDOT()
	for _, n := range (locator.None{}).Locate(cex) {
		rt.Refine(n, strategy.Bisect{Axis: 0})
	}
	require.Equal(t, before, rt.ToDOT(), "an iteration whose locator selects nothing must leave the abstraction unchanged")
}

// TestProvedSafeIsStableUnderLargerBudget covers proved-safe
// stability: once Run proves a system safe, running it again on the
// same tree with a larger maxNodes must return the same verdict.
func TestProvedSafeIsStableUnderLargerBudget(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(-10, 10)},
		identity(), 0, 2,
	)
	require.NoError(t, err)

	verdict1, cex1, _ := Run(rt, boxnum.Interval1D(0, 1), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 5, runctx.RealClock{}, nil, nil)
	require.True(t, kleenean.Definitely(verdict1))
	require.Nil(t, cex1)

	verdict2, cex2, _ := Run(rt, boxnum.Interval1D(0, 1), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 500, runctx.RealClock{}, nil, nil)
	require.True(t, kleenean.Definitely(verdict2))
	require.Nil(t, cex2)
}

// TestProvedUnsafeWitnessSimulatesAlongEveryPathNode covers the
// proved-unsafe witness law: tracing the representative centre point
// of a returned counterexample's first node through the real dynamics
// must possibly land in every subsequent node's box -- or, once the
// witness reaches the outside sink, must have actually left the root
// box, which is what that sink stands for.
func TestProvedUnsafeWitnessSimulatesAlongEveryPathNode(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(-1, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(0, 100)},
		boxnum.NewFunc(1, func(p boxnum.Point) boxnum.Point { return boxnum.Point{p[0] + 3} }),
		0, 2,
	)
	require.NoError(t, err)

	verdict, cex, _ := Run(rt, boxnum.Interval1D(-1, 1), strategy.Bisect{Axis: 0}, locator.Terminal{}, nil, 100, runctx.RealClock{}, nil, nil)
	require.True(t, kleenean.Definitely(verdict.Not()))
	require.Len(t, cex, 2, "the corner escape past +3 should reach the outside sink in one hop from the root")

	beginVal, ok := rt.NodeValue(cex[0])
	require.True(t, ok, "an unsafe witness should not begin at the outside sink")
	point := beginVal.Enclosure.Centre()

	for i, n := range cex {
		val, ok := rt.NodeValue(n)
		if ok {
			require.True(t, kleenean.Possibly(val.Enclosure.Contains(point)), "simulated point should possibly land in path node %d", i)
		} else {
			require.True(t, kleenean.Definitely(rt.RootEnclosure().Contains(point).Not()), "the witness should have actually left the root box at the outside sink")
		}
		if i+1 < len(cex) {
			point = rt.Dynamics().Evaluate(point)
		}
	}
}

// TestScenarioEventuallyProvedSafe covers the "eventually proved safe"
// end-to-end scenario: contracting dynamics inside a safe root region
// resolves to True within the node budget.
func TestScenarioEventuallyProvedSafe(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 0.5),
		boxnum.Constraints{Safe: boxnum.Interval1D(-1, 1)},
		boxnum.NewFunc(1, func(p boxnum.Point) boxnum.Point { return boxnum.Point{p[0] / 2} }),
		0, 2,
	)
	require.NoError(t, err)

	verdict, cex, stats := Run(rt, boxnum.Interval1D(0, 0.5), strategy.Bisect{Axis: 0}, locator.AllButTerminal{}, nil, 7, runctx.RealClock{}, nil, nil)

	require.True(t, kleenean.Definitely(verdict))
	require.Nil(t, cex)
	require.LessOrEqual(t, stats.NodesFinal, 7)
}

func TestReverseOrderReversesSlice(t *testing.T) {
	rt, err := refinement.New(
		boxnum.Interval1D(0, 1),
		boxnum.Constraints{Safe: boxnum.Interval1D(-1, 1)},
		identity(), 0, 2,
	)
	require.NoError(t, err)
	nodes := []refinement.NodeHandle{rt.Root(), rt.Sink()}
	rev := ReverseOrder(nodes)
	require.Equal(t, []refinement.NodeHandle{rt.Sink(), rt.Root()}, rev)
	require.Equal(t, nodes, StableOrder(nodes))
}
