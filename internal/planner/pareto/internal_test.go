package pareto

import (
	"testing"

	"evplanner/internal/geo"
	"evplanner/internal/graph"

	"github.com/stretchr/testify/assert"
)

// TestSortAndFilter_Scenario6 covers spec.md §8 scenario 6: three
// non-dominated candidates at 1000, 1010, and 1050 seconds; the 2%
// similarity filter keeps 1000 and 1050 and drops 1010.
func TestSortAndFilter_Scenario6(t *testing.T) {
	results := []Result{
		{Cost: PathCost{TravelTimeS: 1050}},
		{Cost: PathCost{TravelTimeS: 1000}},
		{Cost: PathCost{TravelTimeS: 1010}},
	}

	filtered := sortAndFilter(results, DefaultSimilarityThreshold)

	require := assert.New(t)
	require.Len(filtered, 2)
	require.Equal(1000.0, filtered[0].Cost.TravelTimeS)
	require.Equal(1050.0, filtered[1].Cost.TravelTimeS)
}

func TestSafetyScore_LinearBelowBreakpoint(t *testing.T) {
	assert.Equal(t, 0.5, safetyScore(5000))
}

func TestSafetyScore_LogarithmicAboveBreakpoint(t *testing.T) {
	// At exactly the breakpoint both branches agree at 1.0.
	assert.InDelta(t, 1.0, safetyScore(10000), 1e-9)
	assert.Greater(t, safetyScore(20000), safetyScore(10000))
}

func TestLastReachableNode_ZeroBudgetStaysAtStart(t *testing.T) {
	path := []graph.NodeID{1, 2, 3}
	assert.Equal(t, graph.NodeID(1), lastReachableNode(nil, path, 0))
}

func TestLastReachableNode_WalksUntilBudgetExceeded(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Point: geo.Point{Lat: 0, Lon: 0}})
	g.AddNode(graph.Node{ID: 2, Point: geo.Point{Lat: 0, Lon: 0.05}})
	g.AddNode(graph.Node{ID: 3, Point: geo.Point{Lat: 0, Lon: 0.1}})
	_ = g.AddEdge(1, graph.Edge{Target: 2, LengthM: 3000})
	_ = g.AddEdge(2, graph.Edge{Target: 3, LengthM: 3000})

	path := []graph.NodeID{1, 2, 3}
	assert.Equal(t, graph.NodeID(2), lastReachableNode(g, path, 4.0))
}

func TestAcceptParetoCandidate_RejectsWhenWorseBeyondEpsilon(t *testing.T) {
	existing := []Result{{Cost: PathCost{TravelTimeS: 1000, MaxStationDistanceM: 100}}}
	candidate := Result{Cost: PathCost{TravelTimeS: 1100, MaxStationDistanceM: 110}}

	got := acceptParetoCandidate(existing, candidate, DefaultEpsilon)
	assert.Len(t, got, 1)
	assert.Equal(t, 1000.0, got[0].Cost.TravelTimeS)
}

// TestRecordDominance_CapEvictsWorstEntries exercises the §9 M-entry guard:
// once a node's dominance frontier exceeds DominanceCap, the table is
// truncated to the DominanceCap lexicographically-best (time, maxDist)
// entries, dropping the worst. Five mutually non-dominated pairs (time
// increasing, maxDist decreasing) are inserted one at a time against a cap
// of 3; the two with the largest time should be evicted.
func TestRecordDominance_CapEvictsWorstEntries(t *testing.T) {
	s := &searcher{
		params:    Params{DominanceCap: 3}.withDefaults(),
		dominance: make(map[graph.NodeID][]dominancePair),
	}

	for i := 0; i < 5; i++ {
		s.recordDominance(1, dominancePair{time: float64(i), maxDist: float64(4 - i)})
	}

	kept := s.dominance[1]
	assert.Len(t, kept, 3)
	assert.ElementsMatch(t, []dominancePair{
		{time: 0, maxDist: 4},
		{time: 1, maxDist: 3},
		{time: 2, maxDist: 2},
	}, kept)
}

func TestAcceptParetoCandidate_StripsDominated(t *testing.T) {
	existing := []Result{{Cost: PathCost{TravelTimeS: 2000, MaxStationDistanceM: 500}}}
	candidate := Result{Cost: PathCost{TravelTimeS: 1000, MaxStationDistanceM: 100}}

	got := acceptParetoCandidate(existing, candidate, DefaultEpsilon)
	assert.Len(t, got, 1)
	assert.Equal(t, 1000.0, got[0].Cost.TravelTimeS)
}
