package pareto_test

import (
	"context"
	"strings"
	"testing"

	"evplanner/internal/energy"
	"evplanner/internal/geo"
	"evplanner/internal/graph"
	"evplanner/internal/planner/pareto"
	"evplanner/internal/station"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustStationIndex(t *testing.T, doc string) *station.Index {
	t.Helper()
	idx, err := station.Load(strings.NewReader(doc))
	require.NoError(t, err)

	return idx
}

// TestSearch_Scenario1_SingleLinePath covers spec.md §8 scenario 1: a
// 4-node line graph, 10 km / 720 s per hop, yields exactly one Pareto
// path at 2160 s with 70% remaining SOC.
func TestSearch_Scenario1_SingleLinePath(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Point: geo.Point{Lat: 0, Lon: 0}})
	g.AddNode(graph.Node{ID: 2, Point: geo.Point{Lat: 0, Lon: 0.1}})
	g.AddNode(graph.Node{ID: 3, Point: geo.Point{Lat: 0, Lon: 0.2}})
	g.AddNode(graph.Node{ID: 4, Point: geo.Point{Lat: 0, Lon: 0.3}})
	require.NoError(t, g.AddEdge(1, graph.Edge{Target: 2, LengthM: 10000, TravelTimeS: 720}))
	require.NoError(t, g.AddEdge(2, graph.Edge{Target: 3, LengthM: 10000, TravelTimeS: 720}))
	require.NoError(t, g.AddEdge(3, graph.Edge{Target: 4, LengthM: 10000, TravelTimeS: 720}))

	idx := mustStationIndex(t, `{
		"1": {"nearest_charging_station": {"distance": 1000, "name": "S", "location": {"latitude": 0, "longitude": 0}}},
		"2": {"nearest_charging_station": {"distance": 1000, "name": "S", "location": {"latitude": 0, "longitude": 0}}},
		"3": {"nearest_charging_station": {"distance": 1000, "name": "S", "location": {"latitude": 0, "longitude": 0}}},
		"4": {"nearest_charging_station": {"distance": 1000, "name": "S", "location": {"latitude": 0, "longitude": 0}}}
	}`)

	out, err := pareto.Search(context.Background(), pareto.Params{
		Graph: g, Stations: idx, Energy: energy.NewDefaultModel(),
		Start: 1, End: 4, MaxPaths: 5,
		InitialSOC: 100, ThresholdSOC: 20, ConsumptionPctPerKm: 1,
	})
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	r := out.Results[0]
	assert.Equal(t, []graph.NodeID{1, 2, 3, 4}, r.Path)
	assert.InDelta(t, 2160.0, r.Cost.TravelTimeS, 1e-9)
	assert.InDelta(t, 70.0, r.Cost.RemainingSOCPct, 1e-9)
	assert.Empty(t, out.Reports)
}

// TestSearch_Scenario2_InfeasibleReportsLastReachableNode covers spec.md
// §8 scenario 2: the same line graph but too little initial SOC yields no
// feasible path and one infeasibility report pointing at node A, since the
// detour budget (0.425 km) is smaller than the first 10 km hop.
func TestSearch_Scenario2_InfeasibleReportsLastReachableNode(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Point: geo.Point{Lat: 0, Lon: 0}})
	g.AddNode(graph.Node{ID: 2, Point: geo.Point{Lat: 0, Lon: 0.1}})
	g.AddNode(graph.Node{ID: 3, Point: geo.Point{Lat: 0, Lon: 0.2}})
	g.AddNode(graph.Node{ID: 4, Point: geo.Point{Lat: 0, Lon: 0.3}})
	require.NoError(t, g.AddEdge(1, graph.Edge{Target: 2, LengthM: 10000, TravelTimeS: 720}))
	require.NoError(t, g.AddEdge(2, graph.Edge{Target: 3, LengthM: 10000, TravelTimeS: 720}))
	require.NoError(t, g.AddEdge(3, graph.Edge{Target: 4, LengthM: 10000, TravelTimeS: 720}))

	idx := mustStationIndex(t, `{
		"1": {"nearest_charging_station": {"distance": 1000, "name": "S", "location": {"latitude": 1, "longitude": 1}}}
	}`)

	out, err := pareto.Search(context.Background(), pareto.Params{
		Graph: g, Stations: idx, Energy: energy.NewDefaultModel(),
		Start: 1, End: 4, MaxPaths: 5,
		InitialSOC: 25, ThresholdSOC: 20, ConsumptionPctPerKm: 10,
	})
	require.NoError(t, err)

	assert.Empty(t, out.Results)
	require.Len(t, out.Reports, 1)
	report := out.Reports[0]
	assert.Equal(t, graph.NodeID(1), report.LastReachableNode)
	assert.True(t, report.HasStation)
	assert.Equal(t, "S|1|1", report.StationID)
}

// TestSearch_Scenario3_BothParallelRoutesSurvive covers spec.md §8
// scenario 3: a faster route past a distant station and a 10% slower
// route past a near station are both Pareto-optimal, ordered by time.
func TestSearch_Scenario3_BothParallelRoutesSurvive(t *testing.T) {
	const (
		a, x, y, d graph.NodeID = 1, 2, 3, 4
	)
	g := graph.New()
	g.AddNode(graph.Node{ID: a, Point: geo.Point{Lat: 0, Lon: 0}})
	g.AddNode(graph.Node{ID: x, Point: geo.Point{Lat: 0, Lon: 0.1}})
	g.AddNode(graph.Node{ID: y, Point: geo.Point{Lat: 0, Lon: 0.1}})
	g.AddNode(graph.Node{ID: d, Point: geo.Point{Lat: 0, Lon: 0.2}})

	require.NoError(t, g.AddEdge(a, graph.Edge{Target: x, LengthM: 10000, TravelTimeS: 500}))
	require.NoError(t, g.AddEdge(x, graph.Edge{Target: d, LengthM: 10000, TravelTimeS: 500}))
	require.NoError(t, g.AddEdge(a, graph.Edge{Target: y, LengthM: 11000, TravelTimeS: 550}))
	require.NoError(t, g.AddEdge(y, graph.Edge{Target: d, LengthM: 11000, TravelTimeS: 550}))

	idx := mustStationIndex(t, `{
		"1": {"nearest_charging_station": {"distance": 1000, "name": "Sa", "location": {"latitude": 0, "longitude": 0}}},
		"2": {"nearest_charging_station": {"distance": 50000, "name": "Sx", "location": {"latitude": 0, "longitude": 0}}},
		"3": {"nearest_charging_station": {"distance": 2000, "name": "Sy", "location": {"latitude": 0, "longitude": 0}}},
		"4": {"nearest_charging_station": {"distance": 1000, "name": "Sd", "location": {"latitude": 0, "longitude": 0}}}
	}`)

	out, err := pareto.Search(context.Background(), pareto.Params{
		Graph: g, Stations: idx, Energy: energy.NewDefaultModel(),
		Start: a, End: d, MaxPaths: 5,
		InitialSOC: 100, ThresholdSOC: 0, ConsumptionPctPerKm: 1,
	})
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, []graph.NodeID{a, x, d}, out.Results[0].Path)
	assert.InDelta(t, 1000.0, out.Results[0].Cost.TravelTimeS, 1e-9)
	assert.InDelta(t, 50000.0, out.Results[0].Cost.MaxStationDistanceM, 1e-9)

	assert.Equal(t, []graph.NodeID{a, y, d}, out.Results[1].Path)
	assert.InDelta(t, 1100.0, out.Results[1].Cost.TravelTimeS, 1e-9)
	assert.InDelta(t, 2000.0, out.Results[1].Cost.MaxStationDistanceM, 1e-9)
}

// TestSearch_PreFilterCapWithSimilarityFilterShrinks exercises the §9 K-bound
// decision directly: MaxPaths bounds the pre-filter, goal-accepting count,
// and similarity filtering is applied only afterward. Two Pareto-optimal
// routes (1% time gap, below the 2% similarity threshold) both fit under a
// MaxPaths of 2, so the pre-filter set reaches the cap; the post-filter set
// then drops to 1 once the closer-in-time route is collapsed away.
func TestSearch_PreFilterCapWithSimilarityFilterShrinks(t *testing.T) {
	const (
		start, fast, safe, end graph.NodeID = 1, 2, 3, 4
	)
	g := graph.New()
	g.AddNode(graph.Node{ID: start, Point: geo.Point{Lat: 0, Lon: 0}})
	g.AddNode(graph.Node{ID: fast, Point: geo.Point{Lat: 0, Lon: 0.1}})
	g.AddNode(graph.Node{ID: safe, Point: geo.Point{Lat: 0, Lon: 0.1}})
	g.AddNode(graph.Node{ID: end, Point: geo.Point{Lat: 0, Lon: 0.2}})

	require.NoError(t, g.AddEdge(start, graph.Edge{Target: fast, LengthM: 1000, TravelTimeS: 500}))
	require.NoError(t, g.AddEdge(fast, graph.Edge{Target: end, LengthM: 1000, TravelTimeS: 500}))
	require.NoError(t, g.AddEdge(start, graph.Edge{Target: safe, LengthM: 1000, TravelTimeS: 505}))
	require.NoError(t, g.AddEdge(safe, graph.Edge{Target: end, LengthM: 1000, TravelTimeS: 505}))

	idx := mustStationIndex(t, `{
		"1": {"nearest_charging_station": {"distance": 0, "name": "S", "location": {"latitude": 0, "longitude": 0}}},
		"2": {"nearest_charging_station": {"distance": 5000, "name": "Sfast", "location": {"latitude": 0, "longitude": 0}}},
		"3": {"nearest_charging_station": {"distance": 1000, "name": "Ssafe", "location": {"latitude": 0, "longitude": 0}}},
		"4": {"nearest_charging_station": {"distance": 0, "name": "S", "location": {"latitude": 0, "longitude": 0}}}
	}`)

	out, err := pareto.Search(context.Background(), pareto.Params{
		Graph: g, Stations: idx, Energy: energy.NewDefaultModel(),
		Start: start, End: end, MaxPaths: 2,
		InitialSOC: 100, ThresholdSOC: 0, ConsumptionPctPerKm: 1,
	})
	require.NoError(t, err)

	// Both routes are mutually Pareto-optimal (neither's (time, maxdist) is
	// within the 5% goal-level dominance tolerance of the other), so both
	// fill the MaxPaths=2 cap before the similarity filter runs.
	require.Len(t, out.Results, 1)
	assert.Equal(t, []graph.NodeID{start, fast, end}, out.Results[0].Path)
	assert.InDelta(t, 1000.0, out.Results[0].Cost.TravelTimeS, 1e-9)
}

func TestSearch_ZeroLengthRequest(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Point: geo.Point{Lat: 0, Lon: 0}})
	idx := mustStationIndex(t, `{}`)

	out, err := pareto.Search(context.Background(), pareto.Params{
		Graph: g, Stations: idx, Energy: energy.NewDefaultModel(),
		Start: 1, End: 1,
		InitialSOC: 100, ThresholdSOC: 20, ConsumptionPctPerKm: 10,
	})
	require.NoError(t, err)

	require.Len(t, out.Results, 1)
	assert.Equal(t, []graph.NodeID{1}, out.Results[0].Path)
	assert.Equal(t, 0.0, out.Results[0].Cost.TravelTimeS)
	assert.Equal(t, 100.0, out.Results[0].Cost.RemainingSOCPct)
}

func TestSearch_CancelledContext(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Point: geo.Point{Lat: 0, Lon: 0}})
	g.AddNode(graph.Node{ID: 2, Point: geo.Point{Lat: 0, Lon: 0.1}})
	require.NoError(t, g.AddEdge(1, graph.Edge{Target: 2, LengthM: 1000, TravelTimeS: 60}))
	idx := mustStationIndex(t, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pareto.Search(ctx, pareto.Params{
		Graph: g, Stations: idx, Energy: energy.NewDefaultModel(),
		Start: 1, End: 2,
		InitialSOC: 100, ThresholdSOC: 20, ConsumptionPctPerKm: 10,
	})
	require.Error(t, err)
}
