// Package pareto implements the bi-objective A★ search (C5): a best-first
// search over the road graph that prunes dominated states and returns a
// small Pareto-optimal set of routes trading travel time against proximity
// safety.
package pareto

import (
	"log/slog"

	"evplanner/internal/energy"
	"evplanner/internal/graph"
	"evplanner/internal/station"
)

// PathCost is the objective vector and derived quantities for one path.
type PathCost struct {
	TravelTimeS         float64
	MaxStationDistanceM float64
	RemainingSOCPct     float64
	ChargingTimeS       *float64
	TotalTimeS          *float64
}

// Result is one accepted Pareto-optimal path.
type Result struct {
	Path     []graph.NodeID
	Cost     PathCost
	LegID    string
	LegIndex int
}

// InfeasibilityReport records a goal hit rejected on energy grounds, naming
// a candidate hand-off point for the two-segment planner.
type InfeasibilityReport struct {
	RemainingSOC      float64
	TotalNodes        int
	LastReachableNode graph.NodeID
	Station           station.Station
	HasStation        bool
	StationID         string
}

// Params configures one search invocation. Graph and Stations are shared,
// read-only resources; everything else is owned exclusively by the search.
type Params struct {
	Graph    *graph.RoadGraph
	Stations *station.Index
	Energy   energy.Model

	Start graph.NodeID
	End   graph.NodeID

	MaxPaths int

	InitialSOC          float64
	ThresholdSOC        float64
	ConsumptionPctPerKm float64

	// DominanceCap bounds the per-node frontier (M in the design notes);
	// zero means use DefaultDominanceCap.
	DominanceCap int
	// Epsilon is the goal-level Pareto dominance tolerance; zero means use
	// DefaultEpsilon.
	Epsilon float64
	// SimilarityThreshold is the relative travel-time gap the post-search
	// similarity filter requires between consecutive kept paths; zero means
	// use DefaultSimilarityThreshold.
	SimilarityThreshold float64

	// Logger receives search-lifecycle and infeasibility log lines; nil
	// uses slog.Default().
	Logger *slog.Logger
}

// Output is the result of one search: the Pareto set (sorted, filtered) and
// any infeasibility reports gathered along the way.
type Output struct {
	Results []Result
	Reports []InfeasibilityReport
}

// DefaultDominanceCap is M from design note 9.
const DefaultDominanceCap = 64

// DefaultEpsilon is the goal-level dominance tolerance.
const DefaultEpsilon = 0.05

// DefaultSimilarityThreshold is the minimum relative time gap the
// similarity filter requires between consecutive kept paths.
const DefaultSimilarityThreshold = 0.02

// DefaultMaxPaths is the cap K on the pre-filter Pareto result set when a
// caller does not specify one.
const DefaultMaxPaths = 5

func (p Params) withDefaults() Params {
	if p.DominanceCap <= 0 {
		p.DominanceCap = DefaultDominanceCap
	}
	if p.Epsilon <= 0 {
		p.Epsilon = DefaultEpsilon
	}
	if p.SimilarityThreshold <= 0 {
		p.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if p.MaxPaths <= 0 {
		p.MaxPaths = DefaultMaxPaths
	}

	return p
}
