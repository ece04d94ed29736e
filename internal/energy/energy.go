// Package energy implements the linear SOC accounting C4 describes:
// remaining-charge calculation, feasibility, charging time, and the detour
// budget used to locate a hand-off point for the two-segment planner.
package energy

import (
	"evplanner/internal/geo"
	"evplanner/internal/graph"
)

// DefaultSafetyFactor discounts the nominal range to leave margin for
// estimation error when computing the detour budget.
const DefaultSafetyFactor = 0.85

// DefaultChargingRatePctPerMin is the constant charge rate assumed when a
// caller does not override it.
const DefaultChargingRatePctPerMin = 3.0

// conservativeFallbackM is charged for a path segment whose length cannot be
// determined any other way, to avoid underestimating consumption.
const conservativeFallbackM = 500.0

// Model bundles the tunables the energy calculations depend on. Both fields
// have spec-mandated defaults but are configurable.
type Model struct {
	SafetyFactor          float64
	ChargingRatePctPerMin float64
}

// NewDefaultModel returns a Model using the spec's default constants.
func NewDefaultModel() Model {
	return Model{
		SafetyFactor:          DefaultSafetyFactor,
		ChargingRatePctPerMin: DefaultChargingRatePctPerMin,
	}
}

// PathLengthM sums the length_m of every edge along path. When a
// consecutive pair has no direct edge, it falls back to the haversine
// distance between the two nodes' coordinates; if neither resolves, it
// charges conservativeFallbackM to avoid underestimating consumption.
func PathLengthM(g *graph.RoadGraph, path []graph.NodeID) float64 {
	var total float64

	for i := 0; i+1 < len(path); i++ {
		total += segmentLengthM(g, path[i], path[i+1])
	}

	return total
}

// SegmentLengthM returns the length, in meters, of the single hop from ->
// to, using the same edge-or-haversine-or-fallback resolution PathLengthM
// applies to each consecutive pair.
func SegmentLengthM(g *graph.RoadGraph, from, to graph.NodeID) float64 {
	return segmentLengthM(g, from, to)
}

func segmentLengthM(g *graph.RoadGraph, from, to graph.NodeID) float64 {
	if edge, ok := g.HasEdgeTo(from, to); ok {
		return edge.LengthM
	}

	fromNode, fromOK := g.Node(from)
	toNode, toOK := g.Node(to)
	if fromOK && toOK {
		return geo.Haversine(fromNode.Point, toNode.Point)
	}

	return conservativeFallbackM
}

// RemainingSOC computes the battery percentage left after covering
// totalLengthM at consumptionPctPerKm, clamped at 0.
func RemainingSOC(initialSOC, totalLengthM, consumptionPctPerKm float64) float64 {
	dKm := totalLengthM / 1000.0
	remaining := initialSOC - dKm*consumptionPctPerKm
	if remaining < 0 {
		return 0
	}

	return remaining
}

// Feasible reports whether remainingSOC satisfies thresholdSOC.
func Feasible(remainingSOC, thresholdSOC float64) bool {
	return remainingSOC >= thresholdSOC
}

// ChargingTimeS returns the time in seconds to charge from currentSOC to
// 100% at rate percent per minute.
func (m Model) ChargingTimeS(currentSOC float64) float64 {
	return chargingTimeS(currentSOC, m.ChargingRatePctPerMin)
}

func chargingTimeS(currentSOC, ratePctPerMin float64) float64 {
	if ratePctPerMin <= 0 {
		return 0
	}

	needed := 100 - currentSOC
	if needed < 0 {
		needed = 0
	}

	return (needed / ratePctPerMin) * 60
}

// MaxDetourKm returns the farthest distance, in kilometers, the vehicle can
// travel beyond the threshold before violating it, discounted by the
// model's safety factor.
func (m Model) MaxDetourKm(initialSOC, thresholdSOC, consumptionPctPerKm float64) float64 {
	if consumptionPctPerKm <= 0 {
		return 0
	}

	available := m.SafetyFactor * (initialSOC - thresholdSOC)
	if available < 0 {
		available = 0
	}

	return available / consumptionPctPerKm
}
