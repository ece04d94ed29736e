// Package twoseg implements the two-segment planner (C6): when the
// single-search Pareto core cannot preserve the threshold state of charge
// end-to-end, this package selects an intermediate charging stop from the
// core's infeasibility reports and composes two independent Pareto
// searches around a full recharge at that stop.
package twoseg

import (
	"context"
	"log/slog"

	"evplanner/internal/energy"
	"evplanner/internal/geo"
	"evplanner/internal/graph"
	"evplanner/internal/planner/pareto"
	"evplanner/internal/planner/perr"
	"evplanner/internal/station"

	"github.com/pkg/errors"
)

// legMaxPaths is K1/K2 from spec.md §4.6: each leg search is capped at 5
// paths before its own similarity filter runs.
const legMaxPaths = 5

// LegOrigin and LegFinal label Result.LegID for the two halves of a
// two-segment plan.
const (
	LegOrigin = "leg-1"
	LegFinal  = "leg-2"
)

// ChargingStop is the intermediate station the plan routes through: the
// node id, coordinate, and station name, surfaced directly on the result
// rather than requiring the caller to re-resolve it (SPEC_FULL §12).
type ChargingStop struct {
	Node        graph.NodeID
	Location    geo.Point
	StationName string
}

// Params configures one two-segment planning attempt.
type Params struct {
	Graph    *graph.RoadGraph
	Stations *station.Index
	Energy   energy.Model

	Origin      graph.NodeID
	Destination graph.NodeID

	InitialSOC          float64
	ThresholdSOC        float64
	ConsumptionPctPerKm float64

	// Reports are the infeasibility reports gathered by the single-search
	// Pareto core that failed to produce a feasible path.
	Reports []pareto.InfeasibilityReport

	Logger *slog.Logger
}

// Output is the union of both legs' Pareto results, Leg-1 first, plus the
// charging stop they route through.
type Output struct {
	Results      []pareto.Result
	ChargingStop ChargingStop
}

// Plan implements C6. It groups Reports by station id, resolves the first
// group's station to a graph node, and runs two Pareto searches around it:
// origin to the station (original SOC parameters) and the station to the
// destination (a full 100% charge). Either leg producing no feasible path
// fails the whole plan with perr.TwoSegmentUnreachable.
func Plan(ctx context.Context, p Params) (Output, error) {
	logger := p.logger()

	stationID, report, ok := firstReportGroup(p.Reports)
	if !ok {
		return Output{}, perr.NoFeasibleRoute()
	}

	stationNode, _, found := p.Graph.NearestNode(report.Station.Location)
	if !found {
		return Output{}, perr.InvalidAddress("no graph node near candidate charging station")
	}

	logger.Info("two-segment planner selected charging stop",
		slog.String("station_id", stationID),
		slog.Int64("station_node", int64(stationNode)),
	)

	leg1, err := pareto.Search(ctx, pareto.Params{
		Graph: p.Graph, Stations: p.Stations, Energy: p.Energy,
		Start: p.Origin, End: stationNode, MaxPaths: legMaxPaths,
		InitialSOC: p.InitialSOC, ThresholdSOC: p.ThresholdSOC, ConsumptionPctPerKm: p.ConsumptionPctPerKm,
		Logger: p.Logger,
	})
	if err != nil {
		return Output{}, errors.Wrap(err, "two-segment leg-1 search")
	}
	if len(leg1.Results) == 0 {
		logger.Warn("two-segment leg-1 unreachable", slog.String("station_id", stationID))

		return Output{}, perr.TwoSegmentUnreachable(LegOrigin)
	}

	leg2, err := pareto.Search(ctx, pareto.Params{
		Graph: p.Graph, Stations: p.Stations, Energy: p.Energy,
		Start: stationNode, End: p.Destination, MaxPaths: legMaxPaths,
		InitialSOC: 100, ThresholdSOC: p.ThresholdSOC, ConsumptionPctPerKm: p.ConsumptionPctPerKm,
		Logger: p.Logger,
	})
	if err != nil {
		return Output{}, errors.Wrap(err, "two-segment leg-2 search")
	}
	if len(leg2.Results) == 0 {
		logger.Warn("two-segment leg-2 unreachable", slog.String("station_id", stationID))

		return Output{}, perr.TwoSegmentUnreachable(LegFinal)
	}

	results := make([]pareto.Result, 0, len(leg1.Results)+len(leg2.Results))
	results = append(results, labelLeg(leg1.Results, LegOrigin, &p.Energy)...)
	results = append(results, labelLeg(leg2.Results, LegFinal, nil)...)

	stopNode, _ := p.Graph.Node(stationNode)

	return Output{
		Results: results,
		ChargingStop: ChargingStop{
			Node:        stationNode,
			Location:    stopNode.Point,
			StationName: report.Station.Name,
		},
	}, nil
}

// labelLeg assigns LegID and per-leg LegIndex to every result. When model
// is non-nil (Leg-1 only), it also fills ChargingTimeS/TotalTimeS from the
// path's remaining SOC, per spec.md §4.6 step 4.
func labelLeg(results []pareto.Result, legID string, model *energy.Model) []pareto.Result {
	labeled := make([]pareto.Result, len(results))
	for i, r := range results {
		r.LegID = legID
		r.LegIndex = i

		if model != nil {
			chargingTime := model.ChargingTimeS(r.Cost.RemainingSOCPct)
			totalTime := r.Cost.TravelTimeS + chargingTime
			r.Cost.ChargingTimeS = &chargingTime
			r.Cost.TotalTimeS = &totalTime
		}

		labeled[i] = r
	}

	return labeled
}

// firstReportGroup groups reports by station id in first-seen order and
// returns the first group's id and its first (and representative) report.
// Reports with no identifiable station (HasStation false) are not
// groupable and are skipped, per spec.md §4.6 step 1's requirement of an
// "identifiable nearest station".
func firstReportGroup(reports []pareto.InfeasibilityReport) (string, pareto.InfeasibilityReport, bool) {
	for _, r := range reports {
		if r.HasStation {
			return r.StationID, r, true
		}
	}

	return "", pareto.InfeasibilityReport{}, false
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}
