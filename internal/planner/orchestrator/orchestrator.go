// Package orchestrator implements the query orchestrator (C7): it resolves
// a plan request's addresses to graph nodes, enforces reachability across
// weakly-connected components, and composes the Pareto core (C5) with the
// two-segment planner (C6) fallback.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"evplanner/internal/energy"
	"evplanner/internal/geo"
	"evplanner/internal/graph"
	"evplanner/internal/planner/pareto"
	"evplanner/internal/planner/perr"
	"evplanner/internal/planner/twoseg"
	"evplanner/internal/station"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Policy selects how the orchestrator handles an origin and destination
// that resolve into different weakly-connected components of the road
// graph. spec.md §4.7 names both; PolicyResnap is the documented default.
type Policy string

const (
	// PolicyResnap re-snaps both endpoints to their nearest node within the
	// largest connected component, trading a coordinate substitution for a
	// guaranteed-reachable pair.
	PolicyResnap Policy = "resnap"
	// PolicyStrict rejects the request outright as an InvalidAddress.
	PolicyStrict Policy = "strict"
)

// Geocoder resolves a free-form address string to a coordinate. Planroute
// never ships a live implementation; callers supply one (HTTP client, local
// gazetteer, test double).
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Point, error)
}

// PlanRequest is the core-level plan request from spec.md §6. Struct tags
// drive github.com/go-playground/validator/v10 validation before any
// geocoding or search work begins.
type PlanRequest struct {
	Origin              string  `validate:"required"`
	Destination         string  `validate:"required"`
	InitialSOC          float64 `validate:"gte=0,lte=100"`
	ThresholdSOC        float64 `validate:"gte=0,lte=100"`
	ConsumptionPctPerKm float64 `validate:"gt=0"`
}

// InfeasibilitySummary aggregates infeasibility reports by candidate
// station id, per SPEC_FULL §12: callers that only want the aggregate view
// don't need to re-derive it from the raw report list.
type InfeasibilitySummary struct {
	StationID string
	Station   station.Station
	Count     int
}

// PlanResponse is the core-level plan response: the Pareto (or two-segment)
// result set, the charging stop when C6 was invoked, aggregated
// infeasibility counts, and any informational warnings.
type PlanResponse struct {
	QueryID              string
	Results              []pareto.Result
	ChargingStop         *twoseg.ChargingStop
	InfeasibilitySummary []InfeasibilitySummary
	Warnings             []string
}

// Params bundles the shared, read-only resources and policy knobs one
// orchestrator invocation needs.
type Params struct {
	Graph    *graph.RoadGraph
	Stations *station.Index
	Energy   energy.Model
	Geocoder Geocoder

	DisconnectedComponentPolicy Policy

	// MaxPaths, DominanceCap, Epsilon, and SimilarityThreshold tune the C5
	// search; zero means use pareto's own defaults.
	MaxPaths            int
	DominanceCap        int
	Epsilon             float64
	SimilarityThreshold float64

	Logger    *slog.Logger
	Validator *validator.Validate
}

// Plan implements C7 end to end: validate, geocode, snap, reachability
// policy, range warning, C5, and the C6 fallback.
func Plan(ctx context.Context, p Params, req PlanRequest) (PlanResponse, error) {
	logger := p.logger()
	queryID := uuid.NewString()
	logger = logger.With(slog.String("query_id", queryID))

	if err := p.validator().Struct(req); err != nil {
		return PlanResponse{}, perr.InvalidAddress(fmt.Sprintf("invalid plan request: %s", err))
	}

	originPoint, err := p.Geocoder.Geocode(ctx, req.Origin)
	if err != nil {
		return PlanResponse{}, perr.InvalidAddress(fmt.Sprintf("geocode origin: %s", err))
	}
	destPoint, err := p.Geocoder.Geocode(ctx, req.Destination)
	if err != nil {
		return PlanResponse{}, perr.InvalidAddress(fmt.Sprintf("geocode destination: %s", err))
	}

	originNode, _, ok := p.Graph.NearestNode(originPoint)
	if !ok {
		return PlanResponse{}, perr.InvalidAddress("no graph node near origin")
	}
	destNode, _, ok := p.Graph.NearestNode(destPoint)
	if !ok {
		return PlanResponse{}, perr.InvalidAddress("no graph node near destination")
	}

	var warnings []string

	originNode, destNode, resnapWarning, err := p.enforceReachability(originNode, destNode, logger)
	if err != nil {
		return PlanResponse{}, err
	}
	if resnapWarning != "" {
		warnings = append(warnings, resnapWarning)
	}

	if w := rangeWarning(originPoint, destPoint, req); w != "" {
		warnings = append(warnings, w)
	}

	searchOut, err := pareto.Search(ctx, pareto.Params{
		Graph: p.Graph, Stations: p.Stations, Energy: p.Energy,
		Start: originNode, End: destNode,
		InitialSOC: req.InitialSOC, ThresholdSOC: req.ThresholdSOC, ConsumptionPctPerKm: req.ConsumptionPctPerKm,
		MaxPaths: p.MaxPaths, DominanceCap: p.DominanceCap, Epsilon: p.Epsilon, SimilarityThreshold: p.SimilarityThreshold,
		Logger: logger,
	})
	if err != nil {
		return PlanResponse{}, err
	}

	summary := summarizeReports(searchOut.Reports)

	if len(searchOut.Results) > 0 {
		return PlanResponse{
			QueryID:              queryID,
			Results:              searchOut.Results,
			InfeasibilitySummary: summary,
			Warnings:             warnings,
		}, nil
	}

	if len(searchOut.Reports) == 0 {
		return PlanResponse{}, perr.NoFeasibleRoute()
	}

	twoSegOut, err := twoseg.Plan(ctx, twoseg.Params{
		Graph: p.Graph, Stations: p.Stations, Energy: p.Energy,
		Origin: originNode, Destination: destNode,
		InitialSOC: req.InitialSOC, ThresholdSOC: req.ThresholdSOC, ConsumptionPctPerKm: req.ConsumptionPctPerKm,
		Reports: searchOut.Reports,
		Logger:  logger,
	})
	if err != nil {
		return PlanResponse{}, err
	}

	stop := twoSegOut.ChargingStop

	return PlanResponse{
		QueryID:              queryID,
		Results:              twoSegOut.Results,
		ChargingStop:         &stop,
		InfeasibilitySummary: summary,
		Warnings:             warnings,
	}, nil
}

// enforceReachability tests whether originNode and destNode share a weakly
// connected component. Under PolicyResnap it substitutes both for their
// nearest node within the largest component and returns a warning
// describing the substitution distance; under PolicyStrict it fails the
// request outright.
func (p Params) enforceReachability(originNode, destNode graph.NodeID, logger *slog.Logger) (graph.NodeID, graph.NodeID, string, error) {
	membership, components := p.Graph.Components()
	if membership[originNode] == membership[destNode] {
		return originNode, destNode, "", nil
	}

	if p.policy() == PolicyStrict {
		return originNode, destNode, "", perr.InvalidAddress("origin and destination lie in disconnected road-graph components")
	}

	largest := components[0]
	newOrigin, originDist := nearestWithin(p.Graph, originNode, largest)
	newDest, destDist := nearestWithin(p.Graph, destNode, largest)

	logger.Warn("re-snapped endpoints to largest connected component",
		slog.Float64("origin_resnap_m", originDist),
		slog.Float64("destination_resnap_m", destDist),
	)

	warning := fmt.Sprintf(
		"origin and destination were in disconnected road-graph components; re-snapped to the largest component (origin moved %.1fm, destination moved %.1fm)",
		originDist, destDist,
	)

	return newOrigin, newDest, warning, nil
}

// nearestWithin returns the node in candidates closest to the graph
// location of node, and the haversine distance between them. node itself is
// returned with zero distance when it is already in candidates.
func nearestWithin(g *graph.RoadGraph, node graph.NodeID, candidates []graph.NodeID) (graph.NodeID, float64) {
	origin, ok := g.Node(node)
	if !ok {
		return node, 0
	}

	var (
		best     graph.NodeID
		bestDist = -1.0
	)

	for _, id := range candidates {
		if id == node {
			return node, 0
		}

		n, ok := g.Node(id)
		if !ok {
			continue
		}

		d := geo.Haversine(origin.Point, n.Point)
		if bestDist < 0 || d < bestDist {
			best = id
			bestDist = d
		}
	}

	return best, bestDist
}

// rangeWarning compares the requested trip's straight-line distance against
// the theoretical battery range and returns an informational warning string
// when the former exceeds the latter, or "" otherwise.
func rangeWarning(origin, dest geo.Point, req PlanRequest) string {
	straightLineKm := geo.Haversine(origin, dest) / 1000.0
	if req.ConsumptionPctPerKm <= 0 {
		return ""
	}

	rangeKm := (req.InitialSOC - req.ThresholdSOC) / req.ConsumptionPctPerKm
	if straightLineKm <= rangeKm {
		return ""
	}

	return fmt.Sprintf(
		"straight-line distance (%.1fkm) exceeds theoretical battery range (%.1fkm); the vehicle will need to charge en route",
		straightLineKm, rangeKm,
	)
}

// summarizeReports groups infeasibility reports by station id in
// first-seen order, per SPEC_FULL §12.
func summarizeReports(reports []pareto.InfeasibilityReport) []InfeasibilitySummary {
	if len(reports) == 0 {
		return nil
	}

	var order []string
	counts := make(map[string]*InfeasibilitySummary, len(reports))

	for _, r := range reports {
		if !r.HasStation {
			continue
		}

		entry, ok := counts[r.StationID]
		if !ok {
			entry = &InfeasibilitySummary{StationID: r.StationID, Station: r.Station}
			counts[r.StationID] = entry
			order = append(order, r.StationID)
		}
		entry.Count++
	}

	summary := make([]InfeasibilitySummary, 0, len(order))
	for _, id := range order {
		summary = append(summary, *counts[id])
	}

	return summary
}

func (p Params) policy() Policy {
	if p.DisconnectedComponentPolicy == "" {
		return PolicyResnap
	}

	return p.DisconnectedComponentPolicy
}

func (p Params) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}

func (p Params) validator() *validator.Validate {
	if p.Validator != nil {
		return p.Validator
	}

	return defaultValidator
}

var defaultValidator = validator.New()
