package graph

import (
	"encoding/json"
	"io"
	"strconv"

	"evplanner/internal/geo"

	"github.com/pkg/errors"
)

// wireNode mirrors the RoadGraph input node schema (§6): y is latitude, x is
// longitude.
type wireNode struct {
	Y                 float64 `json:"y"`
	X                 float64 `json:"x"`
	StreetCount       *int    `json:"street_count,omitempty"`
	IsChargingStation bool    `json:"is_charging_station,omitempty"`
	StationName       string  `json:"station_name,omitempty"`
}

// wireEdge mirrors the RoadGraph input edge schema (§6).
type wireEdge struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Key        int      `json:"key"`
	Length     float64  `json:"length"`
	TravelTime *float64 `json:"travel_time,omitempty"`
	Highway    string   `json:"highway,omitempty"`
	OneWay     bool     `json:"oneway,omitempty"`
	Reversed   bool     `json:"reversed,omitempty"`
}

type wireRoadGraph struct {
	Nodes map[string]wireNode `json:"nodes"`
	Edges []wireEdge          `json:"edges"`
}

// Ingest decodes a serialized RoadGraph document (§6) and materializes the
// in-memory graph, synthesizing missing travel times and connecting
// unattached charging-station nodes to the nearest real node.
func Ingest(r io.Reader) (*RoadGraph, error) {
	var wire wireRoadGraph
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, errors.Wrap(err, "decode road graph document")
	}

	g := New()

	for idStr, wn := range wire.Nodes {
		id, err := parseNodeID(idStr)
		if err != nil {
			return nil, errors.Wrapf(err, "node id %q", idStr)
		}

		g.AddNode(Node{
			ID:                id,
			Point:             geo.Point{Lat: wn.Y, Lon: wn.X},
			IsChargingStation: wn.IsChargingStation,
			StationName:       wn.StationName,
		})
	}

	connected := make(map[NodeID]bool, len(wire.Edges))
	for _, we := range wire.Edges {
		if err := addWireEdge(g, we, connected); err != nil {
			return nil, err
		}
	}

	attachUnconnectedStations(g, connected)

	return g, nil
}

func parseNodeID(s string) (NodeID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	return NodeID(v), nil
}

func addWireEdge(g *RoadGraph, we wireEdge, connected map[NodeID]bool) error {
	from, err := parseNodeID(we.Source)
	if err != nil {
		return errors.Wrapf(err, "edge source %q", we.Source)
	}
	to, err := parseNodeID(we.Target)
	if err != nil {
		return errors.Wrapf(err, "edge target %q", we.Target)
	}

	class := classifyHighway(we.Highway)
	travelTime := synthesizeTravelTimeFromWire(we)

	edge := Edge{
		Target:       to,
		LengthM:      we.Length,
		TravelTimeS:  travelTime,
		HighwayClass: class,
		OneWay:       we.OneWay,
		Reversed:     we.Reversed,
	}

	if err := g.AddEdge(from, edge); err != nil {
		return errors.Wrapf(err, "edge %s->%s", we.Source, we.Target)
	}
	connected[from] = true
	connected[to] = true

	if we.OneWay {
		return nil
	}

	reverse := Edge{
		Target:       from,
		LengthM:      we.Length,
		TravelTimeS:  travelTime,
		HighwayClass: class,
		OneWay:       we.OneWay,
		Reversed:     !we.Reversed,
	}

	return errors.Wrapf(g.AddEdge(to, reverse), "reverse edge %s->%s", we.Target, we.Source)
}

func synthesizeTravelTimeFromWire(we wireEdge) float64 {
	if we.TravelTime != nil {
		return *we.TravelTime
	}

	hasLength := we.Length > 0
	class := classifyHighway(we.Highway)

	return synthesizeTravelTimeS(we.Length, hasLength, class)
}

func classifyHighway(highway string) HighwayClass {
	switch HighwayClass(highway) {
	case HighwayMotorway, HighwayTrunk, HighwayPrimary, HighwaySecondary, HighwayTertiary,
		HighwayResidential, HighwayUnclassified, HighwayService:
		return HighwayClass(highway)
	default:
		return HighwayOther
	}
}

// attachUnconnectedStations wires every charging-station node that has no
// edges to the nearest non-station node already present in the graph, via a
// synthetic bidirectional service edge whose length is the straight-line
// distance, per the C2 ingestion rule.
func attachUnconnectedStations(g *RoadGraph, connected map[NodeID]bool) {
	var candidatePoints []geo.Point
	var candidateIDs []NodeID
	for id, n := range g.nodes {
		if n.IsChargingStation {
			continue
		}
		candidatePoints = append(candidatePoints, n.Point)
		candidateIDs = append(candidateIDs, id)
	}
	if len(candidatePoints) == 0 {
		return
	}

	index := newGridIndex(candidatePoints, candidateIDs, 1.0)

	for id, n := range g.nodes {
		if !n.IsChargingStation || connected[id] {
			continue
		}

		nearestID, distance, ok := index.nearest(n.Point)
		if !ok {
			continue
		}

		serviceEdge := Edge{
			Target:       nearestID,
			LengthM:      distance,
			TravelTimeS:  synthesizeTravelTimeS(distance, true, HighwayService),
			HighwayClass: HighwayService,
		}
		reverseEdge := Edge{
			Target:       id,
			LengthM:      distance,
			TravelTimeS:  synthesizeTravelTimeS(distance, true, HighwayService),
			HighwayClass: HighwayService,
		}

		_ = g.AddEdge(id, serviceEdge)
		_ = g.AddEdge(nearestID, reverseEdge)
		connected[id] = true
	}
}
