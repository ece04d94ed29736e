// Package graph implements the in-memory directed multigraph the planning
// core searches: nodes carry coordinates and optional charging-station
// attributes, edges carry travel time, length, and road classification.
package graph

import (
	"evplanner/internal/geo"

	"github.com/pkg/errors"
)

// NodeID is a stable integer node identifier.
type NodeID int64

// HighwayClass classifies a road segment for speed synthesis and reporting.
type HighwayClass string

const (
	HighwayMotorway     HighwayClass = "motorway"
	HighwayTrunk        HighwayClass = "trunk"
	HighwayPrimary      HighwayClass = "primary"
	HighwaySecondary    HighwayClass = "secondary"
	HighwayTertiary     HighwayClass = "tertiary"
	HighwayResidential  HighwayClass = "residential"
	HighwayUnclassified HighwayClass = "unclassified"
	HighwayService      HighwayClass = "service"
	HighwayOther        HighwayClass = "other"
)

// Node is a point in the road network.
type Node struct {
	ID                NodeID
	Point             geo.Point
	IsChargingStation bool
	StationName       string
}

// Edge is a directed connection from the owning node to Target.
type Edge struct {
	Target       NodeID
	LengthM      float64
	TravelTimeS  float64
	HighwayClass HighwayClass
	OneWay       bool
	Reversed     bool
}

// ErrNodeNotFound is returned when a referenced node id does not exist.
var ErrNodeNotFound = errors.New("graph: node not found")

// RoadGraph is the directed multigraph consumed by the planning core. Once
// built it is treated as immutable: every concurrent search only reads from
// it.
type RoadGraph struct {
	nodes     map[NodeID]Node
	adjacency map[NodeID][]Edge
}

// New returns an empty RoadGraph.
func New() *RoadGraph {
	return &RoadGraph{
		nodes:     make(map[NodeID]Node),
		adjacency: make(map[NodeID][]Edge),
	}
}

// AddNode registers a node. Re-adding the same id overwrites its attributes.
func (g *RoadGraph) AddNode(n Node) {
	g.nodes[n.ID] = n
	if _, ok := g.adjacency[n.ID]; !ok {
		g.adjacency[n.ID] = nil
	}
}

// AddEdge appends a directed edge from "from" to edge.Target. Both endpoints
// must already exist via AddNode.
func (g *RoadGraph) AddEdge(from NodeID, e Edge) error {
	if _, ok := g.nodes[from]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "source %d", from)
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return errors.Wrapf(ErrNodeNotFound, "target %d", e.Target)
	}

	g.adjacency[from] = append(g.adjacency[from], e)

	return nil
}

// Node returns the node for id.
func (g *RoadGraph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]

	return n, ok
}

// Neighbors returns the out-edges of id in insertion order.
func (g *RoadGraph) Neighbors(id NodeID) []Edge {
	return g.adjacency[id]
}

// NodeCount returns the number of nodes in the graph.
func (g *RoadGraph) NodeCount() int {
	return len(g.nodes)
}

// Nodes returns every node id in the graph, in no particular order.
func (g *RoadGraph) Nodes() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}

	return ids
}

// NearestNode finds the closest node to (lat, lon) by exhaustive min-distance
// scan, per the ingestion contract: a straightforward linear pass rather
// than an accelerated index, so the result is always exact.
func (g *RoadGraph) NearestNode(p geo.Point) (NodeID, float64, bool) {
	var (
		best     NodeID
		bestDist = -1.0
		foundOne bool
	)

	for id, n := range g.nodes {
		d := geo.Haversine(p, n.Point)
		if !foundOne || d < bestDist {
			best = id
			bestDist = d
			foundOne = true
		}
	}

	return best, bestDist, foundOne
}

// HasEdgeTo reports whether there is a direct edge from "from" to "to".
func (g *RoadGraph) HasEdgeTo(from, to NodeID) (Edge, bool) {
	for _, e := range g.adjacency[from] {
		if e.Target == to {
			return e, true
		}
	}

	return Edge{}, false
}
