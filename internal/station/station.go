// Package station loads and exposes the precomputed per-node
// nearest-charging-station distance index. Construction of the index from a
// road graph and a station catalog is an offline concern; this package only
// consumes the serialized result.
package station

import (
	"encoding/json"
	"io"
	"math"
	"strconv"

	"evplanner/internal/geo"
	"evplanner/internal/graph"

	"github.com/pkg/errors"
)

// Station identifies a charging station by name and location.
type Station struct {
	Name     string
	Location geo.Point
}

// Entry is the nearest-station record for one graph node.
type Entry struct {
	DistanceM float64
	Station   Station
}

// Index is the immutable node -> nearest-station mapping.
type Index struct {
	entries map[graph.NodeID]Entry
}

type wireLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireNearestStation struct {
	Distance float64      `json:"distance"`
	Name     string       `json:"name"`
	Location wireLocation `json:"location"`
}

type wireEntry struct {
	NearestChargingStation *wireNearestStation `json:"nearest_charging_station"`
}

// Load decodes a serialized StationIndex document (§6): a mapping keyed by
// node-id string to either a nearest-station record or null.
func Load(r io.Reader) (*Index, error) {
	var wire map[string]wireEntry
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, errors.Wrap(err, "decode station index document")
	}

	idx := &Index{entries: make(map[graph.NodeID]Entry, len(wire))}

	for idStr, we := range wire {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "station index node id %q", idStr)
		}
		if we.NearestChargingStation == nil {
			continue
		}

		idx.entries[graph.NodeID(id)] = Entry{
			DistanceM: we.NearestChargingStation.Distance,
			Station: Station{
				Name: we.NearestChargingStation.Name,
				Location: geo.Point{
					Lat: we.NearestChargingStation.Location.Latitude,
					Lon: we.NearestChargingStation.Location.Longitude,
				},
			},
		}
	}

	return idx, nil
}

// DistanceToNearest returns the road distance from node to its nearest
// charging station, or +Inf if the node is absent from the index.
func (idx *Index) DistanceToNearest(node graph.NodeID) float64 {
	entry, ok := idx.entries[node]
	if !ok {
		return math.Inf(1)
	}

	return entry.DistanceM
}

// StationOf returns the nearest station record for node, if any.
func (idx *Index) StationOf(node graph.NodeID) (Station, bool) {
	entry, ok := idx.entries[node]
	if !ok {
		return Station{}, false
	}

	return entry.Station, true
}

// ID returns the "name|lat|lon" identifier the two-segment planner groups
// infeasibility reports by.
func (s Station) ID() string {
	return s.Name + "|" + formatFloat(s.Location.Lat) + "|" + formatFloat(s.Location.Lon)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
