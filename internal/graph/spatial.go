package graph

import (
	"math"

	"evplanner/internal/geo"
)

// gridIndex is a lightweight grid-based nearest-neighbor accelerator used
// internally during ingestion to connect charging-station nodes to the
// nearest real road node without an O(stations × nodes) scan. The public
// RoadGraph.NearestNode contract stays an exhaustive scan; this index only
// backs the ingest-time synthetic-edge step, where approximate latitude
// scaling is an acceptable trade against ingesting thousands of stations.
type gridIndex struct {
	points      []geo.Point
	ids         []NodeID
	grid        map[gridKey][]int
	cellSizeLat float64
	cellSizeLng float64
	minLat      float64
}

type gridKey struct {
	latCell int
	lngCell int
}

// newGridIndex builds an index over the road graph's non-station nodes,
// sized in cellSizeKm cells. Unlike the original fixed 111/101 km-per-degree
// approximation, longitude cell size is scaled by cos(latitude) of the data's
// centroid so the index stays reasonably uniform outside one specific
// region.
func newGridIndex(points []geo.Point, ids []NodeID, cellSizeKm float64) *gridIndex {
	idx := &gridIndex{
		points: points,
		ids:    ids,
		grid:   make(map[gridKey][]int),
	}
	if len(points) == 0 {
		return idx
	}

	var latSum float64
	minLat := points[0].Lat
	for _, p := range points {
		latSum += p.Lat
		if p.Lat < minLat {
			minLat = p.Lat
		}
	}
	idx.minLat = minLat

	meanLat := latSum / float64(len(points))
	lonScale := math.Cos(meanLat * math.Pi / 180)
	if lonScale < 0.01 {
		lonScale = 0.01
	}

	idx.cellSizeLat = cellSizeKm / 111.0
	idx.cellSizeLng = cellSizeKm / (111.0 * lonScale)

	for i, p := range points {
		key := idx.keyFor(p)
		idx.grid[key] = append(idx.grid[key], i)
	}

	return idx
}

func (g *gridIndex) keyFor(p geo.Point) gridKey {
	return gridKey{
		latCell: int(math.Floor(p.Lat / g.cellSizeLat)),
		lngCell: int(math.Floor(p.Lon / g.cellSizeLng)),
	}
}

// nearest returns the id of the closest indexed point to p by expanding-ring
// search, along with the true haversine distance in meters.
func (g *gridIndex) nearest(p geo.Point) (NodeID, float64, bool) {
	if len(g.points) == 0 {
		return 0, 0, false
	}

	center := g.keyFor(p)
	bestIdx := -1
	bestDist := math.MaxFloat64

	maxRing := g.maxRing()
	foundRing := -1
	for ring := 0; ring <= maxRing; ring++ {
		g.searchRing(p, center, ring, &bestIdx, &bestDist)
		if bestIdx >= 0 && foundRing < 0 {
			foundRing = ring
		}
		if foundRing >= 0 && ring > foundRing {
			// Once a candidate is found, one extra ring bounds the error
			// introduced by cell-degree distances vs. true haversine.
			break
		}
	}

	if bestIdx < 0 {
		return 0, 0, false
	}

	return g.ids[bestIdx], bestDist, true
}

func (g *gridIndex) searchRing(p geo.Point, center gridKey, ring int, bestIdx *int, bestDist *float64) bool {
	found := false

	if ring == 0 {
		return g.searchCell(p, center, bestIdx, bestDist)
	}

	for dLat := -ring; dLat <= ring; dLat++ {
		for dLng := -ring; dLng <= ring; dLng++ {
			if abs(dLat) != ring && abs(dLng) != ring {
				continue
			}
			key := gridKey{latCell: center.latCell + dLat, lngCell: center.lngCell + dLng}
			if g.searchCell(p, key, bestIdx, bestDist) {
				found = true
			}
		}
	}

	return found
}

func (g *gridIndex) searchCell(p geo.Point, key gridKey, bestIdx *int, bestDist *float64) bool {
	indices, ok := g.grid[key]
	if !ok {
		return false
	}

	found := false
	for _, i := range indices {
		d := geo.Haversine(p, g.points[i])
		if d < *bestDist {
			*bestDist = d
			*bestIdx = i
			found = true
		}
	}

	return found
}

func (g *gridIndex) maxRing() int {
	return len(g.points) + 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}

	return x
}
