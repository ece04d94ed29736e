package geo_test

import (
	"math"
	"testing"

	"evplanner/internal/geo"

	"github.com/stretchr/testify/assert"
)

func TestHaversine_Symmetry(t *testing.T) {
	a := geo.Point{Lat: 25.0330, Lon: 121.5654}
	b := geo.Point{Lat: 24.1477, Lon: 120.6736}

	ab := geo.Haversine(a, b)
	ba := geo.Haversine(b, a)

	assert.InEpsilon(t, ab, ba, 1e-6)
}

func TestHaversine_ZeroDistance(t *testing.T) {
	p := geo.Point{Lat: 25.0, Lon: 121.5}

	assert.Equal(t, 0.0, geo.Haversine(p, p))
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Roughly one degree of latitude apart ~111.2km.
	a := geo.Point{Lat: 0, Lon: 0}
	b := geo.Point{Lat: 1, Lon: 0}

	d := geo.Haversine(a, b)

	assert.InDelta(t, 111195.0, d, 200.0)
}

func TestDegreeDistance(t *testing.T) {
	a := geo.Point{Lat: 0, Lon: 0}
	b := geo.Point{Lat: 3, Lon: 4}

	assert.Equal(t, math.Sqrt(25), geo.DegreeDistance(a, b))
}
