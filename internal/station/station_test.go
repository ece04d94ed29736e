package station_test

import (
	"math"
	"strings"
	"testing"

	"evplanner/internal/station"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DistanceAndStationOf(t *testing.T) {
	doc := `{
		"1": {"nearest_charging_station": {"distance": 50000, "name": "S1", "location": {"latitude": 24.1, "longitude": 120.6}}},
		"2": {"nearest_charging_station": null}
	}`

	idx, err := station.Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 50000.0, idx.DistanceToNearest(1))
	assert.True(t, math.IsInf(idx.DistanceToNearest(2), 1))
	assert.True(t, math.IsInf(idx.DistanceToNearest(999), 1))

	s, ok := idx.StationOf(1)
	require.True(t, ok)
	assert.Equal(t, "S1", s.Name)

	_, ok = idx.StationOf(2)
	assert.False(t, ok)
}

func TestStationID_Format(t *testing.T) {
	s := station.Station{Name: "S1"}
	s.Location.Lat = 24.1
	s.Location.Lon = 120.6

	assert.Equal(t, "S1|24.1|120.6", s.ID())
}
