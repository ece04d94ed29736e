package geocode_test

import (
	"context"
	"testing"

	"evplanner/internal/infra/geocode"
	"evplanner/internal/planner/perr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocode_ParsesLatLon(t *testing.T) {
	g := geocode.NewStatic()

	p, err := g.Geocode(context.Background(), "37.7749, -122.4194")
	require.NoError(t, err)
	assert.InDelta(t, 37.7749, p.Lat, 1e-9)
	assert.InDelta(t, -122.4194, p.Lon, 1e-9)
}

func TestGeocode_RejectsMalformedAddress(t *testing.T) {
	g := geocode.NewStatic()

	_, err := g.Geocode(context.Background(), "not-a-coordinate")
	require.Error(t, err)

	var perrErr *perr.PlannerError
	require.ErrorAs(t, err, &perrErr)
	assert.Equal(t, perr.CodeInvalidAddress, perrErr.Code())
}

func TestGeocode_RejectsNonNumericComponents(t *testing.T) {
	g := geocode.NewStatic()

	_, err := g.Geocode(context.Background(), "abc,123")
	require.Error(t, err)

	var perrErr *perr.PlannerError
	require.ErrorAs(t, err, &perrErr)
	assert.Equal(t, perr.CodeInvalidAddress, perrErr.Code())
}
