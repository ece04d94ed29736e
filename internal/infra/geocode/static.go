// Package geocode provides a "lat,lon" literal resolver implementing
// orchestrator.Geocoder. SPEC_FULL §4.7 deliberately never ships a live
// geocoding backend; this is the stand-in callers use until one is wired,
// and it is what the CLI entrypoint uses directly.
package geocode

import (
	"context"
	"strconv"
	"strings"

	"evplanner/internal/geo"
	"evplanner/internal/planner/perr"
)

// Static resolves addresses of the literal form "lat,lon" to a geo.Point. It
// never performs network lookups.
type Static struct{}

// NewStatic returns a Static geocoder.
func NewStatic() Static {
	return Static{}
}

// Geocode parses address as "lat,lon" and fails with perr.InvalidAddress on
// any other form.
func (Static) Geocode(_ context.Context, address string) (geo.Point, error) {
	lat, lon, ok := strings.Cut(strings.TrimSpace(address), ",")
	if !ok {
		return geo.Point{}, perr.InvalidAddress("address must be \"lat,lon\": " + address)
	}

	latF, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return geo.Point{}, perr.InvalidAddress("invalid latitude in address: " + address)
	}
	lonF, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return geo.Point{}, perr.InvalidAddress("invalid longitude in address: " + address)
	}

	return geo.Point{Lat: latF, Lon: lonF}, nil
}
