package graph

// classSpeedMps maps a highway class to its synthesis speed in meters per
// second, used to derive travel_time_s when a serialized edge omits it.
// Values are converted from the km/h table: motorway 100, trunk 80, primary
// 50, secondary 50, tertiary 50, residential and unclassified 30.
var classSpeedMps = map[HighwayClass]float64{
	HighwayMotorway:     kmhToMps(100),
	HighwayTrunk:        kmhToMps(80),
	HighwayPrimary:      kmhToMps(50),
	HighwaySecondary:    kmhToMps(50),
	HighwayTertiary:     kmhToMps(50),
	HighwayResidential:  kmhToMps(30),
	HighwayUnclassified: kmhToMps(30),
}

// defaultSpeedMps is the fallback speed (~50 km/h) for classes absent from
// classSpeedMps.
const defaultSpeedMps = 13.89

// absoluteFallbackTravelTimeS is used when neither travel_time_s nor
// length_m is available on an edge.
const absoluteFallbackTravelTimeS = 60.0

func kmhToMps(kmh float64) float64 {
	return kmh * 1000.0 / 3600.0
}

// synthesizeTravelTimeS derives travel_time_s for an edge that omitted it,
// per the C2 ingestion rule.
func synthesizeTravelTimeS(lengthM float64, hasLength bool, class HighwayClass) float64 {
	if !hasLength {
		return absoluteFallbackTravelTimeS
	}

	speed, ok := classSpeedMps[class]
	if !ok {
		speed = defaultSpeedMps
	}

	return lengthM / speed
}
