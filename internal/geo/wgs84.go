package geo

import (
	"math"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// WGS84 reference ellipsoid.
const (
	SemiMajorAxis = 6378137.0
	Flattening    = 1.0 / 298.257223563
	SemiMinorAxis = SemiMajorAxis * (1 - Flattening)

	// first eccentricity squared
	eccentricitySq = Flattening * (2 - Flattening)
	// second eccentricity squared
	secondEccentricitySq = eccentricitySq / (1 - eccentricitySq)
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// primeVerticalRadius is the radius of curvature in the prime vertical at
// the given geodetic latitude.
func primeVerticalRadius(sinLat float64) float64 {
	return SemiMajorAxis / math.Sqrt(1-eccentricitySq*sinLat*sinLat)
}

// GeodeticToEcef converts a WGS84 geodetic coordinate to Earth-centred,
// Earth-fixed metres.
func GeodeticToEcef(c core.GeodeticCoordinate) mgl64.Vec3 {
	sinLat, cosLat := math.Sincos(c.Latitude * degToRad)
	sinLon, cosLon := math.Sincos(c.Longitude * degToRad)

	n := primeVerticalRadius(sinLat)

	return mgl64.Vec3{
		(n + c.Height) * cosLat * cosLon,
		(n + c.Height) * cosLat * sinLon,
		(n*(1-eccentricitySq) + c.Height) * sinLat,
	}
}

// EcefToGeodetic converts ECEF metres to a WGS84 geodetic coordinate.
//
// The latitude starts from Bowring's parametric estimate and is refined by
// fixed-point iteration until it stops moving, which takes two or three
// rounds for points near the surface. Height uses whichever of the two
// closed forms is better conditioned, so the poles need no special case.
func EcefToGeodetic(p mgl64.Vec3) core.GeodeticCoordinate {
	x, y, z := p[0], p[1], p[2]
	lon := math.Atan2(y, x)
	rho := math.Hypot(x, y)

	if rho == 0 && z == 0 {
		return core.GeodeticCoordinate{Latitude: 0, Longitude: lon * radToDeg, Height: -SemiMajorAxis}
	}

	beta := math.Atan2(z*SemiMajorAxis, rho*SemiMinorAxis)
	sinBeta, cosBeta := math.Sincos(beta)
	lat := math.Atan2(
		z+secondEccentricitySq*SemiMinorAxis*sinBeta*sinBeta*sinBeta,
		rho-eccentricitySq*SemiMajorAxis*cosBeta*cosBeta*cosBeta,
	)

	for i := 0; i < 10; i++ {
		sinLat := math.Sin(lat)
		n := primeVerticalRadius(sinLat)
		next := math.Atan2(z+eccentricitySq*n*sinLat, rho)
		if math.Abs(next-lat) < 1e-15 {
			lat = next
			break
		}
		lat = next
	}

	sinLat, cosLat := math.Sincos(lat)
	n := primeVerticalRadius(sinLat)

	var h float64
	if math.Abs(cosLat) > math.Abs(sinLat) {
		h = rho/cosLat - n
	} else {
		h = z/sinLat - n*(1-eccentricitySq)
	}

	return core.GeodeticCoordinate{
		Latitude:  lat * radToDeg,
		Longitude: lon * radToDeg,
		Height:    h,
	}
}
