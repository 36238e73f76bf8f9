package geo

import (
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Scene positions are East-Up-North (Y up). The geodetic tangent plane is
// East-North-Up (Z up). Every crossing between the two swaps Y and Z.

// EunToEnu converts a scene position to the tangent plane.
func EunToEnu(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], v[1]}
}

// EnuToEun converts a tangent-plane position to scene axes.
func EnuToEun(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], v[1]}
}

// EunToEus mirrors the north axis, giving East-Up-South.
func EunToEus(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], -v[2]}
}

// LocalViews holds one position in every frame the anchor exposes.
type LocalViews struct {
	ECEF mgl64.Vec3
	ENU  mgl64.Vec3
	EUN  mgl64.Vec3
	EUS  mgl64.Vec3
}

// RecomputeLocalPosition derives the ECEF, ENU and EUS views of a scene
// (EUN) position.
func RecomputeLocalPosition(eun mgl64.Vec3, t TransformPair) LocalViews {
	enu := EunToEnu(eun)
	return LocalViews{
		ECEF: t.EnuToEcef(enu),
		ENU:  enu,
		EUN:  eun,
		EUS:  EunToEus(eun),
	}
}

// Geodetic returns the geodetic coordinate of the views' ECEF position.
func (v LocalViews) Geodetic() core.GeodeticCoordinate {
	return EcefToGeodetic(v.ECEF)
}

// SetPositionFromGeodetic returns the scene (EUN) position of c.
func SetPositionFromGeodetic(c core.GeodeticCoordinate, t TransformPair) mgl64.Vec3 {
	return EnuToEun(t.EcefToEnu(GeodeticToEcef(c)))
}
