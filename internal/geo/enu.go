package geo

import (
	"math"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// TransformPair maps between ECEF and the East-North-Up tangent plane of
// one reference point. The two matrices are inverses of each other and are
// only meaningful together with Reference.
type TransformPair struct {
	Reference   core.ReferencePoint
	LocalToEcef mgl64.Mat4
	EcefToLocal mgl64.Mat4
}

// DeriveTransform builds the ECEF -> ENU matrix for ref: a translation that
// moves the reference point to the origin followed by the standard ENU
// rotation. LocalToEcef is its matrix inverse.
func DeriveTransform(ref core.ReferencePoint) TransformPair {
	origin := GeodeticToEcef(ref.Coordinate())

	sinLat, cosLat := math.Sincos(ref.Latitude * degToRad)
	sinLon, cosLon := math.Sincos(ref.Longitude * degToRad)

	rotation := mgl64.Mat4FromRows(
		mgl64.Vec4{-sinLon, cosLon, 0, 0},
		mgl64.Vec4{-sinLat * cosLon, -sinLat * sinLon, cosLat, 0},
		mgl64.Vec4{cosLat * cosLon, cosLat * sinLon, sinLat, 0},
		mgl64.Vec4{0, 0, 0, 1},
	)
	translation := mgl64.Translate3D(-origin[0], -origin[1], -origin[2])

	ecefToLocal := rotation.Mul4(translation)

	return TransformPair{
		Reference:   ref,
		LocalToEcef: ecefToLocal.Inv(),
		EcefToLocal: ecefToLocal,
	}
}

// multPoint applies an affine matrix to a point.
func multPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// EcefToEnu expresses an ECEF point in the pair's tangent plane.
func (t TransformPair) EcefToEnu(p mgl64.Vec3) mgl64.Vec3 {
	return multPoint(t.EcefToLocal, p)
}

// EnuToEcef is the inverse of EcefToEnu.
func (t TransformPair) EnuToEcef(p mgl64.Vec3) mgl64.Vec3 {
	return multPoint(t.LocalToEcef, p)
}
