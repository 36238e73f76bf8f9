// pkg/core/geodetic.go
package core

import "fmt"

// GeodeticCoordinate is a WGS84 position. Latitude and longitude are in
// degrees, Height is ellipsoidal height in metres.
type GeodeticCoordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Height    float64 `json:"height"`
}

func (c GeodeticCoordinate) String() string {
	return fmt.Sprintf("(%.7f, %.7f, %.3fm)", c.Latitude, c.Longitude, c.Height)
}

// ReferencePoint is the geodetic origin of a local tangent plane.
type ReferencePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Height    float64 `json:"height"`
}

// Coordinate returns the reference point as a plain geodetic coordinate.
func (r ReferencePoint) Coordinate() GeodeticCoordinate {
	return GeodeticCoordinate{Latitude: r.Latitude, Longitude: r.Longitude, Height: r.Height}
}
