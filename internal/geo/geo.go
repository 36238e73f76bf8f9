package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/OCAP2/geoanchor/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Stored anchor locations are EPSG:3857 points with the ellipsoidal height
// as Z. Keeping one planar SRID lets SQLite round-trip the WKB without any
// spatial extension.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ValidateCoordinates reports whether latitude is in [-90,90] and longitude
// in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// GeodeticFromString parses "lat,lon" or "lat,lon,height".
func GeodeticFromString(coords string) (core.GeodeticCoordinate, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 {
		return core.GeodeticCoordinate{}, ErrInvalidCoordinates
	}

	values := make([]float64, 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return core.GeodeticCoordinate{}, ErrInvalidCoordinates
		}
		values[i] = v
	}

	if !ValidateCoordinates(values[0], values[1]) {
		return core.GeodeticCoordinate{}, ErrInvalidCoordinates
	}
	return core.GeodeticCoordinate{Latitude: values[0], Longitude: values[1], Height: values[2]}, nil
}

// Coords3857From4326 projects a longitude/latitude pair to Web Mercator.
func Coords3857From4326(longitude, latitude float64) (x, y float64) {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ = f(longitude, latitude, 0)
	return x, y
}

// LocationPoint builds the stored point for a geodetic coordinate.
func LocationPoint(c core.GeodeticCoordinate) (geom.Point, error) {
	if !ValidateCoordinates(c.Latitude, c.Longitude) {
		return geom.NewEmptyPoint(geom.DimXYZ), ErrInvalidCoordinates
	}
	x, y := Coords3857From4326(c.Longitude, c.Latitude)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Z:    c.Height,
		Type: geom.DimXYZ,
	})
}
