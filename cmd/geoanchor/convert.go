package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// Conversion is one coordinate seen from a reference point.
type Conversion struct {
	Coordinate core.GeodeticCoordinate
	Reference  core.ReferencePoint
	Views      geo.LocalViews
	MercatorX  float64
	MercatorY  float64
}

func convert(c core.GeodeticCoordinate, ref core.ReferencePoint) Conversion {
	pair := geo.DeriveTransform(ref)
	eun := geo.SetPositionFromGeodetic(c, pair)
	x, y := geo.Coords3857From4326(c.Longitude, c.Latitude)
	return Conversion{
		Coordinate: c,
		Reference:  ref,
		Views:      geo.RecomputeLocalPosition(eun, pair),
		MercatorX:  x,
		MercatorY:  y,
	}
}

func convertCommand(args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("convert needs a coordinate and a reference, e.g. convert 37.422,-122.0841,15 37.42,-122.08,0")
	}

	c, err := geo.GeodeticFromString(args[0])
	if err != nil {
		return fmt.Errorf("coordinate %q: %w", args[0], err)
	}
	r, err := geo.GeodeticFromString(args[1])
	if err != nil {
		return fmt.Errorf("reference %q: %w", args[1], err)
	}

	conv := convert(c, core.ReferencePoint{Latitude: r.Latitude, Longitude: r.Longitude, Height: r.Height})
	writeConversion(out, conv)
	return nil
}

func writeConversion(out io.Writer, c Conversion) {
	fmt.Fprintf(out, "geodetic   %s\n", c.Coordinate)
	fmt.Fprintf(out, "reference  %s\n", c.Reference.Coordinate())
	fmt.Fprintf(out, "ecef       %s\n", formatVec(c.Views.ECEF))
	fmt.Fprintf(out, "enu        %s\n", formatVec(c.Views.ENU))
	fmt.Fprintf(out, "eun        %s\n", formatVec(c.Views.EUN))
	fmt.Fprintf(out, "eus        %s\n", formatVec(c.Views.EUS))
	fmt.Fprintf(out, "epsg:3857  %.3f %.3f\n", c.MercatorX, c.MercatorY)
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("%.4f %.4f %.4f", v[0], v[1], v[2])
}
