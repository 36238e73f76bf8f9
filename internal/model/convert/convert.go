// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/model"
	"github.com/OCAP2/geoanchor/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// CoreToAnchorResolution converts a core.ResolutionRecord to a GORM model.
// Records with coordinates outside the valid range keep an empty location.
func CoreToAnchorResolution(r core.ResolutionRecord) model.AnchorResolution {
	location, err := geo.LocationPoint(r.Coordinate())
	if err != nil {
		location = geom.NewEmptyPoint(geom.DimXYZ)
	}

	rotation, _ := json.Marshal(r.Rotation)

	return model.AnchorResolution{
		ID:             r.ID,
		Time:           r.Time,
		AnchorName:     r.AnchorName,
		AltitudeType:   r.AltitudeType.String(),
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Altitude:       r.Altitude,
		AltitudeOffset: r.AltitudeOffset,
		Outcome:        string(r.Outcome),
		ResultState:    r.ResultState,
		ResolvedAnchor: r.ResolvedAnchor,
		Location:       location,
		Rotation:       datatypes.JSON(rotation),
	}
}

// AnchorResolutionToCore converts a GORM model back to a core record.
func AnchorResolutionToCore(m model.AnchorResolution) (core.ResolutionRecord, error) {
	altitudeType, ok := core.ParseAltitudeType(m.AltitudeType)
	if !ok {
		return core.ResolutionRecord{}, fmt.Errorf("resolution %d: unknown altitude type %q", m.ID, m.AltitudeType)
	}

	var rotation [4]float64
	if len(m.Rotation) > 0 {
		if err := json.Unmarshal(m.Rotation, &rotation); err != nil {
			return core.ResolutionRecord{}, fmt.Errorf("resolution %d: rotation: %w", m.ID, err)
		}
	}

	return core.ResolutionRecord{
		ID:             m.ID,
		AnchorName:     m.AnchorName,
		AltitudeType:   altitudeType,
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		Altitude:       m.Altitude,
		AltitudeOffset: m.AltitudeOffset,
		Outcome:        core.ResolutionOutcome(m.Outcome),
		ResultState:    m.ResultState,
		ResolvedAnchor: m.ResolvedAnchor,
		Rotation:       rotation,
		Time:           m.Time,
	}, nil
}
