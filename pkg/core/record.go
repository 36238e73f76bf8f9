// pkg/core/record.go
package core

import "time"

// ResolutionOutcome classifies how a resolution attempt ended.
type ResolutionOutcome string

const (
	OutcomeResolved    ResolutionOutcome = "resolved"
	OutcomeFailed      ResolutionOutcome = "failed"
	OutcomeConfigError ResolutionOutcome = "config_error"
)

// ResolutionRecord is the journal entry written when an anchor's
// resolution attempt terminates.
type ResolutionRecord struct {
	ID             uint
	AnchorName     string
	AltitudeType   AltitudeType
	Latitude       float64
	Longitude      float64
	Altitude       float64
	AltitudeOffset float64
	Outcome        ResolutionOutcome
	ResultState    string // strategy specific state name, empty for manual
	ResolvedAnchor string // name of the parent anchor on success
	Rotation       [4]float64
	Time           time.Time
}

// Coordinate returns the geodetic coordinate the resolution was requested at.
// Terrain and rooftop requests carry an offset rather than an altitude.
func (r ResolutionRecord) Coordinate() GeodeticCoordinate {
	h := r.Altitude
	if r.AltitudeType != ManualAltitude {
		h = r.AltitudeOffset
	}
	return GeodeticCoordinate{Latitude: r.Latitude, Longitude: r.Longitude, Height: h}
}
