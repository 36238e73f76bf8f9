// pkg/core/anchor.go
package core

import (
	"fmt"
	"strings"
)

// AltitudeType selects how the real-world height of an anchor is obtained.
type AltitudeType int

const (
	// ManualAltitude places the anchor at the configured ellipsoidal altitude.
	ManualAltitude AltitudeType = iota
	// Terrain places the anchor relative to the terrain below it.
	Terrain
	// Rooftop places the anchor relative to the building below it.
	Rooftop
)

var altitudeTypeNames = map[AltitudeType]string{
	ManualAltitude: "manual",
	Terrain:        "terrain",
	Rooftop:        "rooftop",
}

func (t AltitudeType) String() string {
	if name, ok := altitudeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("AltitudeType(%d)", int(t))
}

// ParseAltitudeType accepts the names returned by AltitudeType.String,
// case-insensitively. "manualaltitude" is accepted as an alias of "manual".
func ParseAltitudeType(s string) (AltitudeType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "manual", "manualaltitude":
		return ManualAltitude, true
	case "terrain":
		return Terrain, true
	case "rooftop":
		return Rooftop, true
	}
	return ManualAltitude, false
}

// ResolutionState is the lifecycle of the single resolution attempt an
// anchor makes in live mode. It only ever moves forward.
type ResolutionState int

const (
	NotStarted ResolutionState = iota
	InProgress
	Complete
)

func (s ResolutionState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("ResolutionState(%d)", int(s))
}

// Mode selects which behaviour an anchor runs with. It is fixed at
// construction.
type Mode int

const (
	// Live resolves the anchor against the real world once.
	Live Mode = iota
	// Authoring keeps the geodetic and local coordinates in sync every tick.
	Authoring
)

func (m Mode) String() string {
	switch m {
	case Live:
		return "live"
	case Authoring:
		return "authoring"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "live" or "authoring" (also "runtime" and "editor").
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "runtime", "play":
		return Live, true
	case "authoring", "editor":
		return Authoring, true
	}
	return Live, false
}
