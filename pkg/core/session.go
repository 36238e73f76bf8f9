// pkg/core/session.go
package core

// TrackingState is the Earth tracking state reported by a session.
type TrackingState int

const (
	TrackingNone TrackingState = iota
	Tracking
	TrackingPaused
	TrackingStopped
)

func (s TrackingState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case TrackingPaused:
		return "paused"
	case TrackingStopped:
		return "stopped"
	}
	return "none"
}

// TerrainAnchorState is the outcome reported for a terrain resolution.
type TerrainAnchorState int

const (
	TerrainAnchorNone TerrainAnchorState = iota
	TerrainAnchorSuccess
	TerrainAnchorTaskInProgress
	TerrainAnchorErrorInternal
	TerrainAnchorErrorNotAuthorized
	TerrainAnchorErrorUnsupportedLocation
)

func (s TerrainAnchorState) String() string {
	return anchorStateName(int(s))
}

// RooftopAnchorState is the outcome reported for a rooftop resolution.
type RooftopAnchorState int

const (
	RooftopAnchorNone RooftopAnchorState = iota
	RooftopAnchorSuccess
	RooftopAnchorTaskInProgress
	RooftopAnchorErrorInternal
	RooftopAnchorErrorNotAuthorized
	RooftopAnchorErrorUnsupportedLocation
)

func (s RooftopAnchorState) String() string {
	return anchorStateName(int(s))
}

// terrain and rooftop states share numbering
func anchorStateName(v int) string {
	switch v {
	case 1:
		return "success"
	case 2:
		return "task_in_progress"
	case 3:
		return "error_internal"
	case 4:
		return "error_not_authorized"
	case 5:
		return "error_unsupported_location"
	}
	return "none"
}

// ParseAnchorOutcome maps a state name to its numeric value, shared by the
// terrain and rooftop enumerations. Unknown names map to none.
func ParseAnchorOutcome(s string) int {
	for v := 1; v <= 5; v++ {
		if anchorStateName(v) == s {
			return v
		}
	}
	return 0
}
