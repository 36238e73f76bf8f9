// Package session declares the collaborators an anchor needs to resolve
// against the real world. The current session is passed in through a
// Provider instead of being read from a global.
package session

import (
	"github.com/OCAP2/geoanchor/internal/promise"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Session is a live handle to the tracking service.
type Session interface {
	IsValid() bool
	EarthTrackingState() core.TrackingState
	// AnchorManager returns the anchor collaborator, or false when the
	// session was set up without one.
	AnchorManager() (AnchorManager, bool)
}

// Provider returns the current session, or nil if there is none yet.
type Provider interface {
	Current() Session
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() Session

func (f ProviderFunc) Current() Session { return f() }

// TerrainResult is what a terrain resolution reports once it completes.
// Anchor is only set when State is core.TerrainAnchorSuccess.
type TerrainResult struct {
	State  core.TerrainAnchorState
	Anchor scene.Node
}

// RooftopResult is what a rooftop resolution reports once it completes.
// Anchor is only set when State is core.RooftopAnchorSuccess.
type RooftopResult struct {
	State  core.RooftopAnchorState
	Anchor scene.Node
}

// AnchorManager creates geospatial anchors. Latitude and longitude are in
// degrees, altitudes in metres.
type AnchorManager interface {
	// AddAnchor places an anchor at an ellipsoidal altitude. It returns nil
	// if the anchor could not be created.
	AddAnchor(latitude, longitude, altitude float64, rotation mgl64.Quat) scene.Node
	// ResolveOnTerrainAsync places an anchor altitudeOffset metres above
	// the terrain.
	ResolveOnTerrainAsync(latitude, longitude, altitudeOffset float64, rotation mgl64.Quat) *promise.Promise[TerrainResult]
	// ResolveOnRooftopAsync places an anchor altitudeOffset metres above
	// the rooftop of the building at the location.
	ResolveOnRooftopAsync(latitude, longitude, altitudeOffset float64, rotation mgl64.Quat) *promise.Promise[RooftopResult]
}
