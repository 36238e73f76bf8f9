// Package anchor pins a scene node to a geodetic location. In authoring
// mode it keeps the node's scene position and its latitude, longitude and
// altitude in sync every tick. In live mode it resolves the location once
// against the tracking session and reparents the node under the result.
package anchor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/internal/scheduler"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/pkg/core"
)

var (
	// ErrNotAuthoring is returned by operations that only exist in authoring mode.
	ErrNotAuthoring = errors.New("anchor is not in authoring mode")
	// ErrUnknownMode is returned by New for a mode it has no behaviour for.
	ErrUnknownMode = errors.New("unknown anchor mode")
)

// GeodeticAnchorBehavior is what an anchor does on every host tick. There
// is one implementation per core.Mode.
type GeodeticAnchorBehavior interface {
	Mode() core.Mode
	Update(ctx context.Context)
	// State is the live resolution state. Authoring behaviour never leaves
	// core.NotStarted.
	State() core.ResolutionState
	// Views returns the node's position in every local frame, or false if
	// the behaviour does not track them.
	Views() (geo.LocalViews, bool)
}

// Journal receives one record per terminated resolution attempt.
type Journal interface {
	Record(rec core.ResolutionRecord)
}

// Config is the static description of one anchor.
type Config struct {
	Name           string
	Node           scene.Node
	Mode           core.Mode
	AltitudeType   core.AltitudeType
	Latitude       float64
	Longitude      float64
	Altitude       float64
	AltitudeOffset float64
	// Reference is the origin used until the provider answers.
	Reference      core.ReferencePoint
}

// Deps are the collaborators an anchor talks to. Authoring needs
// References (a static provider over Config.Reference is used if nil).
// Live needs Sessions and Scheduler. Journal and Logger are optional.
type Deps struct {
	Logger     *slog.Logger
	References ReferencePointProvider
	Sessions   session.Provider
	Scheduler  *scheduler.Scheduler
	Journal    Journal
}

// Anchor is a scene node with a geodetic location.
type Anchor struct {
	name string
	node scene.Node

	altitudeType   core.AltitudeType
	latitude       float64
	longitude      float64
	altitude       float64
	altitudeOffset float64

	behavior GeodeticAnchorBehavior
	logger   *slog.Logger
}

// New builds an anchor and the behaviour for cfg.Mode. Authoring behaviour
// derives its transform immediately.
func New(cfg Config, deps Deps) (*Anchor, error) {
	if cfg.Node == nil {
		return nil, fmt.Errorf("anchor %q: node is required", cfg.Name)
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Node.Name()
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Anchor{
		name:           name,
		node:           cfg.Node,
		altitudeType:   cfg.AltitudeType,
		latitude:       cfg.Latitude,
		longitude:      cfg.Longitude,
		altitude:       cfg.Altitude,
		altitudeOffset: cfg.AltitudeOffset,
		logger:         logger.With("anchor", name, "mode", cfg.Mode.String()),
	}

	switch cfg.Mode {
	case core.Authoring:
		refs := deps.References
		if refs == nil {
			refs = StaticReference(cfg.Reference)
		}
		a.behavior = newAuthoring(a, refs, cfg.Reference)
	case core.Live:
		if deps.Sessions == nil || deps.Scheduler == nil {
			return nil, fmt.Errorf("anchor %q: live mode needs a session provider and a scheduler", name)
		}
		b, err := newLive(a, deps.Sessions, deps.Scheduler, deps.Journal)
		if err != nil {
			return nil, fmt.Errorf("anchor %q: %w", name, err)
		}
		a.behavior = b
	default:
		return nil, fmt.Errorf("anchor %q: %w: %s", name, ErrUnknownMode, cfg.Mode)
	}

	return a, nil
}

func (a *Anchor) Name() string     { return a.name }
func (a *Anchor) Node() scene.Node { return a.node }
func (a *Anchor) Mode() core.Mode  { return a.behavior.Mode() }

// Update runs one host tick.
func (a *Anchor) Update(ctx context.Context) { a.behavior.Update(ctx) }

// State returns the live resolution state.
func (a *Anchor) State() core.ResolutionState { return a.behavior.State() }

// Views returns the node's position in every local frame. Only authoring
// anchors track them.
func (a *Anchor) Views() (geo.LocalViews, bool) { return a.behavior.Views() }

func (a *Anchor) Latitude() float64                   { return a.latitude }
func (a *Anchor) SetLatitude(v float64)               { a.latitude = v }
func (a *Anchor) Longitude() float64                  { return a.longitude }
func (a *Anchor) SetLongitude(v float64)              { a.longitude = v }
func (a *Anchor) Altitude() float64                   { return a.altitude }
func (a *Anchor) SetAltitude(v float64)               { a.altitude = v }
func (a *Anchor) AltitudeOffset() float64             { return a.altitudeOffset }
func (a *Anchor) SetAltitudeOffset(v float64)         { a.altitudeOffset = v }
func (a *Anchor) AltitudeType() core.AltitudeType     { return a.altitudeType }
func (a *Anchor) SetAltitudeType(t core.AltitudeType) { a.altitudeType = t }

// Geodetic returns the anchor's coordinate with its ellipsoidal altitude.
func (a *Anchor) Geodetic() core.GeodeticCoordinate {
	return core.GeodeticCoordinate{Latitude: a.latitude, Longitude: a.longitude, Height: a.altitude}
}

// SnapToGeodetic moves the node to the anchor's current latitude,
// longitude and altitude.
func (a *Anchor) SnapToGeodetic() error {
	b, ok := a.behavior.(*authoring)
	if !ok {
		return ErrNotAuthoring
	}
	b.snap()
	return nil
}
