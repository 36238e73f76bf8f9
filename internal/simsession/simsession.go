// Package simsession is a stand-in tracking session for running anchors
// without a device. It boots after a number of ticks, warms up Earth
// tracking, and answers terrain and rooftop requests after a configurable
// latency with a configurable outcome.
package simsession

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/promise"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Outcome is how the simulated service answers one kind of request.
type Outcome struct {
	// State is a terrain/rooftop state name, e.g. "success" or
	// "error_internal". Unknown names behave like "none".
	State         string
	LatencyTicks  int
	// SurfaceHeight is the ellipsoidal height of the terrain or roof the
	// offset is applied to.
	SurfaceHeight float64
}

// Config describes the simulated session.
type Config struct {
	BootTicks           int
	TrackingWarmupTicks int
	HasAnchorManager    bool
	// ManualFails makes AddAnchor return nil.
	ManualFails         bool
	Terrain             Outcome
	Rooftop             Outcome
	// Reference is the scene origin resolved anchors are placed against.
	Reference           core.ReferencePoint
}

type pendingResolve struct {
	id      int
	due     int
	resolve func()
}

// Session implements session.Session and session.Provider. Advance must be
// called once per host tick.
type Session struct {
	cfg    Config
	pair   geo.TransformPair
	logger *slog.Logger

	mu      sync.Mutex
	tick    int
	nextID  int
	pending []pendingResolve
	anchors []*scene.Transform
}

// New creates a simulated session at tick 0.
func New(cfg Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		pair:   geo.DeriveTransform(cfg.Reference),
		logger: logger.With("component", "simsession"),
	}
}

// Current returns nil until the session has booted.
func (s *Session) Current() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tick < s.cfg.BootTicks {
		return nil
	}
	return s
}

func (s *Session) IsValid() bool { return true }

func (s *Session) EarthTrackingState() core.TrackingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tick < s.cfg.BootTicks+s.cfg.TrackingWarmupTicks {
		return core.TrackingNone
	}
	return core.Tracking
}

func (s *Session) AnchorManager() (session.AnchorManager, bool) {
	if !s.cfg.HasAnchorManager {
		return nil, false
	}
	return s, true
}

// Tick returns the number of Advance calls so far.
func (s *Session) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// Pending returns the number of requests still waiting for their latency.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Anchors returns every anchor the session created.
func (s *Session) Anchors() []*scene.Transform {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*scene.Transform, len(s.anchors))
	copy(out, s.anchors)
	return out
}

// Advance moves the session one tick forward and completes every request
// whose latency has elapsed, in the order they were issued.
func (s *Session) Advance() {
	s.mu.Lock()
	s.tick++
	var due []pendingResolve
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.due <= s.tick {
			due = append(due, p)
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
	s.mu.Unlock()

	for _, p := range due {
		p.resolve()
	}
}

// AddAnchor implements session.AnchorManager.
func (s *Session) AddAnchor(latitude, longitude, altitude float64, rotation mgl64.Quat) scene.Node {
	if s.cfg.ManualFails {
		s.logger.Debug("add anchor refused", "latitude", latitude, "longitude", longitude)
		return nil
	}
	return s.place(core.GeodeticCoordinate{Latitude: latitude, Longitude: longitude, Height: altitude}, rotation)
}

// ResolveOnTerrainAsync implements session.AnchorManager.
func (s *Session) ResolveOnTerrainAsync(latitude, longitude, altitudeOffset float64, rotation mgl64.Quat) *promise.Promise[session.TerrainResult] {
	out := s.cfg.Terrain
	state := core.TerrainAnchorState(core.ParseAnchorOutcome(out.State))
	coord := core.GeodeticCoordinate{Latitude: latitude, Longitude: longitude, Height: out.SurfaceHeight + altitudeOffset}

	var p *promise.Promise[session.TerrainResult]
	id := s.enqueue(out.LatencyTicks, func() {
		res := session.TerrainResult{State: state}
		if state == core.TerrainAnchorSuccess {
			res.Anchor = s.place(coord, rotation)
		}
		p.Resolve(res)
	})
	p = promise.New[session.TerrainResult](func() { s.drop(id) })
	return p
}

// ResolveOnRooftopAsync implements session.AnchorManager.
func (s *Session) ResolveOnRooftopAsync(latitude, longitude, altitudeOffset float64, rotation mgl64.Quat) *promise.Promise[session.RooftopResult] {
	out := s.cfg.Rooftop
	state := core.RooftopAnchorState(core.ParseAnchorOutcome(out.State))
	coord := core.GeodeticCoordinate{Latitude: latitude, Longitude: longitude, Height: out.SurfaceHeight + altitudeOffset}

	var p *promise.Promise[session.RooftopResult]
	id := s.enqueue(out.LatencyTicks, func() {
		res := session.RooftopResult{State: state}
		if state == core.RooftopAnchorSuccess {
			res.Anchor = s.place(coord, rotation)
		}
		p.Resolve(res)
	})
	p = promise.New[session.RooftopResult](func() { s.drop(id) })
	return p
}

// enqueue schedules resolve for latency ticks from now. Zero latency still
// waits for the next Advance.
func (s *Session) enqueue(latency int, resolve func()) int {
	if latency < 1 {
		latency = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.pending = append(s.pending, pendingResolve{id: s.nextID, due: s.tick + latency, resolve: resolve})
	return s.nextID
}

func (s *Session) drop(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pending {
		if p.id == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// place creates an anchor node at c in the scene around the reference.
func (s *Session) place(c core.GeodeticCoordinate, rotation mgl64.Quat) *scene.Transform {
	s.mu.Lock()
	name := fmt.Sprintf("geospatial-anchor-%d", len(s.anchors)+1)
	n := scene.NewTransform(name)
	s.anchors = append(s.anchors, n)
	s.mu.Unlock()

	n.SetLocalPosition(geo.SetPositionFromGeodetic(c, s.pair))
	n.SetLocalRotation(rotation)
	s.logger.Debug("anchor placed", "anchor", name, "coordinate", c.String())
	return n
}
