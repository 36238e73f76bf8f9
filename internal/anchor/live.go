package anchor

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/internal/scheduler"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// live makes exactly one resolution attempt. State moves
// NotStarted -> InProgress -> Complete and never back; every tick after
// Complete is a no-op.
type live struct {
	a        *Anchor
	sessions session.Provider
	sched    *scheduler.Scheduler
	journal  Journal

	state    core.ResolutionState
	// req is the attempt in flight, kept so a panic can still be journaled.
	req      request
	recorded bool

	resolutions metric.Int64Counter
}

// request is the attempt as issued. Later property changes do not affect it.
type request struct {
	altitudeType   core.AltitudeType
	latitude       float64
	longitude      float64
	altitude       float64
	altitudeOffset float64
	rotation       mgl64.Quat
}

func newLive(a *Anchor, sessions session.Provider, sched *scheduler.Scheduler, journal Journal) (*live, error) {
	counter, err := meter().Int64Counter(
		"anchor.resolutions",
		metric.WithDescription("Terminated anchor resolution attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolutions counter: %w", err)
	}

	return &live{
		a:           a,
		sessions:    sessions,
		sched:       sched,
		journal:     journal,
		resolutions: counter,
	}, nil
}

func (b *live) Mode() core.Mode               { return core.Live }
func (b *live) State() core.ResolutionState   { return b.state }
func (b *live) Views() (geo.LocalViews, bool) { return geo.LocalViews{}, false }

func (b *live) Update(ctx context.Context) {
	if b.state != core.NotStarted {
		return
	}
	defer b.recoverAttempt(ctx)
	b.update(ctx)
}

// recoverAttempt turns a panic raised by a collaborator into a failed,
// journaled attempt so the host and the other anchors keep running.
func (b *live) recoverAttempt(ctx context.Context) {
	r := recover()
	if r == nil {
		return
	}
	b.a.logger.Error("anchor resolution panicked", "panic", fmt.Sprint(r))
	b.state = core.Complete
	if !b.recorded {
		b.record(ctx, b.req, core.OutcomeFailed, "", nil)
	}
}

func (b *live) update(ctx context.Context) {

	// the session shows up a few ticks after boot
	s := b.sessions.Current()
	if s == nil || !s.IsValid() {
		return
	}

	if ts := s.EarthTrackingState(); ts != core.Tracking {
		b.a.logger.Debug("waiting for earth tracking to become stable", "tracking", ts.String())
		return
	}

	mgr, ok := s.AnchorManager()
	if !ok || mgr == nil {
		b.a.logger.Error("session has no anchor manager, unable to place anchor")
		b.state = core.Complete
		b.req = b.newRequest()
		b.record(ctx, b.req, core.OutcomeConfigError, "", nil)
		return
	}

	b.state = core.InProgress
	b.req = b.newRequest()
	req := b.req
	b.a.logger.Debug("resolving anchor",
		"altitudeType", req.altitudeType.String(),
		"latitude", req.latitude,
		"longitude", req.longitude)

	switch req.altitudeType {
	case core.ManualAltitude:
		anchor := mgr.AddAnchor(req.latitude, req.longitude, req.altitude, req.rotation)
		b.finish(ctx, req, anchor, "")

	case core.Terrain:
		p := mgr.ResolveOnTerrainAsync(req.latitude, req.longitude, req.altitudeOffset, req.rotation)
		if p == nil {
			b.finish(ctx, req, nil, core.TerrainAnchorNone.String())
			return
		}
		resume := context.WithoutCancel(ctx)
		scheduler.Await(b.sched, b.a.name, p, func(res session.TerrainResult, err error) {
			defer b.recoverAttempt(resume)
			var anchor scene.Node
			if err == nil && res.State == core.TerrainAnchorSuccess {
				anchor = res.Anchor
			}
			b.finish(resume, req, anchor, res.State.String())
		})

	case core.Rooftop:
		p := mgr.ResolveOnRooftopAsync(req.latitude, req.longitude, req.altitudeOffset, req.rotation)
		if p == nil {
			b.finish(ctx, req, nil, core.RooftopAnchorNone.String())
			return
		}
		resume := context.WithoutCancel(ctx)
		scheduler.Await(b.sched, b.a.name, p, func(res session.RooftopResult, err error) {
			defer b.recoverAttempt(resume)
			var anchor scene.Node
			if err == nil && res.State == core.RooftopAnchorSuccess {
				anchor = res.Anchor
			}
			b.finish(resume, req, anchor, res.State.String())
		})

	default:
		b.a.logger.Error("unsupported altitude type", "altitudeType", req.altitudeType.String())
		b.state = core.Complete
		b.record(ctx, req, core.OutcomeConfigError, "", nil)
	}
}

func (b *live) newRequest() request {
	return request{
		altitudeType:   b.a.altitudeType,
		latitude:       b.a.latitude,
		longitude:      b.a.longitude,
		altitude:       b.a.altitude,
		altitudeOffset: b.a.altitudeOffset,
		rotation:       scene.WorldRotation(b.a.node),
	}
}

// finish ends the attempt. A nil anchor is a permanent failure: the node is
// left where it is and no retry is made. On success the node becomes a
// zero-offset child of the resolved anchor.
func (b *live) finish(ctx context.Context, req request, resolved scene.Node, resultState string) {
	b.state = core.Complete

	if scene.IsNil(resolved) {
		b.a.logger.Error("failed to resolve geospatial anchor",
			"altitudeType", req.altitudeType.String(),
			"result", resultState)
		b.record(ctx, req, core.OutcomeFailed, resultState, nil)
		return
	}

	parent := resolved.Name()

	node := b.a.node
	node.SetLocalPosition(mgl64.Vec3{})
	node.SetLocalRotation(mgl64.QuatIdent())
	node.SetParent(resolved, false)

	b.a.logger.Info("geospatial anchor resolved",
		"altitudeType", req.altitudeType.String(),
		"parent", parent)
	b.record(ctx, req, core.OutcomeResolved, resultState, resolved)
}

func (b *live) record(ctx context.Context, req request, outcome core.ResolutionOutcome, resultState string, resolved scene.Node) {
	b.recorded = true
	b.resolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("altitude_type", req.altitudeType.String()),
	))

	if b.journal == nil {
		return
	}

	rec := core.ResolutionRecord{
		AnchorName:     b.a.name,
		AltitudeType:   req.altitudeType,
		Latitude:       req.latitude,
		Longitude:      req.longitude,
		Altitude:       req.altitude,
		AltitudeOffset: req.altitudeOffset,
		Outcome:        outcome,
		ResultState:    resultState,
		Rotation:       [4]float64{req.rotation.W, req.rotation.V[0], req.rotation.V[1], req.rotation.V[2]},
		Time:           time.Now(),
	}
	if !scene.IsNil(resolved) {
		rec.ResolvedAnchor = resolved.Name()
	}
	b.journal.Record(rec)
}
