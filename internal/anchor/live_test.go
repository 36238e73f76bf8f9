package anchor

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/internal/session"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLive_ManualResolvesInOneTick(t *testing.T) {
	f := newLiveFixture(t, Config{
		Name:         "cafe",
		AltitudeType: core.ManualAltitude,
		Latitude:     37.4220,
		Longitude:    -122.0841,
		Altitude:     15.0,
	})
	rotation := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	f.node.SetLocalPosition(mgl64.Vec3{3, 4, 5})
	f.node.SetLocalRotation(rotation)

	assert.Equal(t, core.NotStarted, f.anchor.State())
	f.tick()

	require.Equal(t, core.Complete, f.anchor.State(), f)
	require.Len(t, f.mgr.calls, 1)
	call := f.mgr.calls[0]
	assert.Equal(t, "AddAnchor", call.method)
	assert.Equal(t, 37.4220, call.lat)
	assert.Equal(t, -122.0841, call.lon)
	assert.Equal(t, 15.0, call.alt)
	assert.InDelta(t, rotation.W, call.rotation.W, 1e-12)
	assertVec3Near(t, rotation.V, call.rotation.V, 1e-12)

	assert.Same(t, f.mgr.addResult, f.node.Parent())
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, f.node.LocalPosition())
	assert.Equal(t, mgl64.QuatIdent(), f.node.LocalRotation())

	require.Len(t, f.journal.records, 1)
	rec := f.journal.records[0]
	assert.Equal(t, core.OutcomeResolved, rec.Outcome)
	assert.Equal(t, "cafe", rec.AnchorName)
	assert.Equal(t, "geo-anchor-1", rec.ResolvedAnchor)
	assert.Equal(t, 1, f.logs.count(slog.LevelInfo))
}

func TestLive_ManualAddsAnchorExactlyOnce(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.ManualAltitude})

	for i := 0; i < 20; i++ {
		f.tick()
	}

	assert.Len(t, f.mgr.calls, 1)
	assert.Len(t, f.journal.records, 1)
}

func TestLive_NoSessionStaysNotStarted(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.ManualAltitude})
	f.current = nil

	for i := 0; i < 5; i++ {
		f.tick()
		assert.Equal(t, core.NotStarted, f.anchor.State(), "tick %d", i)
	}

	assert.Empty(t, f.mgr.calls)
	assert.Empty(t, f.journal.records)
	assert.Zero(t, f.logs.len())
}

func TestLive_WaitsForValidSessionAndTracking(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.ManualAltitude})
	f.logs.level = slog.LevelDebug
	sess := &fakeSession{valid: false, tracking: core.TrackingNone, mgr: f.mgr}
	f.current = sess

	f.tick()
	assert.Equal(t, core.NotStarted, f.anchor.State())

	sess.valid = true
	for _, ts := range []core.TrackingState{core.TrackingNone, core.TrackingPaused, core.TrackingStopped} {
		sess.tracking = ts
		f.tick()
		assert.Equal(t, core.NotStarted, f.anchor.State(), ts.String())
	}
	assert.Empty(t, f.mgr.calls)
	assert.Equal(t, 3, f.logs.count(slog.LevelDebug))

	sess.tracking = core.Tracking
	f.tick()
	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Len(t, f.mgr.calls, 1)
}

func TestLive_MissingAnchorManagerIsTerminal(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Terrain})
	f.current = &fakeSession{valid: true, tracking: core.Tracking}

	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Equal(t, 1, f.logs.count(slog.LevelError))
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, core.OutcomeConfigError, f.journal.records[0].Outcome)

	// a manager appearing later is ignored
	f.current = &fakeSession{valid: true, tracking: core.Tracking, mgr: f.mgr}
	for i := 0; i < 5; i++ {
		f.tick()
	}
	assert.Empty(t, f.mgr.calls)
	assert.Equal(t, core.Complete, f.anchor.State())
}

func TestLive_TerrainFailureIsTerminal(t *testing.T) {
	f := newLiveFixture(t, Config{
		AltitudeType:   core.Terrain,
		Latitude:       48.8584,
		Longitude:      2.2945,
		Altitude:       300,
		AltitudeOffset: 1.5,
	})
	f.node.SetLocalPosition(mgl64.Vec3{1, 2, 3})

	f.tick()
	require.Equal(t, core.InProgress, f.anchor.State())
	require.Len(t, f.mgr.terrain, 1)
	assert.Equal(t, 1.5, f.mgr.calls[0].alt, "terrain requests carry the offset")

	f.tick()
	assert.Equal(t, core.InProgress, f.anchor.State())

	f.mgr.terrain[0].Resolve(session.TerrainResult{State: core.TerrainAnchorErrorInternal})
	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Nil(t, f.node.Parent())
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, f.node.LocalPosition())
	assert.Equal(t, 1, f.logs.len(), f)
	assert.Equal(t, 1, f.logs.count(slog.LevelError))

	for i := 0; i < 10; i++ {
		f.tick()
	}
	assert.Len(t, f.mgr.calls, 1)
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, core.OutcomeFailed, f.journal.records[0].Outcome)
	assert.Equal(t, "error_internal", f.journal.records[0].ResultState)
}

func TestLive_TerrainAnyStateButSuccessFails(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Terrain})

	f.tick()
	// an anchor alongside a non-success state is ignored
	f.mgr.terrain[0].Resolve(session.TerrainResult{
		State:  core.TerrainAnchorTaskInProgress,
		Anchor: scene.NewTransform("premature"),
	})
	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Nil(t, f.node.Parent())
}

func TestLive_TerrainSuccessReparents(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Terrain})
	resolved := scene.NewTransform("terrain-anchor")

	f.tick()
	f.mgr.terrain[0].Resolve(session.TerrainResult{State: core.TerrainAnchorSuccess, Anchor: resolved})
	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Same(t, resolved, f.node.Parent())
}

func TestLive_RooftopResolvesOnLaterTick(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Rooftop, AltitudeOffset: 2})
	f.node.SetLocalPosition(mgl64.Vec3{7, 8, 9})
	resolved := scene.NewTransform("rooftop-anchor")

	var states []core.ResolutionState
	for i := 0; i < 8; i++ {
		if i == 4 {
			f.mgr.rooftop[0].Resolve(session.RooftopResult{State: core.RooftopAnchorSuccess, Anchor: resolved})
		}
		f.tick()
		states = append(states, f.anchor.State())
	}

	for i := 1; i < len(states); i++ {
		assert.GreaterOrEqual(t, states[i], states[i-1], "state went backwards at tick %d", i)
	}
	assert.Equal(t, core.InProgress, states[3])
	assert.Equal(t, core.Complete, states[4])

	assert.Len(t, f.mgr.calls, 1)
	assert.Equal(t, "ResolveOnRooftopAsync", f.mgr.calls[0].method)
	assert.Same(t, resolved, f.node.Parent())
	assert.Equal(t, mgl64.Vec3{}, f.node.LocalPosition())
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, "rooftop-anchor", f.journal.records[0].ResolvedAnchor)
	assert.Equal(t, "success", f.journal.records[0].ResultState)
}

func TestLive_ContinuationRunsOnLaterTick(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Rooftop})

	f.tick()
	// already complete before the next tick starts
	f.mgr.rooftop[0].Resolve(session.RooftopResult{State: core.RooftopAnchorSuccess, Anchor: scene.NewTransform("a")})
	assert.Equal(t, core.InProgress, f.anchor.State())

	f.tick()
	assert.Equal(t, core.Complete, f.anchor.State())
}

func TestLive_RequestIsCapturedWhenIssued(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Rooftop, Latitude: 1, Longitude: 2, AltitudeOffset: 3})

	f.tick()
	f.anchor.SetAltitudeOffset(99)
	f.anchor.SetAltitudeType(core.ManualAltitude)
	f.mgr.rooftop[0].Resolve(session.RooftopResult{State: core.RooftopAnchorErrorNotAuthorized})
	f.tick()

	require.Len(t, f.journal.records, 1)
	rec := f.journal.records[0]
	assert.Equal(t, core.Rooftop, rec.AltitudeType)
	assert.Equal(t, 3.0, rec.AltitudeOffset)
	assert.Equal(t, core.GeodeticCoordinate{Latitude: 1, Longitude: 2, Height: 3}, rec.Coordinate())
}

func TestLive_CancelledPromiseFails(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Terrain})

	f.tick()
	f.mgr.terrain[0].Cancel()
	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Nil(t, f.node.Parent())
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, core.OutcomeFailed, f.journal.records[0].Outcome)
}

func TestLive_NilPromiseFails(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Rooftop})
	f.mgr.nilAsync = true

	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Equal(t, 0, f.sched.Pending())
	assert.Equal(t, 1, f.logs.count(slog.LevelError))
}

func TestLive_ManualNilAnchorFails(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.ManualAltitude})
	f.mgr.addResult = nil
	f.node.SetLocalPosition(mgl64.Vec3{1, 1, 1})

	f.tick()
	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Len(t, f.mgr.calls, 1)
	assert.Nil(t, f.node.Parent())
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, f.node.LocalPosition())
	assert.Equal(t, 1, f.logs.count(slog.LevelError))
}

func TestLive_UnknownAltitudeTypeIsConfigError(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.AltitudeType(42)})

	f.tick()

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Empty(t, f.mgr.calls)
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, core.OutcomeConfigError, f.journal.records[0].Outcome)
}

func TestLive_NoViewsAndNoSnap(t *testing.T) {
	f := newLiveFixture(t, Config{})

	_, ok := f.anchor.Views()
	assert.False(t, ok)
	assert.ErrorIs(t, f.anchor.SnapToGeodetic(), ErrNotAuthoring)
	assert.Equal(t, core.Live, f.anchor.Mode())
}

func TestLive_IndependentAnchors(t *testing.T) {
	ok := newLiveFixture(t, Config{Name: "ok", AltitudeType: core.ManualAltitude})
	broken := newLiveFixture(t, Config{Name: "broken", AltitudeType: core.ManualAltitude})
	broken.mgr.addResult = nil

	broken.tick()
	ok.tick()

	assert.Nil(t, broken.node.Parent())
	assert.NotNil(t, ok.node.Parent())
	assert.Equal(t, core.OutcomeFailed, broken.journal.records[0].Outcome)
	assert.Equal(t, core.OutcomeResolved, ok.journal.records[0].Outcome)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Name: "x"}, Deps{})
	assert.Error(t, err)

	_, err = New(Config{Node: scene.NewTransform("x"), Mode: core.Mode(9)}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, err = New(Config{Node: scene.NewTransform("x"), Mode: core.Live}, Deps{})
	assert.Error(t, err, "live mode without collaborators")

	a, err := New(Config{Node: scene.NewTransform("fallback-name"), Mode: core.Authoring}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "fallback-name", a.Name())
	a.Update(context.Background())
}

func TestLive_TypedNilAnchorFails(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.ManualAltitude})
	f.mgr.addResult = (*scene.Transform)(nil)

	require.NotPanics(t, f.tick)

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.True(t, scene.IsNil(f.node.Parent()))
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, core.OutcomeFailed, f.journal.records[0].Outcome)
	assert.Empty(t, f.journal.records[0].ResolvedAnchor)
}

// panickingManager fails inside the call that issues the request.
type panickingManager struct {
	*fakeManager
}

func (m panickingManager) AddAnchor(float64, float64, float64, mgl64.Quat) scene.Node {
	panic("anchor manager crashed")
}

func TestLive_PanickingManagerFailsTheAttempt(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.ManualAltitude, Latitude: 1, Longitude: 2})
	f.current = &fakeSession{valid: true, tracking: core.Tracking, mgr: panickingManager{f.mgr}}

	require.NotPanics(t, f.tick)
	require.NotPanics(t, f.tick)

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Nil(t, f.node.Parent())
	require.Len(t, f.journal.records, 1)
	rec := f.journal.records[0]
	assert.Equal(t, core.OutcomeFailed, rec.Outcome)
	assert.Equal(t, 1.0, rec.Latitude)
	assert.Equal(t, 2.0, rec.Longitude)
	assert.Contains(t, f.logs.messages(), "anchor resolution panicked")
}

func TestLive_PanickingContinuationFailsTheAttempt(t *testing.T) {
	f := newLiveFixture(t, Config{AltitudeType: core.Terrain})

	f.tick()
	// a result whose anchor panics on first use
	f.mgr.terrain[0].Resolve(session.TerrainResult{State: core.TerrainAnchorSuccess, Anchor: explodingNode{}})
	require.NotPanics(t, f.tick)

	assert.Equal(t, core.Complete, f.anchor.State())
	assert.Equal(t, 0, f.sched.Pending())
	assert.Nil(t, f.node.Parent())
	require.Len(t, f.journal.records, 1)
	assert.Equal(t, core.OutcomeFailed, f.journal.records[0].Outcome)
}

// explodingNode panics on every call.
type explodingNode struct{ scene.Node }
