package anchor

import (
	"context"
	"math"
	"testing"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertVec3Near(t *testing.T, expected, actual mgl64.Vec3, delta float64) {
	t.Helper()
	assert.InDeltaSlice(t, expected[:], actual[:], delta)
}

var googleplex = core.ReferencePoint{Latitude: 37.4220, Longitude: -122.0841, Height: 10}

func newAuthoringAnchor(t *testing.T, refs ReferencePointProvider) (*Anchor, *scene.Transform) {
	t.Helper()
	node := scene.NewTransform("marker")
	a, err := New(Config{
		Name:      "marker",
		Node:      node,
		Mode:      core.Authoring,
		Reference: googleplex,
	}, Deps{References: refs})
	require.NoError(t, err)
	return a, node
}

func assertGeodeticNear(t *testing.T, expected, actual core.GeodeticCoordinate) {
	t.Helper()
	assert.InDelta(t, expected.Latitude, actual.Latitude, 1e-9)
	assert.InDelta(t, expected.Longitude, actual.Longitude, 1e-9)
	assert.InDelta(t, expected.Height, actual.Height, 1e-6)
}

func TestAuthoring_FirstUpdateReadsPose(t *testing.T) {
	a, _ := newAuthoringAnchor(t, nil)

	_, ok := a.Views()
	assert.False(t, ok)

	a.Update(context.Background())

	assertGeodeticNear(t, googleplex.Coordinate(), a.Geodetic())
	views, ok := a.Views()
	require.True(t, ok)
	assert.Less(t, views.ECEF.Sub(geo.GeodeticToEcef(googleplex.Coordinate())).Len(), 1e-6)
	assert.Equal(t, core.NotStarted, a.State())
	assert.Equal(t, core.Authoring, a.Mode())
}

func TestAuthoring_ViewsFollowAxisConvention(t *testing.T) {
	a, node := newAuthoringAnchor(t, nil)
	node.SetLocalPosition(mgl64.Vec3{10, 20, 30})

	a.Update(context.Background())

	views, _ := a.Views()
	assert.Equal(t, mgl64.Vec3{10, 20, 30}, views.EUN)
	assert.Equal(t, mgl64.Vec3{10, 30, 20}, views.ENU)
	assert.Equal(t, mgl64.Vec3{10, 20, -30}, views.EUS)
}

func TestAuthoring_MovingEastIncreasesLongitude(t *testing.T) {
	a, node := newAuthoringAnchor(t, StaticReference(core.ReferencePoint{}))
	ctx := context.Background()
	a.Update(ctx)

	node.SetLocalPosition(mgl64.Vec3{100, 0, 0})
	a.Update(ctx)

	assert.InDelta(t, 0, a.Latitude(), 1e-12)
	assert.InDelta(t, 100/geo.SemiMajorAxis*180/math.Pi, a.Longitude(), 1e-9)
	assert.Greater(t, a.Altitude(), 0.0)
}

func TestAuthoring_ReferenceChangeAloneKeepsGeodetic(t *testing.T) {
	ref := googleplex
	a, _ := newAuthoringAnchor(t, ReferenceFunc(func(scene.Node) *core.ReferencePoint {
		r := ref
		return &r
	}))
	ctx := context.Background()

	a.Update(ctx)
	before := a.Geodetic()
	viewsBefore, _ := a.Views()

	ref.Latitude += 0.01
	a.Update(ctx)

	assert.Equal(t, before, a.Geodetic(), "geodetic fields must not follow the reference")
	viewsAfter, _ := a.Views()
	assert.Greater(t, viewsBefore.ECEF.Sub(viewsAfter.ECEF).Len(), 100.0, "ECEF view follows the new reference")
}

func TestAuthoring_PoseChangeRefreshesGeodetic(t *testing.T) {
	for name, move := range map[string]func(n *scene.Transform){
		"position": func(n *scene.Transform) { n.SetLocalPosition(mgl64.Vec3{0, 0, 5}) },
		"rotation": func(n *scene.Transform) { n.SetLocalRotation(mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})) },
		"scale":    func(n *scene.Transform) { n.SetLocalScale(mgl64.Vec3{2, 2, 2}) },
	} {
		t.Run(name, func(t *testing.T) {
			a, node := newAuthoringAnchor(t, nil)
			ctx := context.Background()
			a.Update(ctx)

			a.SetLatitude(0)
			a.Update(ctx)
			assert.Equal(t, 0.0, a.Latitude(), "edited field kept while the pose is still")

			move(node)
			a.Update(ctx)
			assert.NotEqual(t, 0.0, a.Latitude())
		})
	}
}

func TestAuthoring_NilReferenceFallsBackToLastKnown(t *testing.T) {
	answer := &core.ReferencePoint{Latitude: 51.4779, Longitude: -0.0015, Height: 45}
	calls := 0
	a, _ := newAuthoringAnchor(t, ReferenceFunc(func(scene.Node) *core.ReferencePoint {
		calls++
		if calls == 1 {
			return answer
		}
		return nil
	}))

	// the constructor consumed the only answer
	a.Update(context.Background())

	assertGeodeticNear(t, answer.Coordinate(), a.Geodetic())
}

func TestAuthoring_NilReferenceUsesConfiguredReference(t *testing.T) {
	a, _ := newAuthoringAnchor(t, ReferenceFunc(func(scene.Node) *core.ReferencePoint { return nil }))

	a.Update(context.Background())

	assertGeodeticNear(t, googleplex.Coordinate(), a.Geodetic())
}

func TestAuthoring_SnapToGeodetic(t *testing.T) {
	a, node := newAuthoringAnchor(t, nil)
	ctx := context.Background()
	a.Update(ctx)

	target := core.GeodeticCoordinate{Latitude: 37.4225, Longitude: -122.0845, Height: 25}
	a.SetLatitude(target.Latitude)
	a.SetLongitude(target.Longitude)
	a.SetAltitude(target.Height)

	require.NoError(t, a.SnapToGeodetic())

	want := geo.SetPositionFromGeodetic(target, geo.DeriveTransform(googleplex))
	assertVec3Near(t, want, node.LocalPosition(), 1e-9)
	// north of the reference is +Z in scene axes, above it is +Y
	assert.Greater(t, node.LocalPosition()[2], 0.0)
	assert.Greater(t, node.LocalPosition()[1], 0.0)

	a.Update(ctx)
	assert.Equal(t, target, a.Geodetic(), "snap must not be overwritten by the round trip")

	views, _ := a.Views()
	assertGeodeticNear(t, target, views.Geodetic())
}

func TestAuthoring_SnapUnderParent(t *testing.T) {
	a, node := newAuthoringAnchor(t, nil)
	parent := scene.NewTransform("group")
	parent.SetLocalPosition(mgl64.Vec3{50, 0, 0})
	node.SetParent(parent, false)

	a.SetLatitude(googleplex.Latitude)
	a.SetLongitude(googleplex.Longitude)
	a.SetAltitude(googleplex.Height)
	require.NoError(t, a.SnapToGeodetic())

	assertVec3Near(t, mgl64.Vec3{}, scene.WorldPosition(node), 1e-6)
	assertVec3Near(t, mgl64.Vec3{-50, 0, 0}, node.LocalPosition(), 1e-6)
}
