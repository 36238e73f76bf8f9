package anchor

import (
	"context"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// authoring keeps the node's scene position and the anchor's geodetic
// fields in sync. The scene position (EUN) is relative to the reference
// point's tangent plane.
type authoring struct {
	a    *Anchor
	refs ReferencePointProvider

	// reference and pair are replaced together
	reference core.ReferencePoint
	pair      geo.TransformPair

	views    geo.LocalViews
	hasViews bool

	lastPose scene.Pose
	// refresh is set when the pose moved and the geodetic fields have not
	// been rewritten from it yet.
	refresh  bool
}

func newAuthoring(a *Anchor, refs ReferencePointProvider, initial core.ReferencePoint) *authoring {
	b := &authoring{
		a:         a,
		refs:      refs,
		reference: initial,
		lastPose:  scene.IdentityPose(),
		refresh:   true,
	}
	b.deriveTransform()
	return b
}

func (b *authoring) Mode() core.Mode                { return core.Authoring }
func (b *authoring) State() core.ResolutionState    { return core.NotStarted }
func (b *authoring) Views() (geo.LocalViews, bool)  { return b.views, b.hasViews }
func (b *authoring) Reference() core.ReferencePoint { return b.reference }
func (b *authoring) Transform() geo.TransformPair   { return b.pair }

// deriveTransform rebuilds the transform pair. A nil answer from the
// provider keeps the cached reference.
func (b *authoring) deriveTransform() {
	if ref := b.refs.ReferencePoint(b.a.node); ref != nil {
		b.reference = *ref
	}
	b.pair = geo.DeriveTransform(b.reference)
}

// Update recomputes the transform unconditionally, then rewrites the
// geodetic fields only if the pose changed since they were last written.
// A reference change alone leaves them untouched.
func (b *authoring) Update(context.Context) {
	b.deriveTransform()

	pose := scene.WorldPose(b.a.node)
	b.views = geo.RecomputeLocalPosition(pose.Position, b.pair)
	b.hasViews = true

	if pose != b.lastPose {
		b.refresh = true
		b.lastPose = pose
	}
	if !b.refresh {
		return
	}

	g := b.views.Geodetic()
	b.a.latitude = g.Latitude
	b.a.longitude = g.Longitude
	b.a.altitude = g.Height
	b.refresh = false
}

// snap moves the node to the anchor's geodetic fields. The move is recorded
// as the last pose so the next Update does not write the round-tripped
// coordinate back over the fields.
func (b *authoring) snap() {
	b.deriveTransform()

	eun := geo.SetPositionFromGeodetic(b.a.Geodetic(), b.pair)
	scene.SetWorldPosition(b.a.node, eun)

	b.lastPose = scene.WorldPose(b.a.node)
	b.views = geo.RecomputeLocalPosition(b.lastPose.Position, b.pair)
	b.hasViews = true
	b.refresh = false

	b.a.logger.Debug("snapped to geodetic", "coordinate", b.a.Geodetic().String(), "eun", eun)
}
