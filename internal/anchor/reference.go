package anchor

import (
	"github.com/OCAP2/geoanchor/internal/scene"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// ReferencePointProvider supplies the geodetic origin of the tangent plane
// a node lives in. It may return nil when it has no answer for the node, in
// which case the last known reference is kept.
type ReferencePointProvider interface {
	ReferencePoint(n scene.Node) *core.ReferencePoint
}

// ReferenceFunc adapts a function to ReferencePointProvider.
type ReferenceFunc func(n scene.Node) *core.ReferencePoint

func (f ReferenceFunc) ReferencePoint(n scene.Node) *core.ReferencePoint { return f(n) }

// StaticReference is a provider that returns the same point for every node.
type StaticReference core.ReferencePoint

func (r StaticReference) ReferencePoint(scene.Node) *core.ReferencePoint {
	p := core.ReferencePoint(r)
	return &p
}
