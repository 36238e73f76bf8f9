// Package scene is the host transform abstraction the anchors drive: a node
// with a local pose and a parent.
package scene

import (
	"reflect"

	"github.com/go-gl/mathgl/mgl64"
)

// Node is one object in the host scene graph. Positions are East-Up-North
// metres, the host's native Y-up convention.
type Node interface {
	Name() string

	LocalPosition() mgl64.Vec3
	SetLocalPosition(p mgl64.Vec3)
	LocalRotation() mgl64.Quat
	SetLocalRotation(q mgl64.Quat)
	LocalScale() mgl64.Vec3
	SetLocalScale(s mgl64.Vec3)

	Parent() Node
	// SetParent reattaches the node. With worldPositionStays the local pose
	// is rewritten so the world pose is unchanged; without it the local pose
	// is kept and becomes relative to the new parent.
	SetParent(parent Node, worldPositionStays bool)
}

// Pose is a snapshot of a node's local transform, used for change detection.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// IdentityPose is the pose of a freshly created node.
func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent(), Scale: mgl64.Vec3{1, 1, 1}}
}

// PoseOf captures the local pose of n.
func PoseOf(n Node) Pose {
	return Pose{Position: n.LocalPosition(), Rotation: n.LocalRotation(), Scale: n.LocalScale()}
}

// IsNil reports whether n is nil, including a nil pointer stored in the
// interface.
func IsNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
