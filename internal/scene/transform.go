package scene

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is an in-memory Node. The headless host and the simulated
// session build their scene out of these.
type Transform struct {
	mu       sync.RWMutex
	name     string
	position mgl64.Vec3
	rotation mgl64.Quat
	scale    mgl64.Vec3
	parent   Node
}

// NewTransform creates an identity transform with no parent.
func NewTransform(name string) *Transform {
	return &Transform{
		name:     name,
		rotation: mgl64.QuatIdent(),
		scale:    mgl64.Vec3{1, 1, 1},
	}
}

func (t *Transform) Name() string { return t.name }

func (t *Transform) LocalPosition() mgl64.Vec3 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.position
}

func (t *Transform) SetLocalPosition(p mgl64.Vec3) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = p
}

func (t *Transform) LocalRotation() mgl64.Quat {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rotation
}

func (t *Transform) SetLocalRotation(q mgl64.Quat) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rotation = q
}

func (t *Transform) LocalScale() mgl64.Vec3 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scale
}

func (t *Transform) SetLocalScale(s mgl64.Vec3) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scale = s
}

func (t *Transform) Parent() Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.parent
}

// SetParent implements Node.
func (t *Transform) SetParent(parent Node, worldPositionStays bool) {
	if worldPositionStays {
		worldPos := WorldPosition(t)
		worldRot := WorldRotation(t)

		localPos, localRot := worldPos, worldRot
		if parent != nil {
			inv := WorldMatrix(parent).Inv()
			localPos = mgl64.TransformCoordinate(worldPos, inv)
			localRot = WorldRotation(parent).Inverse().Mul(worldRot)
		}

		t.mu.Lock()
		t.position = localPos
		t.rotation = localRot
		t.mu.Unlock()
	}

	t.mu.Lock()
	t.parent = parent
	t.mu.Unlock()
}

// LocalMatrix returns translate * rotate * scale for n's local pose.
func LocalMatrix(n Node) mgl64.Mat4 {
	p, s := n.LocalPosition(), n.LocalScale()
	return mgl64.Translate3D(p[0], p[1], p[2]).
		Mul4(n.LocalRotation().Mat4()).
		Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// WorldMatrix composes the local matrices from the root down to n.
func WorldMatrix(n Node) mgl64.Mat4 {
	m := LocalMatrix(n)
	for p := n.Parent(); p != nil; p = p.Parent() {
		m = LocalMatrix(p).Mul4(m)
	}
	return m
}

// WorldPosition returns n's position in the root frame.
func WorldPosition(n Node) mgl64.Vec3 {
	return mgl64.TransformCoordinate(mgl64.Vec3{}, WorldMatrix(n))
}

// WorldRotation returns n's rotation in the root frame.
func WorldRotation(n Node) mgl64.Quat {
	q := n.LocalRotation()
	for p := n.Parent(); p != nil; p = p.Parent() {
		q = p.LocalRotation().Mul(q)
	}
	return q
}

// SetWorldPosition moves n so that its position in the root frame is p.
func SetWorldPosition(n Node, p mgl64.Vec3) {
	if parent := n.Parent(); parent != nil {
		p = mgl64.TransformCoordinate(p, WorldMatrix(parent).Inv())
	}
	n.SetLocalPosition(p)
}

// WorldPose captures n's world position and rotation with its local scale.
func WorldPose(n Node) Pose {
	return Pose{Position: WorldPosition(n), Rotation: WorldRotation(n), Scale: n.LocalScale()}
}
