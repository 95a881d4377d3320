package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places a light in the world. Local forward is -Z, so
// WorldToObject doubles as a right-handed view matrix for the light.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() *Transform {
	return &Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// NewTransformLookAt positions a transform at eye with its forward axis aimed at target.
func NewTransformLookAt(eye, target, up mgl32.Vec3) *Transform {
	t := NewTransform()
	t.Position = eye
	// LookAtV is world-to-local; its rotation block transposed is local-to-world.
	t.Rotation = mgl32.Mat4ToQuat(mgl32.LookAtV(eye, target, up).Transpose()).Normalize()
	return t
}

func (t *Transform) ObjectToWorld() mgl32.Mat4 {
	// M = T * R * S
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

func (t *Transform) WorldToObject() mgl32.Mat4 {
	// inv(M) = inv(S) * inv(R) * inv(T)
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// WorldEye is the world-space origin of the local frame.
func (t *Transform) WorldEye() mgl32.Vec3 {
	return t.Position
}

// WorldForward is the unit world-space direction of local -Z.
func (t *Transform) WorldForward() mgl32.Vec3 {
	return t.Rotation.Rotate(mgl32.Vec3{0, 0, -1}).Normalize()
}
