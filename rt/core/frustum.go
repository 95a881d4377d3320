package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Frustum holds six planes Ax + By + Cz + D = 0 with normals pointing inside,
// in order Left, Right, Bottom, Top, Near, Far.
type Frustum [6]mgl32.Vec4

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// AABB is an axis-aligned box, Min then Max.
type AABB [2]mgl32.Vec3

type BoundingSphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Volume is a bounding volume that can be tested against a frustum.
type Volume interface {
	AABB | BoundingSphere
}

// ExtractFrustum extracts the frustum planes of a clip-space transform
// (Gribb/Hartmann). Planes come out in the source space of m: pass an
// object-to-projection matrix and the planes are in object space.
//
// The near plane assumes OpenGL depth (-w <= z). For a [0,1] depth projection
// that test is looser than the real near plane, which keeps culling
// conservative.
func ExtractFrustum(m mgl32.Mat4) Frustum {
	var planes Frustum

	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{m.At(r, 0), m.At(r, 1), m.At(r, 2), m.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes[FrustumLeft] = r3.Add(r0)
	planes[FrustumRight] = r3.Sub(r0)
	planes[FrustumBottom] = r3.Add(r1)
	planes[FrustumTop] = r3.Sub(r1)
	planes[FrustumNear] = r3.Add(r2)
	planes[FrustumFar] = r3.Sub(r2)

	for i := range planes {
		p := planes[i]
		length := float32(math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])))
		if length > 0 {
			planes[i] = p.Mul(1.0 / length)
		}
	}

	return planes
}

// AABBInFrustum checks if an AABB is visible within the frustum.
func AABBInFrustum(aabb AABB, planes Frustum) bool {
	for _, plane := range planes {
		// Positive vertex: the corner furthest along the inward normal. If even
		// that corner is behind the plane, the whole box is outside.
		var p mgl32.Vec3
		for axis := 0; axis < 3; axis++ {
			if plane[axis] > 0 {
				p[axis] = aabb[1][axis]
			} else {
				p[axis] = aabb[0][axis]
			}
		}

		dist := plane[0]*p[0] + plane[1]*p[1] + plane[2]*p[2] + plane[3]
		if dist < 0 {
			return false
		}
	}
	return true
}

// SphereInFrustum checks if a sphere is visible within the frustum.
func SphereInFrustum(bs BoundingSphere, planes Frustum) bool {
	c := bs.Center
	for _, plane := range planes {
		dist := plane[0]*c[0] + plane[1]*c[1] + plane[2]*c[2] + plane[3]
		if dist < -bs.Radius {
			return false
		}
	}
	return true
}

// Cull reports whether a volume, given in object space, lies entirely outside
// the clip-space frustum of objectToProjection. A true result means the
// object cannot touch the viewport.
func Cull[V Volume](objectToProjection mgl32.Mat4, v V) bool {
	planes := ExtractFrustum(objectToProjection)
	switch vol := any(v).(type) {
	case AABB:
		return !AABBInFrustum(vol, planes)
	case BoundingSphere:
		return !SphereInFrustum(vol, planes)
	}
	return false
}
