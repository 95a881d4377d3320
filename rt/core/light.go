package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultShadowNear is the near plane of omni and spot light cameras when a
// light does not set its own.
const DefaultShadowNear float32 = 0.1

// DirectionalLight lights along its transform's forward axis with no falloff.
type DirectionalLight struct {
	Intensity     mgl32.Vec3 // RGB radiance
	ShadowMapping bool
}

// OmniLight emits in all directions from its transform's origin.
type OmniLight struct {
	Intensity            mgl32.Vec3
	DistanceFalloffStart float32
	DistanceFalloffEnd   float32
	ShadowMapping        bool
	ShadowNear           float32
}

// SpotLight emits a cone along its transform's forward axis. Angles are
// half-angles in radians; full intensity inside the penumbra angle, none
// beyond the umbra angle.
type SpotLight struct {
	Intensity            mgl32.Vec3
	DistanceFalloffStart float32
	DistanceFalloffEnd   float32
	PenumbraAngle        float32
	UmbraAngle           float32
	ExponentProperty     float32
	ShadowMapping        bool
	ShadowNear           float32
}

// Fog is the distance fog applied by shading.
type Fog struct {
	Color                mgl32.Vec3
	DistanceFalloffStart float32
	DistanceFalloffEnd   float32
}

func NewOmniLight(intensity mgl32.Vec3, falloffStart, falloffEnd float32) *OmniLight {
	return &OmniLight{
		Intensity:            intensity,
		DistanceFalloffStart: falloffStart,
		DistanceFalloffEnd:   falloffEnd,
		ShadowNear:           DefaultShadowNear,
	}
}

func NewSpotLight(intensity mgl32.Vec3, falloffStart, falloffEnd, penumbra, umbra float32) *SpotLight {
	return &SpotLight{
		Intensity:            intensity,
		DistanceFalloffStart: falloffStart,
		DistanceFalloffEnd:   falloffEnd,
		PenumbraAngle:        penumbra,
		UmbraAngle:           umbra,
		ExponentProperty:     1.0,
		ShadowNear:           DefaultShadowNear,
	}
}

func (l *OmniLight) DistanceFalloffRange() float32 {
	return l.DistanceFalloffEnd - l.DistanceFalloffStart
}

// BS is the light's influence sphere in light space.
func (l *OmniLight) BS() BoundingSphere {
	return BoundingSphere{Radius: l.DistanceFalloffEnd}
}

// ViewToProjection is the projection shared by the six cube faces.
func (l *OmniLight) ViewToProjection() mgl32.Mat4 {
	return mgl32.Perspective(math.Pi/2, 1.0, shadowNear(l.ShadowNear), l.DistanceFalloffEnd)
}

func (l *SpotLight) DistanceFalloffRange() float32 {
	return l.DistanceFalloffEnd - l.DistanceFalloffStart
}

// CosPenumbra is the cosine where angular falloff starts.
func (l *SpotLight) CosPenumbra() float32 {
	return float32(math.Cos(float64(l.PenumbraAngle)))
}

// CosUmbra is the cosine where angular falloff ends.
func (l *SpotLight) CosUmbra() float32 {
	return float32(math.Cos(float64(l.UmbraAngle)))
}

func (l *SpotLight) AngularCutoffRange() float32 {
	return l.CosPenumbra() - l.CosUmbra()
}

// AABB bounds the light cone in light space: apex at the origin, opening
// along -Z up to the falloff end.
func (l *SpotLight) AABB() AABB {
	r := l.DistanceFalloffEnd * float32(math.Tan(float64(l.UmbraAngle)))
	return AABB{
		{-r, -r, -l.DistanceFalloffEnd},
		{r, r, 0},
	}
}

func (l *SpotLight) ViewToProjection() mgl32.Mat4 {
	return mgl32.Perspective(2*l.UmbraAngle, 1.0, shadowNear(l.ShadowNear), l.DistanceFalloffEnd)
}

func (f Fog) DistanceFalloffRange() float32 {
	return f.DistanceFalloffEnd - f.DistanceFalloffStart
}

func shadowNear(n float32) float32 {
	if n > 0 {
		return n
	}
	return DefaultShadowNear
}
