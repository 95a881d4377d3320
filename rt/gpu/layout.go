package gpu

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Packed records uploaded to the lighting buffers. Field order and padding
// follow WGSL std430 rules (vec3 aligned to 16 bytes) and must stay in sync
// with the shading code. Matrices are column-major.

// DirectionalLightBuffer is 32 bytes.
type DirectionalLightBuffer struct {
	NegD mgl32.Vec3 // view-space direction towards the light
	_    float32
	I    mgl32.Vec3
	_    float32
}

// OmniLightBuffer is 32 bytes.
type OmniLightBuffer struct {
	P                       mgl32.Vec3 // view-space position
	DistanceFalloffEnd      float32
	I                       mgl32.Vec3
	DistanceFalloffInvRange float32
}

// SpotLightBuffer is 64 bytes.
type SpotLightBuffer struct {
	P                       mgl32.Vec3
	DistanceFalloffEnd      float32
	NegD                    mgl32.Vec3
	DistanceFalloffInvRange float32
	I                       mgl32.Vec3
	ExponentProperty        float32
	CosUmbra                float32
	CosInvRange             float32
	_                       [2]float32
}

// DirectionalLightWithShadowMappingBuffer is 96 bytes.
type DirectionalLightWithShadowMappingBuffer struct {
	Light              DirectionalLightBuffer
	CViewToLProjection mgl32.Mat4 // camera view -> first cascade projection
}

// OmniLightWithShadowMappingBuffer is 96 bytes.
type OmniLightWithShadowMappingBuffer struct {
	Light        OmniLightBuffer
	CViewToLView mgl32.Mat4 // camera view -> light view
}

// SpotLightWithShadowMappingBuffer is 128 bytes.
type SpotLightWithShadowMappingBuffer struct {
	Light              SpotLightBuffer
	CViewToLProjection mgl32.Mat4
}

// LightBuffer is the 64-byte lighting uniform: ambient, fog and the
// post-cull element count of every light buffer.
type LightBuffer struct {
	Ia                         mgl32.Vec3
	_                          float32
	FogColor                   mgl32.Vec3
	FogDistanceFalloffStart    float32
	FogDistanceFalloffInvRange float32
	NbDirectionalLights        uint32
	NbOmniLights               uint32
	NbSpotLights               uint32
	NbSMDirectionalLights      uint32
	NbSMOmniLights             uint32
	NbSMSpotLights             uint32
	_                          uint32
}

// LightCamera is one shadow-map render view, 192 bytes.
type LightCamera struct {
	WorldToLProjection mgl32.Mat4
	WorldToLView       mgl32.Mat4
	LViewToLProjection mgl32.Mat4
}
