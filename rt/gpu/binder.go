package gpu

// Lighting slot layout shared by the fragment and compute stages.
const (
	SlotLightingUniform uint32 = 0

	// Structured light buffers, in this order: directional, omni, spot,
	// then the shadowed directional, omni and spot variants.
	SlotLightsStart uint32 = 1
	NumLightSlots          = 6

	// Shadow map arrays: directional, omni (cube), spot.
	SlotShadowMapsStart uint32 = SlotLightsStart + NumLightSlots
	NumShadowMapSlots          = 3
)

// LightingStages are the stages every lighting resource is bound to.
var LightingStages = [...]Stage{StageFragment, StageCompute}

// LBufferBindings is the full set of resources one frame binds.
type LBufferBindings struct {
	Uniform    Buffer
	Lights     [NumLightSlots]Buffer
	ShadowMaps [NumShadowMapSlots]TextureView
}

// BindLBuffer binds the uniform, the six light buffers and the three shadow
// map arrays to every lighting stage.
func BindLBuffer(binder ResourceBinder, b *LBufferBindings) {
	for _, stage := range LightingStages {
		binder.BindUniformBuffer(stage, SlotLightingUniform, b.Uniform)
		binder.BindStorageBuffers(stage, SlotLightsStart, b.Lights[:])
		binder.BindTextureViews(stage, SlotShadowMapsStart, b.ShadowMaps[:])
	}
}

// UnbindShadowMaps clears the shadow map slots on every lighting stage. It
// must run before shadow maps bound for reading are rendered into.
func UnbindShadowMaps(binder ResourceBinder) {
	var none [NumShadowMapSlots]TextureView
	for _, stage := range LightingStages {
		binder.BindTextureViews(stage, SlotShadowMapsStart, none[:])
	}
}
