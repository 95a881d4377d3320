package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/lbuffer"
	"github.com/gekko3d/lbuffer/rt/core"
)

// FrameStats describes the last Render call.
type FrameStats struct {
	Culled               int // lights outside the view frustum
	DroppedShadowCasters int // shadowed lights that did not fit a shadow map
}

// LBufferPass owns the lighting buffers and shadow maps and rebuilds them
// from a pass buffer every frame.
type LBufferPass struct {
	dev    Device
	binder ResourceBinder
	log    lbuffer.Logger
	packer *LightPacker

	directional   *StructuredBuffer[DirectionalLightBuffer]
	omni          *StructuredBuffer[OmniLightBuffer]
	spot          *StructuredBuffer[SpotLightBuffer]
	smDirectional *StructuredBuffer[DirectionalLightWithShadowMappingBuffer]
	smOmni        *StructuredBuffer[OmniLightWithShadowMappingBuffer]
	smSpot        *StructuredBuffer[SpotLightWithShadowMappingBuffer]
	lightBuffer   *ConstantBuffer[LightBuffer]

	directionalShadowMaps *ShadowMapAllocator
	omniShadowMaps        *ShadowMapAllocator
	spotShadowMaps        *ShadowMapAllocator

	packed   PackedLights
	stats    LightBuffer
	frame    FrameStats
	bindings LBufferBindings
}

func NewLBufferPass(ctx Context, cfg lbuffer.Config, logger lbuffer.Logger) (*LBufferPass, error) {
	if ctx.Device == nil || ctx.Binder == nil {
		return nil, errors.New("lbuffer pass: context needs a device and a binder")
	}
	p := &LBufferPass{
		dev:    ctx.Device,
		binder: ctx.Binder,
		log:    lbuffer.OrNop(logger),
		packer: NewLightPacker(cfg.DirectionalShadows),
	}
	if err := p.setup(cfg); err != nil {
		p.Release()
		return nil, fmt.Errorf("lbuffer pass: %w", err)
	}
	return p, nil
}

func (p *LBufferPass) setup(cfg lbuffer.Config) error {
	var err error
	lb := cfg.LightBuffers
	if p.directional, err = NewStructuredBuffer[DirectionalLightBuffer](p.dev, "DirectionalLights", lb.Directional); err != nil {
		return err
	}
	if p.omni, err = NewStructuredBuffer[OmniLightBuffer](p.dev, "OmniLights", lb.Omni); err != nil {
		return err
	}
	if p.spot, err = NewStructuredBuffer[SpotLightBuffer](p.dev, "SpotLights", lb.Spot); err != nil {
		return err
	}
	if p.smDirectional, err = NewStructuredBuffer[DirectionalLightWithShadowMappingBuffer](p.dev, "DirectionalLightsWithShadowMapping", lb.DirectionalShadowed); err != nil {
		return err
	}
	if p.smOmni, err = NewStructuredBuffer[OmniLightWithShadowMappingBuffer](p.dev, "OmniLightsWithShadowMapping", lb.OmniShadowed); err != nil {
		return err
	}
	if p.smSpot, err = NewStructuredBuffer[SpotLightWithShadowMappingBuffer](p.dev, "SpotLightsWithShadowMapping", lb.SpotShadowed); err != nil {
		return err
	}
	if p.lightBuffer, err = NewConstantBuffer[LightBuffer](p.dev, "LightBuffer"); err != nil {
		return err
	}

	sm := cfg.ShadowMaps
	opts := ShadowMapOptionsFromConfig(sm)
	initial := func(kind ShadowMapKind) int {
		if kind == ShadowMapDirectional {
			return sm.InitialCapacity * p.packer.CascadeCount()
		}
		return sm.InitialCapacity
	}
	smLog := p.log.Named("shadowmaps")
	if p.directionalShadowMaps, err = NewShadowMapAllocator(p.dev, ShadowMapDirectional, opts, initial(ShadowMapDirectional), NewShrinkPolicy(sm), smLog); err != nil {
		return err
	}
	if p.omniShadowMaps, err = NewShadowMapAllocator(p.dev, ShadowMapOmni, opts, initial(ShadowMapOmni), NewShrinkPolicy(sm), smLog); err != nil {
		return err
	}
	if p.spotShadowMaps, err = NewShadowMapAllocator(p.dev, ShadowMapSpot, opts, initial(ShadowMapSpot), NewShrinkPolicy(sm), smLog); err != nil {
		return err
	}
	return nil
}

// Render culls and packs the frame's lights, makes room for every visible
// shadow caster, uploads all buffers and binds them. Shadow map slots are
// unbound before any shadow map is replaced.
//
// Render always leaves a consistent frame behind: if a shadow map buffer
// cannot grow, the casters that do not fit are dropped for this frame and the
// returned error wraps one *ResourceError per failed category.
func (p *LBufferPass) Render(pb *core.PassBuffer, cam core.CameraTransforms) error {
	p.frame = FrameStats{}
	p.packer.Pack(pb, cam, &p.packed)
	p.frame.Culled = p.packed.Culled

	UnbindShadowMaps(p.binder)

	var errs []error
	errs = append(errs, p.ensureShadowMaps()...)
	errs = append(errs, p.upload()...)

	p.stats = LightBuffer{
		Ia:                         pb.AmbientLight,
		FogColor:                   pb.Fog.Color,
		FogDistanceFalloffStart:    pb.Fog.DistanceFalloffStart,
		FogDistanceFalloffInvRange: 1.0 / pb.Fog.DistanceFalloffRange(),
		NbDirectionalLights:        uint32(p.directional.Size()),
		NbOmniLights:               uint32(p.omni.Size()),
		NbSpotLights:               uint32(p.spot.Size()),
		NbSMDirectionalLights:      uint32(p.smDirectional.Size()),
		NbSMOmniLights:             uint32(p.smOmni.Size()),
		NbSMSpotLights:             uint32(p.smSpot.Size()),
	}
	if err := p.lightBuffer.UpdateData(p.dev, p.stats); err != nil {
		errs = append(errs, err)
	}

	p.bind()
	return errors.Join(errs...)
}

func (p *LBufferPass) ensureShadowMaps() []error {
	var errs []error
	cascades := p.packer.CascadeCount()

	if err := p.directionalShadowMaps.EnsureCapacity(len(p.packed.SMDirectional) * cascades); err != nil {
		dropped := p.packed.truncateDirectionalShadows(p.directionalShadowMaps.Capacity(), cascades)
		errs = append(errs, p.shadowMapFailure(err, dropped))
	}
	if err := p.omniShadowMaps.EnsureCapacity(len(p.packed.SMOmni)); err != nil {
		dropped := p.packed.truncateOmniShadows(p.omniShadowMaps.Capacity())
		errs = append(errs, p.shadowMapFailure(err, dropped))
	}
	if err := p.spotShadowMaps.EnsureCapacity(len(p.packed.SMSpot)); err != nil {
		dropped := p.packed.truncateSpotShadows(p.spotShadowMaps.Capacity())
		errs = append(errs, p.shadowMapFailure(err, dropped))
	}
	return errs
}

func (p *LBufferPass) shadowMapFailure(err error, dropped int) error {
	p.frame.DroppedShadowCasters += dropped
	p.log.Warnf("%v; dropping %d shadow casters this frame", err, dropped)
	return err
}

func (p *LBufferPass) upload() []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(p.directional.UpdateData(p.dev, p.packed.Directional))
	add(p.omni.UpdateData(p.dev, p.packed.Omni))
	add(p.spot.UpdateData(p.dev, p.packed.Spot))
	add(p.smDirectional.UpdateData(p.dev, p.packed.SMDirectional))
	add(p.smOmni.UpdateData(p.dev, p.packed.SMOmni))
	add(p.smSpot.UpdateData(p.dev, p.packed.SMSpot))
	return errs
}

func (p *LBufferPass) bind() {
	b := &p.bindings
	b.Uniform = p.lightBuffer.Get()
	b.Lights = [NumLightSlots]Buffer{
		p.directional.Get(),
		p.omni.Get(),
		p.spot.Get(),
		p.smDirectional.Get(),
		p.smOmni.Get(),
		p.smSpot.Get(),
	}
	b.ShadowMaps = [NumShadowMapSlots]TextureView{
		p.directionalShadowMaps.Buffer().SRV(),
		p.omniShadowMaps.Buffer().SRV(),
		p.spotShadowMaps.Buffer().SRV(),
	}
	BindLBuffer(p.binder, b)
}

// Bindings returns what the last Render bound.
func (p *LBufferPass) Bindings() LBufferBindings { return p.bindings }

// Stats returns the lighting uniform uploaded by the last Render.
func (p *LBufferPass) Stats() LightBuffer { return p.stats }

func (p *LBufferPass) FrameStats() FrameStats { return p.frame }

// Packed returns the last frame's packed lights. It is overwritten by the next Render.
func (p *LBufferPass) Packed() *PackedLights { return &p.packed }

func (p *LBufferPass) DirectionalShadowMaps() *ShadowMapBuffer {
	return p.directionalShadowMaps.Buffer()
}

func (p *LBufferPass) OmniShadowMaps() *ShadowMapBuffer { return p.omniShadowMaps.Buffer() }
func (p *LBufferPass) SpotShadowMaps() *ShadowMapBuffer { return p.spotShadowMaps.Buffer() }

// DirectionalCameras are the cascade cameras of the visible shadowed
// directional lights; camera i renders into DirectionalShadowMaps().DSV(i).
func (p *LBufferPass) DirectionalCameras() []LightCamera { return p.packed.DirectionalCameras }

// OmniCameras holds six cameras per visible shadowed omni light, one per cube
// face; camera i renders into OmniShadowMaps().DSV(i).
func (p *LBufferPass) OmniCameras() []LightCamera { return p.packed.OmniCameras }

func (p *LBufferPass) SpotCameras() []LightCamera { return p.packed.SpotCameras }

func (p *LBufferPass) Release() {
	for _, a := range []*ShadowMapAllocator{p.directionalShadowMaps, p.omniShadowMaps, p.spotShadowMaps} {
		if a != nil {
			a.Release()
		}
	}
	if p.lightBuffer != nil {
		p.lightBuffer.Release()
	}
	releaseStructured(p.directional)
	releaseStructured(p.omni)
	releaseStructured(p.spot)
	releaseStructured(p.smDirectional)
	releaseStructured(p.smOmni)
	releaseStructured(p.smSpot)
}

func releaseStructured[T any](b *StructuredBuffer[T]) {
	if b != nil {
		b.Release()
	}
}
