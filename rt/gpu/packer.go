package gpu

import (
	"github.com/gekko3d/lbuffer"
	"github.com/gekko3d/lbuffer/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

// cubeFaceRotations turn a light view looking down -Z into the six cube
// faces, in array layer order +X, -X, +Y, -Y, +Z, -Z. Each face keeps the
// up axis of cube map addressing; its right axis is mirrored by
// cubeFaceFlip.
var cubeFaceRotations = [6]mgl32.Mat4{
	cubeFace(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}),
	cubeFace(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}),
	cubeFace(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, -1}),
	cubeFace(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, 1}),
	cubeFace(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}),
	cubeFace(mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}),
}

// cubeFaceFlip mirrors clip-space x. Cube faces are addressed left-handed,
// so a right-handed face view renders each face mirrored without it. The
// flip reverses triangle winding in omni shadow passes.
var cubeFaceFlip = mgl32.Scale3D(-1, 1, 1)

func cubeFace(forward, up mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(mgl32.Vec3{}, forward, up)
}

// PackedLights is one frame's worth of packed light records and shadow
// cameras. Every slice is rebuilt from scratch each frame, in scene order.
type PackedLights struct {
	Directional   []DirectionalLightBuffer
	Omni          []OmniLightBuffer
	Spot          []SpotLightBuffer
	SMDirectional []DirectionalLightWithShadowMappingBuffer
	SMOmni        []OmniLightWithShadowMappingBuffer
	SMSpot        []SpotLightWithShadowMappingBuffer

	// Shadow cameras, indexed like the shadow map layers they render into.
	DirectionalCameras []LightCamera
	OmniCameras        []LightCamera // 6 per light
	SpotCameras        []LightCamera

	Culled int
}

func (p *PackedLights) Reset() {
	p.Directional = p.Directional[:0]
	p.Omni = p.Omni[:0]
	p.Spot = p.Spot[:0]
	p.SMDirectional = p.SMDirectional[:0]
	p.SMOmni = p.SMOmni[:0]
	p.SMSpot = p.SMSpot[:0]
	p.DirectionalCameras = p.DirectionalCameras[:0]
	p.OmniCameras = p.OmniCameras[:0]
	p.SpotCameras = p.SpotCameras[:0]
	p.Culled = 0
}

// LightPacker culls and packs a frame's lights.
type LightPacker struct {
	Cascades lbuffer.DirectionalShadowConfig
}

func NewLightPacker(cfg lbuffer.DirectionalShadowConfig) *LightPacker {
	return &LightPacker{Cascades: cfg}
}

// CascadeCount is the number of shadow cameras per shadowed directional light.
func (lp *LightPacker) CascadeCount() int {
	return max(1, lp.Cascades.Cascades)
}

// Pack fills out from the pass buffer. out is reset first.
func (lp *LightPacker) Pack(pb *core.PassBuffer, cam core.CameraTransforms, out *PackedLights) {
	out.Reset()

	packDirectionalLights(out, pb.DirectionalLights, cam)
	packOmniLights(out, pb.OmniLights, cam)
	packSpotLights(out, pb.SpotLights, cam)

	lp.packDirectionalLightsWithShadowMapping(out, pb.DirectionalLightsWithShadowMapping, cam)
	packOmniLightsWithShadowMapping(out, pb.OmniLightsWithShadowMapping, cam)
	packSpotLightsWithShadowMapping(out, pb.SpotLightsWithShadowMapping, cam)
}

func directionalLightBuffer(n core.DirectionalLightNode, cam core.CameraTransforms) DirectionalLightBuffer {
	d := mgl32.TransformNormal(n.Transform.WorldForward(), cam.WorldToView).Normalize()
	return DirectionalLightBuffer{
		NegD: d.Mul(-1),
		I:    n.Light.Intensity,
	}
}

func omniLightBuffer(n core.OmniLightNode, cam core.CameraTransforms) OmniLightBuffer {
	l := n.Light
	return OmniLightBuffer{
		P:                       mgl32.TransformCoordinate(n.Transform.WorldEye(), cam.WorldToView),
		I:                       l.Intensity,
		DistanceFalloffEnd:      l.DistanceFalloffEnd,
		DistanceFalloffInvRange: 1.0 / l.DistanceFalloffRange(),
	}
}

func spotLightBuffer(n core.SpotLightNode, cam core.CameraTransforms) SpotLightBuffer {
	l := n.Light
	d := mgl32.TransformNormal(n.Transform.WorldForward(), cam.WorldToView).Normalize()
	return SpotLightBuffer{
		P:                       mgl32.TransformCoordinate(n.Transform.WorldEye(), cam.WorldToView),
		NegD:                    d.Mul(-1),
		I:                       l.Intensity,
		ExponentProperty:        l.ExponentProperty,
		DistanceFalloffEnd:      l.DistanceFalloffEnd,
		DistanceFalloffInvRange: 1.0 / l.DistanceFalloffRange(),
		CosUmbra:                l.CosUmbra(),
		CosInvRange:             1.0 / l.AngularCutoffRange(),
	}
}

func cullOmni(n core.OmniLightNode, cam core.CameraTransforms) bool {
	objectToProjection := cam.WorldToProjection.Mul4(n.Transform.ObjectToWorld())
	return core.Cull(objectToProjection, n.Light.BS())
}

func cullSpot(n core.SpotLightNode, cam core.CameraTransforms) bool {
	objectToProjection := cam.WorldToProjection.Mul4(n.Transform.ObjectToWorld())
	return core.Cull(objectToProjection, n.Light.AABB())
}

// Directional lights have no extent and are never culled.
func packDirectionalLights(out *PackedLights, lights []core.DirectionalLightNode, cam core.CameraTransforms) {
	for _, n := range lights {
		out.Directional = append(out.Directional, directionalLightBuffer(n, cam))
	}
}

func packOmniLights(out *PackedLights, lights []core.OmniLightNode, cam core.CameraTransforms) {
	for _, n := range lights {
		if cullOmni(n, cam) {
			out.Culled++
			continue
		}
		out.Omni = append(out.Omni, omniLightBuffer(n, cam))
	}
}

func packSpotLights(out *PackedLights, lights []core.SpotLightNode, cam core.CameraTransforms) {
	for _, n := range lights {
		if cullSpot(n, cam) {
			out.Culled++
			continue
		}
		out.Spot = append(out.Spot, spotLightBuffer(n, cam))
	}
}

// Each cascade is an orthographic box centred on the camera eye, looking
// along the light direction. Cascade c of n covers extent*(c+1)/n.
func (lp *LightPacker) packDirectionalLightsWithShadowMapping(out *PackedLights, lights []core.DirectionalLightNode, cam core.CameraTransforms) {
	cfg := lp.Cascades
	cascades := lp.CascadeCount()
	center := cam.ViewToWorld.Col(3).Vec3()
	offset := 0.5 * (cfg.Near + cfg.Far)

	for _, n := range lights {
		d := n.Transform.WorldForward()
		lview := core.Transform{
			Position: center.Sub(d.Mul(offset)),
			Rotation: n.Transform.Rotation,
			Scale:    mgl32.Vec3{1, 1, 1},
		}
		worldToLView := lview.WorldToObject()

		first := len(out.DirectionalCameras)
		for c := 0; c < cascades; c++ {
			half := cfg.Extent * float32(c+1) / float32(cascades)
			lviewToLProjection := mgl32.Ortho(-half, half, -half, half, cfg.Near, cfg.Far)
			out.DirectionalCameras = append(out.DirectionalCameras, LightCamera{
				WorldToLView:       worldToLView,
				LViewToLProjection: lviewToLProjection,
				WorldToLProjection: lviewToLProjection.Mul4(worldToLView),
			})
		}

		out.SMDirectional = append(out.SMDirectional, DirectionalLightWithShadowMappingBuffer{
			Light:              directionalLightBuffer(n, cam),
			CViewToLProjection: out.DirectionalCameras[first].WorldToLProjection.Mul4(cam.ViewToWorld),
		})
	}
}

func packOmniLightsWithShadowMapping(out *PackedLights, lights []core.OmniLightNode, cam core.CameraTransforms) {
	for _, n := range lights {
		if cullOmni(n, cam) {
			out.Culled++
			continue
		}

		worldToLView := n.Transform.WorldToObject()
		lviewToLProjection := cubeFaceFlip.Mul4(n.Light.ViewToProjection())
		for _, rot := range cubeFaceRotations {
			faceView := rot.Mul4(worldToLView)
			out.OmniCameras = append(out.OmniCameras, LightCamera{
				WorldToLView:       faceView,
				LViewToLProjection: lviewToLProjection,
				WorldToLProjection: lviewToLProjection.Mul4(faceView),
			})
		}

		out.SMOmni = append(out.SMOmni, OmniLightWithShadowMappingBuffer{
			Light:        omniLightBuffer(n, cam),
			CViewToLView: worldToLView.Mul4(cam.ViewToWorld),
		})
	}
}

func packSpotLightsWithShadowMapping(out *PackedLights, lights []core.SpotLightNode, cam core.CameraTransforms) {
	for _, n := range lights {
		if cullSpot(n, cam) {
			out.Culled++
			continue
		}

		worldToLView := n.Transform.WorldToObject()
		lviewToLProjection := n.Light.ViewToProjection()
		camera := LightCamera{
			WorldToLView:       worldToLView,
			LViewToLProjection: lviewToLProjection,
			WorldToLProjection: lviewToLProjection.Mul4(worldToLView),
		}
		out.SpotCameras = append(out.SpotCameras, camera)

		out.SMSpot = append(out.SMSpot, SpotLightWithShadowMappingBuffer{
			Light:              spotLightBuffer(n, cam),
			CViewToLProjection: camera.WorldToLProjection.Mul4(cam.ViewToWorld),
		})
	}
}

// truncateDirectionalShadows keeps the lights whose cascades fit in n shadow maps.
func (p *PackedLights) truncateDirectionalShadows(n, cascades int) int {
	lights := min(len(p.SMDirectional), n/cascades)
	dropped := len(p.SMDirectional) - lights
	p.SMDirectional = p.SMDirectional[:lights]
	p.DirectionalCameras = p.DirectionalCameras[:lights*cascades]
	return dropped
}

func (p *PackedLights) truncateOmniShadows(n int) int {
	lights := min(len(p.SMOmni), n)
	dropped := len(p.SMOmni) - lights
	p.SMOmni = p.SMOmni[:lights]
	p.OmniCameras = p.OmniCameras[:6*lights]
	return dropped
}

func (p *PackedLights) truncateSpotShadows(n int) int {
	lights := min(len(p.SMSpot), n)
	dropped := len(p.SMSpot) - lights
	p.SMSpot = p.SMSpot[:lights]
	p.SpotCameras = p.SpotCameras[:lights]
	return dropped
}
