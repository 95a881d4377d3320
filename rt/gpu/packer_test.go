package gpu

import (
	"fmt"
	"math"
	"testing"

	"github.com/gekko3d/lbuffer"
	"github.com/gekko3d/lbuffer/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-4

// testCamera sits at the origin looking down -Z with a 90 degree lens.
func testCamera() core.CameraTransforms {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(math.Pi/2, 1.0, 0.1, 100.0)
	return core.NewCameraTransforms(view, proj)
}

func omniAt(p mgl32.Vec3, end float32, shadowed bool) core.OmniLightNode {
	t := core.NewTransform()
	t.Position = p
	l := core.NewOmniLight(mgl32.Vec3{1, 1, 1}, 0, end)
	l.ShadowMapping = shadowed
	return core.OmniLightNode{Transform: t, Light: l}
}

func spotAt(eye, target mgl32.Vec3, shadowed bool) core.SpotLightNode {
	l := core.NewSpotLight(mgl32.Vec3{1, 1, 1}, 1, 11, 0.3, 0.5)
	l.ShadowMapping = shadowed
	return core.SpotLightNode{Transform: core.NewTransformLookAt(eye, target, mgl32.Vec3{0, 1, 0}), Light: l}
}

// Visible lights sit in front of the camera, culled ones well behind it.
var (
	visible = mgl32.Vec3{0, 0, -10}
	behind  = mgl32.Vec3{0, 0, 50}
)

func assertVec3(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) {
	t.Helper()
	if !want.ApproxEqualThreshold(got, eps) {
		assert.Fail(t, fmt.Sprintf("want %v, got %v", want, got), msgAndArgs...)
	}
}

func TestPackOmniShadowCameras(t *testing.T) {
	pb := &core.PassBuffer{}
	for k := 0; k < 3; k++ {
		pb.OmniLightsWithShadowMapping = append(pb.OmniLightsWithShadowMapping, omniAt(visible, float32(k+1), true))
	}
	pb.OmniLightsWithShadowMapping = append(pb.OmniLightsWithShadowMapping, omniAt(behind, 1, true))

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)

	assert.Len(t, out.SMOmni, 3)
	assert.Len(t, out.OmniCameras, 18)
	assert.Equal(t, 1, out.Culled)
	for k, rec := range out.SMOmni {
		assert.Equal(t, float32(k+1), rec.Light.DistanceFalloffEnd, "scene order is kept")
	}
}

func TestPackKeepsSceneOrderAroundCulledLights(t *testing.T) {
	pb := &core.PassBuffer{}
	for k := 0; k < 6; k++ {
		if k%2 == 0 {
			pb.OmniLights = append(pb.OmniLights, omniAt(behind, float32(k+1), false))
			pb.SpotLights = append(pb.SpotLights, spotAt(behind, behind.Add(mgl32.Vec3{0, 0, 1}), false))
			continue
		}
		pb.OmniLights = append(pb.OmniLights, omniAt(visible, float32(k+1), false))
		eye := mgl32.Vec3{float32(k), 0, -5}
		pb.SpotLights = append(pb.SpotLights, spotAt(eye, eye.Add(mgl32.Vec3{0, 0, -1}), false))
	}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)

	assert.Equal(t, 6, out.Culled)
	require.Len(t, out.Omni, 3)
	require.Len(t, out.Spot, 3)
	for i, k := range []int{1, 3, 5} {
		assert.Equal(t, float32(k+1), out.Omni[i].DistanceFalloffEnd, "omni %d", i)
		assertVec3(t, mgl32.Vec3{float32(k), 0, -5}, out.Spot[i].P, "spot %d", i)
	}
}

func TestCubeFaceCamerasLookDownMinusZ(t *testing.T) {
	pos := mgl32.Vec3{2, 3, -10}
	pb := &core.PassBuffer{OmniLightsWithShadowMapping: []core.OmniLightNode{omniAt(pos, 20, true)}}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)
	require.Len(t, out.OmniCameras, 6)

	faces := []mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for i, dir := range faces {
		cam := out.OmniCameras[i]
		assertVec3(t, mgl32.Vec3{0, 0, -1}, mgl32.TransformNormal(dir, cam.WorldToLView), "face %d", i)
		assertVec3(t, mgl32.Vec3{}, mgl32.TransformCoordinate(pos, cam.WorldToLView), "face %d eye", i)

		// A point straight ahead of the face lands in the middle of its map.
		ndc := mgl32.TransformCoordinate(pos.Add(dir.Mul(5)), cam.WorldToLProjection)
		assert.InDelta(t, 0, ndc.X(), eps, "face %d", i)
		assert.InDelta(t, 0, ndc.Y(), eps, "face %d", i)
		assert.True(t, cam.WorldToLProjection.ApproxEqualThreshold(cam.LViewToLProjection.Mul4(cam.WorldToLView), eps))
	}
}

// cubeUV returns the cube face layer and texel coordinates a cube sampler
// reads for direction d.
func cubeUV(d mgl32.Vec3) (face int, u, v float32) {
	x, y, z := d.X(), d.Y(), d.Z()
	ax, ay, az := mgl32.Abs(x), mgl32.Abs(y), mgl32.Abs(z)
	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if x > 0 {
			face, sc, tc = 0, -z, -y
		} else {
			face, sc, tc = 1, z, -y
		}
	case ay >= az:
		ma = ay
		if y > 0 {
			face, sc, tc = 2, x, z
		} else {
			face, sc, tc = 3, x, -z
		}
	default:
		ma = az
		if z > 0 {
			face, sc, tc = 4, x, -y
		} else {
			face, sc, tc = 5, -x, -y
		}
	}
	return face, (sc/ma + 1) / 2, (tc/ma + 1) / 2
}

func TestCubeFaceCamerasMatchCubeAddressing(t *testing.T) {
	pos := mgl32.Vec3{2, 3, -10}
	pb := &core.PassBuffer{OmniLightsWithShadowMapping: []core.OmniLightNode{omniAt(pos, 20, true)}}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)
	require.Len(t, out.OmniCameras, 6)

	offsets := []mgl32.Vec3{
		{2, 0.5, 1}, {2, -1, -0.3},
		{-2, 0.5, 1}, {-2, -1, -0.3},
		{0.5, 2, 1}, {-1, 2, -0.3},
		{0.5, -2, 1}, {-1, -2, -0.3},
		{0.5, 1, 2}, {-1, -0.3, 2},
		{0.5, 1, -2}, {-1, -0.3, -2},
	}
	for _, d := range offsets {
		face, u, v := cubeUV(d)
		ndc := mgl32.TransformCoordinate(pos.Add(d), out.OmniCameras[face].WorldToLProjection)

		// Render targets put NDC y = +1 on the first texel row.
		assert.InDelta(t, u, (ndc.X()+1)/2, eps, "offset %v face %d u", d, face)
		assert.InDelta(t, v, (1-ndc.Y())/2, eps, "offset %v face %d v", d, face)
		assert.Less(t, ndc.Z(), float32(1), "offset %v face %d depth", d, face)
	}
}

func TestPackOmniLight(t *testing.T) {
	cam := core.NewCameraTransforms(
		mgl32.LookAtV(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}),
		mgl32.Perspective(math.Pi/2, 1.0, 0.1, 100.0),
	)
	n := omniAt(mgl32.Vec3{1, 2, -3}, 10, true)
	n.Light.DistanceFalloffStart = 2
	pb := &core.PassBuffer{OmniLightsWithShadowMapping: []core.OmniLightNode{n}}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, cam, &out)
	require.Len(t, out.SMOmni, 1)
	rec := out.SMOmni[0]

	assertVec3(t, mgl32.Vec3{1, 2, -8}, rec.Light.P)
	assert.Equal(t, float32(10), rec.Light.DistanceFalloffEnd)
	assert.InDelta(t, 1.0/8.0, rec.Light.DistanceFalloffInvRange, eps)

	// Camera view space to light view space.
	world := mgl32.Vec3{4, -1, 2}
	inView := mgl32.TransformCoordinate(world, cam.WorldToView)
	assertVec3(t, world.Sub(mgl32.Vec3{1, 2, -3}), mgl32.TransformCoordinate(inView, rec.CViewToLView))
}

func TestPackSpotLight(t *testing.T) {
	n := spotAt(mgl32.Vec3{0, 0, -2}, mgl32.Vec3{0, 0, -20}, false)
	pb := &core.PassBuffer{SpotLights: []core.SpotLightNode{n}}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)
	require.Len(t, out.Spot, 1)
	rec := out.Spot[0]

	assertVec3(t, mgl32.Vec3{0, 0, -2}, rec.P)
	assertVec3(t, mgl32.Vec3{0, 0, 1}, rec.NegD)
	assert.InDelta(t, 0.1, rec.DistanceFalloffInvRange, eps)
	assert.InDelta(t, math.Cos(0.5), rec.CosUmbra, eps)
	assert.InDelta(t, 1/(math.Cos(0.3)-math.Cos(0.5)), rec.CosInvRange, 1e-2)
	assert.Equal(t, float32(1), rec.ExponentProperty)
	assert.Empty(t, out.SpotCameras, "only shadowed spots get cameras")
}

func TestPackShadowedSpotLight(t *testing.T) {
	n := spotAt(mgl32.Vec3{3, 0, -5}, mgl32.Vec3{3, 0, -15}, true)
	pb := &core.PassBuffer{SpotLightsWithShadowMapping: []core.SpotLightNode{n, spotAt(behind, behind.Add(mgl32.Vec3{0, 0, 1}), true)}}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)
	require.Len(t, out.SMSpot, 1)
	require.Len(t, out.SpotCameras, 1)
	assert.Equal(t, 1, out.Culled)

	// A point on the spot axis projects to the centre of the shadow map,
	// from world space and from camera view space alike.
	onAxis := mgl32.Vec3{3, 0, -10}
	ndc := mgl32.TransformCoordinate(onAxis, out.SpotCameras[0].WorldToLProjection)
	assert.InDelta(t, 0, ndc.X(), eps)
	assert.InDelta(t, 0, ndc.Y(), eps)
	fromView := mgl32.TransformCoordinate(mgl32.TransformCoordinate(onAxis, testCamera().WorldToView), out.SMSpot[0].CViewToLProjection)
	assertVec3(t, ndc, fromView)
}

func TestPackDirectionalCascades(t *testing.T) {
	cfg := lbuffer.DefaultConfig().DirectionalShadows
	cfg.Cascades = 2
	down := core.NewTransformLookAt(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1})
	pb := &core.PassBuffer{
		DirectionalLights:                  []core.DirectionalLightNode{{Transform: down, Light: &core.DirectionalLight{Intensity: mgl32.Vec3{1, 1, 1}}}},
		DirectionalLightsWithShadowMapping: []core.DirectionalLightNode{{Transform: down, Light: &core.DirectionalLight{ShadowMapping: true}}},
	}

	var out PackedLights
	lp := NewLightPacker(cfg)
	lp.Pack(pb, testCamera(), &out)

	require.Len(t, out.Directional, 1)
	assertVec3(t, mgl32.Vec3{0, 1, 0}, out.Directional[0].NegD, "points back at the light")
	require.Len(t, out.SMDirectional, 1)
	require.Len(t, out.DirectionalCameras, 2)

	// The camera eye sits in the middle of every cascade.
	for c, cam := range out.DirectionalCameras {
		ndc := mgl32.TransformCoordinate(mgl32.Vec3{}, cam.WorldToLProjection)
		assert.InDelta(t, 0, ndc.X(), eps, "cascade %d", c)
		assert.InDelta(t, 0, ndc.Y(), eps, "cascade %d", c)
		assert.Less(t, math.Abs(float64(ndc.Z())), 1.0, "cascade %d", c)
	}
	// The second cascade covers twice the first.
	edge := mgl32.Vec3{30, 0, 0}
	assert.Greater(t, mgl32.TransformCoordinate(edge, out.DirectionalCameras[0].WorldToLProjection).Len(), float32(1))
	assert.Less(t, math.Abs(float64(mgl32.TransformCoordinate(edge, out.DirectionalCameras[1].WorldToLProjection).X())), 1.0)
}

func TestPackDirectionalIsNeverCulled(t *testing.T) {
	away := core.NewTransformLookAt(behind, behind.Add(mgl32.Vec3{0, 0, 1}), mgl32.Vec3{0, 1, 0})
	pb := &core.PassBuffer{DirectionalLights: []core.DirectionalLightNode{{Transform: away, Light: &core.DirectionalLight{}}}}

	var out PackedLights
	NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows).Pack(pb, testCamera(), &out)
	assert.Len(t, out.Directional, 1)
	assert.Zero(t, out.Culled)
}

func TestPackResetsBetweenFrames(t *testing.T) {
	pb := &core.PassBuffer{OmniLights: []core.OmniLightNode{omniAt(visible, 1, false), omniAt(visible, 2, false)}}
	lp := NewLightPacker(lbuffer.DefaultConfig().DirectionalShadows)

	var out PackedLights
	lp.Pack(pb, testCamera(), &out)
	require.Len(t, out.Omni, 2)

	pb.OmniLights = pb.OmniLights[:1]
	lp.Pack(pb, testCamera(), &out)
	assert.Len(t, out.Omni, 1)
}

func TestTruncateShadows(t *testing.T) {
	out := PackedLights{
		SMOmni:             make([]OmniLightWithShadowMappingBuffer, 4),
		OmniCameras:        make([]LightCamera, 24),
		SMDirectional:      make([]DirectionalLightWithShadowMappingBuffer, 3),
		DirectionalCameras: make([]LightCamera, 6),
	}
	assert.Equal(t, 1, out.truncateOmniShadows(3))
	assert.Len(t, out.OmniCameras, 18)

	assert.Equal(t, 2, out.truncateDirectionalShadows(3, 2), "three maps fit one light with two cascades")
	assert.Len(t, out.SMDirectional, 1)
	assert.Len(t, out.DirectionalCameras, 2)
}
