package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type DirectionalLightNode struct {
	Transform *Transform
	Light     *DirectionalLight
}

type OmniLightNode struct {
	Transform *Transform
	Light     *OmniLight
}

type SpotLightNode struct {
	Transform *Transform
	Light     *SpotLight
}

// PassBuffer is the read-only per-frame view of the scene's lights, split by
// kind and by shadow mapping. Each list keeps scene enumeration order.
type PassBuffer struct {
	DirectionalLights                  []DirectionalLightNode
	DirectionalLightsWithShadowMapping []DirectionalLightNode
	OmniLights                         []OmniLightNode
	OmniLightsWithShadowMapping        []OmniLightNode
	SpotLights                         []SpotLightNode
	SpotLightsWithShadowMapping        []SpotLightNode

	AmbientLight mgl32.Vec3
	Fog          Fog
}

type Scene struct {
	DirectionalLights []DirectionalLightNode
	OmniLights        []OmniLightNode
	SpotLights        []SpotLightNode
	AmbientLight      mgl32.Vec3
	Fog               Fog

	pass PassBuffer
}

func NewScene() *Scene {
	return &Scene{
		Fog: Fog{DistanceFalloffStart: 0, DistanceFalloffEnd: 1000},
	}
}

func (s *Scene) AddDirectionalLight(t *Transform, l *DirectionalLight) {
	s.DirectionalLights = append(s.DirectionalLights, DirectionalLightNode{Transform: t, Light: l})
}

func (s *Scene) AddOmniLight(t *Transform, l *OmniLight) {
	s.OmniLights = append(s.OmniLights, OmniLightNode{Transform: t, Light: l})
}

func (s *Scene) AddSpotLight(t *Transform, l *SpotLight) {
	s.SpotLights = append(s.SpotLights, SpotLightNode{Transform: t, Light: l})
}

func (s *Scene) RemoveOmniLight(l *OmniLight) {
	for i, n := range s.OmniLights {
		if n.Light == l {
			s.OmniLights = append(s.OmniLights[:i], s.OmniLights[i+1:]...)
			return
		}
	}
}

func (s *Scene) RemoveSpotLight(l *SpotLight) {
	for i, n := range s.SpotLights {
		if n.Light == l {
			s.SpotLights = append(s.SpotLights[:i], s.SpotLights[i+1:]...)
			return
		}
	}
}

// PassBuffer partitions the lights by their ShadowMapping flag. The returned
// buffer is owned by the scene and rewritten by the next call.
func (s *Scene) PassBuffer() *PassBuffer {
	pb := &s.pass
	// Clear but keep capacity
	pb.DirectionalLights = pb.DirectionalLights[:0]
	pb.DirectionalLightsWithShadowMapping = pb.DirectionalLightsWithShadowMapping[:0]
	pb.OmniLights = pb.OmniLights[:0]
	pb.OmniLightsWithShadowMapping = pb.OmniLightsWithShadowMapping[:0]
	pb.SpotLights = pb.SpotLights[:0]
	pb.SpotLightsWithShadowMapping = pb.SpotLightsWithShadowMapping[:0]

	for _, n := range s.DirectionalLights {
		if n.Light.ShadowMapping {
			pb.DirectionalLightsWithShadowMapping = append(pb.DirectionalLightsWithShadowMapping, n)
		} else {
			pb.DirectionalLights = append(pb.DirectionalLights, n)
		}
	}
	for _, n := range s.OmniLights {
		if n.Light.ShadowMapping {
			pb.OmniLightsWithShadowMapping = append(pb.OmniLightsWithShadowMapping, n)
		} else {
			pb.OmniLights = append(pb.OmniLights, n)
		}
	}
	for _, n := range s.SpotLights {
		if n.Light.ShadowMapping {
			pb.SpotLightsWithShadowMapping = append(pb.SpotLightsWithShadowMapping, n)
		} else {
			pb.SpotLights = append(pb.SpotLights, n)
		}
	}

	pb.AmbientLight = s.AmbientLight
	pb.Fog = s.Fog
	return pb
}
