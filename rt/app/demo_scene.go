package app

import (
	"math"

	"github.com/gekko3d/lbuffer/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

var up = mgl32.Vec3{0, 0, 1}

// DemoScene is a ring of omni lights and spot lights orbiting the origin
// under a shadowed sun. Every third light casts shadows.
type DemoScene struct {
	Scene *core.Scene

	omni   []*core.Transform
	spots  []*core.Transform
	radius float32
}

func NewDemoScene(numOmni, numSpot int, radius float32) *DemoScene {
	d := &DemoScene{Scene: core.NewScene(), radius: radius}
	s := d.Scene
	s.AmbientLight = mgl32.Vec3{0.05, 0.05, 0.07}
	s.Fog = core.Fog{Color: mgl32.Vec3{0.5, 0.55, 0.6}, DistanceFalloffStart: 50, DistanceFalloffEnd: 400}

	sun := core.NewTransformLookAt(mgl32.Vec3{10, 10, 30}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	s.AddDirectionalLight(sun, &core.DirectionalLight{Intensity: mgl32.Vec3{1, 0.95, 0.9}, ShadowMapping: true})

	for i := 0; i < numOmni; i++ {
		t := core.NewTransform()
		l := core.NewOmniLight(hue(i, numOmni), 1, 8)
		l.ShadowMapping = i%3 == 0
		s.AddOmniLight(t, l)
		d.omni = append(d.omni, t)
	}
	for i := 0; i < numSpot; i++ {
		t := core.NewTransform()
		l := core.NewSpotLight(hue(i, numSpot), 1, 25, mgl32.DegToRad(20), mgl32.DegToRad(30))
		l.ShadowMapping = i%3 == 0
		s.AddSpotLight(t, l)
		d.spots = append(d.spots, t)
	}
	d.Animate(0)
	return d
}

// Animate places the lights for time t in seconds. Omni lights orbit at
// ground level; spot lights hang above the ring and point at the origin.
func (d *DemoScene) Animate(t float64) {
	for i, tr := range d.omni {
		a := float64(i)/float64(len(d.omni))*2*math.Pi + 0.3*t
		tr.Position = mgl32.Vec3{
			d.radius * float32(math.Cos(a)),
			d.radius * float32(math.Sin(a)),
			2,
		}
	}
	for i, tr := range d.spots {
		a := float64(i)/float64(len(d.spots))*2*math.Pi - 0.2*t
		eye := mgl32.Vec3{
			0.5 * d.radius * float32(math.Cos(a)),
			0.5 * d.radius * float32(math.Sin(a)),
			15,
		}
		*tr = *core.NewTransformLookAt(eye, mgl32.Vec3{}, up)
	}
}

func hue(i, n int) mgl32.Vec3 {
	h := float64(i) / float64(max(n, 1)) * 2 * math.Pi
	return mgl32.Vec3{
		float32(0.5 + 0.5*math.Cos(h)),
		float32(0.5 + 0.5*math.Cos(h-2*math.Pi/3)),
		float32(0.5 + 0.5*math.Cos(h+2*math.Pi/3)),
	}
}
