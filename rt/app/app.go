package app

import (
	"fmt"

	"github.com/gekko3d/lbuffer"
	"github.com/gekko3d/lbuffer/rt/core"
	"github.com/gekko3d/lbuffer/rt/gpu"
	"github.com/gekko3d/lbuffer/rt/gpu/wgpudevice"
	"github.com/gekko3d/lbuffer/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type App struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Settings lbuffer.Config
	Log      lbuffer.Logger

	GPU      *wgpudevice.Device
	Bindings *wgpudevice.BindingTable
	LBuffer  *gpu.LBufferPass

	ShadowPipeline   *wgpu.RenderPipeline
	ShadowBGL        *wgpu.BindGroupLayout
	ShadowCameras    *gpu.StructuredBuffer[gpu.LightCamera]
	OverviewPipeline *wgpu.RenderPipeline

	shadowBG       *wgpu.BindGroup
	shadowBGBuffer gpu.Buffer
	cameras        []gpu.LightCamera

	Camera   *core.CameraState
	Demo     *DemoScene
	Profiler *Profiler

	StartTime     float64
	LastStatsTime float64
	MouseCaptured bool
}

func NewApp(window *glfw.Window, cfg lbuffer.Config, log lbuffer.Logger) *App {
	camera := core.NewCameraState()
	// Look down on the light ring from outside it.
	camera.Position = mgl32.Vec3{0, 40, 25}
	camera.Pitch = -0.55

	return &App{
		Window:   window,
		Settings: cfg,
		Log:      lbuffer.OrNop(log),
		Camera:   camera,
		Demo:     NewDemoScene(40, 12, 20),
		Profiler: NewProfiler(),
	}
}

func (a *App) Init() error {
	a.Instance = wgpu.CreateInstance(nil)

	surface := a.Instance.CreateSurface(GetSurfaceDescriptor(a.Window))
	a.Surface = surface

	adapter, err := a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	a.Adapter = adapter

	a.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	a.Queue = a.Device.GetQueue()

	width, height := a.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, a.Device, a.Config)
	a.Camera.Aspect = aspect(width, height)

	a.GPU = wgpudevice.New(a.Device)
	a.Bindings, err = wgpudevice.NewBindingTable(a.GPU, gpu.ShadowMapOptionsFromConfig(a.Settings.ShadowMaps))
	if err != nil {
		return err
	}
	a.LBuffer, err = gpu.NewLBufferPass(gpu.Context{Device: a.GPU, Binder: a.Bindings}, a.Settings, a.Log.Named("pass"))
	if err != nil {
		return err
	}
	a.ShadowCameras, err = gpu.NewStructuredBuffer[gpu.LightCamera](a.GPU, "ShadowCameras", 8)
	if err != nil {
		return err
	}

	if err := a.setupShadowPipeline(); err != nil {
		return err
	}
	if err := a.setupOverviewPipeline(format); err != nil {
		return err
	}

	a.StartTime = glfw.GetTime()
	a.Log.Infof("lighting pass ready: %d omni, %d spot lights, shadow maps %dpx %s",
		len(a.Demo.Scene.OmniLights), len(a.Demo.Scene.SpotLights), a.Settings.ShadowMaps.Resolution, a.Settings.ShadowMaps.DepthFormat)
	return nil
}

func (a *App) setupShadowPipeline() error {
	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ShadowDepth",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ShadowDepthWGSL},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	a.ShadowBGL, err = a.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "ShadowCamerasBGL",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		}},
	})
	if err != nil {
		return err
	}
	layout, err := a.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ShadowDepthLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{a.ShadowBGL},
	})
	if err != nil {
		return err
	}

	// Every shadow map buffer shares the configured format and bias.
	a.ShadowPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "ShadowDepth Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			// Omni face cameras mirror x, so winding is not the same for
			// every light camera.
			CullMode: wgpu.CullModeNone,
		},
		DepthStencil: wgpudevice.DepthStencilState(a.LBuffer.DirectionalShadowMaps()),
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	return err
}

func (a *App) setupOverviewPipeline(format wgpu.TextureFormat) error {
	module, err := a.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "LightingOverview",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.LightingOverviewWGSL},
	})
	if err != nil {
		return err
	}
	defer module.Release()

	layout, err := a.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "LightingOverviewLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{a.Bindings.Layout()},
	})
	if err != nil {
		return err
	}

	a.OverviewPipeline, err = a.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "LightingOverview Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	return err
}

func (a *App) Resize(w, h int) {
	if w > 0 && h > 0 {
		a.Config.Width = uint32(w)
		a.Config.Height = uint32(h)
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
		a.Camera.Aspect = aspect(w, h)
	}
}

func (a *App) Update() {
	a.Demo.Animate(glfw.GetTime() - a.StartTime)
}

// Render runs the lighting pass, renders every light camera into its shadow
// map layer and draws the lighting overview.
func (a *App) Render() {
	a.Profiler.BeginScope("lbuffer")
	if err := a.LBuffer.Render(a.Demo.Scene.PassBuffer(), a.Camera.Transforms()); err != nil {
		a.Log.Warnf("lbuffer pass: %v", err)
	}
	a.Profiler.EndScope("lbuffer")

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	a.Profiler.BeginScope("shadow")
	if err := a.encodeShadowPasses(encoder); err != nil {
		a.Log.Errorf("shadow passes: %v", err)
	}
	a.Profiler.EndScope("shadow")

	if err := a.encodeOverview(encoder, view); err != nil {
		a.Log.Errorf("overview pass: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	a.Queue.Submit(cmd)
	a.Surface.Present()

	a.updateStats()
}

// encodeShadowPasses uploads the frame's light cameras in directional, omni,
// spot order and renders each one into the depth layer with the same index
// in its category's shadow map buffer.
func (a *App) encodeShadowPasses(encoder *wgpu.CommandEncoder) error {
	type batch struct {
		maps    *gpu.ShadowMapBuffer
		cameras []gpu.LightCamera
	}
	batches := []batch{
		{a.LBuffer.DirectionalShadowMaps(), a.LBuffer.DirectionalCameras()},
		{a.LBuffer.OmniShadowMaps(), a.LBuffer.OmniCameras()},
		{a.LBuffer.SpotShadowMaps(), a.LBuffer.SpotCameras()},
	}

	a.cameras = a.cameras[:0]
	for _, b := range batches {
		a.cameras = append(a.cameras, b.cameras...)
	}
	if len(a.cameras) == 0 {
		return nil
	}
	if err := a.ShadowCameras.UpdateData(a.GPU, a.cameras); err != nil {
		return err
	}
	if err := a.ensureShadowBindGroup(); err != nil {
		return err
	}

	first := uint32(0)
	for _, b := range batches {
		vp := b.maps.Viewport()
		for i := range b.cameras {
			pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
				Label:                  fmt.Sprintf("Shadow %s #%d", b.maps.ID(), i),
				DepthStencilAttachment: wgpudevice.DepthAttachment(b.maps.DSV(i)),
			})
			pass.SetPipeline(a.ShadowPipeline)
			pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
			pass.SetBindGroup(0, a.shadowBG, nil)
			pass.Draw(6, 1, 0, first+uint32(i))
			if err := pass.End(); err != nil {
				return err
			}
		}
		first += uint32(len(b.cameras))
	}
	return nil
}

func (a *App) ensureShadowBindGroup() error {
	buf := a.ShadowCameras.Get()
	if a.shadowBG != nil && a.shadowBGBuffer == buf {
		return nil
	}
	raw := buf.(*wgpu.Buffer)
	bg, err := a.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ShadowCamerasBG",
		Layout: a.ShadowBGL,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  raw,
			Size:    raw.GetSize(),
		}},
	})
	if err != nil {
		return err
	}
	if a.shadowBG != nil {
		a.shadowBG.Release()
	}
	a.shadowBG = bg
	a.shadowBGBuffer = buf
	return nil
}

func (a *App) encodeOverview(encoder *wgpu.CommandEncoder, target *wgpu.TextureView) error {
	bg, err := a.Bindings.BindGroup(gpu.StageFragment)
	if err != nil {
		return err
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(a.OverviewPipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(3, 1, 0, 0)
	return pass.End()
}

func (a *App) updateStats() {
	stats := a.LBuffer.Stats()
	frame := a.LBuffer.FrameStats()
	a.Profiler.SetCount("omni", int(stats.NbOmniLights))
	a.Profiler.SetCount("omni_sm", int(stats.NbSMOmniLights))
	a.Profiler.SetCount("spot", int(stats.NbSpotLights))
	a.Profiler.SetCount("spot_sm", int(stats.NbSMSpotLights))
	a.Profiler.SetCount("directional_sm", int(stats.NbSMDirectionalLights))
	a.Profiler.SetCount("culled", frame.Culled)
	a.Profiler.SetCount("dropped_sm", frame.DroppedShadowCasters)
	a.Profiler.SetCount("omni_capacity", a.LBuffer.OmniShadowMaps().Capacity())
	a.Profiler.SetCount("spot_capacity", a.LBuffer.SpotShadowMaps().Capacity())

	now := glfw.GetTime()
	if a.Log.DebugEnabled() && now-a.LastStatsTime >= 5 {
		a.Log.Debugf("frame stats\n%s", a.Profiler.GetStatsString())
		a.LastStatsTime = now
	}
}

func (a *App) Release() {
	if a.shadowBG != nil {
		a.shadowBG.Release()
	}
	if a.ShadowCameras != nil {
		a.ShadowCameras.Release()
	}
	if a.LBuffer != nil {
		a.LBuffer.Release()
	}
	if a.Bindings != nil {
		a.Bindings.Release()
	}
}

func aspect(w, h int) float32 {
	if w <= 0 || h <= 0 {
		return 1
	}
	return float32(w) / float32(h)
}

func GetSurfaceDescriptor(w *glfw.Window) *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w)
}
