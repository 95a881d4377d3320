package wgpudevice

import (
	"fmt"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lbuffer/rt/gpu"
)

const lightingVisibility = wgpu.ShaderStageFragment | wgpu.ShaderStageCompute

// shadowMapDimensions are the view dimensions of the shadow map slots.
var shadowMapDimensions = [gpu.NumShadowMapSlots]wgpu.TextureViewDimension{
	wgpu.TextureViewDimension2DArray,   // directional
	wgpu.TextureViewDimensionCubeArray, // omni
	wgpu.TextureViewDimension2DArray,   // spot
}

// LightingLayoutEntries describes the lighting bind group: the uniform, six
// read-only storage buffers and three depth texture arrays, at the binding
// numbers of the gpu slot constants.
func LightingLayoutEntries() []wgpu.BindGroupLayoutEntry {
	entries := []wgpu.BindGroupLayoutEntry{{
		Binding:    gpu.SlotLightingUniform,
		Visibility: lightingVisibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: 64,
		},
	}}
	for i := 0; i < gpu.NumLightSlots; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    gpu.SlotLightsStart + uint32(i),
			Visibility: lightingVisibility,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		})
	}
	for i, dim := range shadowMapDimensions {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    gpu.SlotShadowMapsStart + uint32(i),
			Visibility: lightingVisibility,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeDepth,
				ViewDimension: dim,
			},
		})
	}
	return entries
}

// BindingTable records lighting bindings per stage and turns them into bind
// groups on demand. WebGPU has no null bindings, so unbound shadow map slots
// resolve to a one-map placeholder of the right dimension.
type BindingTable struct {
	dev    *wgpu.Device
	layout *wgpu.BindGroupLayout

	placeholders [gpu.NumShadowMapSlots]*gpu.ShadowMapBuffer
	stages       map[gpu.Stage]*stageBindings
}

type stageBindings struct {
	resources map[uint32]any // gpu.Buffer or gpu.TextureView
	group     *wgpu.BindGroup
	built     []any // resolved resources of group, in binding order
}

func NewBindingTable(dev *Device, opts gpu.ShadowMapOptions) (*BindingTable, error) {
	layout, err := dev.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "LightingBGL",
		Entries: LightingLayoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("create lighting bind group layout: %w", err)
	}
	t := &BindingTable{
		dev:    dev.dev,
		layout: layout,
		stages: map[gpu.Stage]*stageBindings{},
	}
	for i, dim := range shadowMapDimensions {
		var p *gpu.ShadowMapBuffer
		if dim == wgpu.TextureViewDimensionCubeArray {
			p, err = gpu.NewShadowCubeMapBuffer(dev, 1, opts)
		} else {
			p, err = gpu.NewShadowMapBuffer(dev, 1, opts)
		}
		if err != nil {
			t.Release()
			return nil, fmt.Errorf("create placeholder shadow map: %w", err)
		}
		t.placeholders[i] = p
	}
	return t, nil
}

// Layout is the bind group layout pipelines consuming the lighting data use.
func (t *BindingTable) Layout() *wgpu.BindGroupLayout { return t.layout }

func (t *BindingTable) stage(s gpu.Stage) *stageBindings {
	sb, ok := t.stages[s]
	if !ok {
		sb = &stageBindings{resources: map[uint32]any{}}
		t.stages[s] = sb
	}
	return sb
}

func (t *BindingTable) BindUniformBuffer(stage gpu.Stage, slot uint32, buf gpu.Buffer) {
	t.stage(stage).resources[slot] = buf
}

func (t *BindingTable) BindStorageBuffers(stage gpu.Stage, startSlot uint32, bufs []gpu.Buffer) {
	sb := t.stage(stage)
	for i, buf := range bufs {
		sb.resources[startSlot+uint32(i)] = buf
	}
}

func (t *BindingTable) BindTextureViews(stage gpu.Stage, startSlot uint32, views []gpu.TextureView) {
	sb := t.stage(stage)
	for i, v := range views {
		sb.resources[startSlot+uint32(i)] = v
	}
}

// BindGroup returns the bind group for a stage's current bindings. It is
// rebuilt only when the bound resources differ from the last group's.
func (t *BindingTable) BindGroup(stage gpu.Stage) (*wgpu.BindGroup, error) {
	sb := t.stage(stage)
	entries := make([]wgpu.BindGroupEntry, 0, 1+gpu.NumLightSlots+gpu.NumShadowMapSlots)
	for slot := gpu.SlotLightingUniform; slot < gpu.SlotShadowMapsStart; slot++ {
		buf, _ := sb.resources[slot].(*wgpu.Buffer)
		if buf == nil {
			return nil, fmt.Errorf("%s bind group: buffer slot %d is unbound", stage, slot)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: slot, Buffer: buf, Size: buf.GetSize()})
	}
	for i := range shadowMapDimensions {
		slot := gpu.SlotShadowMapsStart + uint32(i)
		view, _ := sb.resources[slot].(*wgpu.TextureView)
		if view == nil {
			view = t.placeholders[i].SRV().(*wgpu.TextureView)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: slot, TextureView: view})
	}

	resolved := make([]any, len(entries))
	for i, e := range entries {
		if e.Buffer != nil {
			resolved[i] = e.Buffer
		} else {
			resolved[i] = e.TextureView
		}
	}
	if sb.group != nil && slices.Equal(resolved, sb.built) {
		return sb.group, nil
	}

	group, err := t.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("LightingBG %s", stage),
		Layout:  t.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%s bind group: %w", stage, err)
	}
	if sb.group != nil {
		sb.group.Release()
	}
	sb.group = group
	sb.built = resolved
	return group, nil
}

func (t *BindingTable) Release() {
	for _, sb := range t.stages {
		if sb.group != nil {
			sb.group.Release()
		}
	}
	t.stages = map[gpu.Stage]*stageBindings{}
	for i, p := range t.placeholders {
		if p != nil {
			p.Release()
			t.placeholders[i] = nil
		}
	}
	if t.layout != nil {
		t.layout.Release()
		t.layout = nil
	}
}
