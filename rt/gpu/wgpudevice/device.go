// Package wgpudevice implements the lighting pass device interfaces on
// WebGPU.
package wgpudevice

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lbuffer/rt/gpu"
)

// Device adapts a *wgpu.Device and its queue to gpu.Device. Buffers are
// returned as *wgpu.Buffer and views as *wgpu.TextureView.
type Device struct {
	dev   *wgpu.Device
	queue *wgpu.Queue
}

func New(dev *wgpu.Device) *Device {
	return &Device{dev: dev, queue: dev.GetQueue()}
}

func (d *Device) Raw() *wgpu.Device { return d.dev }

func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.Buffer, error) {
	// WebGPU buffer sizes must be 4-byte aligned.
	size := desc.Size
	if size%4 != 0 {
		size += 4 - size%4
	}
	buf, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             size,
		Usage:            BufferUsage(desc.Usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.Texture, error) {
	format := TextureFormat(desc.Format)
	tex, err := d.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: desc.Layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, err
	}
	return &texture{tex: tex, format: format}, nil
}

func (d *Device) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	raw, ok := buf.(*wgpu.Buffer)
	if !ok {
		return fmt.Errorf("write buffer: %T is not a wgpu buffer", buf)
	}
	return d.queue.WriteBuffer(raw, offset, data)
}

type texture struct {
	tex    *wgpu.Texture
	format wgpu.TextureFormat
}

func (t *texture) CreateView(desc *gpu.TextureViewDescriptor) (gpu.TextureView, error) {
	view, err := t.tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          t.format,
		Dimension:       ViewDimension(desc.Dimension),
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  desc.BaseArrayLayer,
		ArrayLayerCount: desc.ArrayLayerCount,
		Aspect:          wgpu.TextureAspectDepthOnly,
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (t *texture) Release() { t.tex.Release() }

func BufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&gpu.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&gpu.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&gpu.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func TextureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	if f == gpu.TextureFormatDepth32 {
		return wgpu.TextureFormatDepth32Float
	}
	return wgpu.TextureFormatDepth16Unorm
}

func ViewDimension(d gpu.ViewDimension) wgpu.TextureViewDimension {
	switch d {
	case gpu.ViewDimension2DArray:
		return wgpu.TextureViewDimension2DArray
	case gpu.ViewDimensionCubeArray:
		return wgpu.TextureViewDimensionCubeArray
	}
	return wgpu.TextureViewDimension2D
}

// DepthAttachment clears a shadow map layer and keeps the rendered depth.
func DepthAttachment(view gpu.TextureView) *wgpu.RenderPassDepthStencilAttachment {
	return &wgpu.RenderPassDepthStencilAttachment{
		View:            view.(*wgpu.TextureView),
		DepthLoadOp:     wgpu.LoadOpClear,
		DepthStoreOp:    wgpu.StoreOpStore,
		DepthClearValue: 1.0,
	}
}

// DepthStencilState is the depth state of a pipeline rendering into b.
func DepthStencilState(b *gpu.ShadowMapBuffer) *wgpu.DepthStencilState {
	rs := b.RasterizerState()
	return &wgpu.DepthStencilState{
		Format:              TextureFormat(b.Format()),
		DepthWriteEnabled:   true,
		DepthCompare:        wgpu.CompareFunctionLess,
		DepthBias:           rs.DepthBias,
		DepthBiasSlopeScale: rs.SlopeScaledDepthBias,
		DepthBiasClamp:      rs.DepthBiasClamp,
		StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}
