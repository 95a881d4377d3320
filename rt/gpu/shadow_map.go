package gpu

import (
	"fmt"

	"github.com/gekko3d/lbuffer"

	"github.com/google/uuid"
)

// Viewport covers a whole shadow map layer.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// RasterizerState is the depth bias the shadow depth pipeline renders with.
type RasterizerState struct {
	DepthBias            int32
	SlopeScaledDepthBias float32
	DepthBiasClamp       float32
}

type ShadowMapOptions struct {
	Resolution uint32
	Format     TextureFormat
	Rasterizer RasterizerState
}

func ShadowMapOptionsFromConfig(cfg lbuffer.ShadowMapConfig) ShadowMapOptions {
	format := TextureFormatDepth16
	if cfg.DepthFormat == lbuffer.DepthFormatD32 {
		format = TextureFormatDepth32
	}
	return ShadowMapOptions{
		Resolution: cfg.Resolution,
		Format:     format,
		Rasterizer: RasterizerState{
			DepthBias:            cfg.DepthBias,
			SlopeScaledDepthBias: cfg.SlopeScaledDepthBias,
			DepthBiasClamp:       cfg.DepthBiasClamp,
		},
	}
}

// ShadowMapBuffer owns a depth texture array: one depth view per layer for
// rendering and a single array view over all layers for sampling. The cube
// variant holds six layers per shadow map, faces ordered +X -X +Y -Y +Z -Z.
type ShadowMapBuffer struct {
	id           uuid.UUID
	layersPerMap int
	opts         ShadowMapOptions
	viewport     Viewport

	texture Texture
	dsvs    []TextureView
	srv     TextureView
}

// NewShadowMapBuffer allocates n 2D shadow maps (at least one).
func NewShadowMapBuffer(dev Device, n int, opts ShadowMapOptions) (*ShadowMapBuffer, error) {
	return newShadowMapBuffer(dev, n, 1, opts)
}

// NewShadowCubeMapBuffer allocates n shadow cube maps (at least one).
func NewShadowCubeMapBuffer(dev Device, n int, opts ShadowMapOptions) (*ShadowMapBuffer, error) {
	return newShadowMapBuffer(dev, n, 6, opts)
}

func newShadowMapBuffer(dev Device, n, layersPerMap int, opts ShadowMapOptions) (*ShadowMapBuffer, error) {
	if n < 1 {
		n = 1
	}
	b := &ShadowMapBuffer{
		id:           uuid.New(),
		layersPerMap: layersPerMap,
		opts:         opts,
		viewport: Viewport{
			Width:    float32(opts.Resolution),
			Height:   float32(opts.Resolution),
			MaxDepth: 1,
		},
	}
	if err := b.setup(dev, n*layersPerMap); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *ShadowMapBuffer) setup(dev Device, layers int) error {
	kind := "ShadowMapBuffer"
	srvDim := ViewDimension2DArray
	if b.IsCube() {
		kind = "ShadowCubeMapBuffer"
		srvDim = ViewDimensionCubeArray
	}
	label := fmt.Sprintf("%s %s", kind, b.id)

	var err error
	b.texture, err = dev.CreateTexture(&TextureDescriptor{
		Label:  label,
		Width:  b.opts.Resolution,
		Height: b.opts.Resolution,
		Layers: uint32(layers),
		Format: b.opts.Format,
	})
	if err != nil {
		return fmt.Errorf("create %s with %d layers: %w", label, layers, err)
	}

	b.dsvs = make([]TextureView, 0, layers)
	for i := 0; i < layers; i++ {
		dsv, err := b.texture.CreateView(&TextureViewDescriptor{
			Label:           fmt.Sprintf("%s DSV %d", label, i),
			Dimension:       ViewDimension2D,
			BaseArrayLayer:  uint32(i),
			ArrayLayerCount: 1,
		})
		if err != nil {
			return fmt.Errorf("create %s depth view %d: %w", label, i, err)
		}
		b.dsvs = append(b.dsvs, dsv)
	}

	b.srv, err = b.texture.CreateView(&TextureViewDescriptor{
		Label:           label + " SRV",
		Dimension:       srvDim,
		BaseArrayLayer:  0,
		ArrayLayerCount: uint32(layers),
	})
	if err != nil {
		return fmt.Errorf("create %s array view: %w", label, err)
	}
	return nil
}

// ID is unique per constructed buffer; a new ID means the views changed.
func (b *ShadowMapBuffer) ID() uuid.UUID { return b.id }

func (b *ShadowMapBuffer) IsCube() bool { return b.layersPerMap == 6 }

// Capacity is the number of shadow maps, counting a cube map as one.
func (b *ShadowMapBuffer) Capacity() int { return len(b.dsvs) / b.layersPerMap }

// NumShadowMaps is the number of depth layers.
func (b *ShadowMapBuffer) NumShadowMaps() int { return len(b.dsvs) }

// NumShadowCubeMaps is the number of cube maps; zero for a 2D buffer.
func (b *ShadowMapBuffer) NumShadowCubeMaps() int {
	if !b.IsCube() {
		return 0
	}
	return len(b.dsvs) / 6
}

func (b *ShadowMapBuffer) DSV(i int) TextureView { return b.dsvs[i] }
func (b *ShadowMapBuffer) DSVs() []TextureView   { return b.dsvs }
func (b *ShadowMapBuffer) SRV() TextureView      { return b.srv }
func (b *ShadowMapBuffer) Resolution() uint32    { return b.opts.Resolution }
func (b *ShadowMapBuffer) Format() TextureFormat { return b.opts.Format }
func (b *ShadowMapBuffer) Viewport() Viewport    { return b.viewport }

func (b *ShadowMapBuffer) RasterizerState() RasterizerState { return b.opts.Rasterizer }

func (b *ShadowMapBuffer) Release() {
	if b.srv != nil {
		b.srv.Release()
		b.srv = nil
	}
	for _, v := range b.dsvs {
		v.Release()
	}
	b.dsvs = nil
	if b.texture != nil {
		b.texture.Release()
		b.texture = nil
	}
}
