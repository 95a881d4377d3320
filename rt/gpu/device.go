package gpu

// The lighting pass talks to the GPU through these interfaces so that it can
// run against any backend; rt/gpu/wgpudevice implements them on WebGPU.

type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageStorage
	BufferUsageCopyDst
)

type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage BufferUsage
}

type Buffer interface {
	GetSize() uint64
	Release()
}

type TextureFormat uint32

const (
	TextureFormatDepth16 TextureFormat = iota
	TextureFormatDepth32
)

// TextureDescriptor describes a 2D texture array used both as a depth
// attachment and as a sampled texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Layers uint32
	Format TextureFormat
}

type ViewDimension uint32

const (
	ViewDimension2D ViewDimension = iota
	ViewDimension2DArray
	ViewDimensionCubeArray
)

type TextureViewDescriptor struct {
	Label           string
	Dimension       ViewDimension
	BaseArrayLayer  uint32
	ArrayLayerCount uint32
}

type Texture interface {
	CreateView(desc *TextureViewDescriptor) (TextureView, error)
	Release()
}

type TextureView interface {
	Release()
}

type Device interface {
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)
	CreateTexture(desc *TextureDescriptor) (Texture, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
}

// Stage is a shader stage that lighting resources are bound to.
type Stage uint32

const (
	StageFragment Stage = iota
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "unknown"
}

// ResourceBinder records resource bindings per stage and slot. Binding is
// pure state setting: nothing is allocated. A nil buffer or view unbinds
// the slot.
type ResourceBinder interface {
	BindUniformBuffer(stage Stage, slot uint32, buf Buffer)
	BindStorageBuffers(stage Stage, startSlot uint32, bufs []Buffer)
	BindTextureViews(stage Stage, startSlot uint32, views []TextureView)
}

// Context carries the device handles a pass is constructed with.
type Context struct {
	Device Device
	Binder ResourceBinder
}
