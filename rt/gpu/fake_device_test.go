package gpu

import (
	"errors"
	"fmt"
)

var errOutOfMemory = errors.New("out of memory")

type fakeBuffer struct {
	desc     BufferDescriptor
	data     []byte
	released bool
}

func (b *fakeBuffer) GetSize() uint64 { return b.desc.Size }
func (b *fakeBuffer) Release()        { b.released = true }

type fakeTexture struct {
	desc     TextureDescriptor
	views    []*fakeView
	released bool
	dev      *fakeDevice
}

func (t *fakeTexture) CreateView(desc *TextureViewDescriptor) (TextureView, error) {
	if t.dev.failViews {
		return nil, errOutOfMemory
	}
	v := &fakeView{tex: t, desc: *desc}
	t.views = append(t.views, v)
	return v, nil
}

func (t *fakeTexture) Release() { t.released = true }

type fakeView struct {
	tex      *fakeTexture
	desc     TextureViewDescriptor
	released bool
}

func (v *fakeView) Release() { v.released = true }

// fakeDevice records every resource it hands out. Events shared with a
// fakeBinder keep the relative order of allocations and bindings.
type fakeDevice struct {
	buffers  []*fakeBuffer
	textures []*fakeTexture
	writes   int

	failBuffers bool
	failViews   bool
	// maxLayers makes CreateTexture fail above this many layers; 0 means no limit.
	maxLayers uint32

	events *[]string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{events: new([]string)}
}

func (d *fakeDevice) record(format string, args ...any) {
	*d.events = append(*d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDevice) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	if d.failBuffers {
		return nil, errOutOfMemory
	}
	b := &fakeBuffer{desc: *desc}
	d.buffers = append(d.buffers, b)
	d.record("buffer %s", desc.Label)
	return b, nil
}

func (d *fakeDevice) CreateTexture(desc *TextureDescriptor) (Texture, error) {
	if d.maxLayers > 0 && desc.Layers > d.maxLayers {
		return nil, errOutOfMemory
	}
	t := &fakeTexture{desc: *desc, dev: d}
	d.textures = append(d.textures, t)
	d.record("texture %d", desc.Layers)
	return t, nil
}

func (d *fakeDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b := buf.(*fakeBuffer)
	if b.released {
		return errors.New("write to released buffer")
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("write of %d bytes overflows %d byte buffer", len(data), b.desc.Size)
	}
	end := int(offset) + len(data)
	if len(b.data) < end {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	copy(b.data[offset:], data)
	d.writes++
	return nil
}

func (d *fakeDevice) liveTextures() int {
	n := 0
	for _, t := range d.textures {
		if !t.released {
			n++
		}
	}
	return n
}

type slotKey struct {
	stage Stage
	slot  uint32
}

type fakeBinder struct {
	uniforms map[slotKey]Buffer
	storage  map[slotKey]Buffer
	views    map[slotKey]TextureView
	events   *[]string
}

func newFakeBinder(events *[]string) *fakeBinder {
	return &fakeBinder{
		uniforms: map[slotKey]Buffer{},
		storage:  map[slotKey]Buffer{},
		views:    map[slotKey]TextureView{},
		events:   events,
	}
}

func (b *fakeBinder) BindUniformBuffer(stage Stage, slot uint32, buf Buffer) {
	b.uniforms[slotKey{stage, slot}] = buf
}

func (b *fakeBinder) BindStorageBuffers(stage Stage, startSlot uint32, bufs []Buffer) {
	for i, buf := range bufs {
		b.storage[slotKey{stage, startSlot + uint32(i)}] = buf
	}
}

func (b *fakeBinder) BindTextureViews(stage Stage, startSlot uint32, views []TextureView) {
	bound := 0
	for i, v := range views {
		b.views[slotKey{stage, startSlot + uint32(i)}] = v
		if v != nil {
			bound++
		}
	}
	if bound == 0 {
		*b.events = append(*b.events, fmt.Sprintf("unbind views %s", stage))
	} else {
		*b.events = append(*b.events, fmt.Sprintf("bind views %s", stage))
	}
}

func newFakeContext() (Context, *fakeDevice, *fakeBinder) {
	dev := newFakeDevice()
	binder := newFakeBinder(dev.events)
	return Context{Device: dev, Binder: binder}, dev, binder
}
