package gpu

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// StructuredBuffer is a GPU storage buffer holding an array of fixed-layout
// records. It is rewritten in full on every update and only grows.
type StructuredBuffer[T any] struct {
	label    string
	stride   int
	buf      Buffer
	capacity int
	size     int
	scratch  bytes.Buffer
}

func NewStructuredBuffer[T any](dev Device, label string, capacity int) (*StructuredBuffer[T], error) {
	var zero T
	stride := binary.Size(zero)
	if stride <= 0 {
		return nil, fmt.Errorf("structured buffer %s: element type %T has no fixed size", label, zero)
	}
	if capacity < 1 {
		capacity = 1
	}
	b := &StructuredBuffer[T]{label: label, stride: stride}
	buf, err := b.create(dev, capacity)
	if err != nil {
		return nil, err
	}
	b.buf = buf
	b.capacity = capacity
	return b, nil
}

func (b *StructuredBuffer[T]) create(dev Device, capacity int) (Buffer, error) {
	buf, err := dev.CreateBuffer(&BufferDescriptor{
		Label: b.label,
		Size:  uint64(capacity * b.stride),
		Usage: BufferUsageStorage | BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create structured buffer %s (%d x %d bytes): %w", b.label, capacity, b.stride, err)
	}
	return buf, nil
}

// UpdateData replaces the buffer contents with data. An empty slice leaves
// the previous contents in place; Size reports zero and consumers must not
// read past it. If the buffer has to grow and that fails, the old buffer is
// kept and Size is zero.
func (b *StructuredBuffer[T]) UpdateData(dev Device, data []T) error {
	b.size = 0
	if len(data) == 0 {
		return nil
	}

	if len(data) > b.capacity {
		capacity := max(len(data), 2*b.capacity)
		buf, err := b.create(dev, capacity)
		if err != nil {
			return err
		}
		b.buf.Release()
		b.buf = buf
		b.capacity = capacity
	}

	b.scratch.Reset()
	if err := binary.Write(&b.scratch, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("encode %s: %w", b.label, err)
	}
	if err := dev.WriteBuffer(b.buf, 0, b.scratch.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", b.label, err)
	}
	b.size = len(data)
	return nil
}

func (b *StructuredBuffer[T]) Get() Buffer   { return b.buf }
func (b *StructuredBuffer[T]) Size() int     { return b.size }
func (b *StructuredBuffer[T]) Capacity() int { return b.capacity }
func (b *StructuredBuffer[T]) Stride() int   { return b.stride }

func (b *StructuredBuffer[T]) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}

// ConstantBuffer is a uniform buffer holding one fixed-layout record.
type ConstantBuffer[T any] struct {
	label   string
	buf     Buffer
	scratch bytes.Buffer
}

func NewConstantBuffer[T any](dev Device, label string) (*ConstantBuffer[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, fmt.Errorf("constant buffer %s: type %T has no fixed size", label, zero)
	}
	// Uniform buffers are sized in 16-byte rows.
	if size%16 != 0 {
		size += 16 - size%16
	}
	buf, err := dev.CreateBuffer(&BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: BufferUsageUniform | BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create constant buffer %s: %w", label, err)
	}
	return &ConstantBuffer[T]{label: label, buf: buf}, nil
}

func (b *ConstantBuffer[T]) UpdateData(dev Device, data T) error {
	b.scratch.Reset()
	if err := binary.Write(&b.scratch, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("encode %s: %w", b.label, err)
	}
	if err := dev.WriteBuffer(b.buf, 0, b.scratch.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", b.label, err)
	}
	return nil
}

func (b *ConstantBuffer[T]) Get() Buffer { return b.buf }

func (b *ConstantBuffer[T]) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}
