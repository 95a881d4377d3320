package gpu

import (
	"fmt"

	"github.com/gekko3d/lbuffer"
)

type ShadowMapKind int

const (
	ShadowMapDirectional ShadowMapKind = iota
	ShadowMapOmni
	ShadowMapSpot
)

func (k ShadowMapKind) String() string {
	switch k {
	case ShadowMapDirectional:
		return "directional"
	case ShadowMapOmni:
		return "omni"
	case ShadowMapSpot:
		return "spot"
	}
	return fmt.Sprintf("ShadowMapKind(%d)", int(k))
}

// ResourceError reports a shadow map buffer that could not be grown. The
// previous buffer is still in place with Capacity shadow maps.
type ResourceError struct {
	Kind      ShadowMapKind
	Requested int
	Capacity  int
	Err       error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("grow %s shadow maps from %d to %d: %v", e.Kind, e.Capacity, e.Requested, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ShrinkPolicy is consulted once per frame when demand fits the current
// capacity. It returns the capacity to shrink to and true, or false to keep
// the buffer. Reset is called whenever demand exceeds capacity.
type ShrinkPolicy interface {
	Shrink(requested, capacity int) (int, bool)
	Reset()
}

// GrowOnly never shrinks.
type GrowOnly struct{}

func (GrowOnly) Shrink(requested, capacity int) (int, bool) { return 0, false }
func (GrowOnly) Reset()                                     {}

// ShrinkAfterIdle shrinks to the peak demand seen while demand stayed below
// capacity for Frames consecutive frames.
type ShrinkAfterIdle struct {
	Frames int

	idle int
	peak int
}

func (p *ShrinkAfterIdle) Shrink(requested, capacity int) (int, bool) {
	if p.Frames <= 0 || requested >= capacity {
		p.Reset()
		return 0, false
	}
	p.idle++
	p.peak = max(p.peak, requested)
	if p.idle < p.Frames {
		return 0, false
	}
	target := p.peak
	p.Reset()
	return target, true
}

// Reset starts a new idle window.
func (p *ShrinkAfterIdle) Reset() {
	p.idle, p.peak = 0, 0
}

// NewShrinkPolicy returns the policy configured for one allocator.
func NewShrinkPolicy(cfg lbuffer.ShadowMapConfig) ShrinkPolicy {
	if cfg.ShrinkAfterFrames > 0 {
		return &ShrinkAfterIdle{Frames: cfg.ShrinkAfterFrames}
	}
	return GrowOnly{}
}

// ShadowMapAllocator is the single owner of one category's shadow map
// buffer. The buffer is replaced, never resized: a new one is fully built
// before the old one is released, so a failed replacement leaves the old
// buffer and its views untouched.
type ShadowMapAllocator struct {
	kind   ShadowMapKind
	dev    Device
	opts   ShadowMapOptions
	floor  int
	policy ShrinkPolicy
	log    lbuffer.Logger

	buf *ShadowMapBuffer
}

// NewShadowMapAllocator allocates the initial buffer with max(1, initial) shadow maps.
func NewShadowMapAllocator(dev Device, kind ShadowMapKind, opts ShadowMapOptions, initial int, policy ShrinkPolicy, log lbuffer.Logger) (*ShadowMapAllocator, error) {
	if policy == nil {
		policy = GrowOnly{}
	}
	a := &ShadowMapAllocator{
		kind:   kind,
		dev:    dev,
		opts:   opts,
		floor:  max(1, initial),
		policy: policy,
		log:    lbuffer.OrNop(log),
	}
	buf, err := a.build(a.floor)
	if err != nil {
		return nil, err
	}
	a.buf = buf
	return a, nil
}

func (a *ShadowMapAllocator) build(n int) (*ShadowMapBuffer, error) {
	if a.kind == ShadowMapOmni {
		return NewShadowCubeMapBuffer(a.dev, n, a.opts)
	}
	return NewShadowMapBuffer(a.dev, n, a.opts)
}

// EnsureCapacity makes room for requested shadow maps (cube maps for omni
// lights). The buffer is only replaced when requested exceeds the current
// capacity, or when the shrink policy asks for it. On failure the previous
// buffer stays and a *ResourceError is returned.
func (a *ShadowMapAllocator) EnsureCapacity(requested int) error {
	capacity := a.Capacity()

	if requested > capacity {
		a.policy.Reset()
		buf, err := a.build(requested)
		if err != nil {
			return &ResourceError{Kind: a.kind, Requested: requested, Capacity: capacity, Err: err}
		}
		a.log.Infof("%s shadow maps grown %d -> %d (%s)", a.kind, capacity, requested, buf.ID())
		a.replace(buf)
		return nil
	}

	target, ok := a.policy.Shrink(requested, capacity)
	if !ok {
		return nil
	}
	target = max(target, a.floor)
	if target >= capacity {
		return nil
	}
	buf, err := a.build(target)
	if err != nil {
		// Keeping the larger buffer is always valid.
		a.log.Warnf("%s shadow maps: shrink %d -> %d failed: %v", a.kind, capacity, target, err)
		return nil
	}
	a.log.Infof("%s shadow maps shrunk %d -> %d (%s)", a.kind, capacity, target, buf.ID())
	a.replace(buf)
	return nil
}

func (a *ShadowMapAllocator) replace(buf *ShadowMapBuffer) {
	old := a.buf
	a.buf = buf
	if old != nil {
		old.Release()
	}
}

func (a *ShadowMapAllocator) Kind() ShadowMapKind { return a.kind }

// Capacity is the number of shadow maps (cube maps for omni) available.
func (a *ShadowMapAllocator) Capacity() int { return a.buf.Capacity() }

// Buffer returns the current buffer. It must be fetched again after
// EnsureCapacity, which may replace it.
func (a *ShadowMapAllocator) Buffer() *ShadowMapBuffer { return a.buf }

func (a *ShadowMapAllocator) Release() {
	if a.buf != nil {
		a.buf.Release()
		a.buf = nil
	}
}
