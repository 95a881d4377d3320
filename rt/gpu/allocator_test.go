package gpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gekko3d/lbuffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, dev *fakeDevice, kind ShadowMapKind, initial int, policy ShrinkPolicy) *ShadowMapAllocator {
	t.Helper()
	a, err := NewShadowMapAllocator(dev, kind, testShadowMapOptions(), initial, policy, nil)
	require.NoError(t, err)
	return a
}

func TestAllocatorCapacityIsRunningMax(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapSpot, 1, nil)

	requests := []int{0, 3, 2, 3, 7, 1, 7, 8, 0, 5}
	peak := 1
	for i, n := range requests {
		before := a.Buffer().ID()
		require.NoError(t, a.EnsureCapacity(n))

		grew := n > peak
		peak = max(peak, n)
		assert.Equal(t, peak, a.Capacity(), "step %d", i)
		if grew {
			assert.NotEqual(t, before, a.Buffer().ID(), "step %d: new maximum must replace the buffer", i)
		} else {
			assert.Equal(t, before, a.Buffer().ID(), "step %d: buffer must be kept", i)
		}
	}
	assert.Equal(t, 1, dev.liveTextures())
}

func TestAllocatorIdempotent(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapDirectional, 1, nil)

	require.NoError(t, a.EnsureCapacity(4))
	buf := a.Buffer()
	srv := buf.SRV()
	require.NoError(t, a.EnsureCapacity(4))
	require.NoError(t, a.EnsureCapacity(4))

	assert.Same(t, buf, a.Buffer())
	assert.Same(t, srv, a.Buffer().SRV())
	assert.Len(t, dev.textures, 2)
}

func TestAllocatorOmniUsesCubeMaps(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapOmni, 1, nil)
	require.NoError(t, a.EnsureCapacity(5))

	assert.Equal(t, 5, a.Capacity())
	assert.Equal(t, 5, a.Buffer().NumShadowCubeMaps())
	assert.Equal(t, uint32(30), dev.textures[len(dev.textures)-1].desc.Layers)
}

func TestAllocatorGrowFailureKeepsBuffer(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapSpot, 2, nil)
	old := a.Buffer()
	oldTex := dev.textures[0]

	dev.maxLayers = 4
	err := a.EnsureCapacity(6)
	require.Error(t, err)

	var rerr *ResourceError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ShadowMapSpot, rerr.Kind)
	assert.Equal(t, 6, rerr.Requested)
	assert.Equal(t, 2, rerr.Capacity)
	assert.ErrorIs(t, err, errOutOfMemory)

	assert.Same(t, old, a.Buffer())
	assert.Equal(t, 2, a.Capacity())
	assert.False(t, oldTex.released)

	// Still growable once memory is available.
	require.NoError(t, a.EnsureCapacity(4))
	assert.Equal(t, 4, a.Capacity())
	assert.True(t, oldTex.released)
}

func TestAllocatorLogsGrowth(t *testing.T) {
	var out, errOut bytes.Buffer
	log := lbuffer.NewLoggerTo("test", false, &out, &errOut)
	a, err := NewShadowMapAllocator(newFakeDevice(), ShadowMapOmni, testShadowMapOptions(), 1, nil, log)
	require.NoError(t, err)

	require.NoError(t, a.EnsureCapacity(3))
	assert.Contains(t, out.String(), "omni shadow maps grown 1 -> 3")
	assert.Contains(t, out.String(), a.Buffer().ID().String())
}

func TestShrinkAfterIdle(t *testing.T) {
	p := &ShrinkAfterIdle{Frames: 3}

	_, ok := p.Shrink(2, 8)
	assert.False(t, ok)
	_, ok = p.Shrink(5, 8)
	assert.False(t, ok)
	target, ok := p.Shrink(1, 8)
	require.True(t, ok)
	assert.Equal(t, 5, target, "shrinks to the peak of the idle window")

	// Full demand resets the window.
	_, ok = p.Shrink(1, 8)
	assert.False(t, ok)
	_, ok = p.Shrink(8, 8)
	assert.False(t, ok)
	_, ok = p.Shrink(1, 8)
	assert.False(t, ok)

	_, ok = p.Shrink(1, 8)
	assert.False(t, ok)
	p.Reset()
	_, ok = p.Shrink(1, 8)
	assert.False(t, ok)
	_, ok = p.Shrink(1, 8)
	assert.False(t, ok, "Reset starts a new window")
	_, ok = p.Shrink(1, 8)
	assert.True(t, ok)
}

func TestAllocatorShrinkPolicy(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapSpot, 2, &ShrinkAfterIdle{Frames: 2})

	require.NoError(t, a.EnsureCapacity(8))
	require.NoError(t, a.EnsureCapacity(0))
	assert.Equal(t, 8, a.Capacity())
	require.NoError(t, a.EnsureCapacity(1))
	assert.Equal(t, 2, a.Capacity(), "never below the initial capacity")
	assert.Equal(t, 1, dev.liveTextures())
}

func TestAllocatorGrowthRestartsIdleWindow(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapSpot, 1, &ShrinkAfterIdle{Frames: 5})

	require.NoError(t, a.EnsureCapacity(8))
	for i := 0; i < 4; i++ {
		require.NoError(t, a.EnsureCapacity(2))
	}
	require.NoError(t, a.EnsureCapacity(10))
	grown := a.Buffer().ID()

	for i := 0; i < 4; i++ {
		require.NoError(t, a.EnsureCapacity(9))
		assert.Equal(t, 10, a.Capacity(), "idle frame %d after growth", i+1)
		assert.Equal(t, grown, a.Buffer().ID(), "idle frame %d after growth", i+1)
	}
	require.NoError(t, a.EnsureCapacity(9))
	assert.Equal(t, 9, a.Capacity(), "shrinks after a full idle window")
}

func TestAllocatorFailedGrowthRestartsIdleWindow(t *testing.T) {
	dev := newFakeDevice()
	a := newTestAllocator(t, dev, ShadowMapSpot, 1, &ShrinkAfterIdle{Frames: 2})

	require.NoError(t, a.EnsureCapacity(8))
	require.NoError(t, a.EnsureCapacity(3))

	dev.maxLayers = 8
	require.Error(t, a.EnsureCapacity(12))
	require.NoError(t, a.EnsureCapacity(3))
	assert.Equal(t, 8, a.Capacity(), "demand above capacity is not idle")
	require.NoError(t, a.EnsureCapacity(3))
	assert.Equal(t, 3, a.Capacity())
}

func TestGrowOnlyNeverShrinks(t *testing.T) {
	a := newTestAllocator(t, newFakeDevice(), ShadowMapSpot, 1, GrowOnly{})
	require.NoError(t, a.EnsureCapacity(8))
	for i := 0; i < 100; i++ {
		require.NoError(t, a.EnsureCapacity(3))
	}
	assert.Equal(t, 8, a.Capacity())
}

func TestNewShrinkPolicy(t *testing.T) {
	cfg := lbuffer.DefaultConfig().ShadowMaps
	assert.Equal(t, GrowOnly{}, NewShrinkPolicy(cfg))

	cfg.ShrinkAfterFrames = 60
	assert.Equal(t, &ShrinkAfterIdle{Frames: 60}, NewShrinkPolicy(cfg))
}
