package lbuffer

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type DepthFormat string

const (
	DepthFormatD16 DepthFormat = "d16"
	DepthFormatD32 DepthFormat = "d32"
)

// ShadowMapConfig controls the depth array textures backing shadow maps.
type ShadowMapConfig struct {
	Resolution           uint32      `toml:"resolution"`
	DepthFormat          DepthFormat `toml:"depth_format"`
	DepthBias            int32       `toml:"depth_bias"`
	SlopeScaledDepthBias float32     `toml:"slope_scaled_depth_bias"`
	DepthBiasClamp       float32     `toml:"depth_bias_clamp"`

	// InitialCapacity is the number of shadow maps (cube maps for omni
	// lights) allocated per light category before any frame runs.
	InitialCapacity int `toml:"initial_capacity"`

	// ShrinkAfterFrames enables shrinking a category once its demand has been
	// below capacity for that many consecutive frames. Zero keeps buffers
	// grow-only.
	ShrinkAfterFrames int `toml:"shrink_after_frames"`
}

// LightBufferConfig holds the initial element capacity of each structured light buffer.
type LightBufferConfig struct {
	Directional         int `toml:"directional"`
	Omni                int `toml:"omni"`
	Spot                int `toml:"spot"`
	DirectionalShadowed int `toml:"directional_shadowed"`
	OmniShadowed        int `toml:"omni_shadowed"`
	SpotShadowed        int `toml:"spot_shadowed"`
}

// DirectionalShadowConfig describes the orthographic cascades of shadowed directional lights.
type DirectionalShadowConfig struct {
	Cascades int     `toml:"cascades"`
	Extent   float32 `toml:"extent"`
	Near     float32 `toml:"near"`
	Far      float32 `toml:"far"`
}

type Config struct {
	Debug              bool                    `toml:"debug"`
	ShadowMaps         ShadowMapConfig         `toml:"shadow_maps"`
	LightBuffers       LightBufferConfig       `toml:"light_buffers"`
	DirectionalShadows DirectionalShadowConfig `toml:"directional_shadows"`
}

func DefaultConfig() Config {
	return Config{
		ShadowMaps: ShadowMapConfig{
			Resolution:           512,
			DepthFormat:          DepthFormatD16,
			DepthBias:            100,
			SlopeScaledDepthBias: 1.0,
			DepthBiasClamp:       0.0,
			InitialCapacity:      1,
		},
		LightBuffers: LightBufferConfig{
			Directional:         3,
			Omni:                32,
			Spot:                32,
			DirectionalShadowed: 1,
			OmniShadowed:        1,
			SpotShadowed:        1,
		},
		DirectionalShadows: DirectionalShadowConfig{
			Cascades: 1,
			Extent:   40.0,
			Near:     0.1,
			Far:      200.0,
		},
	}
}

// ParseConfig decodes TOML on top of DefaultConfig, so omitted keys keep
// their defaults. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	sm := c.ShadowMaps
	if sm.Resolution == 0 {
		return fmt.Errorf("shadow_maps.resolution must be positive")
	}
	switch sm.DepthFormat {
	case DepthFormatD16, DepthFormatD32:
	default:
		return fmt.Errorf("shadow_maps.depth_format %q: want %q or %q", sm.DepthFormat, DepthFormatD16, DepthFormatD32)
	}
	if sm.InitialCapacity < 1 {
		return fmt.Errorf("shadow_maps.initial_capacity must be at least 1, got %d", sm.InitialCapacity)
	}
	if sm.ShrinkAfterFrames < 0 {
		return fmt.Errorf("shadow_maps.shrink_after_frames must not be negative, got %d", sm.ShrinkAfterFrames)
	}

	lb := c.LightBuffers
	for _, f := range []struct {
		name string
		v    int
	}{
		{"directional", lb.Directional},
		{"omni", lb.Omni},
		{"spot", lb.Spot},
		{"directional_shadowed", lb.DirectionalShadowed},
		{"omni_shadowed", lb.OmniShadowed},
		{"spot_shadowed", lb.SpotShadowed},
	} {
		if f.v < 1 {
			return fmt.Errorf("light_buffers.%s must be at least 1, got %d", f.name, f.v)
		}
	}

	ds := c.DirectionalShadows
	if ds.Cascades < 1 {
		return fmt.Errorf("directional_shadows.cascades must be at least 1, got %d", ds.Cascades)
	}
	if ds.Extent <= 0 {
		return fmt.Errorf("directional_shadows.extent must be positive")
	}
	if ds.Far <= ds.Near {
		return fmt.Errorf("directional_shadows: far (%g) must exceed near (%g)", ds.Far, ds.Near)
	}
	return nil
}
