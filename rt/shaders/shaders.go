package shaders

import (
	_ "embed"
)

//go:embed shadow_depth.wgsl
var ShadowDepthWGSL string

//go:embed lighting_overview.wgsl
var LightingOverviewWGSL string
