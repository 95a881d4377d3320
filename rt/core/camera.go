package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraState is a Z-up fly camera with a perspective lens.
type CameraState struct {
	Position    mgl32.Vec3
	Yaw         float32
	Pitch       float32
	Speed       float32
	Sensitivity float32

	FovY   float32 // radians
	Aspect float32
	Near   float32
	Far    float32
}

// CameraTransforms are the per-frame camera matrices consumed by the lighting pass.
type CameraTransforms struct {
	WorldToView       mgl32.Mat4
	ViewToWorld       mgl32.Mat4
	ViewToProjection  mgl32.Mat4
	WorldToProjection mgl32.Mat4
}

func NewCameraState() *CameraState {
	return &CameraState{
		Position:    mgl32.Vec3{0, 2, 20},
		Speed:       10.0,
		Sensitivity: 0.003,
		FovY:        mgl32.DegToRad(60),
		Aspect:      16.0 / 9.0,
		Near:        0.1,
		Far:         500.0,
	}
}

func (c *CameraState) GetForward() mgl32.Vec3 {
	// Z-up: Forward in XY plane, Z for pitch
	return mgl32.Vec3{
		float32(math.Cos(float64(c.Pitch)) * math.Sin(float64(c.Yaw))),
		float32(-math.Cos(float64(c.Pitch)) * math.Cos(float64(c.Yaw))),
		float32(math.Sin(float64(c.Pitch))),
	}
}

func (c *CameraState) GetRight() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(-math.Sin(float64(c.Yaw))),
		float32(math.Cos(float64(c.Yaw))),
		0,
	}
}

func (c *CameraState) GetViewMatrix() mgl32.Mat4 {
	eye := c.Position
	target := eye.Add(c.GetForward())
	return mgl32.LookAtV(eye, target, mgl32.Vec3{0, 0, 1})
}

func (c *CameraState) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, c.Aspect, c.Near, c.Far)
}

// Transforms snapshots the camera matrices for one frame.
func (c *CameraState) Transforms() CameraTransforms {
	view := c.GetViewMatrix()
	proj := c.GetProjectionMatrix()
	return CameraTransforms{
		WorldToView:       view,
		ViewToWorld:       view.Inv(),
		ViewToProjection:  proj,
		WorldToProjection: proj.Mul4(view),
	}
}

// NewCameraTransforms builds frame transforms from an explicit view and projection.
func NewCameraTransforms(worldToView, viewToProjection mgl32.Mat4) CameraTransforms {
	return CameraTransforms{
		WorldToView:       worldToView,
		ViewToWorld:       worldToView.Inv(),
		ViewToProjection:  viewToProjection,
		WorldToProjection: viewToProjection.Mul4(worldToView),
	}
}
