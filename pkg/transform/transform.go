// Package transform computes the per-frame model, view and projection
// matrices for the volume cube: drag rotation accumulated across frames,
// a uniform zoom scale, a fixed look-at view and an orthographic
// projection sized to the viewport.
package transform

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Default eye placement: in front of the origin looking into the screen
var (
	DefaultEye    = mgl32.Vec3{0, 0, 10}
	DefaultCenter = mgl32.Vec3{0, 0, 1}
	DefaultUp     = mgl32.Vec3{0, 1, 0}
)

// Projection planes
const (
	NearPlane = 1.0
	FarPlane  = 100.0
)

// Matrices is everything the draw call needs for one frame
type Matrices struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4

	// ModelView is View * Model
	ModelView mgl32.Mat4

	// MVP is Projection * View * Model
	MVP mgl32.Mat4

	// ViewProjection is Projection * View
	ViewProjection mgl32.Mat4
}

// Transform keeps the accumulated rotation between frames. It is owned by
// the graphics thread.
type Transform struct {
	accumulated mgl32.Mat4
	view        mgl32.Mat4
	projection  mgl32.Mat4
}

// New creates a transform looking from eye toward DefaultCenter
func New(eye mgl32.Vec3) *Transform {
	return &Transform{
		accumulated: mgl32.Ident4(),
		view:        mgl32.LookAtV(eye, DefaultCenter, DefaultUp),
		projection:  mgl32.Ident4(),
	}
}

// Resize rebuilds the projection for a viewport. The height always spans
// [-1, 1] and the width follows the aspect ratio.
func (t *Transform) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	ratio := float32(width) / float32(height)
	t.projection = mgl32.Ortho(-ratio, ratio, -1, 1, NearPlane, FarPlane)
}

// Reset clears the accumulated rotation
func (t *Transform) Reset() {
	t.accumulated = mgl32.Ident4()
}

// Rotation returns the accumulated rotation
func (t *Transform) Rotation() mgl32.Mat4 {
	return t.accumulated
}

// Frame folds this frame's drag deltas (in degrees) into the accumulated
// rotation and returns the matrices for drawing. deltaX turns about +Y and
// deltaY about +X; the new rotation is applied on top of the old one.
func (t *Transform) Frame(deltaX, deltaY, zoom float32) Matrices {
	current := mgl32.HomogRotate3DY(mgl32.DegToRad(deltaX)).
		Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(deltaY)))
	t.accumulated = current.Mul4(t.accumulated)

	model := t.accumulated.Mul4(mgl32.Scale3D(zoom, zoom, zoom))
	mv := t.view.Mul4(model)

	return Matrices{
		Model:          model,
		View:           t.view,
		Projection:     t.projection,
		ModelView:      mv,
		MVP:            t.projection.Mul4(mv),
		ViewProjection: t.projection.Mul4(t.view),
	}
}
