// Package camera tracks a camera's position and orientation and answers
// whether points fall inside its view volume.
//
// The view volume is approximated by the parallelepiped spanned from the
// near-bottom-left corner of the frustum along three of its edges, not by
// the true pyramidal frustum.
package camera

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrZeroDirection is returned when the camera would look along the zero vector
	ErrZeroDirection = errors.New("camera: direction must not be the zero vector")

	// ErrParallelUp is returned when the direction is parallel to WorldUp,
	// which leaves no horizontal axis to build the volume from
	ErrParallelUp = errors.New("camera: direction is parallel to the world up vector")
)

// WorldUp is the reference up vector used to derive the camera basis
var WorldUp = r3.Vec{X: 0, Y: 1, Z: 0}

// snapEpsilon absorbs floating point noise just below zero in DotProd
const snapEpsilon = 0.0001

// ViewVolume is the box used for containment tests. Each edge runs from
// Anchor, the near-bottom-left corner, to an adjacent corner of the frustum.
type ViewVolume struct {
	Anchor r3.Vec

	// EdgeRight reaches the far-bottom-left corner
	EdgeRight r3.Vec

	// EdgeUp reaches the near-top-left corner
	EdgeUp r3.Vec

	// EdgeDepth reaches the near-bottom-right corner
	EdgeDepth r3.Vec
}

// Camera holds location, direction and frustum extents. The extents are
// distances from the view axis at the near plane.
//
// Changing the location or direction marks the camera dirty; IsInsideView
// keeps answering from the previous volume until UpdateViewVolume runs.
// A Camera is not safe for concurrent use.
type Camera struct {
	location  r3.Vec
	direction r3.Vec

	far, near   float64
	left, right float64
	top, bottom float64

	volume ViewVolume
	ready  bool
	dirty  bool
}

// New creates a camera at (0, 0, 1) looking down -z. UpdateViewVolume must
// be called before the first containment query.
func New(far, near, left, right, top, bottom float64) *Camera {
	return &Camera{
		location:  r3.Vec{X: 0, Y: 0, Z: 1},
		direction: r3.Vec{X: 0, Y: 0, Z: -1},
		far:       far,
		near:      near,
		left:      left,
		right:     right,
		top:       top,
		bottom:    bottom,
	}
}

// Location returns the camera position
func (c *Camera) Location() r3.Vec { return c.location }

// Direction returns the viewing direction. It is unit length after
// UpdateViewVolume.
func (c *Camera) Direction() r3.Vec { return c.direction }

// Ready reports whether a view volume has been computed
func (c *Camera) Ready() bool { return c.ready }

// Dirty reports whether location or direction changed since the last
// UpdateViewVolume
func (c *Camera) Dirty() bool { return c.dirty }

// Volume returns the current view volume
func (c *Camera) Volume() ViewVolume { return c.volume }

// UpdateLocation moves the camera and aims it at the origin. Moving onto
// the origin itself is rejected because it leaves no direction.
func (c *Camera) UpdateLocation(x, y, z float64) error {
	loc := r3.Vec{X: x, Y: y, Z: z}
	dir := r3.Scale(-1, loc)
	if r3.Norm2(dir) == 0 {
		return ErrZeroDirection
	}
	c.location = loc
	c.direction = dir
	c.dirty = true
	return nil
}

// SetLocation moves the camera without changing its direction
func (c *Camera) SetLocation(x, y, z float64) {
	c.location = r3.Vec{X: x, Y: y, Z: z}
	c.dirty = true
}

// UpdateDirection changes where the camera looks
func (c *Camera) UpdateDirection(x, y, z float64) error {
	dir := r3.Vec{X: x, Y: y, Z: z}
	if r3.Norm2(dir) == 0 {
		return ErrZeroDirection
	}
	c.direction = dir
	c.dirty = true
	return nil
}

// UpdateViewVolume normalizes the direction and recomputes the anchor and
// edges. On error the previous volume is kept.
func (c *Camera) UpdateViewVolume() error {
	if r3.Norm2(c.direction) == 0 {
		return ErrZeroDirection
	}
	dir := r3.Unit(c.direction)

	side := r3.Cross(WorldUp, dir)
	if r3.Norm2(side) == 0 {
		return ErrParallelUp
	}
	up := r3.Cross(dir, side)

	corner := func(dist, h, v float64) r3.Vec {
		p := r3.Add(c.location, r3.Scale(dist, dir))
		p = r3.Add(p, r3.Scale(h, side))
		return r3.Add(p, r3.Scale(v, up))
	}

	a := corner(c.near, c.left, -c.bottom)
	b := corner(c.far, c.left, -c.bottom)
	d := corner(c.near, -c.right, -c.bottom)
	e := corner(c.near, c.left, c.top)

	c.direction = dir
	c.volume = ViewVolume{
		Anchor:    a,
		EdgeRight: r3.Sub(b, a),
		EdgeUp:    r3.Sub(e, a),
		EdgeDepth: r3.Sub(d, a),
	}
	c.ready = true
	c.dirty = false
	return nil
}

// IsInsideView reports whether p lies in the box spanned by the view
// volume edges. It is always false before the first UpdateViewVolume.
func (c *Camera) IsInsideView(p r3.Vec) bool {
	if !c.ready {
		return false
	}
	return c.volume.Contains(p)
}

// Contains reports whether 0 <= ap·e <= e·e for every edge e, where ap
// runs from the anchor to p.
func (v ViewVolume) Contains(p r3.Vec) bool {
	ap := r3.Sub(p, v.Anchor)
	for _, e := range [3]r3.Vec{v.EdgeRight, v.EdgeUp, v.EdgeDepth} {
		proj := DotProd(ap, e)
		if proj < 0 || proj > DotProd(e, e) {
			return false
		}
	}
	return true
}

// DotProd returns a·b, snapping results in (-0.0001, 0) to exactly zero
func DotProd(a, b r3.Vec) float64 {
	dot := r3.Dot(a, b)
	if -snapEpsilon < dot && dot < 0 {
		return 0
	}
	return dot
}
