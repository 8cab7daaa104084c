package render

import "sync"

// Uniforms are the scalar inputs of the ray-march shader. Any value is
// accepted; the shader clamps what it needs to.
type Uniforms struct {
	Alpha float32
	Min   float32
	Max   float32
	Steps float32
	Dist  float32
	Zoom  float32

	// Light toggles shading in the raw scan view
	Light float32
}

// DefaultUniforms returns the values restored by ResetValues
func DefaultUniforms() Uniforms {
	return Uniforms{
		Alpha: 1.0,
		Min:   0.0,
		Max:   1.0,
		Steps: 100.0,
		Dist:  100.0,
		Zoom:  1.0,
		Light: 0.0,
	}
}

// controls holds the state written by the UI and input threads and read
// once per frame by the graphics thread
type controls struct {
	mu       sync.Mutex
	defaults Uniforms
	values   Uniforms
	deltaX   float32
	deltaY   float32
}

func (c *controls) set(f func(u *Uniforms)) {
	c.mu.Lock()
	f(&c.values)
	c.mu.Unlock()
}

// SetAlpha sets the opacity scale
func (r *Renderer) SetAlpha(v float32) { r.controls.set(func(u *Uniforms) { u.Alpha = v }) }

// SetMin sets the lower intensity threshold
func (r *Renderer) SetMin(v float32) { r.controls.set(func(u *Uniforms) { u.Min = v }) }

// SetMax sets the upper intensity threshold
func (r *Renderer) SetMax(v float32) { r.controls.set(func(u *Uniforms) { u.Max = v }) }

// SetDist sets the ray distance
func (r *Renderer) SetDist(v float32) { r.controls.set(func(u *Uniforms) { u.Dist = v }) }

// SetSteps sets the number of ray-march steps
func (r *Renderer) SetSteps(v float32) { r.controls.set(func(u *Uniforms) { u.Steps = v }) }

// SetZoom sets the model scale
func (r *Renderer) SetZoom(v float32) { r.controls.set(func(u *Uniforms) { u.Zoom = v }) }

// SetLightToggle sets the lighting toggle
func (r *Renderer) SetLightToggle(v float32) { r.controls.set(func(u *Uniforms) { u.Light = v }) }

// ResetValues restores every uniform to its default
func (r *Renderer) ResetValues() {
	r.controls.mu.Lock()
	r.controls.values = r.controls.defaults
	r.controls.mu.Unlock()
}

// Uniforms returns a snapshot of the current values
func (r *Renderer) Uniforms() Uniforms {
	r.controls.mu.Lock()
	defer r.controls.mu.Unlock()
	return r.controls.values
}

// AddRotation accumulates a drag, in degrees, to be applied on the next frame
func (r *Renderer) AddRotation(deltaX, deltaY float32) {
	r.controls.mu.Lock()
	r.controls.deltaX += deltaX
	r.controls.deltaY += deltaY
	r.controls.mu.Unlock()
}

// takeFrameInput returns the uniforms and the pending rotation, resetting
// the rotation to zero
func (c *controls) takeFrameInput() (Uniforms, float32, float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dx, dy := c.deltaX, c.deltaY
	c.deltaX, c.deltaY = 0, 0
	return c.values, dx, dy
}
