// Package glbackend draws voxel fields with OpenGL 4.3 core. It implements
// render.Uploader and must only be used on the thread that owns the context.
package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"volumeviewer/internal/models"
	"volumeviewer/pkg/mesh"
	"volumeviewer/pkg/render"
)

// LightPosition is the light in world space, in front of the volume
var LightPosition = mgl32.Vec4{0, 0, 1, 1}

// Options configures the backend
type Options struct {
	// LinearFilter samples the volume with trilinear filtering instead of nearest
	LinearFilter bool
}

// Backend owns the ray-march program and the GL objects created through it
type Backend struct {
	program uint32
	vao     uint32
	filter  int32

	// Uniform locations
	mvp, mv, m, vp, lightPos, texture int32
	alpha, min, max, dist, steps      int32
	zoom, light                       int32

	// Attribute locations, -1 when the driver optimized one out
	position, normal, texCoord int32
}

// New compiles the program and prepares GL state. gl.Init must have been
// called on the current thread.
func New(opts Options) (*Backend, error) {
	program, err := buildProgram()
	if err != nil {
		return nil, fmt.Errorf("failed to build ray march program: %w", err)
	}

	b := &Backend{program: program, filter: gl.NEAREST}
	if opts.LinearFilter {
		b.filter = gl.LINEAR
	}

	uniform := func(name string) int32 {
		return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	}
	b.mvp = uniform("u_MVPMatrix")
	b.mv = uniform("u_MVMatrix")
	b.m = uniform("u_MMatrix")
	b.vp = uniform("u_VPMatrix")
	b.lightPos = uniform("u_LightPos")
	b.texture = uniform("u_Texture")
	b.alpha = uniform("uAmax")
	b.min = uniform("uMin")
	b.max = uniform("uMax")
	b.dist = uniform("uDist")
	b.steps = uniform("uNumSteps")
	b.zoom = uniform("u_Zoom")
	b.light = uniform("uLightToggle")

	attrib := func(name string) int32 {
		return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
	}
	b.position = attrib("a_Position")
	b.normal = attrib("a_Normal")
	b.texCoord = attrib("a_TexCoordinate")

	gl.GenVertexArrays(1, &b.vao)
	if b.vao == 0 {
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("failed to create vertex array: %w", render.ErrResource)
	}

	gl.ClearColor(0, 0, 0, 0)
	gl.Enable(gl.CULL_FACE)
	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)

	return b, nil
}

// checkError maps a pending GL error onto the render error kinds
func checkError(op string) error {
	switch code := gl.GetError(); code {
	case gl.NO_ERROR:
		return nil
	case gl.OUT_OF_MEMORY:
		return fmt.Errorf("%s: %w", op, render.ErrOutOfMemory)
	default:
		return fmt.Errorf("%s: GL error 0x%x: %w", op, code, render.ErrResource)
	}
}

// UploadVolumeTexture creates a single-channel 3D texture from vol. The
// dimensions are passed through as width, height and depth and the samples
// are handed over untouched.
func (b *Backend) UploadVolumeTexture(vol *models.Volume) (render.TextureHandle, error) {
	// Drop stale errors so they are not blamed on this upload
	for gl.GetError() != gl.NO_ERROR {
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	if tex == 0 {
		return 0, fmt.Errorf("glGenTextures returned no name: %w", render.ErrResource)
	}

	gl.BindTexture(gl.TEXTURE_3D, tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.R8,
		int32(vol.Width), int32(vol.Height), int32(vol.Depth),
		0, gl.RED, gl.UNSIGNED_BYTE, gl.Ptr(vol.Data))

	if err := checkError("texture upload"); err != nil {
		gl.BindTexture(gl.TEXTURE_3D, 0)
		gl.DeleteTextures(1, &tex)
		return 0, err
	}

	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, b.filter)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, b.filter)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_3D, 0)

	return render.TextureHandle(tex), nil
}

// ReleaseTexture deletes a texture created by UploadVolumeTexture
func (b *Backend) ReleaseTexture(h render.TextureHandle) {
	tex := uint32(h)
	gl.DeleteTextures(1, &tex)
}

// UploadMesh copies interleaved cube vertices into a static buffer
func (b *Backend) UploadMesh(m *mesh.Mesh) (render.BufferHandle, error) {
	for gl.GetError() != gl.NO_ERROR {
	}

	var buf uint32
	gl.GenBuffers(1, &buf)
	if buf == 0 {
		return 0, fmt.Errorf("glGenBuffers returned no name: %w", render.ErrResource)
	}

	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.BufferData(gl.ARRAY_BUFFER, m.SizeBytes(), gl.Ptr(m.Data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if err := checkError("vertex upload"); err != nil {
		gl.DeleteBuffers(1, &buf)
		return 0, err
	}
	return render.BufferHandle(buf), nil
}

// ReleaseMesh deletes a buffer created by UploadMesh
func (b *Backend) ReleaseMesh(h render.BufferHandle) {
	buf := uint32(h)
	gl.DeleteBuffers(1, &buf)
}

// Viewport sets the drawable area in pixels
func (b *Backend) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Draw clears the frame and ray-marches the texture through the cube mesh
func (b *Backend) Draw(f render.Frame) error {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	gl.UseProgram(b.program)

	mats := f.Matrices
	gl.UniformMatrix4fv(b.mvp, 1, false, &mats.MVP[0])
	gl.UniformMatrix4fv(b.mv, 1, false, &mats.ModelView[0])
	gl.UniformMatrix4fv(b.m, 1, false, &mats.Model[0])
	gl.UniformMatrix4fv(b.vp, 1, false, &mats.ViewProjection[0])

	light := mats.View.Mul4x1(LightPosition)
	gl.Uniform3f(b.lightPos, light[0], light[1], light[2])

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_3D, uint32(f.Texture))
	gl.Uniform1i(b.texture, 0)

	u := f.Uniforms
	gl.Uniform1f(b.alpha, u.Alpha)
	gl.Uniform1f(b.min, u.Min)
	gl.Uniform1f(b.max, u.Max)
	gl.Uniform1f(b.steps, u.Steps)
	gl.Uniform1f(b.dist, u.Dist)
	gl.Uniform1f(b.zoom, u.Zoom)
	gl.Uniform1f(b.light, u.Light)

	gl.BindVertexArray(b.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(f.Buffer))
	b.attribute(b.position, mesh.PositionSize, 0)
	b.attribute(b.normal, mesh.NormalSize, mesh.NormalOffset)
	b.attribute(b.texCoord, mesh.TexCoordSize, mesh.TexCoordOffset)

	gl.DrawArrays(gl.TRIANGLES, 0, int32(f.VertexCount))

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_3D, 0)

	return checkError("draw")
}

func (b *Backend) attribute(location int32, size int, offset int) {
	if location < 0 {
		return
	}
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointerWithOffset(uint32(location), int32(size), gl.FLOAT, false, mesh.Stride, uintptr(offset))
}

// Close deletes the program and vertex array
func (b *Backend) Close() {
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteProgram(b.program)
}

var _ render.Uploader = (*Backend)(nil)
