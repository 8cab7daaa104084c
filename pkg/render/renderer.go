// Package render owns the per-instance state of a volume renderer: the
// shader uniforms, the single background worker that synthesizes or loads
// volumes and builds the cube mesh, and the handoff of finished work to the
// thread that owns the graphics context.
//
// Setters and AddRotation may be called from any goroutine. ProcessPending,
// DrawFrame and ReleaseAll must only be called from the graphics thread.
package render

import (
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"volumeviewer/internal/models"
	"volumeviewer/pkg/mesh"
	"volumeviewer/pkg/rawvolume"
	"volumeviewer/pkg/synthesis"
	"volumeviewer/pkg/transform"
)

var (
	// ErrResource is returned by an Uploader that could not create a texture or buffer
	ErrResource = errors.New("render: graphics resource creation failed")

	// ErrOutOfMemory is returned by an Uploader that ran out of memory. It is retryable.
	ErrOutOfMemory = errors.New("render: out of memory")

	// ErrClosed is returned when work is requested after Close
	ErrClosed = errors.New("render: renderer closed")
)

// TextureHandle identifies an uploaded 3D texture
type TextureHandle uint32

// BufferHandle identifies an uploaded vertex buffer
type BufferHandle uint32

// Frame is everything the graphics layer needs to draw one frame
type Frame struct {
	Texture     TextureHandle
	Buffer      BufferHandle
	VertexCount int
	Matrices    transform.Matrices
	Uniforms    Uniforms
}

// Uploader is the graphics layer. All methods are called from the
// graphics thread only.
type Uploader interface {
	// UploadVolumeTexture creates a single-channel 3D texture sized from vol.
	// On failure nothing may remain allocated.
	UploadVolumeTexture(vol *models.Volume) (TextureHandle, error)
	ReleaseTexture(h TextureHandle)

	// UploadMesh creates an interleaved vertex buffer. On failure nothing
	// may remain allocated.
	UploadMesh(m *mesh.Mesh) (BufferHandle, error)
	ReleaseMesh(h BufferHandle)

	Draw(f Frame) error
}

// NotifyFunc receives user-visible messages. err is nil for informational
// messages.
type NotifyFunc func(message string, err error)

// Options configure a Renderer
type Options struct {
	// Logger defaults to log.Default()
	Logger *log.Logger

	// Notify is called on the graphics thread when applying work fails
	Notify NotifyFunc

	// Defaults are the uniforms restored by ResetValues
	Defaults Uniforms

	// Eye positions the view; zero means transform.DefaultEye
	Eye mgl32.Vec3

	// NumCores bounds synthesis parallelism; zero means all CPUs
	NumCores int
}

// DefaultOptions returns options using the standard uniforms and eye
func DefaultOptions() Options {
	return Options{
		Defaults: DefaultUniforms(),
		Eye:      transform.DefaultEye,
	}
}

// Renderer coordinates background volume work with a graphics thread
type Renderer struct {
	uploader Uploader
	logger   *log.Logger
	notify   NotifyFunc
	numCores int

	controls  controls
	transform *transform.Transform

	worker *worker
	seq    atomic.Uint64

	// completed results waiting for the graphics thread
	pendingMu sync.Mutex
	pending   []result
	wake      chan struct{}

	// graphics thread state
	texture     TextureHandle
	hasTexture  bool
	textureSeq  uint64
	volumeDims  [3]int
	buffer      BufferHandle
	hasBuffer   bool
	bufferSeq   uint64
	vertexCount int
	closeOnce   sync.Once
}

// NewRenderer creates a renderer and starts its worker
func NewRenderer(uploader Uploader, opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	eye := opts.Eye
	if eye == (mgl32.Vec3{}) {
		eye = transform.DefaultEye
	}

	r := &Renderer{
		uploader:  uploader,
		logger:    logger,
		notify:    opts.Notify,
		numCores:  opts.NumCores,
		transform: transform.New(eye),
		wake:      make(chan struct{}, 1),
	}
	r.controls.defaults = opts.Defaults
	r.controls.values = opts.Defaults
	r.worker = newWorker(r.complete)
	return r
}

// complete runs on the worker goroutine
func (r *Renderer) complete(res result) {
	r.pendingMu.Lock()
	r.pending = append(r.pending, res)
	r.pendingMu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Wake receives a value whenever finished work is waiting for ProcessPending
func (r *Renderer) Wake() <-chan struct{} {
	return r.wake
}

func (r *Renderer) submit(j job) (uint64, error) {
	j.seq = r.seq.Add(1)
	if !r.worker.submit(j) {
		return 0, ErrClosed
	}
	return j.seq, nil
}

// RequestVolume queues produce on the worker. The returned sequence number
// identifies the request.
func (r *Renderer) RequestVolume(name string, produce func() (*models.Volume, error)) (uint64, error) {
	return r.submit(job{kind: volumeJob, name: name, produceVolume: produce})
}

// RequestHeatMap queues synthesis of the reference heat map
func (r *Renderer) RequestHeatMap(size int, sharpness float64) (uint64, error) {
	numCores := r.numCores
	return r.RequestVolume(fmt.Sprintf("heat map %d^3", size), func() (*models.Volume, error) {
		return synthesis.NewHeatMapSynthesizer(sharpness, numCores).Synthesize(size)
	})
}

// RequestRawVolume queues loading of a raw scan and its sidecar
func (r *Renderer) RequestRawVolume(basePath string) (uint64, error) {
	return r.RequestVolume(basePath, func() (*models.Volume, error) {
		vol, _, err := rawvolume.Load(basePath)
		return vol, err
	})
}

// RequestCubes queues generation of the cube mesh
func (r *Renderer) RequestCubes(factor int) (uint64, error) {
	return r.submit(job{
		kind: meshJob,
		name: fmt.Sprintf("%d^3 cubes", factor),
		produceMesh: func() (*mesh.Mesh, error) {
			return mesh.BuildCubes(factor)
		},
	})
}

// Wait blocks until the worker has no queued or running job. Finished
// results still need ProcessPending to be applied.
func (r *Renderer) Wait() {
	r.worker.wait()
}

// ProcessPending applies finished work on the graphics thread and returns
// the number of results applied. Failed results are reported through the
// notifier and leave the current resources in place.
func (r *Renderer) ProcessPending() int {
	r.pendingMu.Lock()
	batch := r.pending
	r.pending = nil
	r.pendingMu.Unlock()

	applied := 0
	for _, res := range batch {
		if r.apply(res) {
			applied++
		}
	}
	return applied
}

func (r *Renderer) apply(res result) bool {
	if res.err != nil {
		r.logger.Printf("Warning: %s %q failed: %v", res.kind, res.name, res.err)
		r.report(fmt.Sprintf("Could not prepare %s", res.name), res.err)
		return false
	}

	switch res.kind {
	case volumeJob:
		// Results arrive in order from the single worker, so this only
		// drops work that was overtaken
		if res.seq < r.textureSeq {
			return false
		}
		return r.applyVolume(res)
	case meshJob:
		if res.seq < r.bufferSeq {
			return false
		}
		return r.applyMesh(res)
	}
	return false
}

func (r *Renderer) applyVolume(res result) bool {
	r.releaseTexture()

	h, err := r.uploader.UploadVolumeTexture(res.volume)
	if err != nil {
		r.uploadFailed(res, err)
		return false
	}

	r.texture = h
	r.hasTexture = true
	r.textureSeq = res.seq
	r.volumeDims = [3]int{res.volume.Width, res.volume.Height, res.volume.Depth}
	r.logger.Printf("Uploaded %s as %dx%dx%d texture", res.name, res.volume.Width, res.volume.Height, res.volume.Depth)
	return true
}

func (r *Renderer) applyMesh(res result) bool {
	r.releaseBuffer()

	h, err := r.uploader.UploadMesh(res.mesh)
	if err != nil {
		r.uploadFailed(res, err)
		return false
	}

	r.buffer = h
	r.hasBuffer = true
	r.bufferSeq = res.seq
	r.vertexCount = res.mesh.VertexCount()
	return true
}

// uploadFailed handles an upload failure. Out of memory returns the heap to the
// OS so a retry has a chance; both cases are reported and never fatal.
func (r *Renderer) uploadFailed(res result, err error) {
	switch {
	case errors.Is(err, ErrOutOfMemory):
		debug.FreeOSMemory()
		r.logger.Printf("Warning: out of memory uploading %s", res.name)
		r.report("Out of memory; please try again", err)
	default:
		r.logger.Printf("Warning: failed to upload %s: %v", res.name, err)
		r.report(fmt.Sprintf("Could not upload %s", res.name), err)
	}
}

func (r *Renderer) report(msg string, err error) {
	if r.notify != nil {
		r.notify(msg, err)
	}
}

func (r *Renderer) releaseTexture() {
	if r.hasTexture {
		r.uploader.ReleaseTexture(r.texture)
		r.hasTexture = false
		r.texture = 0
		r.volumeDims = [3]int{}
	}
}

func (r *Renderer) releaseBuffer() {
	if r.hasBuffer {
		r.uploader.ReleaseMesh(r.buffer)
		r.hasBuffer = false
		r.buffer = 0
		r.vertexCount = 0
	}
}

// Texture returns the current texture, if any
func (r *Renderer) Texture() (TextureHandle, bool) {
	return r.texture, r.hasTexture
}

// VolumeDims returns the dimensions of the uploaded volume
func (r *Renderer) VolumeDims() [3]int {
	return r.volumeDims
}

// Buffer returns the current vertex buffer and its vertex count, if any
func (r *Renderer) Buffer() (BufferHandle, int, bool) {
	return r.buffer, r.vertexCount, r.hasBuffer
}

// Resize updates the projection for a new viewport
func (r *Renderer) Resize(width, height int) {
	r.transform.Resize(width, height)
}

// ResetRotation clears the accumulated drag rotation
func (r *Renderer) ResetRotation() {
	r.transform.Reset()
}

// DrawFrame applies pending work, consumes this frame's rotation and draws
// when both a texture and a mesh are present. It reports whether anything
// was drawn.
func (r *Renderer) DrawFrame() (bool, error) {
	r.ProcessPending()

	uniforms, dx, dy := r.controls.takeFrameInput()
	matrices := r.transform.Frame(dx, dy, uniforms.Zoom)

	if !r.hasTexture || !r.hasBuffer {
		return false, nil
	}

	err := r.uploader.Draw(Frame{
		Texture:     r.texture,
		Buffer:      r.buffer,
		VertexCount: r.vertexCount,
		Matrices:    matrices,
		Uniforms:    uniforms,
	})
	if err != nil {
		return false, fmt.Errorf("draw failed: %w", err)
	}
	return true, nil
}

// ReleaseAll frees the texture and buffer. Call it on the graphics thread
// before the context goes away.
func (r *Renderer) ReleaseAll() {
	r.releaseTexture()
	r.releaseBuffer()
}

// Close stops the worker. A running job finishes; queued jobs are dropped.
func (r *Renderer) Close() {
	r.closeOnce.Do(r.worker.close)
}
