package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"volumeviewer/pkg/config"
	"volumeviewer/pkg/glbackend"
	"volumeviewer/pkg/render"
)

const windowTitle = "Volume Viewer"

// idleRedraw is the longest wait in seconds between frames without events
const idleRedraw = 0.5

// Per key press increments for the shader controls
const (
	alphaStep = 0.05
	rangeStep = 0.05
	stepsStep = 10
	distStep  = 10
	zoomStep  = 0.1
)

// dragState turns cursor motion with the left button held into rotation
type dragState struct {
	active bool
	lastX  float64
	lastY  float64
	scale  float32
}

// runViewer opens the window and runs the frame loop on the locked main thread
func runViewer(cfg *config.Config) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(cfg.Viewer.Width, cfg.Viewer.Height, windowTitle, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer window.Destroy()
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	fmt.Println("OpenGL version:", gl.GoStr(gl.GetString(gl.VERSION)))

	backend, err := glbackend.New(glbackend.Options{LinearFilter: cfg.Render.LinearFilter})
	if err != nil {
		return err
	}
	defer backend.Close()

	opts := render.DefaultOptions()
	opts.NumCores = cfg.Synthesis.NumCores
	opts.Eye = mgl32.Vec3(cfg.Camera.Eye)
	opts.Defaults = render.Uniforms{
		Alpha: cfg.Render.Alpha,
		Min:   cfg.Render.Min,
		Max:   cfg.Render.Max,
		Steps: cfg.Render.Steps,
		Dist:  cfg.Render.Dist,
		Zoom:  cfg.Render.Zoom,
		Light: cfg.Render.Light,
	}
	opts.Logger = newLogger(cfg)
	opts.Notify = func(msg string, err error) {
		// Runs inside ProcessPending on this thread
		window.SetTitle(windowTitle + " - " + msg)
	}

	renderer := render.NewRenderer(backend, opts)
	defer renderer.Close()
	defer renderer.ReleaseAll()

	fbw, fbh := window.GetFramebufferSize()
	backend.Viewport(fbw, fbh)
	renderer.Resize(fbw, fbh)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		backend.Viewport(width, height)
		renderer.Resize(width, height)
	})

	drag := &dragState{scale: cfg.Viewer.RotationScale}
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		drag.active = action == glfw.Press
		drag.lastX, drag.lastY = w.GetCursorPos()
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if !drag.active {
			return
		}
		dx := float32(x-drag.lastX) * drag.scale
		dy := float32(y-drag.lastY) * drag.scale
		drag.lastX, drag.lastY = x, y
		renderer.AddRotation(dx, dy)
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		renderer.SetZoom(renderer.Uniforms().Zoom + float32(yoff)*zoomStep)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		handleKey(w, key, renderer, cfg)
	})

	requestVolume(renderer, cfg)
	if _, err := renderer.RequestCubes(cfg.Viewer.CubeFactor); err != nil {
		return err
	}

	// Wake the event loop when background work finishes
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-renderer.Wake():
				glfw.PostEmptyEvent()
			case <-done:
				return
			}
		}
	}()

	for !window.ShouldClose() {
		if _, err := renderer.DrawFrame(); err != nil {
			log.Printf("Warning: %v", err)
		}
		window.SwapBuffers()
		// Input, resizes and finished jobs all post events
		glfw.WaitEventsTimeout(idleRedraw)
	}
	return nil
}

// requestVolume queues the configured raw volume or the heat map
func requestVolume(r *render.Renderer, cfg *config.Config) {
	var err error
	if cfg.Volume.Path != "" {
		_, err = r.RequestRawVolume(cfg.Volume.Path)
	} else {
		_, err = r.RequestHeatMap(cfg.Synthesis.Size, cfg.Synthesis.Sharpness)
	}
	if err != nil {
		log.Printf("Warning: volume request rejected: %v", err)
	}
}

func handleKey(w *glfw.Window, key glfw.Key, r *render.Renderer, cfg *config.Config) {
	u := r.Uniforms()
	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.Key1:
		r.SetAlpha(u.Alpha - alphaStep)
	case glfw.Key2:
		r.SetAlpha(u.Alpha + alphaStep)
	case glfw.Key3:
		r.SetMin(u.Min - rangeStep)
	case glfw.Key4:
		r.SetMin(u.Min + rangeStep)
	case glfw.Key5:
		r.SetMax(u.Max - rangeStep)
	case glfw.Key6:
		r.SetMax(u.Max + rangeStep)
	case glfw.Key7:
		r.SetSteps(u.Steps - stepsStep)
	case glfw.Key8:
		r.SetSteps(u.Steps + stepsStep)
	case glfw.Key9:
		r.SetDist(u.Dist - distStep)
	case glfw.Key0:
		r.SetDist(u.Dist + distStep)
	case glfw.KeyMinus:
		r.SetZoom(u.Zoom - zoomStep)
	case glfw.KeyEqual:
		r.SetZoom(u.Zoom + zoomStep)
	case glfw.KeyL:
		if u.Light == 0 {
			r.SetLightToggle(1)
		} else {
			r.SetLightToggle(0)
		}
	case glfw.KeyR:
		r.ResetValues()
		r.ResetRotation()
		w.SetTitle(windowTitle)
	case glfw.KeyH:
		if _, err := r.RequestHeatMap(cfg.Synthesis.Size, cfg.Synthesis.Sharpness); err != nil {
			log.Printf("Warning: heat map request rejected: %v", err)
		}
	case glfw.KeyO:
		requestVolume(r, cfg)
	}
}
