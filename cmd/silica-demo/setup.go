package main

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/multierr"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/config"
	"github.com/Tfc538/SilicaEngine-sub000/internal/engine"
	"github.com/Tfc538/SilicaEngine-sub000/internal/frame"
	"github.com/Tfc538/SilicaEngine-sub000/internal/graphics"
	"github.com/Tfc538/SilicaEngine-sub000/internal/resource"
)

const quadMaterial = "materials/quad.mat"

func setupWindow(w config.Window) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err := glfw.CreateWindow(w.Width, w.Height, w.Title, nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		return nil, err
	}

	// Disable V-Sync; the frame limiter paces the loop
	glfw.SwapInterval(0)
	return window, nil
}

// scene is a textured quad drawn with a hot reloadable material and a text
// overlay with cache statistics.
type scene struct {
	material *assets.Asset
	text     *graphics.TextRenderer
	vao, vbo uint32
	tracker  *graphics.Tracker

	camera         *graphics.Camera
	limiter        *frame.Limiter
	profiler       *frame.Profiler
}

func setupScene(e *engine.Engine, w config.Window) (*scene, error) {
	s := &scene{
		tracker:        e.Tracker,
		camera:         graphics.NewCamera(w.Width, w.Height),
		limiter:        frame.NewLimiter(e.Clock, w.FPSLimit),
		profiler:       frame.NewProfiler(e.Clock),
	}

	var err error
	s.material, err = e.Cache.Load(resource.TypeMaterial, quadMaterial, assets.Params{})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", quadMaterial, err)
	}

	font, err := e.Cache.Load(resource.TypeFont, graphics.DefaultFont, assets.Params{})
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	defer func() { _ = font.Release() }()
	shader, err := e.Cache.Load(resource.TypeShader, graphics.DefaultTextShader, assets.Params{})
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	defer func() { _ = shader.Release() }()

	f, _ := assets.As[*graphics.Font](font)
	sh, _ := assets.As[*graphics.Shader](shader)
	s.text, err = graphics.NewTextRenderer(f, sh, w.Width, w.Height, e.Tracker)
	if err != nil {
		return nil, multierr.Append(err, s.Close())
	}

	s.createQuad()
	return s, nil
}

func (s *scene) createQuad() {
	// position xyz, texcoord uv
	vertices := []float32{
		-0.6, -0.6, 0, 0, 1,
		0.6, -0.6, 0, 1, 1,
		0.6, 0.6, 0, 1, 0,
		-0.6, -0.6, 0, 0, 1,
		0.6, 0.6, 0, 1, 0,
		-0.6, 0.6, 0, 0, 0,
	}
	gl.GenVertexArrays(1, &s.vao)
	gl.BindVertexArray(s.vao)
	gl.GenBuffers(1, &s.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, s.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	stride := int32(5 * 4)
	gl.EnableVertexAttribArray(graphics.AttribPosition)
	gl.VertexAttribPointer(graphics.AttribPosition, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(graphics.AttribTexCoord)
	gl.VertexAttribPointer(graphics.AttribTexCoord, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.BindVertexArray(0)

	s.tracker.Track(graphics.ObjectVertexArray, s.vao, "quad")
	s.tracker.Track(graphics.ObjectBuffer, s.vbo, "quad")
}

func (s *scene) Close() error {
	var err error
	if s.text != nil {
		err = s.text.Close()
	}
	if s.vbo != 0 {
		gl.DeleteBuffers(1, &s.vbo)
		s.tracker.Untrack(graphics.ObjectBuffer, s.vbo)
		s.vbo = 0
	}
	if s.vao != 0 {
		gl.DeleteVertexArrays(1, &s.vao)
		s.tracker.Untrack(graphics.ObjectVertexArray, s.vao)
		s.vao = 0
	}
	return multierr.Append(err, s.material.Release())
}
