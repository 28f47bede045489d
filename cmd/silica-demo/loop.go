package main

import (
	"fmt"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Tfc538/SilicaEngine-sub000/internal/assets"
	"github.com/Tfc538/SilicaEngine-sub000/internal/engine"
	"github.com/Tfc538/SilicaEngine-sub000/internal/graphics"
)

const graphFile = "assets.dot"

func setupInput(window *glfw.Window, e *engine.Engine) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyH:
			e.Cache.SetHotReload(!e.Cache.HotReload())
			e.Log.Info("hot reload toggled", zap.Bool("enabled", e.Cache.HotReload()))
		case glfw.KeyR:
			e.Log.Info("checked for changes", zap.Int("reloaded", e.Cache.CheckForChanges()))
		case glfw.KeyG:
			e.Log.Info("collected unused assets", zap.Int("count", e.Cache.ForceGarbageCollection()))
		case glfw.KeyD:
			if err := os.WriteFile(graphFile, []byte(e.Graph.ExportDOT()), 0644); err != nil {
				e.Log.Error("could not write dependency graph", zap.Error(err))
				return
			}
			e.Log.Info("wrote dependency graph", zap.String("file", graphFile))
		}
	})
}

func runLoop(window *glfw.Window, e *engine.Engine, s *scene) {
	setupInput(window, e)

	gl.ClearColor(0.1, 0.1, 0.12, 1)
	start := e.Clock.Now()
	frames, fps := 0, 0
	lastFPSCheck := e.Clock.Now()
	var reloads, collected int

	for !window.ShouldClose() {
		s.profiler.Reset()

		func() {
			defer s.profiler.Track("engine.Tick")()
			res := e.Tick()
			reloads += res.Reloaded
			collected += res.Collected
		}()

		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		model := mgl32.HomogRotate3DY(float32(e.Clock.Since(start).Seconds()) * 0.5)

		func() {
			defer s.profiler.Track("render.Quad")()
			if err := s.drawQuad(model); err != nil {
				e.Log.Error("could not draw quad", zap.Error(err))
				window.SetShouldClose(true)
			}
		}()

		func() {
			defer s.profiler.Track("render.Overlay")()
			if err := s.text.Render(overlay(e, fps, reloads, collected, s.profiler.TopN(2)),
				10, 20, 18, 1, mgl32.Vec3{1, 1, 1}); err != nil {
				e.Log.Error("could not draw overlay", zap.Error(err))
			}
		}()

		window.SwapBuffers()
		glfw.PollEvents()

		frames++
		if e.Clock.Since(lastFPSCheck).Seconds() >= 1 {
			fps = frames
			frames = 0
			lastFPSCheck = e.Clock.Now()
		}
		s.limiter.Wait()
	}
}

func (s *scene) drawQuad(model mgl32.Mat4) error {
	m, ok := assets.As[*graphics.Material](s.material)
	if !ok {
		return fmt.Errorf("%s is not a material", s.material.Path())
	}
	if err := m.Bind(); err != nil {
		return err
	}
	shader, _ := m.CurrentShader()
	shader.SetMatrix4(graphics.UniformViewProjection, s.camera.ViewProjection())
	shader.SetMatrix4(graphics.UniformModel, model)

	gl.BindVertexArray(s.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	return nil
}

func overlay(e *engine.Engine, fps, reloads, collected int, top string) []string {
	st := e.Stats()
	hot := "off"
	if e.Cache.HotReload() {
		hot = "on"
	}
	return []string{
		fmt.Sprintf("FPS: %d", fps),
		fmt.Sprintf("Assets: %d (tex %d, shader %d, mat %d, font %d)", st.Assets, st.Textures, st.Shaders, st.Materials, st.Fonts),
		fmt.Sprintf("Memory: %.1f KiB  Edges: %d  GL objects: %d", float64(st.MemoryUsage)/1024, st.Edges, st.GLObjects),
		fmt.Sprintf("Hot reload: %s  Reloaded: %d  Collected: %d", hot, reloads, collected),
		"Frame: " + top,
		"[H] hot reload  [R] reload now  [G] collect  [D] dump graph",
	}
}
