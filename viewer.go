package main

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/engine"
)

// viewer is the interactive 3D front end: orbital camera, particle point
// rendering, and a timeline that scrubs via the frame cache.
type viewer struct {
	eng    *engine.Engine
	camera rl.Camera3D

	playing  bool
	timeline float32 // slider position, in frames
}

func newViewer(eng *engine.Engine, cfg *config.Config) *viewer {
	dist := float32(cfg.Viewer.CameraDistance)
	return &viewer{
		eng:     eng,
		playing: true,
		camera: rl.Camera3D{
			Position:   rl.Vector3{X: dist, Y: dist * 0.6, Z: dist},
			Target:     rl.Vector3{Y: 10},
			Up:         rl.Vector3{Y: 1},
			Fovy:       60,
			Projection: rl.CameraPerspective,
		},
	}
}

// update advances the simulation and handles input. Scrubbing the timeline
// while paused seeks through the frame cache; the same frame always
// renders the same particles.
func (v *viewer) update(cfg *config.Config) {
	rl.UpdateCamera(&v.camera, rl.CameraOrbital)

	if rl.IsKeyPressed(rl.KeySpace) {
		v.playing = !v.playing
	}
	if rl.IsKeyPressed(rl.KeyR) {
		v.eng.Reset()
		v.timeline = 0
	}
	if rl.IsKeyPressed(rl.KeyB) {
		v.eng.TriggerBeat(1)
	}

	if v.playing {
		v.eng.Step(cfg.Derived.DT32)
		v.timeline = float32(v.eng.Frame())
	}
}

func (v *viewer) draw(cfg *config.Config) {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 12, G: 12, B: 18, A: 255})

	rl.BeginMode3D(v.camera)
	if cfg.Viewer.ShowGrid {
		rl.DrawGrid(20, 5)
	}
	v.drawParticles(float32(cfg.Viewer.PointSize))
	rl.EndMode3D()

	v.drawTimeline(cfg)
	if cfg.Viewer.ShowHUD {
		v.drawHUD(cfg)
	}

	rl.EndDrawing()
}

func (v *viewer) drawParticles(pointSize float32) {
	buf := v.eng.Particles()
	scale := pointSize * 0.1
	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}
		c := rl.Color{
			R: colorByte(p.R),
			G: colorByte(p.G),
			B: colorByte(p.B),
			A: colorByte(p.A),
		}
		rl.DrawCubeV(
			rl.Vector3{X: p.X, Y: p.Y, Z: p.Z},
			rl.Vector3{X: p.Size * scale, Y: p.Size * scale, Z: p.Size * scale},
			c,
		)
	}
}

// drawTimeline renders the scrub bar. Dragging it while paused jumps the
// engine to the chosen frame.
func (v *viewer) drawTimeline(cfg *config.Config) {
	w := float32(cfg.Screen.Width)
	h := float32(cfg.Screen.Height)
	bounds := rl.Rectangle{X: 80, Y: h - 40, Width: w - 160, Height: 20}

	maxFrame := float32(cfg.Viewer.TimelineFrames)
	if f := float32(v.eng.Frame()); f > maxFrame {
		maxFrame = f
	}

	target := gui.Slider(bounds, "0", fmt.Sprintf("%d", int(maxFrame)), v.timeline, 0, maxFrame)
	if !v.playing && int(target) != v.eng.Frame() {
		v.timeline = target
		v.eng.SimulateToFrame(int(target), cfg.Derived.FPS32)
	}

	label := "play"
	if v.playing {
		label = "pause"
	}
	if gui.Button(rl.Rectangle{X: 10, Y: h - 42, Width: 60, Height: 24}, label) {
		v.playing = !v.playing
	}
}

func (v *viewer) drawHUD(cfg *config.Config) {
	st := v.eng.State()
	rl.DrawText(fmt.Sprintf("frame %d  t=%.2fs", st.Frame, st.SimTime), 10, 10, 18, rl.RayWhite)
	rl.DrawText(fmt.Sprintf("live %d / %d", st.Live, st.Capacity), 10, 32, 18, rl.RayWhite)
	rl.DrawText(fmt.Sprintf("cached %d  seed %d", st.CachedFrames, st.Seed), 10, 54, 18, rl.Gray)
	rl.DrawText(fmt.Sprintf("%d fps", rl.GetFPS()), cfg.Derived.ScreenW-80, 10, 18, rl.Gray)
	rl.DrawText("space: play/pause  r: reset  b: beat", 10, cfg.Derived.ScreenH-70, 16, rl.Gray)
}

func colorByte(f float32) uint8 {
	if f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(f * 255)
}
