// Command placer-view opens a top-down view of a placement preset and lets
// the selection be dragged around with the arrow keys.
//
// Instance slots are stored in item order, not grouped by kind, so the view
// issues a single instanced draw and outlines every item with the local box
// of the kind named by -kind. Items of other kinds are drawn with that shape;
// snapping and bounds still use each item's own kind.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/placer"
	"github.com/gekko3d/placer/rt/bounds"
	"github.com/gekko3d/placer/rt/gpu"
	"github.com/gekko3d/placer/rt/snap"
)

func init() {
	runtime.LockOSThread()
}

type viewer struct {
	log    placer.Logger
	editor *placer.Editor
	preset string
	step   float32

	cursor int
	offset mgl32.Vec3
}

func main() {
	configPath := flag.String("config", "placer.json", "Config file")
	presetPath := flag.String("preset", "", "Preset to open and save to")
	kind := flag.String("kind", "crate", "Kind whose local box outlines every item (other kinds are drawn with it too)")
	step := flag.Float64("step", 10, "Drag step per key press")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := placer.NewDefaultLogger("placer-view", *debug)
	if err := run(log, *configPath, *presetPath, *kind, float32(*step)); err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(log placer.Logger, configPath, presetPath, kind string, step float32) error {
	cfg, err := placer.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Debug {
		log.SetDebug(true)
	}
	if cfg.Kinds == nil {
		cfg.Kinds = map[string]placer.KindConfig{}
	}
	if _, ok := cfg.Kinds[kind]; !ok {
		e := [3]float32{100, 100, 100}
		cfg.Kinds[kind] = placer.KindConfig{Extents: &e}
	}

	ed, err := placer.NewEditor(cfg, log)
	if err != nil {
		return err
	}
	if presetPath != "" {
		if err := ed.LoadPreset(presetPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if len(ed.Items()) == 0 {
		for i := 0; i < 5; i++ {
			if err := ed.AddItem(placer.NewItem(kind, mgl32.Vec3{float32(i) * 150, 0, 0})); err != nil {
				return err
			}
		}
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "placer", nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	defer window.Destroy()

	r, err := newRenderer(log, window, ed, kind)
	if err != nil {
		return err
	}
	defer r.Release()

	v := &viewer{log: log, editor: ed, preset: presetPath, step: step, cursor: -1}
	window.SetKeyCallback(v.onKey)
	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		r.Resize(width, height)
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		ed.Flush()
		r.Render()
	}
	return nil
}

func (v *viewer) onKey(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press && action != glfw.Repeat {
		return
	}
	ed := v.editor

	switch key {
	case glfw.KeyTab:
		v.endDrag()
		items := ed.Items()
		if len(items) == 0 {
			return
		}
		v.cursor = (v.cursor + 1) % len(items)
		if mods&glfw.ModShift == 0 {
			ed.ClearSelection()
		}
		ed.Select(items[v.cursor].ID)
		if obb, ok := ed.SelectionBounds(); ok {
			v.log.Debugf("selection centre %v half extents %v", obb.Center, obb.HalfExtents)
		}
	case glfw.KeyLeft:
		v.drag(mgl32.Vec3{-v.step, 0, 0}, snap.Axes{X: true})
	case glfw.KeyRight:
		v.drag(mgl32.Vec3{v.step, 0, 0}, snap.Axes{X: true})
	case glfw.KeyUp:
		v.drag(mgl32.Vec3{0, v.step, 0}, snap.Axes{Y: true})
	case glfw.KeyDown:
		v.drag(mgl32.Vec3{0, -v.step, 0}, snap.Axes{Y: true})
	case glfw.KeyEnter:
		v.endDrag()
	case glfw.KeyG:
		ids := ed.SelectedIDs()
		if err := ed.SetGroup(1, ids...); err != nil {
			v.log.Warnf("%v", err)
		}
	case glfw.KeyS:
		if mods&glfw.ModControl != 0 && v.preset != "" {
			v.endDrag()
			if err := ed.SavePreset(v.preset); err != nil {
				v.log.Errorf("%v", err)
			}
		}
	case glfw.KeyEscape:
		if ed.Dragging() {
			if err := ed.CancelDrag(); err != nil {
				v.log.Warnf("%v", err)
			}
			v.offset = mgl32.Vec3{}
			return
		}
		w.SetShouldClose(true)
	}
}

// drag accumulates key presses into one drag so snapping sees the full
// offset from where the selection started.
func (v *viewer) drag(delta mgl32.Vec3, axes snap.Axes) {
	ed := v.editor
	if !ed.Dragging() {
		if err := ed.BeginDrag(); err != nil {
			v.log.Debugf("%v", err)
			return
		}
		v.offset = mgl32.Vec3{}
	}
	v.offset = v.offset.Add(delta)
	applied, err := ed.DragTo(v.offset, axes)
	if err != nil {
		v.log.Warnf("%v", err)
		return
	}
	if applied != v.offset {
		v.log.Debugf("snapped: asked %v, applied %v", v.offset, applied)
	}
}

func (v *viewer) endDrag() {
	if v.editor.Dragging() {
		_ = v.editor.EndDrag()
	}
	v.offset = mgl32.Vec3{}
}

type renderer struct {
	log    placer.Logger
	window *glfw.Window
	editor *placer.Editor

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	surface  *wgpu.Surface
	config   *wgpu.SurfaceConfiguration

	instances *gpu.InstanceBuffer
	boxes     *gpu.BoxRenderPass
}

func newRenderer(log placer.Logger, window *glfw.Window, ed *placer.Editor, kind string) (*renderer, error) {
	r := &renderer{log: log, window: window, editor: ed}
	r.instance = wgpu.CreateInstance(nil)
	r.surface = r.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	var err error
	r.adapter, err = r.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	r.device, err = r.adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}

	width, height := window.GetFramebufferSize()
	caps := r.surface.GetCapabilities(r.adapter)
	r.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	r.surface.Configure(r.adapter, r.device, r.config)

	r.instances = gpu.NewInstanceBuffer(r.device)
	ed.SetUploader(r.instances)

	local := bounds.FromExtents(1, 1, 1)
	if k, ok := ed.Config().Kinds[kind]; ok {
		if l, err := k.Local(); err == nil {
			local = l
		}
	}
	r.boxes, err = gpu.NewBoxRenderPass(r.device, r.config.Format, local.LocalBox())
	if err != nil {
		return nil, fmt.Errorf("box pass: %w", err)
	}
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	if width == 0 || height == 0 {
		return
	}
	r.config.Width = uint32(width)
	r.config.Height = uint32(height)
	r.surface.Configure(r.adapter, r.device, r.config)
}

// viewProj frames every item from above, looking down -Z.
func (r *renderer) viewProj() mgl32.Mat4 {
	boxes := make([]bounds.AABB, 0, len(r.editor.Items()))
	for _, it := range r.editor.Items() {
		if b, ok := r.editor.ItemAABB(it.ID); ok {
			boxes = append(boxes, b)
		}
	}
	scene := bounds.MergeAABBs(boxes...)
	if scene.IsEmpty() {
		scene = bounds.AABB{Min: mgl32.Vec3{-100, -100, 0}, Max: mgl32.Vec3{100, 100, 100}}
	}
	scene = scene.Expand(r.editor.Config().SnapThreshold + 50)

	c, size := scene.Center(), scene.Size()
	aspect := float32(r.config.Width) / float32(max(r.config.Height, 1))
	halfW, halfH := size.X()/2, size.Y()/2
	if halfW/halfH < aspect {
		halfW = halfH * aspect
	} else {
		halfH = halfW / aspect
	}

	eye := mgl32.Vec3{c.X(), c.Y(), scene.Max.Z() + 10}
	view := mgl32.LookAtV(eye, mgl32.Vec3{c.X(), c.Y(), c.Z()}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Ortho(-halfW, halfW, -halfH, halfH, 0.1, size.Z()+20)
	return proj.Mul4(view)
}

func (r *renderer) Render() {
	nextTexture, err := r.surface.GetCurrentTexture()
	if err != nil {
		r.log.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		r.log.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	r.boxes.SetCamera(r.viewProj())

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		r.log.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.08, G: 0.08, B: 0.1, A: 1},
		}},
	})
	r.boxes.Draw(pass, r.instances, r.editor.Table().Len())
	if err := pass.End(); err != nil {
		r.log.Errorf("Render pass End failed: %v", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		r.log.Errorf("Encoder Finish failed: %v", err)
		return
	}
	r.device.GetQueue().Submit(cmd)
	r.surface.Present()
}

func (r *renderer) Release() {
	r.boxes.Release()
	r.instances.Release()
	r.device.Release()
	r.adapter.Release()
	r.surface.Release()
	r.instance.Release()
}
