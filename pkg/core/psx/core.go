package psx

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/libretro"
	console "github.com/giongto35/retrocore/pkg/psx"
	"github.com/giongto35/retrocore/pkg/renderer"
	"github.com/giongto35/retrocore/pkg/savestate"
)

var (
	black = color.RGBA{A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

var (
	_ libretro.Core   = (*Context)(nil)
	_ libretro.Closer = (*Context)(nil)
)

func (c *Context) RenderFrame() {
	c.pollControllers()

	if c.settings.debugOnKey && c.env.KeyPressed(0, libretro.KeyPause) {
		c.debugger.TriggerBreak()
	}

	if !c.hasSetRes {
		// frontends may ignore geometry changes before the first frame
		c.env.SetGeometry(c.SystemAVInfo().Geometry)
		c.hasSetRes = true
	}

	c.cpu.RunUntilNextFrame(c.debugger, c.shared)

	gpu := c.cpu.Interconnect().Gpu()
	c.fps.tick(gpu.DisplayStart(), c.videoClock.FrameRate())
	if c.settings.logFrameCounters {
		c.log.Info().Msgf("Frame %d: %d cycles, internal fps %.2f, image load at %d",
			c.shared.Frame(), c.shared.Cycles(), c.fps.fps, gpu.LoadPosition())
	}

	c.draw()
	c.env.AudioSampleBatch(c.audioFrame())
}

// audioFrame is one frame of silence, the machine has no sound chip.
func (c *Context) audioFrame() []int16 {
	n := 2 * int(console.AudioSampleRate/c.videoClock.FrameRate())
	if len(c.silence) != n {
		c.silence = make([]int16, n)
	}
	return c.silence
}

// draw scales the displayed VRAM area to the output.
func (c *Context) draw() {
	r := c.renderer
	if r == nil {
		return
	}
	gpu := c.cpu.Interconnect().Gpu()
	if c.pixels == nil {
		c.pixels = make([]uint32, console.MaxWidth*console.MaxHeight)
	}
	w, h := gpu.Pixels(c.pixels)
	if err := c.updateScreen(w, h); err != nil {
		c.log.Warn().Err(err).Msg("Couldn't upload the frame")
		return
	}

	if err := r.SetRenderTarget(nil); err != nil {
		c.log.Warn().Err(err).Msg("Couldn't bind the framebuffer")
		return
	}
	r.SetClipRect(nil)
	r.SetBlendMode(renderer.BlendNone)
	r.Clear(black)
	ow, oh := c.outputSize()
	if err := r.DrawTriangleList(renderer.Quad(image.Rect(0, 0, ow, oh), white), c.screen); err != nil {
		c.log.Warn().Err(err).Msg("Couldn't draw the frame")
	}
	if c.settings.displayInternalFps {
		if err := renderer.Text(r, image.Pt(4, 4), fmt.Sprintf("%.1f fps", c.fps.fps), white); err != nil {
			c.log.Warn().Err(err).Msg("Couldn't draw the fps counter")
		}
	}
	if err := r.Present(); err != nil {
		c.log.Warn().Err(err).Msg("Couldn't present the frame")
	}
}

func (c *Context) updateScreen(w, h int) error {
	if c.screen != nil {
		if sw, sh := c.screen.Size(); sw != w || sh != h {
			c.screen.Close()
			c.screen = nil
		}
	}
	if c.screen == nil {
		t, err := c.renderer.CreateTextureMutable(w, h)
		if err != nil {
			return err
		}
		c.screen = t
	}
	if n := w * h * 4; len(c.rgba) != n {
		c.rgba = make([]byte, n)
	}
	full := c.settings.colorDepth >= 32
	for i, p := range c.pixels[:w*h] {
		r, g, b := byte(p>>16), byte(p>>8), byte(p)
		if full {
			// stretch the 5 bit components to the whole range
			r, g, b = r|r>>5, g|g>>5, b|b>>5
		}
		c.rgba[i*4], c.rgba[i*4+1], c.rgba[i*4+2], c.rgba[i*4+3] = r, g, b, 255
	}
	return c.screen.Update(c.rgba)
}

func (c *Context) outputSize() (int, int) {
	up := int(c.settings.upscale)
	return console.MaxWidth * up, console.MaxHeight * up
}

func (c *Context) SystemAVInfo() libretro.SystemAVInfo {
	w, h := c.outputSize()
	return libretro.SystemAVInfo{
		Geometry: libretro.Geometry{
			BaseWidth:   uint(w),
			BaseHeight:  uint(h),
			MaxWidth:    uint(w),
			MaxHeight:   uint(h),
			AspectRatio: 4.0 / 3.0,
		},
		Timing: libretro.Timing{
			FPS:        c.videoClock.FrameRate(),
			SampleRate: console.AudioSampleRate,
		},
	}
}

// RefreshVariables applies the options that can change at runtime. Boot
// options (BIOS menu, animation skip, UART) wait for the next reset, the
// upscale factor waits for the next load under ResolutionFixed.
func (c *Context) RefreshVariables() {
	prev := c.settings
	c.settings = readSettings(c.env.Vars)
	if c.settings.upscale != prev.upscale && c.env.Features.Resolution == libretro.ResolutionFixed {
		c.log.Info().Msgf("Internal resolution %vx applies on the next load", c.settings.upscale)
		c.settings.upscale = prev.upscale
	}
	s := c.settings

	c.cpu.SetDebugOnBreak(s.debugOnBreak)
	c.debugger.SetLogBiosCalls(s.logBiosCalls)

	if s != prev {
		c.log.Debug().Msgf("Options: %vx, %vbpp, dither %v, wireframe %v", s.upscale, s.colorDepth, s.scaleDither, s.wireframe)
	}
	if s.upscale != prev.upscale && c.hasSetRes {
		c.log.Info().Msgf("Internal resolution changed to %vx", s.upscale)
		c.env.SetSystemAVInfo(c.SystemAVInfo())
		if c.renderer != nil {
			c.createRenderer(c.renderer.Kind())
		}
	}
}

// Reset boots the game again. The debugger and its breakpoints stay.
func (c *Context) Reset() {
	b, err := c.boot(c.discPath)
	if err != nil {
		c.log.Warn().Err(err).Msg("Couldn't reset game")
		return
	}
	c.log.Info().Msg("Game reset")
	old := c.cpu
	c.takeBoot(b)
	c.closeDisc(old)
	if c.settings.debugOnReset {
		c.debugger.TriggerBreak()
	}
}

func (c *Context) GLContextReset() {
	c.log.Info().Msg("OpenGL context reset")
	kind := renderer.OpenGL
	if !c.hw {
		kind = renderer.Software
	}
	c.createRenderer(kind)
}

func (c *Context) GLContextDestroy() {
	c.log.Info().Msg("OpenGL context destroy")
	c.destroyRenderer()
}

// createRenderer replaces the renderer, falling back to software when
// the GL one can't start.
func (c *Context) createRenderer(kind renderer.Kind) {
	c.destroyRenderer()
	w, h := c.outputSize()
	opts := renderer.Options{Width: w, Height: h, Video: c.env, Log: c.log}
	if kind == renderer.OpenGL {
		opts.GL = renderer.GLContext{
			ProcAddress:        func(sym string) unsafe.Pointer { return c.env.ProcAddress(sym) },
			CurrentFramebuffer: c.env.CurrentFramebuffer,
		}
	}
	r, err := renderer.New(kind, opts)
	if err != nil && kind != renderer.Software {
		c.log.Warn().Err(err).Msgf("Couldn't create the %v renderer, using software", kind)
		r, err = renderer.New(renderer.Software, opts)
	}
	if err != nil {
		c.log.Error().Err(err).Msg("No renderer")
		return
	}
	c.renderer = r
}

func (c *Context) destroyRenderer() {
	if c.renderer == nil {
		return
	}
	if c.screen != nil {
		c.screen.Close()
		c.screen = nil
	}
	if err := c.renderer.Close(); err != nil {
		c.log.Warn().Err(err).Msg("Couldn't close the renderer")
	}
	c.renderer = nil
}

func (c *Context) SerializeSize() int { return c.savestateMaxLen }

// Serialize writes the state into buf, the rest of buf is zeroed.
func (c *Context) Serialize(buf []byte) error {
	w := savestate.NewSliceWriter(buf)
	if err := savestate.Save(w, c.state()); err != nil {
		return err
	}
	clear(buf[w.Len():])
	return nil
}

func (c *Context) Unserialize(buf []byte) error {
	var s state
	if err := savestate.Load(bytes.NewReader(buf), &s); err != nil {
		return err
	}
	return c.loadState(&s)
}
