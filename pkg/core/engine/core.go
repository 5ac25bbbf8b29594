package engine

import (
	"errors"
	"path/filepath"
	"time"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/renderer"
	"github.com/spf13/afero"
)

var (
	ErrPixelFormat = errors.New("can't set pixel format")
	ErrHwContext   = errors.New("failed to init hardware context")
	ErrFrameTime   = errors.New("failed to init delta frame counter")
	ErrNoEngine    = errors.New("no engine")
)

// hwContexts are tried in order.
var hwContexts = [...]libretro.HwRender{
	{Type: libretro.ContextOpenGLCore, VersionMajor: 2, VersionMinor: 1},
	{Type: libretro.ContextOpenGLES2, VersionMajor: 2, VersionMinor: 1},
}

type Options struct {
	Fs     afero.Fs
	Engine Factory
}

// Core runs an Engine for a libretro frontend.
type Core struct {
	env      libretro.Env
	engine   Engine
	renderer renderer.Renderer
	hw       libretro.HwRender

	width, height int
	delta         time.Duration
	asyncAudio    bool
	audioEnabled  bool
	options       GameOptions

	log *logger.Logger
}

var (
	_ libretro.Core       = (*Core)(nil)
	_ libretro.FrameTimer = (*Core)(nil)
	_ libretro.AsyncAudio = (*Core)(nil)
	_ libretro.Closer     = (*Core)(nil)
)

// New starts the engine for the game at path. The engine needs a
// hardware context and the frame time callback, async audio and rumble
// are optional.
func New(env libretro.Env, path string, opts Options) (*Core, error) {
	log := env.Log
	if log == nil {
		log = logger.Default()
	}
	log = log.Extend(log.With().Str("core", "engine"))
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	c := Core{env: env, delta: frameTimeReference, audioEnabled: true, log: log}

	if !env.SetPixelFormat(libretro.PixelFormatXRGB8888) {
		log.Error().Msg("Can't set pixel format")
		return nil, ErrPixelFormat
	}
	hw, ok := c.requestHwContext()
	if !ok {
		log.Error().Msg("Failed to init hardware context")
		return nil, ErrHwContext
	}
	c.hw = hw
	if !env.RegisterFrameTime(frameTimeReference) {
		log.Error().Msg("Failed to init delta frame counter")
		return nil, ErrFrameTime
	}
	if env.Features.Audio == libretro.AudioAsync {
		if c.asyncAudio = env.RegisterAsyncAudio(); !c.asyncAudio {
			log.Warn().Msg("Failed to init async audio, falling back to synchronous")
		}
	}
	rumble := env.RegisterRumble()
	if !rumble {
		log.Warn().Msg("Failed to init rumble interface, controllers will not have feedback")
	}

	resourceDir := resourceDir(opts.Fs, path)
	userDir, ok := env.SaveDirectory()
	if !ok {
		log.Warn().Msg("Failed to get save directory. Using portable directory.")
		userDir = filepath.Join(filepath.Dir(resourceDir), "user")
	}
	log.Info().Msgf("Resource dir: %v, user dir: %v", resourceDir, userDir)

	c.options = readGameOptions(env.Vars)
	c.width, c.height = screenSize(env.Vars)

	e, err := opts.Engine(Config{
		Fs:          opts.Fs,
		ResourceDir: resourceDir,
		UserDir:     userDir,
		SampleRate:  sampleRate,
		Width:       c.width,
		Height:      c.height,
		Log:         log,
	})
	if err != nil {
		return nil, err
	}
	c.engine = e
	e.SetOptions(c.options)

	pads := env.Features.Gamepads
	for i := 0; i < pads; i++ {
		var fn RumbleFunc
		if rumble {
			port := uint(i)
			fn = func(strength uint16) bool { return env.SetRumble(port, libretro.RumbleStrong, strength) }
		}
		e.AddGamepad(i, fn)
	}
	return &c, nil
}

func (c *Core) requestHwContext() (libretro.HwRender, bool) {
	for _, hw := range hwContexts {
		if c.env.SetHwRender(hw) {
			c.log.Info().Msgf("Using %v %v.%v", hw.Type, hw.VersionMajor, hw.VersionMinor)
			return hw, true
		}
	}
	return libretro.HwRender{}, false
}

// resourceDir is the data directory next to the game file.
func resourceDir(fs afero.Fs, path string) string {
	dir := path
	if fi, err := fs.Stat(path); err == nil && fi.Mode().IsRegular() {
		dir = filepath.Dir(path)
	}
	return filepath.Join(dir, "data")
}

func (c *Core) RenderFrame() {
	c.pollKeys()
	c.pollGamepads()

	c.engine.Update(c.delta)

	if c.renderer != nil {
		if err := c.engine.Draw(c.renderer); err != nil {
			c.log.Warn().Err(err).Msg("Couldn't draw the frame")
		}
		if err := c.renderer.Present(); err != nil {
			c.log.Warn().Err(err).Msg("Couldn't present the frame")
		}
	}

	if !c.asyncAudio {
		c.runAudio()
	}
}

func (c *Core) pollKeys() {
	c.env.PollInput()
	for _, k := range keyMap {
		c.engine.SetKey(k, c.env.KeyPressed(0, k))
	}
}

func (c *Core) pollGamepads() {
	for pad := 0; pad < c.env.Features.Gamepads; pad++ {
		for _, b := range buttonMap {
			c.engine.SetButton(pad, b.engine, c.env.JoypadPressed(uint(pad), b.retro))
		}
	}
}

func (c *Core) runAudio() {
	if samples := c.engine.Audio(); len(samples) > 0 {
		c.env.AudioSampleBatch(samples)
	}
}

func (c *Core) SystemAVInfo() libretro.SystemAVInfo {
	return libretro.SystemAVInfo{
		Geometry: libretro.Geometry{
			BaseWidth:   uint(c.width),
			BaseHeight:  uint(c.height),
			MaxWidth:    maxWidth,
			MaxHeight:   maxHeight,
			AspectRatio: float32(c.width) / float32(c.height),
		},
		Timing: libretro.Timing{FPS: frameRate, SampleRate: sampleRate},
	}
}

func (c *Core) RefreshVariables() {
	if o := readGameOptions(c.env.Vars); o != c.options {
		c.options = o
		c.engine.SetOptions(o)
		c.log.Debug().Msgf("Options: %+v", o)
	}
	c.setResolution(screenSize(c.env.Vars))
}

// setResolution resizes the output, the frontend only hears about
// actual changes.
func (c *Core) setResolution(w, h int) {
	if w == c.width && h == c.height {
		return
	}
	if c.env.Features.Resolution == libretro.ResolutionFixed {
		c.log.Info().Msgf("Resolution %vx%v applies on the next load", w, h)
		return
	}
	c.width, c.height = w, h
	c.log.Info().Msgf("Resolution changed to %vx%v", w, h)
	c.env.SetGeometry(c.SystemAVInfo().Geometry)
	c.engine.Resize(w, h)
	if c.renderer != nil {
		c.rebuildRenderer(c.renderer.Kind())
	}
}

func (c *Core) Reset() {
	c.log.Info().Msg("Back to the title screen")
	c.engine.ResetToTitle()
}

func (c *Core) GLContextReset() {
	c.log.Info().Msgf("OpenGL context reset (%v)", c.hw.Type)
	c.rebuildRenderer(renderer.OpenGL)
}

func (c *Core) GLContextDestroy() {
	c.log.Info().Msg("OpenGL context destroy")
	c.destroyRenderer()
}

func (c *Core) rebuildRenderer(kind renderer.Kind) {
	c.destroyRenderer()
	opts := renderer.Options{Width: c.width, Height: c.height, Video: c.env, Log: c.log}
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
	c.engine.Resize(c.width, c.height)
}

func (c *Core) destroyRenderer() {
	if c.renderer == nil {
		return
	}
	if err := c.renderer.Close(); err != nil {
		c.log.Warn().Err(err).Msg("Couldn't close the renderer")
	}
	c.renderer = nil
}

// ElapseTime takes the frame time callback value.
func (c *Core) ElapseTime(d time.Duration) { c.delta = d }

func (c *Core) AudioCallback() {
	if c.audioEnabled {
		c.runAudio()
	}
}

func (c *Core) AudioSetState(enabled bool) { c.audioEnabled = enabled }

// The engine keeps its own save files, there are no savestates.

func (c *Core) SerializeSize() int       { return 0 }
func (c *Core) Serialize([]byte) error   { return nil }
func (c *Core) Unserialize([]byte) error { return nil }

func (c *Core) Close() error {
	c.destroyRenderer()
	return c.engine.Close()
}
