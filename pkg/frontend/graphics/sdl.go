// Package graphics makes a hidden SDL window with an OpenGL context and
// an offscreen framebuffer for hardware rendered cores.
package graphics

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/thread"
	"github.com/veandco/go-sdl2/sdl"
)

var ErrContext = errors.New("unsupported context")

type Config struct {
	Ctx          libretro.ContextType
	VersionMajor uint
	VersionMinor uint
	Depth        bool
	Stencil      bool
	// W and H are the framebuffer size, the largest frame a core makes.
	W, H int
	Log  *logger.Logger
}

// Context owns the SDL window, the GL context and the framebuffer. One
// at a time.
type Context struct {
	w   *sdl.Window
	ctx sdl.GLContext
	fb  framebuffer
	log *logger.Logger
}

// New initializes SDL and the context, window calls run on the main
// thread.
func New(cfg Config) (*Context, error) {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	c := &Context{log: cfg.Log.Extend(cfg.Log.With().Str("m", "sdl"))}
	c.log.Info().Msg("[SDL] [OpenGL] initialization...")
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	if err := c.setAttributes(cfg); err != nil {
		sdl.Quit()
		return nil, err
	}
	if err := thread.MainErr(c.createWindow); err != nil {
		sdl.Quit()
		return nil, err
	}
	c.BindContext()
	fb, err := newFramebuffer(sdl.GLGetProcAddress, cfg.W, cfg.H, cfg.Depth, cfg.Stencil, c.log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.fb = fb
	return c, nil
}

func (c *Context) setAttributes(cfg Config) error {
	switch cfg.Ctx {
	case libretro.ContextOpenGLCore:
		c.setAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_CORE)
		c.log.Info().Msgf("[OpenGL] CONTEXT_PROFILE_CORE %v.%v", cfg.VersionMajor, cfg.VersionMinor)
	case libretro.ContextOpenGLES2, libretro.ContextOpenGLES3:
		c.setAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_ES)
		c.setAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, 3)
		c.setAttribute(sdl.GL_CONTEXT_MINOR_VERSION, 0)
		c.log.Info().Msg("[OpenGL] CONTEXT_PROFILE_ES 3.0")
	case libretro.ContextOpenGL:
		if cfg.VersionMajor >= 3 {
			c.setAttribute(sdl.GL_CONTEXT_PROFILE_MASK, sdl.GL_CONTEXT_PROFILE_COMPATIBILITY)
		}
		c.log.Info().Msg("[OpenGL] CONTEXT_PROFILE_COMPATIBILITY")
	default:
		return fmt.Errorf("%w: %v", ErrContext, cfg.Ctx)
	}
	if cfg.Ctx != libretro.ContextOpenGLES2 && cfg.Ctx != libretro.ContextOpenGLES3 && cfg.VersionMajor > 0 {
		c.setAttribute(sdl.GL_CONTEXT_MAJOR_VERSION, int(cfg.VersionMajor))
		c.setAttribute(sdl.GL_CONTEXT_MINOR_VERSION, int(cfg.VersionMinor))
	}
	return nil
}

// createWindow makes the 1x1 hidden window the context lives in.
func (c *Context) createWindow() (err error) {
	if c.w, err = sdl.CreateWindow("retrocore", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		1, 1, sdl.WINDOW_OPENGL|sdl.WINDOW_HIDDEN); err != nil {
		return fmt.Errorf("sdl window: %w", err)
	}
	if c.ctx, err = c.w.GLCreateContext(); err != nil {
		_ = c.w.Destroy()
		c.w = nil
		return fmt.Errorf("gl context: %w", err)
	}
	return nil
}

func (c *Context) destroyWindow() {
	if c.w == nil {
		return
	}
	c.BindContext()
	sdl.GLDeleteContext(c.ctx)
	if err := c.w.Destroy(); err != nil {
		c.log.Warn().Err(err).Msg("[SDL] couldn't destroy the window")
	}
	c.w = nil
}

// BindContext makes the context current on the calling thread.
func (c *Context) BindContext() {
	if err := c.w.GLMakeCurrent(c.ctx); err != nil {
		c.log.Error().Err(err).Msg("[SDL] bind context")
	}
}

func (c *Context) ProcAddress(sym string) unsafe.Pointer { return sdl.GLGetProcAddress(sym) }

func (c *Context) Framebuffer() uintptr { return uintptr(c.fb.fbo) }

func (c *Context) ReadPixels(w, h int) ([]byte, error) { return c.fb.read(w, h) }

// Close destroys the framebuffer, the window and quits SDL.
func (c *Context) Close() error {
	c.log.Info().Msg("[SDL] [OpenGL] deinitialization...")
	c.fb.destroy()
	thread.MainMaybe(c.destroyWindow)
	sdl.Quit()
	return nil
}

func (c *Context) setAttribute(attr sdl.GLattr, value int) {
	if err := sdl.GLSetAttribute(attr, value); err != nil {
		c.log.Warn().Err(err).Msg("[SDL] attribute error")
	}
}
