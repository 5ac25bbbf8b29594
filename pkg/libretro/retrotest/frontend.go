// Package retrotest provides a scriptable in-memory frontend for core
// tests.
package retrotest

import (
	"time"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/libretro"
)

// Frontend records everything a core hands over and answers the
// environment calls from its fields.
type Frontend struct {
	SystemDir string
	SaveDir   string
	Options   map[string]string
	Updated   bool

	// Hw lists the context types the frontend accepts.
	Hw          map[libretro.ContextType]bool
	FrameTime   bool
	AsyncAudio  bool
	Rumble      bool
	PixelFormat bool

	Vars       []libretro.Variable
	Format     libretro.PixelFormat
	HwRequests []libretro.HwRender
	Geometries []libretro.Geometry
	AVInfos    []libretro.SystemAVInfo

	Fbo       uintptr
	FboQuery  int
	Pressed   map[libretro.JoypadButton]bool
	Keys      map[libretro.Key]bool
	Polls     int
	Frames    int
	GLFrames  int
	LastW     int
	LastH     int
	LastFrame []byte
	Samples   int
	Rumbles   int
	Reference time.Duration
}

// New makes a frontend accepting every request.
func New(systemDir string) *Frontend {
	return &Frontend{
		SystemDir: systemDir,
		Options:   map[string]string{},
		Hw: map[libretro.ContextType]bool{
			libretro.ContextOpenGL:     true,
			libretro.ContextOpenGLCore: true,
			libretro.ContextOpenGLES2:  true,
		},
		FrameTime:   true,
		AsyncAudio:  true,
		Rumble:      true,
		PixelFormat: true,
		Pressed:     map[libretro.JoypadButton]bool{},
		Keys:        map[libretro.Key]bool{},
	}
}

// Set changes an option and flags the change.
func (f *Frontend) Set(key, value string) {
	f.Options[key] = value
	f.Updated = true
}

func (f *Frontend) Variable(key string) (string, bool) {
	v, ok := f.Options[key]
	return v, ok
}

func (f *Frontend) SystemDirectory() (string, bool) { return f.SystemDir, f.SystemDir != "" }
func (f *Frontend) SaveDirectory() (string, bool)   { return f.SaveDir, f.SaveDir != "" }

func (f *Frontend) SetVariables(vars []libretro.Variable) bool {
	f.Vars = vars
	return true
}

func (f *Frontend) VariablesUpdated() bool {
	u := f.Updated
	f.Updated = false
	return u
}

func (f *Frontend) SetPixelFormat(p libretro.PixelFormat) bool {
	if f.PixelFormat {
		f.Format = p
	}
	return f.PixelFormat
}

func (f *Frontend) SetGeometry(g libretro.Geometry) bool {
	f.Geometries = append(f.Geometries, g)
	return true
}

func (f *Frontend) SetSystemAVInfo(av libretro.SystemAVInfo) bool {
	f.AVInfos = append(f.AVInfos, av)
	return true
}

func (f *Frontend) SetHwRender(hw libretro.HwRender) bool {
	f.HwRequests = append(f.HwRequests, hw)
	return f.Hw[hw.Type]
}

func (f *Frontend) CurrentFramebuffer() uintptr {
	f.FboQuery++
	return f.Fbo
}

func (f *Frontend) ProcAddress(string) unsafe.Pointer { return nil }

func (f *Frontend) PollInput() { f.Polls++ }

func (f *Frontend) JoypadPressed(port uint, b libretro.JoypadButton) bool {
	return port == 0 && f.Pressed[b]
}

func (f *Frontend) KeyPressed(_ uint, k libretro.Key) bool { return f.Keys[k] }

func (f *Frontend) VideoRefresh(frame []byte, width, height, _ int) {
	f.Frames++
	f.LastW, f.LastH = width, height
	f.LastFrame = append(f.LastFrame[:0], frame...)
}

func (f *Frontend) GLFrameDone(width, height int) {
	f.GLFrames++
	f.LastW, f.LastH = width, height
}

func (f *Frontend) AudioSampleBatch(samples []int16) int {
	f.Samples += len(samples)
	return len(samples) / 2
}

func (f *Frontend) RegisterFrameTime(reference time.Duration) bool {
	f.Reference = reference
	return f.FrameTime
}

func (f *Frontend) RegisterAsyncAudio() bool { return f.AsyncAudio }
func (f *Frontend) RegisterRumble() bool     { return f.Rumble }

func (f *Frontend) SetRumble(uint, libretro.RumbleEffect, uint16) bool {
	f.Rumbles++
	return f.Rumble
}

var _ libretro.Frontend = (*Frontend)(nil)
