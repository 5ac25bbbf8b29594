package libretro

import (
	"time"

	"github.com/giongto35/retrocore/pkg/logger"
)

// Core is a loaded game. All calls come from the frontend thread, one at
// a time.
type Core interface {
	// RenderFrame runs one video frame and hands video and audio to the
	// frontend. It can be called before any GL context exists.
	RenderFrame()
	SystemAVInfo() SystemAVInfo
	// RefreshVariables re-reads the options. Calling it twice in a row
	// changes nothing.
	RefreshVariables()
	Reset()
	// GLContextReset is called when a fresh context is ready, anything
	// created in a previous context is gone.
	GLContextReset()
	GLContextDestroy()

	SerializeSize() int
	Serialize(buf []byte) error
	// Unserialize leaves the core untouched when it fails.
	Unserialize(buf []byte) error
}

// FrameTimer is implemented by cores using the frame time callback.
type FrameTimer interface {
	ElapseTime(d time.Duration)
}

// AsyncAudio is implemented by cores producing audio off the frame loop.
type AsyncAudio interface {
	AudioCallback()
	AudioSetState(enabled bool)
}

// Closer is implemented by cores owning resources beyond GC reach.
type Closer interface {
	Close() error
}

type AudioMode int

const (
	AudioSync AudioMode = iota
	// AudioAsync asks the frontend for the audio callback and falls back
	// to AudioSync when refused.
	AudioAsync
)

type ResolutionPolicy int

const (
	// ResolutionFixed announces the maximum geometry once.
	ResolutionFixed ResolutionPolicy = iota
	// ResolutionDynamic pushes SET_GEOMETRY whenever the options change it.
	ResolutionDynamic
)

// Features select how the adaptation layer drives the frontend for a
// given core.
type Features struct {
	Audio      AudioMode
	Resolution ResolutionPolicy
	Gamepads   int
}

// Env is what a core gets at load time.
type Env struct {
	Frontend
	Vars     *Variables
	Features Features
	Log      *logger.Logger
}

// Loader builds a core for the game at path. A failed load leaves
// nothing behind.
type Loader func(env Env, path string) (Core, error)

// Definition describes a core to the Host.
type Definition struct {
	Info SystemInfo
	// Variables makes a fresh registry for each Host.
	Variables func() *Variables
	Features  Features
	Load      Loader
}
