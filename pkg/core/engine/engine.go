// Package engine runs a native game engine as a libretro core.
//
// The engine is a black box behind the Engine interface, the adapter
// feeds it input, time and a renderer and pumps its audio to the
// frontend.
package engine

import (
	"fmt"
	"time"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/renderer"
	"github.com/spf13/afero"
)

// Button of an engine gamepad.
type Button int

const (
	ButtonSouth Button = iota
	ButtonEast
	ButtonWest
	ButtonNorth
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
	ButtonLeftShoulder
	ButtonLeftStick
	ButtonRightShoulder
	ButtonRightStick
	ButtonBack
	ButtonStart

	ButtonCount
)

func (b Button) String() string {
	names := [...]string{"south", "east", "west", "north", "dpad up", "dpad down", "dpad left",
		"dpad right", "left shoulder", "left stick", "right shoulder", "right stick", "back", "start"}
	if b >= 0 && b < ButtonCount {
		return names[b]
	}
	return fmt.Sprintf("Button(%d)", int(b))
}

// RumbleFunc shakes the pad, strength 0 stops it.
type RumbleFunc func(strength uint16) bool

// GameOptions are the engine settings exposed as core options.
type GameOptions struct {
	GodMode           bool
	InfiniteBooster   bool
	DrawDebugOutlines bool
	ShowFPS           bool
	ShowDebugWindow   bool
	DisplayInternal   bool
}

// Engine is the game. Calls come from the frontend thread.
type Engine interface {
	// Update advances the game by delta.
	Update(delta time.Duration)
	// Draw renders the current frame, r is nil while there is no context.
	Draw(r renderer.Renderer) error
	Resize(w, h int)
	SetKey(k libretro.Key, pressed bool)
	SetButton(pad int, b Button, pressed bool)
	// AddGamepad connects a pad, rumble is nil when the frontend can't
	// drive the motors.
	AddGamepad(pad int, rumble RumbleFunc)
	// ResetToTitle goes back to the title scene.
	ResetToTitle()
	// Audio returns the interleaved stereo samples produced since the
	// last call.
	Audio() []int16
	SetOptions(o GameOptions)
	Close() error
}

// Config is what an engine starts with.
type Config struct {
	Fs afero.Fs
	// ResourceDir holds the game data, UserDir the saves.
	ResourceDir string
	UserDir     string
	SampleRate  float64
	Width       int
	Height      int
	Log         *logger.Logger
}

// Factory starts an engine.
type Factory func(cfg Config) (Engine, error)
