package engine

import (
	"time"

	"github.com/giongto35/retrocore/pkg/libretro"
)

const (
	LibraryName    = "d-rs"
	LibraryVersion = "0.0.1"
	Extensions     = "exe"

	variablePrefix = "d-rs"

	// Height of the native screen, the width follows the ratio.
	Height = 240
	// GamepadCount is the number of pads assumed connected.
	GamepadCount = 2

	maxUpscale = 3
	sampleRate = 44_100
	frameRate  = 50
	maxWidth   = Height * maxUpscale * 21 / 9
	maxHeight  = Height * maxUpscale

	// frameTimeReference is what the frontend reports when it has no
	// real measurement.
	frameTimeReference = 50 * time.Microsecond
)

func NewVariables() *libretro.Variables {
	return libretro.NewVariables(variablePrefix,
		libretro.VariableDef{Name: "internal_upscale_factor", Description: "Internal upscaling factor; 1x (native)|2x|3x"},
		libretro.VariableDef{Name: "screen_ratio", Description: "Screen Ratio; 4:3 (original)|16:9|21:9"},
		libretro.VariableDef{Name: "display_internal_fps", Description: "Display internal FPS; disabled|enabled"},
		libretro.VariableDef{Name: "god_mode", Description: "GOD Mode (Invincibility); disabled|enabled"},
		libretro.VariableDef{Name: "infinite_booster", Description: "Infinite Booster; disabled|enabled"},
		libretro.VariableDef{Name: "draw_debug_outlines", Description: "Debug Outlines; disabled|enabled"},
		libretro.VariableDef{Name: "show_fps", Description: "Show FPS; disabled|enabled"},
		libretro.VariableDef{Name: "show_debug_window", Description: "Show Debug GUI; disabled|enabled"},
	)
}

func readGameOptions(v *libretro.Variables) GameOptions {
	return GameOptions{
		GodMode:           v.Bool("god_mode"),
		InfiniteBooster:   v.Bool("infinite_booster"),
		DrawDebugOutlines: v.Bool("draw_debug_outlines"),
		ShowFPS:           v.Bool("show_fps"),
		ShowDebugWindow:   v.Bool("show_debug_window"),
		DisplayInternal:   v.Bool("display_internal_fps"),
	}
}

// screenSize is the output for the current options.
func screenSize(v *libretro.Variables) (w, h int) {
	scale := min(max(v.Uint("internal_upscale_factor"), 1), maxUpscale)
	a, b := v.Ratio("screen_ratio")
	h = Height * int(scale)
	w = h * int(a) / int(b)
	return w, h
}

var buttonMap = [...]struct {
	retro  libretro.JoypadButton
	engine Button
}{
	{libretro.JoypadA, ButtonSouth},
	{libretro.JoypadB, ButtonEast},
	{libretro.JoypadX, ButtonWest},
	{libretro.JoypadY, ButtonNorth},
	{libretro.JoypadUp, ButtonDPadUp},
	{libretro.JoypadDown, ButtonDPadDown},
	{libretro.JoypadLeft, ButtonDPadLeft},
	{libretro.JoypadRight, ButtonDPadRight},
	{libretro.JoypadL, ButtonLeftShoulder},
	{libretro.JoypadL3, ButtonLeftStick},
	{libretro.JoypadR, ButtonRightShoulder},
	{libretro.JoypadR3, ButtonRightStick},
	{libretro.JoypadSelect, ButtonBack},
	{libretro.JoypadStart, ButtonStart},
}

// keyMap lists the keyboard keys forwarded to the engine.
var keyMap = func() []libretro.Key {
	keys := []libretro.Key{
		libretro.KeyReturn, libretro.KeyEscape, libretro.KeyBackspace, libretro.KeyTab,
		libretro.KeySpace, libretro.KeyComma, libretro.KeyMinus, libretro.KeyPeriod, libretro.KeySlash,
		libretro.KeyPause,
		libretro.KeyInsert, libretro.KeyHome, libretro.KeyPageUp, libretro.KeyDelete,
		libretro.KeyEnd, libretro.KeyPageDown,
		libretro.KeyRight, libretro.KeyLeft, libretro.KeyDown, libretro.KeyUp,
		libretro.KeyLShift, libretro.KeyRShift, libretro.KeyLCtrl, libretro.KeyRCtrl,
		libretro.KeyLAlt, libretro.KeyRAlt,
	}
	for r := 'a'; r <= 'z'; r++ {
		keys = append(keys, libretro.Letter(r))
	}
	for k := libretro.Key0; k <= libretro.Key9; k++ {
		keys = append(keys, k)
	}
	for k := libretro.KeyF1; k <= libretro.KeyF12; k++ {
		keys = append(keys, k)
	}
	return keys
}()

// Definition describes the core to a libretro.Host.
func Definition(opts Options) libretro.Definition {
	return libretro.Definition{
		Info: libretro.SystemInfo{
			LibraryName:     LibraryName,
			LibraryVersion:  LibraryVersion,
			ValidExtensions: Extensions,
			NeedFullpath:    true,
		},
		Variables: NewVariables,
		Features: libretro.Features{
			Audio:      libretro.AudioAsync,
			Resolution: libretro.ResolutionDynamic,
			Gamepads:   GamepadCount,
		},
		Load: func(env libretro.Env, path string) (libretro.Core, error) {
			c, err := New(env, path, opts)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}
