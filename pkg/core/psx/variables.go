package psx

import (
	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/psx/machine"
)

const (
	LibraryName    = "Rustation"
	LibraryVersion = "0.1.0"
	Extensions     = "cue|exe|psexe|psx"

	// options are announced as rustation_<name>
	variablePrefix = "rustation"

	internalFpsSamplePeriod = 32
)

func NewVariables() *libretro.Variables {
	return libretro.NewVariables(variablePrefix,
		libretro.VariableDef{Name: "internal_upscale_factor",
			Description: "Internal upscaling factor; 1x (native)|2x|3x|4x|5x|6x|7x|8x|9x|10x"},
		libretro.VariableDef{Name: "internal_color_depth",
			Description: "Internal color depth; dithered 16bpp (native)|32bpp"},
		libretro.VariableDef{Name: "scale_dither",
			Description: "Scale dithering pattern with internal resolution; enabled|disabled"},
		libretro.VariableDef{Name: "wireframe", Description: "Wireframe mode; disabled|enabled"},
		libretro.VariableDef{Name: "bios_menu", Description: "Boot to BIOS menu; disabled|enabled"},
		libretro.VariableDef{Name: "skip_bios_animation", Description: "Skip BIOS boot animations; disabled|enabled"},
		libretro.VariableDef{Name: "display_internal_fps", Description: "Display internal FPS; disabled|enabled"},
		libretro.VariableDef{Name: "log_frame_counters", Description: "Log frame counters; disabled|enabled"},
		libretro.VariableDef{Name: "enable_debug_uart", Description: "Enable debug UART in the BIOS; disabled|enabled"},
		libretro.VariableDef{Name: "debug_on_break", Description: "Trigger debugger on BREAK instructions; disabled|enabled"},
		libretro.VariableDef{Name: "debug_on_key", Description: "Trigger debugger when Pause/Break is pressed; disabled|enabled"},
		libretro.VariableDef{Name: "debug_on_reset",
			Description: "Trigger debugger when starting or resetting the emulator; disabled|enabled"},
		libretro.VariableDef{Name: "log_bios_calls", Description: "Log BIOS calls; disabled|enabled"},
	)
}

// settings is a snapshot of the core options.
type settings struct {
	upscale            uint
	colorDepth         uint
	scaleDither        bool
	wireframe          bool
	biosMenu           bool
	skipBiosAnimation  bool
	displayInternalFps bool
	logFrameCounters   bool
	enableDebugUart    bool
	debugOnBreak       bool
	debugOnKey         bool
	debugOnReset       bool
	logBiosCalls       bool
}

func readSettings(v *libretro.Variables) settings {
	s := settings{
		upscale:            v.Uint("internal_upscale_factor"),
		colorDepth:         v.Uint("internal_color_depth"),
		scaleDither:        v.Bool("scale_dither"),
		wireframe:          v.Bool("wireframe"),
		biosMenu:           v.Bool("bios_menu"),
		skipBiosAnimation:  v.Bool("skip_bios_animation"),
		displayInternalFps: v.Bool("display_internal_fps"),
		logFrameCounters:   v.Bool("log_frame_counters"),
		enableDebugUart:    v.Bool("enable_debug_uart"),
		debugOnBreak:       v.Bool("debug_on_break"),
		debugOnKey:         v.Bool("debug_on_key"),
		debugOnReset:       v.Bool("debug_on_reset"),
		logBiosCalls:       v.Bool("log_bios_calls"),
	}
	s.upscale = min(max(s.upscale, 1), 10)
	return s
}

var buttonMap = [...]struct {
	retro libretro.JoypadButton
	psx   machine.Button
}{
	{libretro.JoypadUp, machine.ButtonDUp},
	{libretro.JoypadDown, machine.ButtonDDown},
	{libretro.JoypadLeft, machine.ButtonDLeft},
	{libretro.JoypadRight, machine.ButtonDRight},
	{libretro.JoypadStart, machine.ButtonStart},
	{libretro.JoypadSelect, machine.ButtonSelect},
	{libretro.JoypadA, machine.ButtonCircle},
	{libretro.JoypadB, machine.ButtonCross},
	{libretro.JoypadY, machine.ButtonSquare},
	{libretro.JoypadX, machine.ButtonTriangle},
	{libretro.JoypadL, machine.ButtonL1},
	{libretro.JoypadR, machine.ButtonR1},
	{libretro.JoypadL2, machine.ButtonL2},
	{libretro.JoypadR2, machine.ButtonR2},
}

// Definition describes the core to a libretro.Host, opts is shared by
// every game the host loads.
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
			Audio:      libretro.AudioSync,
			Resolution: libretro.ResolutionDynamic,
			Gamepads:   1,
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
