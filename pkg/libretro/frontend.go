package libretro

import (
	"time"
	"unsafe"
)

// Frontend is what a core can ask from its host application, the
// environment callbacks plus the video, audio and input ones.
type Frontend interface {
	VariableSource

	SystemDirectory() (string, bool)
	SaveDirectory() (string, bool)

	// SetVariables announces the core options. The first choice of each
	// description is the default.
	SetVariables(vars []Variable) bool
	// VariablesUpdated reports (and clears) a pending options change.
	VariablesUpdated() bool

	SetPixelFormat(f PixelFormat) bool
	SetGeometry(g Geometry) bool
	SetSystemAVInfo(av SystemAVInfo) bool

	// SetHwRender requests a hardware context, false means the frontend
	// can't provide that API.
	SetHwRender(hw HwRender) bool
	// CurrentFramebuffer returns the FBO to draw into. It can change
	// from frame to frame and has to be queried every time.
	CurrentFramebuffer() uintptr
	ProcAddress(sym string) unsafe.Pointer

	PollInput()
	JoypadPressed(port uint, b JoypadButton) bool
	KeyPressed(port uint, k Key) bool

	// VideoRefresh submits a software frame.
	VideoRefresh(frame []byte, width, height, pitch int)
	// GLFrameDone tells that the current framebuffer holds a frame.
	GLFrameDone(width, height int)
	AudioSampleBatch(samples []int16) int

	// RegisterFrameTime asks for the frame time callback, reference is
	// the nominal frame duration.
	RegisterFrameTime(reference time.Duration) bool
	RegisterAsyncAudio() bool
	RegisterRumble() bool
	SetRumble(port uint, effect RumbleEffect, strength uint16) bool
}

// VariableSource gives the current value of core options.
type VariableSource interface {
	Variable(key string) (string, bool)
}
