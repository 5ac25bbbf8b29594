// Package libretro adapts cores to the libretro frontend contract.
//
// A frontend drives a Host through the lifecycle calls (init, load game,
// run, serialize, GL context notifications), the Host dispatches them to
// the loaded Core. The Host is the only place where core failures are
// turned into the booleans and log lines the frontend expects.
package libretro

import "fmt"

type PixelFormat int

const (
	PixelFormat0RGB1555 PixelFormat = iota
	PixelFormatXRGB8888
	PixelFormatRGB565
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormat0RGB1555:
		return "0RGB1555"
	case PixelFormatXRGB8888:
		return "XRGB8888"
	case PixelFormatRGB565:
		return "RGB565"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(p))
}

// BPP returns bytes per pixel.
func (p PixelFormat) BPP() int {
	if p == PixelFormatXRGB8888 {
		return 4
	}
	return 2
}

// ContextType is the hardware render API a core asks for.
type ContextType int

const (
	ContextNone ContextType = iota
	ContextOpenGL
	ContextOpenGLES2
	ContextOpenGLCore
	ContextOpenGLES3
)

func (c ContextType) String() string {
	switch c {
	case ContextNone:
		return "none"
	case ContextOpenGL:
		return "OpenGL"
	case ContextOpenGLES2:
		return "OpenGL ES2"
	case ContextOpenGLCore:
		return "OpenGL core"
	case ContextOpenGLES3:
		return "OpenGL ES3"
	}
	return fmt.Sprintf("ContextType(%d)", int(c))
}

// HwRender is the SET_HW_RENDER request.
type HwRender struct {
	Type         ContextType
	VersionMajor uint
	VersionMinor uint
	Depth        bool
	Stencil      bool
}

type Geometry struct {
	BaseWidth   uint
	BaseHeight  uint
	MaxWidth    uint
	MaxHeight   uint
	AspectRatio float32
}

func (g Geometry) String() string {
	return fmt.Sprintf("%vx%v (%vx%v) AR %.3f", g.BaseWidth, g.BaseHeight, g.MaxWidth, g.MaxHeight, g.AspectRatio)
}

type Timing struct {
	FPS        float64
	SampleRate float64
}

type SystemAVInfo struct {
	Geometry Geometry
	Timing   Timing
}

func (av SystemAVInfo) String() string {
	return fmt.Sprintf("%v, [%vfps], audio [%vHz]", av.Geometry, av.Timing.FPS, av.Timing.SampleRate)
}

type SystemInfo struct {
	LibraryName     string
	LibraryVersion  string
	ValidExtensions string
	NeedFullpath    bool
	BlockExtract    bool
}

// RumbleEffect selects the motor.
type RumbleEffect int

const (
	RumbleStrong RumbleEffect = iota
	RumbleWeak
)
