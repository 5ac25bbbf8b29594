// Package frontend is an in-process libretro frontend. It answers the
// environment calls from the configuration and drives a libretro.Host
// without a window.
package frontend

import (
	"errors"
	"image"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/monitoring"
	"github.com/gofrs/uuid"
)

const maxPorts = 4

var ErrNoFrame = errors.New("no frame")

// GL is an offscreen OpenGL context the cores draw into.
type GL interface {
	ProcAddress(sym string) unsafe.Pointer
	Framebuffer() uintptr
	// ReadPixels returns the framebuffer as XRGB8888 rows, top row first.
	ReadPixels(w, h int) ([]byte, error)
	Close() error
}

// GLFactory makes a context for a core request.
type GLFactory func(hw libretro.HwRender) (GL, error)

type Options struct {
	SystemDir string
	SaveDir   string
	// Values of the core options, keyed by the full option name.
	Values map[string]string
	// Hw allows hardware rendering through NewGL.
	Hw      bool
	NewGL   GLFactory
	Metrics *monitoring.Metrics
	Log     *logger.Logger
}

// Frontend implements libretro.Frontend. Option values can be replaced
// from another goroutine, every other call comes from the frame loop.
type Frontend struct {
	opts    Options
	session uuid.UUID

	mu      sync.Mutex
	values  map[string]string
	vars    map[string][]string
	updated bool

	format   libretro.PixelFormat
	geometry libretro.Geometry
	av       libretro.SystemAVInfo
	hw       libretro.HwRender
	gl       GL

	pads [maxPorts]uint32
	keys map[libretro.Key]bool

	frame     []byte
	pitch     int
	w, h      int
	glFrame   bool
	frames    int
	samples   int
	polls     int
	reference time.Duration
	async     bool
	rumble    [maxPorts][2]uint16

	log *logger.Logger
}

var _ libretro.Frontend = (*Frontend)(nil)

func New(opts Options) *Frontend {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	session, err := uuid.NewV4()
	if err != nil {
		opts.Log.Warn().Err(err).Msg("No session id")
	}
	f := &Frontend{
		opts:    opts,
		session: session,
		values:  map[string]string{},
		vars:    map[string][]string{},
		keys:    map[libretro.Key]bool{},
		format:  libretro.PixelFormat0RGB1555,
	}
	for k, v := range opts.Values {
		f.values[k] = v
	}
	f.log = opts.Log.Extend(opts.Log.With().Str("m", "frontend").Str("session", session.String()))
	return f
}

func (f *Frontend) Session() uuid.UUID { return f.session }

func (f *Frontend) SystemDirectory() (string, bool) { return f.opts.SystemDir, f.opts.SystemDir != "" }
func (f *Frontend) SaveDirectory() (string, bool)   { return f.opts.SaveDir, f.opts.SaveDir != "" }

// SetVariables keeps the option choices to check the configured values
// against.
func (f *Frontend) SetVariables(vars []libretro.Variable) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vars = make(map[string][]string, len(vars))
	for _, v := range vars {
		_, list, ok := strings.Cut(v.Value, "; ")
		if !ok {
			f.log.Warn().Msgf("Option %v has no choices: %q", v.Key, v.Value)
			continue
		}
		f.vars[v.Key] = strings.Split(list, "|")
	}
	for k, v := range f.values {
		f.check(k, v)
	}
	return true
}

func (f *Frontend) check(key, value string) bool {
	choices, ok := f.vars[key]
	if !ok {
		f.log.Debug().Msgf("Unknown option %v", key)
		return false
	}
	for _, c := range choices {
		if c == value {
			return true
		}
	}
	f.log.Warn().Msgf("Option %v=%q is not one of %v", key, value, choices)
	return false
}

// Variable returns the configured value when it is a valid choice.
func (f *Frontend) Variable(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", false
	}
	if choices, known := f.vars[key]; known {
		for _, c := range choices {
			if c == v {
				return v, true
			}
		}
		return "", false
	}
	return v, true
}

// SetValues replaces the option values and flags the change when there
// is one.
func (f *Frontend) SetValues(values map[string]string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	changed := len(values) != len(f.values)
	for k, v := range values {
		if old, ok := f.values[k]; !ok || old != v {
			changed = true
			f.check(k, v)
		}
	}
	if !changed {
		return false
	}
	f.values = make(map[string]string, len(values))
	for k, v := range values {
		f.values[k] = v
	}
	f.updated = true
	if f.opts.Metrics != nil {
		f.opts.Metrics.OptionChanges.Inc()
	}
	f.log.Info().Msg("Core options changed")
	return true
}

func (f *Frontend) VariablesUpdated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.updated
	f.updated = false
	return u
}

func (f *Frontend) SetPixelFormat(p libretro.PixelFormat) bool {
	if p != libretro.PixelFormatXRGB8888 {
		f.log.Warn().Msgf("Unsupported pixel format %v", p)
		return false
	}
	f.format = p
	return true
}

func (f *Frontend) SetGeometry(g libretro.Geometry) bool {
	f.log.Debug().Msgf("Geometry %v", g)
	f.geometry = g
	return true
}

func (f *Frontend) SetSystemAVInfo(av libretro.SystemAVInfo) bool {
	f.log.Debug().Msgf("A/V %v", av)
	f.av, f.geometry = av, av.Geometry
	return true
}

// SetHwRender creates the offscreen context, a second request replaces
// the first one.
func (f *Frontend) SetHwRender(hw libretro.HwRender) bool {
	if !f.opts.Hw || f.opts.NewGL == nil {
		f.log.Info().Msgf("Hardware rendering (%v) is off", hw.Type)
		return false
	}
	if f.gl != nil {
		f.closeGL()
	}
	gl, err := f.opts.NewGL(hw)
	if err != nil {
		f.log.Warn().Err(err).Msgf("No %v %v.%v context", hw.Type, hw.VersionMajor, hw.VersionMinor)
		return false
	}
	f.hw, f.gl = hw, gl
	return true
}

// Hw tells whether the core got a GL context.
func (f *Frontend) Hw() bool { return f.gl != nil }

func (f *Frontend) CurrentFramebuffer() uintptr {
	if f.gl == nil {
		return 0
	}
	return f.gl.Framebuffer()
}

func (f *Frontend) ProcAddress(sym string) unsafe.Pointer {
	if f.gl == nil {
		return nil
	}
	return f.gl.ProcAddress(sym)
}

func (f *Frontend) PollInput() { f.polls++ }

// Press sets a joypad button state.
func (f *Frontend) Press(port uint, b libretro.JoypadButton, pressed bool) {
	if port >= maxPorts {
		return
	}
	if pressed {
		f.pads[port] |= 1 << b
	} else {
		f.pads[port] &^= 1 << b
	}
}

func (f *Frontend) PressKey(k libretro.Key, pressed bool) { f.keys[k] = pressed }

func (f *Frontend) JoypadPressed(port uint, b libretro.JoypadButton) bool {
	return port < maxPorts && f.pads[port]&(1<<b) != 0
}

func (f *Frontend) KeyPressed(port uint, k libretro.Key) bool { return port == 0 && f.keys[k] }

func (f *Frontend) VideoRefresh(frame []byte, width, height, pitch int) {
	f.frames++
	f.w, f.h, f.pitch, f.glFrame = width, height, pitch, false
	f.frame = append(f.frame[:0], frame[:pitch*height]...)
}

func (f *Frontend) GLFrameDone(width, height int) {
	f.frames++
	f.w, f.h, f.glFrame = width, height, true
}

func (f *Frontend) AudioSampleBatch(samples []int16) int {
	f.samples += len(samples)
	if f.opts.Metrics != nil {
		f.opts.Metrics.Samples.Add(float64(len(samples)))
	}
	return len(samples) / 2
}

func (f *Frontend) RegisterFrameTime(reference time.Duration) bool {
	f.reference = reference
	return true
}

func (f *Frontend) RegisterAsyncAudio() bool {
	f.async = true
	return true
}

func (f *Frontend) RegisterRumble() bool { return true }

func (f *Frontend) SetRumble(port uint, effect libretro.RumbleEffect, strength uint16) bool {
	if port >= maxPorts || effect < libretro.RumbleStrong || effect > libretro.RumbleWeak {
		return false
	}
	if f.rumble[port][effect] != strength {
		f.log.Debug().Msgf("Rumble port %v %v: %v", port, effect, strength)
	}
	f.rumble[port][effect] = strength
	return true
}

// Stats of the frames and samples received so far.
type Stats struct {
	Frames  int
	Samples int
	Polls   int
	Width   int
	Height  int
}

func (f *Frontend) Stats() Stats {
	return Stats{Frames: f.frames, Samples: f.samples, Polls: f.polls, Width: f.w, Height: f.h}
}

// Screenshot converts the last frame.
func (f *Frontend) Screenshot() (*image.RGBA, error) {
	if f.frames == 0 || (f.glFrame && f.gl == nil) {
		return nil, ErrNoFrame
	}
	src, pitch := f.frame, f.pitch
	if f.glFrame {
		px, err := f.gl.ReadPixels(f.w, f.h)
		if err != nil {
			return nil, err
		}
		src, pitch = px, f.w*4
	}
	img := image.NewRGBA(image.Rect(0, 0, f.w, f.h))
	for y := 0; y < f.h; y++ {
		row := src[y*pitch:]
		for x := 0; x < f.w; x++ {
			p := row[x*4:]
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = p[2], p[1], p[0], 255
		}
	}
	return img, nil
}

func (f *Frontend) closeGL() {
	if err := f.gl.Close(); err != nil {
		f.log.Warn().Err(err).Msg("Couldn't close the GL context")
	}
	f.gl = nil
}

// Close drops the GL context.
func (f *Frontend) Close() error {
	if f.gl != nil {
		f.closeGL()
	}
	return nil
}

// Geometry is the last one the core announced.
func (f *Frontend) Geometry() libretro.Geometry { return f.geometry }

// Reference is the nominal frame time of the frame time callback, zero
// when the core didn't ask for it.
func (f *Frontend) Reference() time.Duration { return f.reference }

// Async tells whether audio comes from the audio callback.
func (f *Frontend) Async() bool { return f.async }
