// Package psx is the PlayStation core: it boots a game on the machine
// model, drives it frame by frame for a libretro frontend and handles
// its savestates.
package psx

import (
	"errors"
	"fmt"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	console "github.com/giongto35/retrocore/pkg/psx"
	"github.com/giongto35/retrocore/pkg/psx/bios"
	"github.com/giongto35/retrocore/pkg/psx/disc"
	"github.com/giongto35/retrocore/pkg/psx/exe"
	"github.com/giongto35/retrocore/pkg/psx/machine"
	"github.com/giongto35/retrocore/pkg/renderer"
	"github.com/giongto35/retrocore/pkg/savestate"
	"github.com/spf13/afero"
)

// savestateMargin is added to the dry-run size of a savestate for its
// variable length parts.
const savestateMargin = 512 * 1024

var (
	ErrNoBios       = errors.New("no suitable BIOS found")
	ErrPixelFormat  = errors.New("frontend doesn't support XRGB8888")
	ErrBiosMismatch = errors.New("no BIOS matching the savestate")
)

// Options are the host-side settings of the core.
type Options struct {
	Fs afero.Fs
	DB *bios.Database
	// TieBreak orders BIOS candidates when several of them fit.
	TieBreak  bios.TieBreak
	Preferred []string
}

// Context is a running game.
type Context struct {
	cpu      *machine.Cpu
	shared   *machine.SharedState
	debugger *machine.Debugger
	// discPath is what Reset boots again
	discPath   string
	videoClock console.VideoClock
	// savestateMaxLen is computed once at load
	savestateMaxLen int

	// how the BIOS was patched at boot, replayed on state loads
	exe         *exe.Exe
	skipPatched bool
	uartPatched bool
	resolver    *bios.Resolver
	fs          afero.Fs
	env         libretro.Env
	settings    settings
	hasSetRes   bool
	hw          bool
	renderer    renderer.Renderer
	screen      renderer.Texture
	pixels      []uint32
	rgba        []byte
	silence     []int16
	fps         fpsCounter
	log         *logger.Logger
}

// New boots the game at path, an EXE or a CUE sheet.
func New(env libretro.Env, path string, opts Options) (*Context, error) {
	log := env.Log
	if log == nil {
		log = logger.Nop()
	}
	log = log.Extend(log.With().Str("core", "psx"))
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.DB == nil {
		opts.DB, _ = bios.NewDatabase(nil)
	}

	resolver := bios.NewResolver(opts.Fs, env.SystemDirectory, opts.DB, log)
	if opts.TieBreak != "" {
		resolver.TieBreak = opts.TieBreak
	}
	resolver.Preferred = opts.Preferred

	c := &Context{
		discPath: path,
		resolver: resolver,
		fs:       opts.Fs,
		env:      env,
		settings: readSettings(env.Vars),
		log:      log,
	}
	c.debugger = machine.NewDebugger(log)

	if !env.SetPixelFormat(libretro.PixelFormatXRGB8888) {
		log.Error().Msg("Can't set pixel format")
		return nil, ErrPixelFormat
	}

	b, err := c.boot(path)
	if err != nil {
		return nil, err
	}
	c.takeBoot(b)

	c.hw = env.SetHwRender(libretro.HwRender{Type: libretro.ContextOpenGL, VersionMajor: 2, VersionMinor: 1})
	if !c.hw {
		log.Warn().Msg("Frontend has no OpenGL, rendering in software")
	}

	c.RefreshVariables()
	if !c.hw {
		c.createRenderer(renderer.Software)
	}

	if c.savestateMaxLen, err = c.computeSavestateMaxLen(); err != nil {
		log.Error().Err(err).Msg("Couldn't compute the savestate size")
		c.closeDisc(c.cpu)
		return nil, err
	}
	log.Info().Msgf("Max savestate size: %v bytes", c.savestateMaxLen)

	if c.settings.debugOnReset {
		c.debugger.TriggerBreak()
	}
	return c, nil
}

// bootResult is a freshly powered machine.
type bootResult struct {
	cpu         *machine.Cpu
	clock       console.VideoClock
	exe         *exe.Exe
	skipPatched bool
	uartPatched bool
}

// boot tries the file as an executable first, then as a disc.
func (c *Context) boot(path string) (*bootResult, error) {
	x, err := exe.LoadFile(c.fs, path)
	var b *bootResult
	switch {
	case err == nil:
		b, err = c.loadExe(x)
	case errors.Is(err, exe.ErrUnknownFormat):
		b, err = c.loadDisc(path)
	default:
		c.log.Error().Err(err).Msgf("Couldn't load %v", path)
	}
	if err != nil {
		return nil, err
	}

	if c.settings.enableDebugUart {
		bs := b.cpu.Interconnect().Bios()
		if err := bs.EnableDebugUART(); err != nil {
			c.log.Warn().Err(err).Msgf("Can't enable BIOS debug UART for %v", bs.Metadata())
		} else {
			b.uartPatched = true
		}
	}
	return b, nil
}

func (c *Context) loadExe(x *exe.Exe) (*bootResult, error) {
	region, ok := x.Region()
	if !ok {
		region = console.NorthAmerica
		c.log.Warn().Msgf("Can't establish the executable region, using %v", region)
	}
	c.log.Info().Msgf("Executable region: %v", region)

	// the loader needs the animation hook to take over the boot
	b, ok := c.resolver.Find(func(m *bios.Metadata) bool {
		return m.Region == region && m.AnimationJumpHook != nil
	})
	if !ok {
		c.log.Error().Msgf("Couldn't find a BIOS for the executable (%v)", region)
		return nil, ErrNoBios
	}
	if err := x.PatchBios(b); err != nil {
		c.log.Error().Err(err).Msg("EXE loader couldn't patch the BIOS")
		return nil, err
	}

	clock := console.VideoClockFor(region)
	inter := machine.NewInterconnect(b, machine.NewGpu(clock), nil)
	inter.ParallelIO().SetModule(x)
	return &bootResult{cpu: machine.NewCpu(inter), clock: clock, exe: x}, nil
}

func (c *Context) loadDisc(path string) (*bootResult, error) {
	d, err := disc.Open(c.fs, path)
	if err != nil {
		c.log.Error().Err(err).Msgf("Couldn't load %v", path)
		return nil, err
	}
	region := d.Region()
	c.log.Info().Msgf("Disc serial number: %v", d.SerialNumber())
	c.log.Info().Msgf("Detected disc region: %v", region)

	b, ok := c.resolver.Find(func(m *bios.Metadata) bool { return m.Region == region })
	if !ok {
		c.log.Error().Msgf("Couldn't find a BIOS for %v", region)
		_ = d.Close()
		return nil, ErrNoBios
	}

	res := bootResult{clock: console.VideoClockFor(region)}
	biosMenu := c.settings.biosMenu
	// the menu lives in the animation the patch skips
	if !biosMenu && c.settings.skipBiosAnimation {
		if err := b.PatchBootAnimation(); err != nil {
			c.log.Warn().Err(err).Msgf("Can't skip the boot animation of %v", b.Metadata())
		} else {
			res.skipPatched = true
		}
	}

	if biosMenu {
		// no disc, the BIOS shows its shell
		_ = d.Close()
		d = nil
	}
	inter := machine.NewInterconnect(b, machine.NewGpu(res.clock), d)
	res.cpu = machine.NewCpu(inter)
	return &res, nil
}

func (c *Context) takeBoot(b *bootResult) {
	c.cpu = b.cpu
	c.videoClock = b.clock
	c.exe = b.exe
	c.skipPatched = b.skipPatched
	c.uartPatched = b.uartPatched
	c.shared = machine.NewSharedState()
	c.setupControllers(c.cpu)
	c.cpu.SetDebugOnBreak(c.settings.debugOnBreak)
}

// patchBios replays the boot patches on an image resolved for a state
// load.
func (c *Context) patchBios(b *bios.Bios) error {
	if c.exe != nil {
		if err := c.exe.PatchBios(b); err != nil {
			return err
		}
	}
	if c.skipPatched {
		if err := b.PatchBootAnimation(); err != nil {
			c.log.Warn().Err(err).Msg("Can't skip the boot animation")
		}
	}
	if c.uartPatched {
		if err := b.EnableDebugUART(); err != nil {
			c.log.Warn().Err(err).Msg("Can't enable BIOS debug UART")
		}
	}
	return nil
}

// setupControllers plugs a digital pad in the first slot. Profiles are
// not part of savestates.
func (c *Context) setupControllers(cpu *machine.Cpu) {
	cpu.Interconnect().PadMemcard().Gamepads()[0].SetProfile(machine.NewDigitalProfile())
}

func (c *Context) pollControllers() {
	c.env.PollInput()
	pad, ok := c.cpu.Interconnect().PadMemcard().Gamepads()[0].Profile().(*machine.DigitalProfile)
	if !ok {
		return
	}
	for _, m := range buttonMap {
		pad.SetButton(m.psx, c.env.JoypadPressed(0, m.retro))
	}
}

func (c *Context) closeDisc(cpu *machine.Cpu) {
	if cpu == nil {
		return
	}
	if d := cpu.Interconnect().CdRom().RemoveDisc(); d != nil {
		if err := d.Close(); err != nil {
			c.log.Warn().Err(err).Msg("Couldn't close the disc")
		}
	}
}

// state is the persisted part of a Context.
type state struct {
	cpu        *machine.Cpu
	videoClock console.VideoClock
	shared     *machine.SharedState
}

func (s *state) Encode(e *savestate.Encoder) error {
	return e.Struct("Context", 3, func() error {
		if err := e.FieldValue("cpu", 0, s.cpu); err != nil {
			return err
		}
		if err := e.Field("video_clock", 1, func() error {
			return machine.EncodeVideoClock(e, s.videoClock)
		}); err != nil {
			return err
		}
		return e.FieldValue("shared_state", 2, s.shared)
	})
}

func (s *state) Decode(d *savestate.Decoder) error {
	s.cpu, s.shared = new(machine.Cpu), new(machine.SharedState)
	return d.Struct("Context", 3, func() error {
		if err := d.FieldValue("cpu", 0, s.cpu); err != nil {
			return err
		}
		if err := d.Field("video_clock", 1, func() error {
			return machine.DecodeVideoClock(d, &s.videoClock)
		}); err != nil {
			return err
		}
		return d.FieldValue("shared_state", 2, s.shared)
	})
}

func (c *Context) state() *state {
	return &state{cpu: c.cpu, videoClock: c.videoClock, shared: c.shared}
}

func (c *Context) computeSavestateMaxLen() (int, error) {
	n, err := savestate.Size(c.state())
	if err != nil {
		return 0, fmt.Errorf("savestate dry run: %w", err)
	}
	return n + savestateMargin, nil
}

// loadState swaps in a decoded state. Nothing changes unless the BIOS
// the state was made with is found.
func (c *Context) loadState(s *state) error {
	inter := s.cpu.Interconnect()
	sum := inter.BiosSha256()
	b, ok := c.resolver.FindSha256(sum)
	if !ok {
		c.log.Warn().Msgf("Couldn't find BIOS %v", sum)
		return fmt.Errorf("%w: %v", ErrBiosMismatch, sum)
	}
	if err := c.patchBios(b); err != nil {
		return err
	}
	inter.SetBios(b)

	old := c.cpu.Interconnect()
	inter.CdRom().SetDisc(old.CdRom().RemoveDisc())
	if m := old.ParallelIO().RemoveModule(); m != nil {
		inter.ParallelIO().SetModule(m)
	}
	c.setupControllers(s.cpu)
	s.cpu.SetDebugOnBreak(c.settings.debugOnBreak)

	c.cpu, c.videoClock, c.shared = s.cpu, s.videoClock, s.shared
	return nil
}

// Close releases the disc and the renderer.
func (c *Context) Close() error {
	c.closeDisc(c.cpu)
	c.destroyRenderer()
	return nil
}

// fpsCounter measures how often the game flips its display buffer.
type fpsCounter struct {
	frames    uint32
	flips     uint32
	lastStart uint32
	fps       float64
}

func (f *fpsCounter) tick(displayStart uint32, rate float64) {
	if displayStart != f.lastStart {
		f.flips++
		f.lastStart = displayStart
	}
	f.frames++
	if f.frames == internalFpsSamplePeriod {
		f.fps = float64(f.flips) * rate / float64(f.frames)
		f.frames, f.flips = 0, 0
	}
}
