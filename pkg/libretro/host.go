package libretro

import (
	"errors"
	"fmt"
	"time"

	"github.com/giongto35/retrocore/pkg/logger"
)

type State int32

const (
	Uninitialized State = iota
	Initialized
	Running
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var ErrNoCore = errors.New("no core")

// Host drives one core for a frontend:
//
//	Uninitialized -Init-> Initialized -LoadGame-> Running
//	Running -UnloadGame-> Initialized
//	any -Deinit-> Destroyed
//
// Calls that don't fit the current state are ignored with a warning.
type Host struct {
	def   Definition
	fe    Frontend
	vars  *Variables
	core  Core
	state State
	log   *logger.Logger
}

func NewHost(def Definition, log *logger.Logger) *Host {
	return &Host{def: def, log: log.Extend(log.With().Str("m", "libretro"))}
}

func (h *Host) State() State           { return h.state }
func (h *Host) Core() Core             { return h.core }
func (h *Host) Variables() *Variables  { return h.vars }
func (h *Host) Info() SystemInfo       { return h.def.Info }
func (h *Host) Features() Features     { return h.def.Features }
func (h *Host) Definition() Definition { return h.def }

// Init registers the core options with the frontend.
func (h *Host) Init(fe Frontend) bool {
	if !h.expect("init", Uninitialized) {
		return false
	}
	h.fe = fe
	if h.def.Variables != nil {
		h.vars = h.def.Variables()
	} else {
		h.vars = NewVariables(h.def.Info.LibraryName)
	}
	h.vars.Attach(fe, h.log)
	if !fe.SetVariables(h.vars.Definitions()) {
		h.log.Warn().Msg("Frontend refused the core options")
	}
	h.state = Initialized
	i := h.def.Info
	h.log.Info().Msgf("System >>> %v (%v) [%v] nfp: %v", i.LibraryName, i.LibraryVersion, i.ValidExtensions, i.NeedFullpath)
	return true
}

// LoadGame builds the core for the game at path.
func (h *Host) LoadGame(path string) bool {
	if !h.expect("load game", Initialized) {
		return false
	}
	if h.def.Load == nil {
		h.log.Error().Err(ErrNoCore).Msg("Core failed to load content")
		return false
	}

	env := Env{Frontend: h.fe, Vars: h.vars, Features: h.def.Features, Log: h.log}
	var core Core
	if !h.call("load game", func() (err error) {
		core, err = h.def.Load(env, path)
		if err == nil && core == nil {
			err = ErrNoCore
		}
		return err
	}) {
		h.log.Warn().Msgf("Core failed to load content: %v", path)
		return false
	}

	var av SystemAVInfo
	var size int
	if !h.call("av info", func() error {
		av, size = core.SystemAVInfo(), core.SerializeSize()
		return nil
	}) {
		h.close(core)
		return false
	}
	h.log.Info().Msgf("System A/V >>> %v", av)
	h.log.Info().Msgf("Save file size: %v", byteCountBinary(int64(size)))

	h.core = core
	h.state = Running
	return true
}

// Run runs one frame, refreshing the options first if they changed.
func (h *Host) Run() {
	if !h.running("run") {
		return
	}
	if h.fe.VariablesUpdated() {
		h.call("refresh variables", func() error { h.core.RefreshVariables(); return nil })
	}
	h.call("run", func() error { h.core.RenderFrame(); return nil })
}

func (h *Host) SystemAVInfo() (av SystemAVInfo, ok bool) {
	if !h.running("av info") {
		return av, false
	}
	ok = h.call("av info", func() error { av = h.core.SystemAVInfo(); return nil })
	return av, ok
}

func (h *Host) Reset() {
	if h.running("reset") {
		h.call("reset", func() error { h.core.Reset(); return nil })
	}
}

func (h *Host) ContextReset() {
	if h.running("context reset") {
		h.call("context reset", func() error { h.core.GLContextReset(); return nil })
	}
}

func (h *Host) ContextDestroy() {
	if h.running("context destroy") {
		h.call("context destroy", func() error { h.core.GLContextDestroy(); return nil })
	}
}

func (h *Host) SerializeSize() (n int) {
	if !h.running("serialize size") {
		return 0
	}
	h.call("serialize size", func() error { n = h.core.SerializeSize(); return nil })
	return n
}

// Serialize writes a savestate into buf.
func (h *Host) Serialize(buf []byte) bool {
	if !h.running("serialize") {
		return false
	}
	if !h.call("serialize", func() error { return h.core.Serialize(buf) }) {
		h.log.Warn().Msg("Savestate failed")
		return false
	}
	return true
}

// Unserialize loads a savestate, the running game is untouched when it
// fails.
func (h *Host) Unserialize(buf []byte) bool {
	if !h.running("unserialize") {
		return false
	}
	if len(buf) == 0 {
		h.log.Warn().Msg("Empty savestate")
		return false
	}
	if !h.call("unserialize", func() error { return h.core.Unserialize(buf) }) {
		h.log.Warn().Msg("Savestate load failed")
		return false
	}
	return true
}

// FrameTime forwards the frame time callback.
func (h *Host) FrameTime(d time.Duration) {
	if !h.running("frame time") {
		return
	}
	if ft, ok := h.core.(FrameTimer); ok {
		h.call("frame time", func() error { ft.ElapseTime(d); return nil })
	}
}

func (h *Host) AudioCallback() {
	if !h.running("audio callback") {
		return
	}
	if a, ok := h.core.(AsyncAudio); ok {
		h.call("audio callback", func() error { a.AudioCallback(); return nil })
	}
}

func (h *Host) AudioSetState(enabled bool) {
	if !h.running("audio state") {
		return
	}
	if a, ok := h.core.(AsyncAudio); ok {
		h.call("audio state", func() error { a.AudioSetState(enabled); return nil })
	}
}

// UnloadGame drops the core.
func (h *Host) UnloadGame() bool {
	if !h.expect("unload game", Running) {
		return false
	}
	h.close(h.core)
	h.core = nil
	h.state = Initialized
	return true
}

func (h *Host) Deinit() {
	if h.state == Running {
		h.UnloadGame()
	}
	h.fe = nil
	h.state = Destroyed
}

func (h *Host) close(core Core) {
	if c, ok := core.(Closer); ok {
		h.call("close", c.Close)
	}
}

// call runs fn and reports its success. Errors are logged, a panic is
// recovered and logged as an error.
func (h *Host) call(op string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Msgf("Core panicked in %v: %v", op, r)
			ok = false
		}
	}()
	if err := fn(); err != nil {
		h.log.Warn().Err(err).Msgf("%v failed", op)
		return false
	}
	return true
}

func (h *Host) expect(op string, s State) bool {
	if h.state != s {
		h.log.Warn().Msgf("Ignoring %v, the core is %v", op, h.state)
		return false
	}
	return true
}

func (h *Host) running(op string) bool { return h.expect(op, Running) }

func byteCountBinary(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
