package machine

import "github.com/giongto35/retrocore/pkg/logger"

// BIOS function call vectors.
const (
	biosVectorA = 0xa0
	biosVectorB = 0xb0
	biosVectorC = 0xc0
)

// Debugger keeps the breakpoints set by the user. It belongs to the host
// session and is carried over resets and state loads.
type Debugger struct {
	breakpoints  map[uint32]struct{}
	pendingBreak bool
	logBiosCalls bool

	// OnBreak is called with the PC every time execution breaks.
	OnBreak func(pc uint32)

	breaks    int
	biosCalls int
	log       *logger.Logger
}

func NewDebugger(log *logger.Logger) *Debugger {
	return &Debugger{
		breakpoints: map[uint32]struct{}{},
		log:         log.Extend(log.With().Str("m", "debugger")),
	}
}

// TriggerBreak stops at the next instruction.
func (d *Debugger) TriggerBreak() { d.pendingBreak = true }

func (d *Debugger) AddBreakpoint(pc uint32)    { d.breakpoints[pc] = struct{}{} }
func (d *Debugger) RemoveBreakpoint(pc uint32) { delete(d.breakpoints, pc) }
func (d *Debugger) Breakpoints() int           { return len(d.breakpoints) }

func (d *Debugger) SetLogBiosCalls(on bool) { d.logBiosCalls = on }

// Breaks returns how many times the execution stopped.
func (d *Debugger) Breaks() int { return d.breaks }

// BiosCalls returns how many BIOS functions were logged.
func (d *Debugger) BiosCalls() int { return d.biosCalls }

// PendingBreak is true when a break was requested but not reached yet.
func (d *Debugger) PendingBreak() bool { return d.pendingBreak }

// step is called before every instruction.
func (d *Debugger) step(c *Cpu) {
	pc := c.pc
	if d.logBiosCalls {
		switch pc & 0x1fffffff {
		case biosVectorA, biosVectorB, biosVectorC:
			d.biosCalls++
			d.log.Debug().Msgf("BIOS call %02X(%02x)", pc&0xff, c.regs[9])
		}
	}
	if _, ok := d.breakpoints[pc]; ok || d.pendingBreak {
		d.pendingBreak = false
		d.breaks++
		d.log.Info().Msgf("Break at 0x%08x", pc)
		if d.OnBreak != nil {
			d.OnBreak(pc)
		}
	}
}
