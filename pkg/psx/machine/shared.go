package machine

import (
	"fmt"

	"github.com/giongto35/retrocore/pkg/savestate"
)

// Interrupt sources.
const (
	IrqVBlank = 1 << 0
	IrqGpu    = 1 << 1
	IrqCdRom  = 1 << 2
)

// SharedState is the timing and interrupt state every component sees.
type SharedState struct {
	frame     uint64
	cycles    uint64
	irqStatus uint16
	irqMask   uint16
}

func NewSharedState() *SharedState { return &SharedState{} }

func (s *SharedState) Frame() uint64  { return s.frame }
func (s *SharedState) Cycles() uint64 { return s.cycles }

// Tick advances the CPU clock.
func (s *SharedState) Tick(cycles uint64) { s.cycles += cycles }

// Assert raises an interrupt source.
func (s *SharedState) Assert(irq uint16) { s.irqStatus |= irq }

// IrqActive is true when an unmasked interrupt is pending.
func (s *SharedState) IrqActive() bool { return s.irqStatus&s.irqMask != 0 }

func (s *SharedState) String() string {
	return fmt.Sprintf("frame %d, cycles %d, irq %04x/%04x", s.frame, s.cycles, s.irqStatus, s.irqMask)
}

func (s *SharedState) Encode(e *savestate.Encoder) error {
	return e.Struct("SharedState", 4, func() error {
		if err := e.FieldU64("frame", 0, s.frame); err != nil {
			return err
		}
		if err := e.FieldU64("cycles", 1, s.cycles); err != nil {
			return err
		}
		if err := e.FieldU16("irq_status", 2, s.irqStatus); err != nil {
			return err
		}
		return e.FieldU16("irq_mask", 3, s.irqMask)
	})
}

func (s *SharedState) Decode(d *savestate.Decoder) error {
	return d.Struct("SharedState", 4, func() error {
		if err := d.FieldU64("frame", 0, &s.frame); err != nil {
			return err
		}
		if err := d.FieldU64("cycles", 1, &s.cycles); err != nil {
			return err
		}
		if err := d.FieldU16("irq_status", 2, &s.irqStatus); err != nil {
			return err
		}
		return d.FieldU16("irq_mask", 3, &s.irqMask)
	})
}
