// Package machine models the console the core orchestrates: CPU, bus,
// GPU command processor and peripherals, with every piece of state a
// savestate has to carry.
//
// The CPU only interprets the integer subset of the R3000 needed to move
// data around the bus, other instructions retire as NOPs. Timing is a
// flat two cycles per instruction.
package machine

import (
	"fmt"

	"github.com/giongto35/retrocore/pkg/savestate"
)

const (
	ResetPc = 0xbfc00000

	cyclesPerInstruction = 2
)

type Cpu struct {
	pc     uint32
	nextPc uint32
	regs   [32]uint32
	hi, lo uint32

	inter *Interconnect

	debugOnBreak bool
}

func NewCpu(inter *Interconnect) *Cpu {
	return &Cpu{pc: ResetPc, nextPc: ResetPc + 4, inter: inter}
}

func (c *Cpu) Interconnect() *Interconnect { return c.inter }

func (c *Cpu) Pc() uint32 { return c.pc }

func (c *Cpu) Reg(i int) uint32 { return c.regs[i] }

// SetDebugOnBreak makes BREAK instructions stop in the debugger.
func (c *Cpu) SetDebugOnBreak(on bool) { c.debugOnBreak = on }

// RunUntilNextFrame runs the machine for one video frame.
func (c *Cpu) RunUntilNextFrame(dbg *Debugger, shared *SharedState) {
	c.inter.padMemcard.latch()
	end := shared.cycles + c.inter.gpu.clock.CPUCyclesPerFrame()
	for shared.cycles < end {
		dbg.step(c)
		c.step(dbg, shared)
		shared.Tick(cyclesPerInstruction)
	}
	c.inter.gpu.EndFrame(shared)
}

func (c *Cpu) step(dbg *Debugger, shared *SharedState) {
	instr := c.inter.Load32(shared, c.pc)
	c.pc = c.nextPc
	c.nextPc += 4
	c.execute(instr, dbg, shared)
	c.regs[0] = 0
}

func (c *Cpu) execute(instr uint32, dbg *Debugger, shared *SharedState) {
	rs, rt, rd := (instr>>21)&0x1f, (instr>>16)&0x1f, (instr>>11)&0x1f
	imm := instr & 0xffff
	simm := uint32(int32(int16(imm)))

	switch instr >> 26 {
	case 0x00:
		switch instr & 0x3f {
		case 0x00: // sll
			c.regs[rd] = c.regs[rt] << ((instr >> 6) & 0x1f)
		case 0x08: // jr
			c.nextPc = c.regs[rs]
		case 0x09: // jalr
			c.regs[rd] = c.nextPc
			c.nextPc = c.regs[rs]
		case 0x0d: // break
			if c.debugOnBreak {
				dbg.TriggerBreak()
			}
		case 0x10: // mfhi
			c.regs[rd] = c.hi
		case 0x12: // mflo
			c.regs[rd] = c.lo
		case 0x11: // mthi
			c.hi = c.regs[rs]
		case 0x13: // mtlo
			c.lo = c.regs[rs]
		case 0x21: // addu
			c.regs[rd] = c.regs[rs] + c.regs[rt]
		case 0x23: // subu
			c.regs[rd] = c.regs[rs] - c.regs[rt]
		case 0x24: // and
			c.regs[rd] = c.regs[rs] & c.regs[rt]
		case 0x25: // or
			c.regs[rd] = c.regs[rs] | c.regs[rt]
		case 0x2b: // sltu
			c.regs[rd] = b2u(c.regs[rs] < c.regs[rt])
		}
	case 0x02: // j
		c.nextPc = c.pc&0xf0000000 | (instr&0x3ffffff)<<2
	case 0x03: // jal
		c.regs[31] = c.nextPc
		c.nextPc = c.pc&0xf0000000 | (instr&0x3ffffff)<<2
	case 0x04: // beq
		if c.regs[rs] == c.regs[rt] {
			c.nextPc = c.pc + simm<<2
		}
	case 0x05: // bne
		if c.regs[rs] != c.regs[rt] {
			c.nextPc = c.pc + simm<<2
		}
	case 0x09: // addiu
		c.regs[rt] = c.regs[rs] + simm
	case 0x0b: // sltiu
		c.regs[rt] = b2u(c.regs[rs] < simm)
	case 0x0c: // andi
		c.regs[rt] = c.regs[rs] & imm
	case 0x0d: // ori
		c.regs[rt] = c.regs[rs] | imm
	case 0x0f: // lui
		c.regs[rt] = imm << 16
	case 0x23: // lw
		c.regs[rt] = c.inter.Load32(shared, c.regs[rs]+simm)
	case 0x2b: // sw
		c.inter.Store32(shared, c.regs[rs]+simm, c.regs[rt])
	}
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (c *Cpu) String() string { return fmt.Sprintf("pc 0x%08x", c.pc) }

func (c *Cpu) Encode(e *savestate.Encoder) error {
	return e.Struct("Cpu", 6, func() error {
		if err := e.FieldU32("pc", 0, c.pc); err != nil {
			return err
		}
		if err := e.FieldU32("next_pc", 1, c.nextPc); err != nil {
			return err
		}
		if err := e.Field("regs", 2, func() error { return e.U32s(c.regs[:]) }); err != nil {
			return err
		}
		if err := e.FieldU32("hi", 3, c.hi); err != nil {
			return err
		}
		if err := e.FieldU32("lo", 4, c.lo); err != nil {
			return err
		}
		return e.FieldValue("inter", 5, c.inter)
	})
}

// Decode restores a Cpu, the bus comes back without its host devices
// (see Interconnect.Decode).
func (c *Cpu) Decode(d *savestate.Decoder) error {
	if c.inter == nil {
		c.inter = &Interconnect{}
	}
	return d.Struct("Cpu", 6, func() error {
		if err := d.FieldU32("pc", 0, &c.pc); err != nil {
			return err
		}
		if err := d.FieldU32("next_pc", 1, &c.nextPc); err != nil {
			return err
		}
		if err := d.Field("regs", 2, func() error {
			regs, err := d.U32s()
			if err != nil {
				return err
			}
			if len(regs) != len(c.regs) {
				return fmt.Errorf("%w: %d registers", savestate.ErrMismatch, len(regs))
			}
			copy(c.regs[:], regs)
			return nil
		}); err != nil {
			return err
		}
		if err := d.FieldU32("hi", 3, &c.hi); err != nil {
			return err
		}
		if err := d.FieldU32("lo", 4, &c.lo); err != nil {
			return err
		}
		return d.FieldValue("inter", 5, c.inter)
	})
}
