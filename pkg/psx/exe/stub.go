package exe

// MIPS registers used by the bootstrap.
const (
	zero = 0
	t0   = 8
	t1   = 9
	t2   = 10
	t3   = 11
	gp   = 28
	sp   = 29
	fp   = 30
)

func iType(op, rs, rt uint32, imm uint16) uint32 { return op<<26 | rs<<21 | rt<<16 | uint32(imm) }

func lui(rt uint32, imm uint16) uint32      { return iType(0x0f, 0, rt, imm) }
func ori(rt, rs uint32, imm uint16) uint32  { return iType(0x0d, rs, rt, imm) }
func addiu(rt, rs uint32, imm int16) uint32 { return iType(0x09, rs, rt, uint16(imm)) }
func lw(rt, base uint32) uint32             { return iType(0x23, base, rt, 0) }
func sw(rt, base uint32) uint32             { return iType(0x2b, base, rt, 0) }
func beq(rs, rt uint32, off int16) uint32   { return iType(0x04, rs, rt, uint16(off)) }
func bne(rs, rt uint32, off int16) uint32   { return iType(0x05, rs, rt, uint16(off)) }
func or(rd, rs, rt uint32) uint32           { return rs<<21 | rt<<16 | rd<<11 | 0x25 }
func jr(rs uint32) uint32                   { return rs<<21 | 0x08 }
func nop() uint32                           { return 0 }

// li loads a 32 bit constant.
func li(rt, v uint32) []uint32 { return []uint32{lui(rt, uint16(v>>16)), ori(rt, rt, uint16(v))} }

// bootstrap does what the BIOS does for an executable it loaded. Branch
// offsets count words from the delay slot.
func bootstrap(h Header) []uint32 {
	var code []uint32
	emit := func(w ...uint32) { code = append(code, w...) }

	emit(li(t0, EntryPoint+StubSize+HeaderSize)...)
	emit(li(t1, h.TextBase)...)
	emit(li(t2, h.TextSize)...)
	// copy the text
	emit(beq(t2, zero, 7), nop())
	emit(lw(t3, t0), addiu(t0, t0, 4), sw(t3, t1), addiu(t2, t2, -4))
	emit(bne(t2, zero, -5), addiu(t1, t1, 4))

	// clear the BSS
	emit(li(t1, h.BssBase)...)
	emit(li(t2, (h.BssSize+3)&^3)...)
	emit(beq(t2, zero, 5), nop())
	emit(sw(zero, t1), addiu(t2, t2, -4))
	emit(bne(t2, zero, -3), addiu(t1, t1, 4))

	emit(li(gp, h.InitialGp)...)
	// no stack base keeps the BIOS stack
	if h.StackBase != 0 {
		emit(li(sp, h.StackBase+h.StackShift)...)
		emit(or(fp, sp, zero))
	}
	emit(li(t0, h.InitialPc)...)
	emit(jr(t0), nop())
	return code
}
