package machine

// Range is a mapping in the physical address space.
type Range struct {
	Start  uint32
	Length uint32
}

// Contains returns the offset of addr in the range, false if addr is outside.
func (r Range) Contains(addr uint32) (uint32, bool) {
	if addr >= r.Start && addr < r.Start+r.Length {
		return addr - r.Start, true
	}
	return 0, false
}

const RamSize = 2 * 1024 * 1024

var (
	// RAM is mirrored four times.
	ramRange        = Range{0x00000000, 4 * RamSize}
	expansion1Range = Range{0x1f000000, 8 * 1024 * 1024}
	padRange        = Range{0x1f801040, 16}
	irqRange        = Range{0x1f801070, 8}
	cdromRange      = Range{0x1f801800, 4}
	gpuRange        = Range{0x1f801810, 8}
	biosRange       = Range{0x1fc00000, 512 * 1024}
)

// regionMask strips the KSEG bits of an address. KSEG2 isn't mirrored.
var regionMask = [8]uint32{
	// KUSEG: 2048MB
	0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff,
	// KSEG0: 512MB
	0x7fffffff,
	// KSEG1: 512MB
	0x1fffffff,
	// KSEG2: 1024MB
	0xffffffff, 0xffffffff,
}

func maskRegion(addr uint32) uint32 { return addr & regionMask[addr>>29] }
