package machine

import (
	"encoding/binary"
	"fmt"

	"github.com/giongto35/retrocore/pkg/psx/bios"
	"github.com/giongto35/retrocore/pkg/psx/disc"
	"github.com/giongto35/retrocore/pkg/savestate"
)

// Interconnect is the system bus.
type Interconnect struct {
	bios *bios.Bios
	// checksum of the BIOS, the only part of it that is persisted
	biosSha256 bios.Sha256

	ram        []byte
	gpu        *Gpu
	cdrom      CdRom
	padMemcard PadMemcard
	parallelIO ParallelIO
}

// NewInterconnect wires the bus. d may be nil when no disc is inserted.
func NewInterconnect(b *bios.Bios, gpu *Gpu, d *disc.Disc) *Interconnect {
	ram := make([]byte, RamSize)
	// uninitialized RAM contains garbage
	for i := range ram {
		ram[i] = 0xca
	}
	inter := &Interconnect{ram: ram, gpu: gpu}
	inter.SetBios(b)
	inter.cdrom.SetDisc(d)
	return inter
}

func (i *Interconnect) Bios() *bios.Bios { return i.bios }

// BiosSha256 is the checksum of the BIOS the machine runs, also
// available after a state load before the BIOS is plugged back.
func (i *Interconnect) BiosSha256() bios.Sha256 { return i.biosSha256 }

func (i *Interconnect) SetBios(b *bios.Bios) {
	i.bios = b
	if b != nil {
		i.biosSha256 = b.Metadata().Sha256
	}
}

func (i *Interconnect) Gpu() *Gpu               { return i.gpu }
func (i *Interconnect) CdRom() *CdRom           { return &i.cdrom }
func (i *Interconnect) PadMemcard() *PadMemcard { return &i.padMemcard }
func (i *Interconnect) ParallelIO() *ParallelIO { return &i.parallelIO }
func (i *Interconnect) Ram() []byte             { return i.ram }

// Load32 reads a word, unmapped addresses read as zero.
func (i *Interconnect) Load32(shared *SharedState, addr uint32) uint32 {
	addr = maskRegion(addr) &^ 3
	if off, ok := ramRange.Contains(addr); ok {
		off &= RamSize - 1
		return binary.LittleEndian.Uint32(i.ram[off:])
	}
	if off, ok := biosRange.Contains(addr); ok {
		if i.bios == nil {
			return 0
		}
		return i.bios.Load32(off)
	}
	if off, ok := expansion1Range.Contains(addr); ok {
		return i.parallelIO.Load32(off)
	}
	if off, ok := gpuRange.Contains(addr); ok {
		return i.gpu.Load32(off)
	}
	if off, ok := irqRange.Contains(addr); ok {
		if off == 0 {
			return uint32(shared.irqStatus)
		}
		return uint32(shared.irqMask)
	}
	if off, ok := padRange.Contains(addr); ok {
		return i.padMemcard.Load32(off)
	}
	if off, ok := cdromRange.Contains(addr); ok {
		return i.cdrom.Load32(off)
	}
	return 0
}

// Store32 writes a word, writes to read-only or unmapped areas are dropped.
func (i *Interconnect) Store32(shared *SharedState, addr, v uint32) {
	addr = maskRegion(addr) &^ 3
	if off, ok := ramRange.Contains(addr); ok {
		off &= RamSize - 1
		binary.LittleEndian.PutUint32(i.ram[off:], v)
		return
	}
	if off, ok := gpuRange.Contains(addr); ok {
		i.gpu.Store32(off, v)
		return
	}
	if off, ok := irqRange.Contains(addr); ok {
		if off == 0 {
			// writing 0 acknowledges
			shared.irqStatus &= uint16(v)
		} else {
			shared.irqMask = uint16(v)
		}
		return
	}
	if off, ok := cdromRange.Contains(addr); ok && off == 0 {
		i.cdrom.Seek(v)
	}
}

func (i *Interconnect) Encode(e *savestate.Encoder) error {
	return e.Struct("Interconnect", 5, func() error {
		if err := e.Field("bios_sha256", 0, func() error { return e.Bytes(i.biosSha256[:]) }); err != nil {
			return err
		}
		if err := e.FieldBytes("ram", 1, i.ram); err != nil {
			return err
		}
		if err := e.FieldValue("gpu", 2, i.gpu); err != nil {
			return err
		}
		if err := e.FieldValue("cdrom", 3, &i.cdrom); err != nil {
			return err
		}
		return e.FieldValue("pad_memcard", 4, &i.padMemcard)
	})
}

// Decode restores the bus state. The BIOS, disc, parallel port module
// and controller profiles are left unplugged.
func (i *Interconnect) Decode(d *savestate.Decoder) error {
	if len(i.ram) != RamSize {
		i.ram = make([]byte, RamSize)
	}
	if i.gpu == nil {
		i.gpu = &Gpu{}
	}
	return d.Struct("Interconnect", 5, func() error {
		if err := d.FieldBytes("bios_sha256", 0, i.biosSha256[:]); err != nil {
			return err
		}
		if err := d.FieldBytes("ram", 1, i.ram); err != nil {
			return err
		}
		if err := d.FieldValue("gpu", 2, i.gpu); err != nil {
			return err
		}
		if err := d.FieldValue("cdrom", 3, &i.cdrom); err != nil {
			return err
		}
		return d.FieldValue("pad_memcard", 4, &i.padMemcard)
	})
}

func (i *Interconnect) String() string {
	return fmt.Sprintf("bios %v, disc %v", i.biosSha256, i.cdrom.disc != nil)
}
