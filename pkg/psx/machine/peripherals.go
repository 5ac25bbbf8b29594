package machine

import (
	"github.com/giongto35/retrocore/pkg/psx/disc"
	"github.com/giongto35/retrocore/pkg/savestate"
)

// CdRom is the drive controller. The disc itself is never persisted, a
// loaded savestate gets the disc of the running session.
type CdRom struct {
	disc     *disc.Disc
	position uint32
	motorOn  bool
}

func (c *CdRom) Disc() *disc.Disc { return c.disc }

func (c *CdRom) SetDisc(d *disc.Disc) { c.disc = d }

// RemoveDisc ejects the disc and hands it back.
func (c *CdRom) RemoveDisc() *disc.Disc {
	d := c.disc
	c.disc, c.motorOn = nil, false
	return d
}

// Load32 exposes the drive status: bit 0 disc present, bit 1 motor on.
func (c *CdRom) Load32(uint32) uint32 {
	var s uint32
	if c.disc != nil {
		s |= 1
	}
	if c.motorOn {
		s |= 2
	}
	return s | c.position<<8
}

// Seek moves the head to lba within the data track.
func (c *CdRom) Seek(lba uint32) {
	if c.disc != nil && lba < c.disc.Sectors() {
		c.position, c.motorOn = lba, true
	}
}

func (c *CdRom) Encode(e *savestate.Encoder) error {
	return e.Struct("CdRom", 2, func() error {
		if err := e.FieldU32("position", 0, c.position); err != nil {
			return err
		}
		return e.FieldBool("motor_on", 1, c.motorOn)
	})
}

func (c *CdRom) Decode(d *savestate.Decoder) error {
	return d.Struct("CdRom", 2, func() error {
		if err := d.FieldU32("position", 0, &c.position); err != nil {
			return err
		}
		return d.FieldBool("motor_on", 1, &c.motorOn)
	})
}

// Button of the digital pad, in the order of the pad response bits.
type Button uint8

const (
	ButtonSelect Button = iota
	ButtonL3
	ButtonR3
	ButtonStart
	ButtonDUp
	ButtonDRight
	ButtonDDown
	ButtonDLeft
	ButtonL2
	ButtonR2
	ButtonL1
	ButtonR1
	ButtonTriangle
	ButtonCircle
	ButtonCross
	ButtonSquare
)

// Profile is the device plugged into a pad slot.
type Profile interface {
	SetButton(b Button, pressed bool)
	// State returns the button bitmask, active high.
	State() uint16
}

// DigitalProfile is the SCPH-1080 digital controller.
type DigitalProfile struct {
	state uint16
}

func NewDigitalProfile() *DigitalProfile { return &DigitalProfile{} }

func (p *DigitalProfile) SetButton(b Button, pressed bool) {
	if pressed {
		p.state |= 1 << b
	} else {
		p.state &^= 1 << b
	}
}

func (p *DigitalProfile) State() uint16 { return p.state }

// Gamepad is a controller slot. Profiles are host devices and never
// persisted, they have to be plugged back after a state load.
type Gamepad struct {
	profile Profile
}

func (g *Gamepad) SetProfile(p Profile) { g.profile = p }
func (g *Gamepad) Profile() Profile     { return g.profile }

// PadMemcard is the controller and memory card interface.
type PadMemcard struct {
	gamepads [2]Gamepad
	// button states latched at the start of the frame, active low as on
	// the serial bus
	latched [2]uint16
}

func (p *PadMemcard) Gamepads() *[2]Gamepad { return &p.gamepads }

func (p *PadMemcard) latch() {
	for i := range p.gamepads {
		p.latched[i] = 0xffff
		if pr := p.gamepads[i].profile; pr != nil {
			p.latched[i] = ^pr.State()
		}
	}
}

func (p *PadMemcard) Load32(uint32) uint32 {
	return uint32(p.latched[0]) | uint32(p.latched[1])<<16
}

func (p *PadMemcard) Encode(e *savestate.Encoder) error {
	return e.Struct("PadMemcard", 2, func() error {
		if err := e.FieldU16("latched_0", 0, p.latched[0]); err != nil {
			return err
		}
		return e.FieldU16("latched_1", 1, p.latched[1])
	})
}

func (p *PadMemcard) Decode(d *savestate.Decoder) error {
	return d.Struct("PadMemcard", 2, func() error {
		if err := d.FieldU16("latched_0", 0, &p.latched[0]); err != nil {
			return err
		}
		return d.FieldU16("latched_1", 1, &p.latched[1])
	})
}

// ParallelModule is a device plugged into the parallel port, mapped
// at the start of the expansion 1 region.
type ParallelModule interface {
	Name() string
	Load32(offset uint32) uint32
}

// ParallelIO is the parallel port. Its module comes from the host, like
// the disc it survives state loads.
type ParallelIO struct {
	module ParallelModule
}

func (p *ParallelIO) SetModule(m ParallelModule) { p.module = m }
func (p *ParallelIO) Module() ParallelModule     { return p.module }

func (p *ParallelIO) RemoveModule() ParallelModule {
	m := p.module
	p.module = nil
	return m
}

func (p *ParallelIO) Load32(offset uint32) uint32 {
	if p.module == nil {
		return 0xffffffff
	}
	return p.module.Load32(offset)
}
