package machine

import (
	"github.com/giongto35/retrocore/pkg/psx"
	"github.com/giongto35/retrocore/pkg/savestate"
)

const (
	VramWidth  = 1024
	VramHeight = 512
)

// Gpu keeps the command processor and VRAM state. Primitives other than
// rectangle fills and image loads are consumed but not rasterized.
type Gpu struct {
	clock psx.VideoClock
	vram  []uint16

	// pending GP0 command words
	command   []uint32
	remaining uint32
	load      imageLoad

	drawAreaTopLeft     uint32
	drawAreaBottomRight uint32
	drawOffset          uint32

	displayMode    uint32
	displayStart   uint32
	displayEnabled bool

	field bool
	frame uint64
}

// imageLoad is a CPU to VRAM transfer in progress (GP0 0xa0).
type imageLoad struct {
	x, y, w, h uint16
	// halfwords still expected
	remaining uint32
	// pos is the next pixel of the rectangle, in halfwords
	pos uint32
}

func NewGpu(clock psx.VideoClock) *Gpu {
	return &Gpu{clock: clock, vram: make([]uint16, VramWidth*VramHeight)}
}

func (g *Gpu) VideoClock() psx.VideoClock { return g.clock }

// Frame returns the number of frames output since power on.
func (g *Gpu) Frame() uint64 { return g.frame }

// DisplayStart is the VRAM position of the displayed area, games move
// it when they flip buffers.
func (g *Gpu) DisplayStart() uint32 { return g.displayStart }

// LoadPosition is the number of halfwords the current image load wrote
// to VRAM so far, 0 when there is none.
func (g *Gpu) LoadPosition() uint32 { return g.load.pos }

func (g *Gpu) Load32(offset uint32) uint32 {
	if offset == 4 {
		return g.status()
	}
	return 0
}

func (g *Gpu) Store32(offset, v uint32) {
	switch offset {
	case 0:
		g.GP0(v)
	case 4:
		g.GP1(v)
	}
}

func (g *Gpu) status() uint32 {
	// ready to receive commands, send VRAM, receive DMA
	s := uint32(0x1c000000)
	if g.clock == psx.Pal {
		s |= 1 << 20
	}
	if !g.displayEnabled {
		s |= 1 << 23
	}
	if g.field {
		s |= 1 << 31
	}
	return s
}

// GP0 handles a word written to the rendering command port.
func (g *Gpu) GP0(v uint32) {
	if g.load.remaining > 0 {
		g.loadWord(v)
		return
	}
	if g.remaining == 0 {
		g.command = g.command[:0]
		g.remaining = gp0Length(v >> 24)
	}
	g.command = append(g.command, v)
	g.remaining--
	if g.remaining == 0 {
		g.execute()
	}
}

// maxCommandLen is the longest GP0 command in words, a shaded textured
// quad.
const maxCommandLen = 12

func gp0Length(op uint32) uint32 {
	switch {
	case op == 0x02, op == 0xa0, op == 0xc0, op&0xf8 == 0x60:
		return 3
	case op == 0x80:
		return 4
	case op&0xfc == 0x20:
		return 4
	case op&0xfc == 0x24:
		return 7
	case op&0xfc == 0x28:
		return 5
	case op&0xfc == 0x2c:
		return 9
	case op&0xfc == 0x30:
		return 6
	case op&0xfc == 0x34:
		return 9
	case op&0xfc == 0x38:
		return 8
	case op&0xfc == 0x3c:
		return 12
	case op&0xf8 == 0x68:
		return 2
	}
	return 1
}

func (g *Gpu) execute() {
	cmd := g.command
	switch op := cmd[0] >> 24; {
	case op == 0x02:
		g.fill(cmd[0], cmd[1], cmd[2])
	case op == 0xa0:
		g.startLoad(cmd[1], cmd[2])
	case op == 0xe3:
		g.drawAreaTopLeft = cmd[0] & 0xfffff
	case op == 0xe4:
		g.drawAreaBottomRight = cmd[0] & 0xfffff
	case op == 0xe5:
		g.drawOffset = cmd[0] & 0x3fffff
	}
}

func rect(pos, size uint32) (x, y, w, h uint16) {
	x, y = uint16(pos&0x3ff), uint16((pos>>16)&0x1ff)
	w = uint16(((size&0x3ff)-1)&0x3ff) + 1
	h = uint16((((size>>16)&0x1ff)-1)&0x1ff) + 1
	return
}

func rgb15(c uint32) uint16 {
	r, g, b := (c>>3)&0x1f, (c>>11)&0x1f, (c>>19)&0x1f
	return uint16(r | g<<5 | b<<10)
}

func (g *Gpu) fill(color, pos, size uint32) {
	// fills work on 16 pixel wide columns
	x, y := uint16(pos&0x3f0), uint16((pos>>16)&0x1ff)
	w, h := uint16(((size&0x3ff)+0xf)&^0xf), uint16((size>>16)&0x1ff)
	c := rgb15(color)
	for j := uint16(0); j < h; j++ {
		row := int((y+j)%VramHeight) * VramWidth
		for i := uint16(0); i < w; i++ {
			g.vram[row+int((x+i)%VramWidth)] = c
		}
	}
}

func (g *Gpu) startLoad(pos, size uint32) {
	x, y, w, h := rect(pos, size)
	g.load = imageLoad{x: x, y: y, w: w, h: h, remaining: loadSize(w, h)}
}

// loadSize is the transfer length in halfwords, transfers are made of
// whole words.
func loadSize(w, h uint16) uint32 {
	n := uint32(w) * uint32(h)
	return n + n&1
}

func (g *Gpu) loadWord(v uint32) {
	g.loadPixel(uint16(v))
	g.loadPixel(uint16(v >> 16))
	g.load.remaining -= 2
	if g.load.remaining == 0 {
		g.load = imageLoad{}
	}
}

func (g *Gpu) loadPixel(p uint16) {
	l := &g.load
	w := uint32(l.w)
	// the padding halfword of an odd sized transfer is dropped
	if l.pos < w*uint32(l.h) {
		x := (uint32(l.x) + l.pos%w) % VramWidth
		y := (uint32(l.y) + l.pos/w) % VramHeight
		g.vram[y*VramWidth+x] = p
	}
	l.pos++
}

// GP1 handles a word written to the display control port.
func (g *Gpu) GP1(v uint32) {
	switch v >> 24 {
	case 0x00:
		*g = Gpu{clock: g.clock, vram: g.vram, command: g.command[:0], frame: g.frame}
	case 0x01:
		g.command, g.remaining, g.load = g.command[:0], 0, imageLoad{}
	case 0x03:
		g.displayEnabled = v&1 == 0
	case 0x05:
		g.displayStart = v & 0x7fffe
	case 0x08:
		g.displayMode = v & 0xff
	}
}

// DisplaySize returns the output resolution programmed with GP1 0x08.
func (g *Gpu) DisplaySize() (w, h int) {
	w = [4]int{256, 320, 512, 640}[g.displayMode&3]
	if g.displayMode&(1<<6) != 0 {
		w = 368
	}
	h = 240
	if g.displayMode&(1<<2) != 0 && g.displayMode&(1<<5) != 0 {
		h = 480
	}
	return
}

// Pixels converts the displayed VRAM area into XRGB8888.
func (g *Gpu) Pixels(dst []uint32) (w, h int) {
	w, h = g.DisplaySize()
	sx, sy := int(g.displayStart&0x3ff), int(g.displayStart>>10)
	for y := 0; y < h; y++ {
		row := ((sy + y) % VramHeight) * VramWidth
		for x := 0; x < w; x++ {
			p := uint32(g.vram[row+(sx+x)%VramWidth])
			r, gr, b := (p&0x1f)<<3, ((p>>5)&0x1f)<<3, ((p>>10)&0x1f)<<3
			dst[y*w+x] = r<<16 | gr<<8 | b
		}
	}
	return
}

// EndFrame is called at vblank.
func (g *Gpu) EndFrame(shared *SharedState) {
	g.frame++
	if g.displayMode&(1<<5) != 0 {
		g.field = !g.field
	}
	shared.frame++
	shared.Assert(IrqVBlank)
}

func encodeClock(e *savestate.Encoder, c psx.VideoClock) error {
	return e.Enum("VideoClock", uint32(c))
}

func decodeClock(d *savestate.Decoder, c *psx.VideoClock) error {
	v, err := d.Enum("VideoClock", 2)
	*c = psx.VideoClock(v)
	return err
}

// EncodeVideoClock persists a clock outside of any component.
func EncodeVideoClock(e *savestate.Encoder, c psx.VideoClock) error { return encodeClock(e, c) }

func DecodeVideoClock(d *savestate.Decoder, c *psx.VideoClock) error { return decodeClock(d, c) }

func (l *imageLoad) Encode(e *savestate.Encoder) error {
	return e.Struct("ImageLoad", 6, func() error {
		if err := e.FieldU16("x", 0, l.x); err != nil {
			return err
		}
		if err := e.FieldU16("y", 1, l.y); err != nil {
			return err
		}
		if err := e.FieldU16("w", 2, l.w); err != nil {
			return err
		}
		if err := e.FieldU16("h", 3, l.h); err != nil {
			return err
		}
		if err := e.FieldU32("remaining", 4, l.remaining); err != nil {
			return err
		}
		return e.FieldU32("pos", 5, l.pos)
	})
}

func (l *imageLoad) Decode(d *savestate.Decoder) error {
	return d.Struct("ImageLoad", 6, func() error {
		if err := d.FieldU16("x", 0, &l.x); err != nil {
			return err
		}
		if err := d.FieldU16("y", 1, &l.y); err != nil {
			return err
		}
		if err := d.FieldU16("w", 2, &l.w); err != nil {
			return err
		}
		if err := d.FieldU16("h", 3, &l.h); err != nil {
			return err
		}
		if err := d.FieldU32("remaining", 4, &l.remaining); err != nil {
			return err
		}
		if err := d.FieldU32("pos", 5, &l.pos); err != nil {
			return err
		}
		return l.check()
	})
}

// check rejects a transfer that doesn't add up, loadWord would write
// out of the rectangle or never finish.
func (l *imageLoad) check() error {
	if l.remaining == 0 {
		if *l != (imageLoad{}) {
			return savestate.ErrMismatch
		}
		return nil
	}
	if l.w == 0 || l.w > VramWidth || l.h == 0 || l.h > VramHeight || l.x >= VramWidth || l.y >= VramHeight {
		return savestate.ErrMismatch
	}
	if l.remaining&1 != 0 || l.pos&1 != 0 || uint64(l.pos)+uint64(l.remaining) != uint64(loadSize(l.w, l.h)) {
		return savestate.ErrMismatch
	}
	return nil
}

func (g *Gpu) Encode(e *savestate.Encoder) error {
	return e.Struct("Gpu", 13, func() error {
		if err := e.Field("video_clock", 0, func() error { return encodeClock(e, g.clock) }); err != nil {
			return err
		}
		if err := e.Field("vram", 1, func() error { return e.U16s(g.vram) }); err != nil {
			return err
		}
		if err := e.Field("command", 2, func() error { return e.U32s(g.command) }); err != nil {
			return err
		}
		if err := e.FieldU32("command_remaining", 3, g.remaining); err != nil {
			return err
		}
		if err := e.FieldValue("image_load", 4, &g.load); err != nil {
			return err
		}
		if err := e.FieldU32("draw_area_top_left", 5, g.drawAreaTopLeft); err != nil {
			return err
		}
		if err := e.FieldU32("draw_area_bottom_right", 6, g.drawAreaBottomRight); err != nil {
			return err
		}
		if err := e.FieldU32("draw_offset", 7, g.drawOffset); err != nil {
			return err
		}
		if err := e.FieldU32("display_mode", 8, g.displayMode); err != nil {
			return err
		}
		if err := e.FieldU32("display_start", 9, g.displayStart); err != nil {
			return err
		}
		if err := e.FieldBool("display_enabled", 10, g.displayEnabled); err != nil {
			return err
		}
		if err := e.FieldBool("field", 11, g.field); err != nil {
			return err
		}
		return e.FieldU64("frame", 12, g.frame)
	})
}

func (g *Gpu) Decode(d *savestate.Decoder) error {
	return d.Struct("Gpu", 13, func() error {
		if err := d.Field("video_clock", 0, func() error { return decodeClock(d, &g.clock) }); err != nil {
			return err
		}
		if err := d.Field("vram", 1, func() error {
			vram, err := d.U16s()
			if err != nil {
				return err
			}
			if len(vram) != VramWidth*VramHeight {
				return savestate.ErrMismatch
			}
			g.vram = vram
			return nil
		}); err != nil {
			return err
		}
		if err := d.Field("command", 2, func() (err error) { g.command, err = d.U32s(); return }); err != nil {
			return err
		}
		if err := d.FieldU32("command_remaining", 3, &g.remaining); err != nil {
			return err
		}
		if uint64(len(g.command))+uint64(g.remaining) > maxCommandLen {
			return savestate.ErrMismatch
		}
		if err := d.FieldValue("image_load", 4, &g.load); err != nil {
			return err
		}
		if err := d.FieldU32("draw_area_top_left", 5, &g.drawAreaTopLeft); err != nil {
			return err
		}
		if err := d.FieldU32("draw_area_bottom_right", 6, &g.drawAreaBottomRight); err != nil {
			return err
		}
		if err := d.FieldU32("draw_offset", 7, &g.drawOffset); err != nil {
			return err
		}
		if err := d.FieldU32("display_mode", 8, &g.displayMode); err != nil {
			return err
		}
		if err := d.FieldU32("display_start", 9, &g.displayStart); err != nil {
			return err
		}
		if err := d.FieldBool("display_enabled", 10, &g.displayEnabled); err != nil {
			return err
		}
		if err := d.FieldBool("field", 11, &g.field); err != nil {
			return err
		}
		return d.FieldU64("frame", 12, &g.frame)
	})
}
