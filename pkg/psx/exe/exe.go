// Package exe loads PS-X EXE executables so they can be booted without
// a disc.
//
// The loader patches the BIOS to jump into the expansion region at
// EntryPoint once the kernel is initialized, and is plugged into the
// parallel port. The window it exposes starts with a small MIPS
// bootstrap followed by the executable: the bootstrap copies the text
// to TextBase, clears the BSS, sets up gp and sp then jumps to
// InitialPc.
package exe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/giongto35/retrocore/pkg/psx"
	"github.com/giongto35/retrocore/pkg/psx/bios"
	"github.com/spf13/afero"
)

const (
	Magic      = "PS-X EXE"
	HeaderSize = 0x800

	// EntryPoint is where the patched BIOS jumps to, the start of the
	// expansion 1 region mapped to the parallel port.
	EntryPoint = 0x1f000000

	// MaxTextSize is the size of the main RAM.
	MaxTextSize = 2 * 1024 * 1024

	// StubSize is the space reserved for the bootstrap, the EXE header
	// follows it in the loader window.
	StubSize = 0x100
)

var (
	// ErrUnknownFormat means the file isn't an executable at all, the
	// caller is expected to try other formats.
	ErrUnknownFormat = errors.New("not a PS-X EXE")
	ErrTruncated     = errors.New("truncated PS-X EXE")
	ErrBadHeader     = errors.New("invalid PS-X EXE header")
)

// Header is the part of the 2KiB EXE header the loader cares about.
type Header struct {
	InitialPc  uint32
	InitialGp  uint32
	TextBase   uint32
	TextSize   uint32
	BssBase    uint32
	BssSize    uint32
	StackBase  uint32
	StackShift uint32
	// Marker is the license string, e.g. "Sony Computer Entertainment
	// Inc. for North America area".
	Marker string
}

// Exe is a loaded executable.
type Exe struct {
	Header Header
	stub   []uint32
	image  []byte
}

// LoadFile reads the executable at path.
func LoadFile(fs afero.Fs, path string) (*Exe, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrUnknownFormat
		}
		return nil, err
	}
	if string(magic) != Magic {
		return nil, ErrUnknownFormat
	}
	rest, err := io.ReadAll(io.LimitReader(f, HeaderSize+MaxTextSize))
	if err != nil {
		return nil, err
	}
	return Parse(append(magic, rest...))
}

// Parse decodes an in-memory executable.
func Parse(data []byte) (*Exe, error) {
	if !bytes.HasPrefix(data, []byte(Magic)) {
		return nil, ErrUnknownFormat
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}
	word := func(off int) uint32 { return binary.LittleEndian.Uint32(data[off:]) }
	h := Header{
		InitialPc:  word(0x10),
		InitialGp:  word(0x14),
		TextBase:   word(0x18),
		TextSize:   word(0x1c),
		BssBase:    word(0x28),
		BssSize:    word(0x2c),
		StackBase:  word(0x30),
		StackShift: word(0x34),
		Marker:     cString(data[0x4c:HeaderSize]),
	}
	if h.TextSize > MaxTextSize || h.TextSize%4 != 0 {
		return nil, fmt.Errorf("%w: text size %#x", ErrBadHeader, h.TextSize)
	}
	if n := len(data) - HeaderSize; uint32(n) < h.TextSize {
		return nil, fmt.Errorf("%w: %d bytes of text, header says %d", ErrTruncated, n, h.TextSize)
	}
	return &Exe{Header: h, stub: bootstrap(h), image: data[:HeaderSize+int(h.TextSize)]}, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// Region guesses the target region from the license marker.
func (e *Exe) Region() (psx.Region, bool) {
	m := strings.ToLower(e.Header.Marker)
	switch {
	case strings.Contains(m, "north america area"):
		return psx.NorthAmerica, true
	case strings.Contains(m, "europe area"):
		return psx.Europe, true
	case strings.Contains(m, "japan area"):
		return psx.Japan, true
	}
	return 0, false
}

// Text returns the program that gets copied into RAM at TextBase.
func (e *Exe) Text() []byte { return e.image[HeaderSize:] }

// PatchBios redirects the boot animation jump into the loader.
// Only images with a known animation hook can be patched.
func (e *Exe) PatchBios(b *bios.Bios) error {
	return b.PatchJump(EntryPoint)
}

// Name identifies the parallel port module.
func (e *Exe) Name() string { return "exe-loader" }

// Load32 reads the loader window: the bootstrap, the EXE header then
// the text. Reads past the end return open bus.
func (e *Exe) Load32(offset uint32) uint32 {
	if offset < StubSize {
		if i := int(offset / 4); i < len(e.stub) {
			return e.stub[i]
		}
		return 0
	}
	offset -= StubSize
	if int(offset)+4 > len(e.image) {
		return 0xffffffff
	}
	return binary.LittleEndian.Uint32(e.image[offset:])
}
