// Package bios holds the PlayStation BIOS image, its metadata database
// and the system directory resolver.
package bios

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/giongto35/retrocore/pkg/psx"
)

// Size of every BIOS image in bytes.
const Size = 512 * 1024

// ErrNoHook is returned when a patch needs a hook the BIOS doesn't have.
var ErrNoHook = errors.New("bios: no patch location known for this image")

// Sha256 is a raw BIOS checksum.
type Sha256 [sha256.Size]byte

func (s Sha256) String() string { return hex.EncodeToString(s[:]) }

// ParseSha256 decodes a hex checksum.
func ParseSha256(s string) (Sha256, error) {
	var sum Sha256
	b, err := hex.DecodeString(s)
	if err != nil {
		return sum, fmt.Errorf("bad sha256 %q: %w", s, err)
	}
	if len(b) != len(sum) {
		return sum, fmt.Errorf("bad sha256 %q: %d bytes", s, len(b))
	}
	copy(sum[:], b)
	return sum, nil
}

// Metadata describes a known BIOS dump.
type Metadata struct {
	Version  string
	Region   psx.Region
	Sha256   Sha256
	KnownBad bool
	// AnimationJumpHook is the BIOS offset of the jump into the boot
	// animation. Needed to skip it and to boot executables.
	AnimationJumpHook *uint32
	// DebugUARTHook is the offset of the TTY enable flag check.
	DebugUARTHook *uint32
}

func (m *Metadata) String() string {
	return fmt.Sprintf("%s %s (%s)", m.Region, m.Version, m.Sha256)
}

// Bios is a validated BIOS image.
type Bios struct {
	data     [Size]byte
	metadata *Metadata
}

// New validates a BIOS image against the database.
// Returns false if the content isn't a known BIOS.
func New(data *[Size]byte, db *Database) (*Bios, bool) {
	sum := Sha256(sha256.Sum256(data[:]))
	m, ok := db.Lookup(sum)
	if !ok {
		return nil, false
	}
	return &Bios{data: *data, metadata: m}, true
}

// Metadata returns the database entry the image matched.
// Patching the image never changes it.
func (b *Bios) Metadata() *Metadata { return b.metadata }

// Data returns the (possibly patched) image.
func (b *Bios) Data() []byte { return b.data[:] }

func (b *Bios) Load32(offset uint32) uint32 {
	return binary.LittleEndian.Uint32(b.data[offset:])
}

func (b *Bios) write32(offset, v uint32) {
	binary.LittleEndian.PutUint32(b.data[offset:], v)
}

const (
	opNop  = 0x00000000
	opJump = 0x08000000
)

// PatchBootAnimation replaces the jump into the boot logo with a NOP so
// the BIOS goes straight to the game (or the shell).
func (b *Bios) PatchBootAnimation() error {
	hook := b.metadata.AnimationJumpHook
	if hook == nil {
		return ErrNoHook
	}
	b.write32(*hook, opNop)
	return nil
}

// PatchJump replaces the boot animation jump with `j target` followed by
// a NOP in the delay slot.
func (b *Bios) PatchJump(target uint32) error {
	hook := b.metadata.AnimationJumpHook
	if hook == nil {
		return ErrNoHook
	}
	b.write32(*hook, opJump|(target>>2)&0x03ff_ffff)
	b.write32(*hook+4, opNop)
	return nil
}

// EnableDebugUART forces the TTY output of the BIOS on, the kernel then
// logs its messages to the expansion port UART.
func (b *Bios) EnableDebugUART() error {
	hook := b.metadata.DebugUARTHook
	if hook == nil {
		return ErrNoHook
	}
	// replace `lw $a0, tty_flag` with `addiu $a0, $zero, 1`
	b.write32(*hook, 0x24040001)
	return nil
}
