// Package disc reads PlayStation CUE/BIN images and extracts the
// metadata needed to boot them.
package disc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/giongto35/retrocore/pkg/psx"
	"github.com/spf13/afero"
)

const (
	SectorSize = 2352
	DataSize   = 2048

	syncSize      = 12
	headerSize    = 4
	subHeaderSize = 8

	licenseSector = 4
	pvdSector     = 16
)

var (
	ErrNoDataTrack   = errors.New("disc has no data track")
	ErrUnknownRegion = errors.New("couldn't establish disc region")
	ErrNoSerial      = errors.New("couldn't find the disc serial number")
	ErrOutOfRange    = errors.New("sector out of range")
)

// UnknownSerial is reported for discs without a readable SYSTEM.CNF.
const UnknownSerial = "unknown"

// Disc is an opened disc image.
type Disc struct {
	track   Track
	file    afero.File
	sectors uint32
	region  psx.Region
	serial  string
}

// Open parses the CUE sheet at path and opens its first data track.
func Open(fs afero.Fs, path string) (*Disc, error) {
	cue, err := ParseCue(fs, path)
	if err != nil {
		return nil, err
	}
	return New(fs, cue)
}

// New opens the data track of an already parsed CUE sheet and detects
// its region. A missing serial number is not an error.
func New(fs afero.Fs, cue *Cue) (*Disc, error) {
	track, ok := cue.DataTrack()
	if !ok {
		return nil, ErrNoDataTrack
	}
	f, err := fs.Open(track.File)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	d := &Disc{track: track, file: f}
	if size := fi.Size() / SectorSize; size > int64(track.Start) {
		d.sectors = uint32(size) - track.Start
	}

	if d.region, err = d.detectRegion(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if d.serial, err = d.readSerial(); err != nil {
		d.serial = UnknownSerial
	}
	return d, nil
}

func (d *Disc) Region() psx.Region { return d.region }

// SerialNumber returns the game serial (e.g. SLUS-00594) or UnknownSerial.
func (d *Disc) SerialNumber() string { return d.serial }

// Sectors returns the length of the data track.
func (d *Disc) Sectors() uint32 { return d.sectors }

func (d *Disc) Close() error { return d.file.Close() }

// ReadSector returns the raw 2352 bytes of the data track sector lba.
func (d *Disc) ReadSector(lba uint32) ([]byte, error) {
	if lba >= d.sectors {
		return nil, fmt.Errorf("%w: %d", ErrOutOfRange, lba)
	}
	buf := make([]byte, SectorSize)
	off := int64(d.track.Start+lba) * SectorSize
	if _, err := d.file.ReadAt(buf, off); err != nil && !(errors.Is(err, io.EOF)) {
		return nil, err
	}
	return buf, nil
}

// ReadData returns the 2048 bytes of user data of sector lba.
func (d *Disc) ReadData(lba uint32) ([]byte, error) {
	raw, err := d.ReadSector(lba)
	if err != nil {
		return nil, err
	}
	off := d.track.Type.dataOffset()
	return raw[off : off+DataSize], nil
}

var licenses = []struct {
	text   string
	region psx.Region
}{
	{"Sony Computer Entertainment Inc.", psx.Japan},
	{"Sony Computer Entertainment Amer", psx.NorthAmerica},
	{"Sony Computer Entertainment Euro", psx.Europe},
}

// detectRegion looks at the license string the BIOS checks on boot.
func (d *Disc) detectRegion() (psx.Region, error) {
	data, err := d.ReadData(licenseSector)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownRegion, err)
	}
	// the license text is padded with blanks, squash them
	text := strings.Join(strings.Fields(string(data)), " ")
	for _, l := range licenses {
		if strings.Contains(text, l.text) {
			return l.region, nil
		}
	}
	return 0, ErrUnknownRegion
}

func (d *Disc) readSerial() (string, error) {
	cnf, err := d.readFile("SYSTEM.CNF")
	if err != nil {
		return "", err
	}
	return parseSystemCnf(cnf)
}

// minRecordLen is the fixed part of a directory record plus one byte of
// file identifier.
const minRecordLen = 34

// readFile reads a file from the root directory of the ISO9660 filesystem.
func (d *Disc) readFile(name string) ([]byte, error) {
	pvd, err := d.ReadData(pvdSector)
	if err != nil {
		return nil, err
	}
	if pvd[0] != 1 || string(pvd[1:6]) != "CD001" {
		return nil, fmt.Errorf("%w: no primary volume descriptor", ErrNoSerial)
	}
	root := pvd[156 : 156+34]
	extent, size := binary.LittleEndian.Uint32(root[2:]), binary.LittleEndian.Uint32(root[10:])

	for s := uint32(0); s*DataSize < size; s++ {
		dir, err := d.ReadData(extent + s)
		if err != nil {
			return nil, err
		}
		for off := 0; off < DataSize; {
			l := int(dir[off])
			if l < minRecordLen || off+l > DataSize {
				break
			}
			rec := dir[off : off+l]
			off += l
			if 33+int(rec[32]) > len(rec) {
				continue
			}
			id := string(rec[33 : 33+int(rec[32])])
			if i := strings.IndexByte(id, ';'); i >= 0 {
				id = id[:i]
			}
			if !strings.EqualFold(id, name) {
				continue
			}
			return d.readExtent(binary.LittleEndian.Uint32(rec[2:]), binary.LittleEndian.Uint32(rec[10:]))
		}
	}
	return nil, fmt.Errorf("%w: no %v", ErrNoSerial, name)
}

func (d *Disc) readExtent(lba, size uint32) ([]byte, error) {
	var out bytes.Buffer
	for left := size; left > 0; lba++ {
		data, err := d.ReadData(lba)
		if err != nil {
			return nil, err
		}
		n := uint32(DataSize)
		if left < n {
			n = left
		}
		out.Write(data[:n])
		left -= n
	}
	return out.Bytes(), nil
}

// parseSystemCnf turns `BOOT = cdrom:\SLUS_005.94;1` into SLUS-00594.
func parseSystemCnf(cnf []byte) (string, error) {
	for _, line := range strings.Split(string(cnf), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "BOOT") {
			continue
		}
		value = strings.TrimSpace(value)
		if i := strings.LastIndexAny(value, `\:/`); i >= 0 {
			value = value[i+1:]
		}
		if i := strings.IndexByte(value, ';'); i >= 0 {
			value = value[:i]
		}
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, "_", "-")
		if value == "" {
			break
		}
		return strings.ToUpper(value), nil
	}
	return "", ErrNoSerial
}
