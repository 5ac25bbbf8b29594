package disc

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/giongto35/retrocore/pkg/psx"
	"github.com/spf13/afero"
)

// buildImage synthesizes a MODE2/2352 data track with a license
// sector, a primary volume descriptor and a SYSTEM.CNF file.
func buildImage(license, cnf string) []byte {
	const sectors = 24
	img := make([]byte, sectors*SectorSize)
	data := func(lba int) []byte {
		off := lba*SectorSize + Mode2.dataOffset()
		return img[off : off+DataSize]
	}

	copy(data(licenseSector), "          Licensed  by          "+license)

	pvd := data(pvdSector)
	pvd[0] = 1
	copy(pvd[1:], "CD001")
	root := pvd[156:]
	root[0] = 34
	binary.LittleEndian.PutUint32(root[2:], 18)
	binary.LittleEndian.PutUint32(root[10:], DataSize)

	dir := data(18)
	off := 0
	for _, rec := range []struct {
		name   string
		extent uint32
		size   uint32
	}{
		{"\x00", 18, DataSize},
		{"\x01", 18, DataSize},
		{"README.TXT;1", 21, 4},
		{"SYSTEM.CNF;1", 20, uint32(len(cnf))},
	} {
		l := 33 + len(rec.name)
		l += l & 1
		dir[off] = byte(l)
		binary.LittleEndian.PutUint32(dir[off+2:], rec.extent)
		binary.LittleEndian.PutUint32(dir[off+10:], rec.size)
		dir[off+32] = byte(len(rec.name))
		copy(dir[off+33:], rec.name)
		off += l
	}
	copy(data(20), cnf)
	copy(data(21), "test")
	return img
}

func writeDisc(t *testing.T, fs afero.Fs, license, cnf string) string {
	t.Helper()
	cue := "FILE \"game (track 1).bin\" BINARY\r\n  TRACK 01 MODE2/2352\r\n    INDEX 01 00:00:00\r\n"
	if err := afero.WriteFile(fs, "/games/game.cue", []byte(cue), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/games/game (track 1).bin", buildImage(license, cnf), 0o644); err != nil {
		t.Fatal(err)
	}
	return "/games/game.cue"
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		license string
		cnf     string
		region  psx.Region
		serial  string
		err     error
	}{
		{
			name:    "europe",
			license: "Sony Computer Entertainment Euro pe   ",
			cnf:     "BOOT = cdrom:\\SCES_003.44;1\r\nTCB = 4\r\n",
			region:  psx.Europe,
			serial:  "SCES-00344",
		},
		{
			name:    "north america",
			license: "Sony Computer Entertainment Amer  ica ",
			cnf:     "BOOT=cdrom:\\SLUS_005.94;1\n",
			region:  psx.NorthAmerica,
			serial:  "SLUS-00594",
		},
		{
			name:    "japan without serial",
			license: "Sony Computer Entertainment Inc.",
			cnf:     "VMODE = NTSC\n",
			region:  psx.Japan,
			serial:  UnknownSerial,
		},
		{
			name:    "unlicensed",
			license: "Homebrew Entertainment",
			err:     ErrUnknownRegion,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			d, err := Open(fs, writeDisc(t, fs, test.license, test.cnf))
			if test.err != nil {
				if !errors.Is(err, test.err) {
					t.Fatalf("got %v, want %v", err, test.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = d.Close() }()
			if d.Region() != test.region {
				t.Errorf("region %v, want %v", d.Region(), test.region)
			}
			if d.SerialNumber() != test.serial {
				t.Errorf("serial %v, want %v", d.SerialNumber(), test.serial)
			}
			if d.Sectors() != 24 {
				t.Errorf("sectors %d", d.Sectors())
			}
			if _, err := d.ReadSector(24); !errors.Is(err, ErrOutOfRange) {
				t.Errorf("read past the end: %v", err)
			}
		})
	}
}

func TestBadDirectoryRecords(t *testing.T) {
	tests := []struct {
		name   string
		length byte
	}{
		{name: "short", length: 10},
		{name: "no identifier", length: 33},
		{name: "zero", length: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			img := buildImage("Sony Computer Entertainment Euro pe   ", "BOOT = cdrom:\\SCES_003.44;1\n")
			// first record of the root directory
			img[18*SectorSize+Mode2.dataOffset()] = test.length
			fs := afero.NewMemMapFs()
			path := writeDisc(t, fs, "", "")
			if err := afero.WriteFile(fs, "/games/game (track 1).bin", img, 0o644); err != nil {
				t.Fatal(err)
			}
			d, err := Open(fs, path)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = d.Close() }()
			if d.Region() != psx.Europe || d.SerialNumber() != UnknownSerial {
				t.Errorf("region %v, serial %v", d.Region(), d.SerialNumber())
			}
		})
	}
}

func TestParseCue(t *testing.T) {
	tests := []struct {
		name    string
		cue     string
		tracks  []Track
		wantErr bool
	}{
		{
			name: "multi track",
			cue: `REM comment
FILE "a.bin" BINARY
  TRACK 01 MODE2/2352
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    INDEX 00 01:02:00
    INDEX 01 01:04:00
`,
			tracks: []Track{
				{Number: 1, Type: Mode2, File: "/d/a.bin"},
				{Number: 2, Type: Audio, File: "/d/a.bin", Start: (1*60 + 4) * 75},
			},
		},
		{name: "no file", cue: "TRACK 01 MODE2/2352\n", wantErr: true},
		{name: "bad type", cue: "FILE a.bin BINARY\nTRACK 01 MODE2/2336\n", wantErr: true},
		{name: "bad msf", cue: "FILE a.bin BINARY\nTRACK 01 MODE1/2352\nINDEX 01 00:61:00\n", wantErr: true},
		{name: "empty", cue: "REM nothing\n", wantErr: true},
		{name: "wave", cue: "FILE a.wav WAVE\n", wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			_ = afero.WriteFile(fs, "/d/x.cue", []byte(test.cue), 0o644)
			cue, err := ParseCue(fs, "/d/x.cue")
			if (err != nil) != test.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, test.wantErr)
			}
			if err != nil {
				return
			}
			if len(cue.Tracks) != len(test.tracks) {
				t.Fatalf("tracks %+v", cue.Tracks)
			}
			for i, tr := range cue.Tracks {
				if tr != test.tracks[i] {
					t.Errorf("track %d: %+v, want %+v", i, tr, test.tracks[i])
				}
			}
		})
	}
}

func TestNoDataTrack(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/d/x.cue", []byte("FILE a.bin BINARY\nTRACK 01 AUDIO\nINDEX 01 00:00:00\n"), 0o644)
	if _, err := Open(fs, "/d/x.cue"); !errors.Is(err, ErrNoDataTrack) {
		t.Errorf("got %v, want %v", err, ErrNoDataTrack)
	}
}

func TestParseSystemCnf(t *testing.T) {
	tests := map[string]string{
		"BOOT = cdrom:\\SLUS_005.94;1":    "SLUS-00594",
		"boot=cdrom:SCPS_100.01;1\r":      "SCPS-10001",
		"BOOT = cdrom:\\DIR\\SLES_012.34": "SLES-01234",
	}
	for in, want := range tests {
		got, err := parseSystemCnf([]byte(in))
		if err != nil || got != want {
			t.Errorf("parseSystemCnf(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseSystemCnf([]byte("TCB = 4")); !errors.Is(err, ErrNoSerial) {
		t.Errorf("got %v", err)
	}
}
