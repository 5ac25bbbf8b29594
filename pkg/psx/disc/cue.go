package disc

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

type TrackType uint8

const (
	Audio TrackType = iota
	Mode1
	Mode2
)

func (t TrackType) String() string {
	switch t {
	case Mode1:
		return "MODE1/2352"
	case Mode2:
		return "MODE2/2352"
	}
	return "AUDIO"
}

// dataOffset is the position of the user data inside a raw sector.
func (t TrackType) dataOffset() int {
	if t == Mode1 {
		return syncSize + headerSize
	}
	return syncSize + headerSize + subHeaderSize
}

// Track is one track of a CUE sheet.
type Track struct {
	Number int
	Type   TrackType
	// File is the absolute path of the BIN file holding the track.
	File string
	// Start is the sector of INDEX 01 inside File.
	Start uint32
}

// Cue is a parsed CUE sheet.
type Cue struct {
	Path   string
	Tracks []Track
}

var ErrBadCue = errors.New("invalid cue sheet")

// ParseCue reads the CUE sheet at path. Only raw 2352-byte sector
// images are supported.
func ParseCue(fs afero.Fs, path string) (*Cue, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	cue := Cue{Path: path}
	dir := filepath.Dir(path)
	file := ""
	var track *Track

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		fields := splitCue(sc.Text())
		if len(fields) == 0 {
			continue
		}
		bad := func(format string, a ...any) error {
			return fmt.Errorf("%w: %v:%d: %s", ErrBadCue, path, line, fmt.Sprintf(format, a...))
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if len(fields) < 2 {
				return nil, bad("FILE without a name")
			}
			if len(fields) > 2 && !strings.EqualFold(fields[2], "BINARY") {
				return nil, bad("unsupported file type %v", fields[2])
			}
			file = fields[1]
			if !filepath.IsAbs(file) {
				file = filepath.Join(dir, file)
			}
		case "TRACK":
			if len(fields) != 3 {
				return nil, bad("malformed TRACK")
			}
			if file == "" {
				return nil, bad("TRACK before FILE")
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 1 || n > 99 {
				return nil, bad("bad track number %v", fields[1])
			}
			var typ TrackType
			switch strings.ToUpper(fields[2]) {
			case "AUDIO":
				typ = Audio
			case "MODE1/2352":
				typ = Mode1
			case "MODE2/2352":
				typ = Mode2
			default:
				return nil, bad("unsupported track type %v", fields[2])
			}
			cue.Tracks = append(cue.Tracks, Track{Number: n, Type: typ, File: file})
			track = &cue.Tracks[len(cue.Tracks)-1]
		case "INDEX":
			if track == nil || len(fields) != 3 {
				return nil, bad("malformed INDEX")
			}
			if fields[1] != "01" && fields[1] != "1" {
				continue
			}
			lba, err := ParseMsf(fields[2])
			if err != nil {
				return nil, bad("%v", err)
			}
			track.Start = lba
		case "REM", "PREGAP", "POSTGAP", "FLAGS", "CATALOG", "PERFORMER", "TITLE", "SONGWRITER", "ISRC":
		default:
			return nil, bad("unknown command %v", fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cue.Tracks) == 0 {
		return nil, fmt.Errorf("%w: %v has no tracks", ErrBadCue, path)
	}
	return &cue, nil
}

// DataTrack returns the first data track.
func (c *Cue) DataTrack() (Track, bool) {
	for _, t := range c.Tracks {
		if t.Type != Audio {
			return t, true
		}
	}
	return Track{}, false
}

// ParseMsf converts a mm:ss:ff position into a sector number.
func ParseMsf(s string) (uint32, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad msf %q", s)
	}
	var v [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("bad msf %q", s)
		}
		v[i] = uint32(n)
	}
	if v[1] >= 60 || v[2] >= 75 {
		return 0, fmt.Errorf("bad msf %q", s)
	}
	return (v[0]*60+v[1])*75 + v[2], nil
}

// splitCue splits a line on blanks keeping quoted strings together.
func splitCue(line string) []string {
	var out []string
	var cur strings.Builder
	quoted, has := false, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			has = true
		case !quoted && (r == ' ' || r == '\t' || r == '\r'):
			if has {
				out = append(out, cur.String())
				cur.Reset()
				has = false
			}
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	if has {
		out = append(out, cur.String())
	}
	return out
}
