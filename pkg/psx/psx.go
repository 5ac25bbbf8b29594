// Package psx holds the console-wide constants shared by the BIOS,
// disc, EXE and machine packages.
package psx

import (
	"fmt"
	"strings"
)

// Region is the console region of a BIOS, disc or executable.
type Region uint8

const (
	Japan Region = iota
	NorthAmerica
	Europe
)

func (r Region) String() string {
	switch r {
	case Japan:
		return "Japan"
	case NorthAmerica:
		return "NorthAmerica"
	case Europe:
		return "Europe"
	default:
		return fmt.Sprintf("Region(%d)", uint8(r))
	}
}

// ParseRegion converts a config name (japan, north_america, europe)
// into a Region. The short forms jp, us/na and eu are accepted too.
func ParseRegion(s string) (Region, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "japan", "jp", "ntsc-j":
		return Japan, nil
	case "north_america", "northamerica", "na", "us", "ntsc-u":
		return NorthAmerica, nil
	case "europe", "eu", "pal":
		return Europe, nil
	}
	return 0, fmt.Errorf("unknown region %q", s)
}

// VideoClock is the video timing standard, fixed for a whole session.
type VideoClock uint8

const (
	Ntsc VideoClock = iota
	Pal
)

func (v VideoClock) String() string {
	if v == Pal {
		return "PAL"
	}
	return "NTSC"
}

// VideoClockFor returns the timing standard matching a region.
func VideoClockFor(r Region) VideoClock {
	if r == Europe {
		return Pal
	}
	return Ntsc
}

// CPUFrequency is the R3000 clock in Hz.
const CPUFrequency = 33_868_800

// FrameRate returns the precise output framerate for the clock.
//
// The GPU could be programmed to output NTSC timings with the PAL
// clock and vice-versa, no game is known to do it.
func (v VideoClock) FrameRate() float64 {
	if v == Pal {
		// 53.222MHz GPU clock, 314 lines per field, 3406 cycles per line
		return 49.76
	}
	// 53.690MHz GPU clock, 263 lines per field, 3413 cycles per line
	return 59.81
}

// CPUCyclesPerFrame returns how many CPU cycles fit into one video frame.
func (v VideoClock) CPUCyclesPerFrame() uint64 {
	return uint64(float64(CPUFrequency) / v.FrameRate())
}

// AudioSampleRate is the SPU output rate.
const AudioSampleRate = 44_100

// Maximum resolution of the video output.
const (
	MaxWidth  = 640
	MaxHeight = 480
)
