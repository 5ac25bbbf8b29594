package psx

import (
	"math"
	"testing"
)

func TestVideoClockFor(t *testing.T) {
	tests := []struct {
		region Region
		want   VideoClock
		fps    float64
	}{
		{region: Japan, want: Ntsc, fps: 59.81},
		{region: NorthAmerica, want: Ntsc, fps: 59.81},
		{region: Europe, want: Pal, fps: 49.76},
	}
	for _, test := range tests {
		t.Run(test.region.String(), func(t *testing.T) {
			clock := VideoClockFor(test.region)
			if clock != test.want {
				t.Errorf("got %v, want %v", clock, test.want)
			}
			if math.Abs(clock.FrameRate()-test.fps) > 1e-9 {
				t.Errorf("fps %v, want %v", clock.FrameRate(), test.fps)
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in      string
		want    Region
		wantErr bool
	}{
		{in: "japan", want: Japan},
		{in: "North_America", want: NorthAmerica},
		{in: " eu ", want: Europe},
		{in: "mars", wantErr: true},
	}
	for _, test := range tests {
		got, err := ParseRegion(test.in)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseRegion(%q) err = %v, wantErr %v", test.in, err, test.wantErr)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("ParseRegion(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestCyclesPerFrame(t *testing.T) {
	if Ntsc.CPUCyclesPerFrame() >= Pal.CPUCyclesPerFrame() {
		t.Errorf("NTSC frames should be shorter than PAL ones")
	}
}
