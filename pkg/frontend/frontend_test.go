package frontend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/monitoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeGL struct {
	pixels []byte
	closed bool
}

func (g *fakeGL) ProcAddress(string) unsafe.Pointer { return nil }
func (g *fakeGL) Framebuffer() uintptr              { return 7 }
func (g *fakeGL) ReadPixels(w, h int) ([]byte, error) {
	if len(g.pixels) < w*h*4 {
		return nil, errors.New("short read")
	}
	return g.pixels, nil
}
func (g *fakeGL) Close() error {
	g.closed = true
	return nil
}

var vars = []libretro.Variable{
	{Key: "c_scale", Value: "Scale; 1x|2x|3x"},
	{Key: "c_dither", Value: "Dithering; enabled|disabled"},
}

func TestVariables(t *testing.T) {
	f := New(Options{Values: map[string]string{"c_scale": "2x", "c_dither": "sometimes", "other": "x"}, Log: logger.Nop()})
	f.SetVariables(vars)

	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{key: "c_scale", want: "2x", ok: true},
		{key: "c_dither", ok: false},
		{key: "other", want: "x", ok: true},
		{key: "missing", ok: false},
	}
	for _, tt := range tests {
		if v, ok := f.Variable(tt.key); v != tt.want || ok != tt.ok {
			t.Errorf("Variable(%v) = %q, %v, want %q, %v", tt.key, v, ok, tt.want, tt.ok)
		}
	}
	if f.VariablesUpdated() {
		t.Error("updated before any change")
	}
}

func TestSetValues(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg, "test")
	f := New(Options{Values: map[string]string{"c_scale": "1x"}, Metrics: m, Log: logger.Nop()})
	f.SetVariables(vars)

	if f.SetValues(map[string]string{"c_scale": "1x"}) {
		t.Error("same values reported as a change")
	}
	if !f.SetValues(map[string]string{"c_scale": "3x"}) {
		t.Error("change not reported")
	}
	if !f.VariablesUpdated() || f.VariablesUpdated() {
		t.Error("update flag should be read once")
	}
	if v, _ := f.Variable("c_scale"); v != "3x" {
		t.Errorf("scale %q", v)
	}
	if !f.SetValues(map[string]string{}) {
		t.Error("removal not reported")
	}
	if _, ok := f.Variable("c_scale"); ok {
		t.Error("removed value still there")
	}
	if n := testutil.ToFloat64(m.OptionChanges); n != 2 {
		t.Errorf("option changes %v", n)
	}
}

func TestHwRender(t *testing.T) {
	hw := libretro.HwRender{Type: libretro.ContextOpenGLCore, VersionMajor: 2, VersionMinor: 1}
	var made []*fakeGL
	factory := func(libretro.HwRender) (GL, error) {
		g := &fakeGL{}
		made = append(made, g)
		return g, nil
	}

	off := New(Options{NewGL: factory, Log: logger.Nop()})
	if off.SetHwRender(hw) || off.Hw() || off.CurrentFramebuffer() != 0 || off.ProcAddress("glClear") != nil {
		t.Error("hw accepted while off")
	}

	failing := New(Options{Hw: true, NewGL: func(libretro.HwRender) (GL, error) { return nil, errors.New("no gpu") }, Log: logger.Nop()})
	if failing.SetHwRender(hw) {
		t.Error("hw accepted without a context")
	}

	f := New(Options{Hw: true, NewGL: factory, Log: logger.Nop()})
	if !f.SetHwRender(hw) || !f.SetHwRender(hw) {
		t.Fatal("hw refused")
	}
	if len(made) != 2 || !made[0].closed || made[1].closed {
		t.Errorf("contexts %v", made)
	}
	if f.CurrentFramebuffer() != 7 {
		t.Errorf("fbo %v", f.CurrentFramebuffer())
	}
	if err := f.Close(); err != nil || !made[1].closed || f.Hw() {
		t.Errorf("close %v", err)
	}
}

func TestInput(t *testing.T) {
	f := New(Options{Log: logger.Nop()})
	f.Press(1, libretro.JoypadStart, true)
	f.Press(1, libretro.JoypadA, true)
	f.Press(1, libretro.JoypadA, false)
	f.Press(9, libretro.JoypadA, true)
	f.PressKey(libretro.KeyReturn, true)

	if !f.JoypadPressed(1, libretro.JoypadStart) || f.JoypadPressed(1, libretro.JoypadA) || f.JoypadPressed(0, libretro.JoypadStart) {
		t.Error("joypad state")
	}
	if f.JoypadPressed(9, libretro.JoypadA) {
		t.Error("port out of range")
	}
	if !f.KeyPressed(0, libretro.KeyReturn) || f.KeyPressed(1, libretro.KeyReturn) {
		t.Error("keyboard state")
	}
}

func TestPixelFormat(t *testing.T) {
	f := New(Options{Log: logger.Nop()})
	if f.SetPixelFormat(libretro.PixelFormatRGB565) || !f.SetPixelFormat(libretro.PixelFormatXRGB8888) {
		t.Error("only XRGB8888 is supported")
	}
}

func TestRumble(t *testing.T) {
	f := New(Options{Log: logger.Nop()})
	if !f.RegisterRumble() || !f.SetRumble(0, libretro.RumbleStrong, 0xffff) || !f.SetRumble(3, libretro.RumbleWeak, 1) {
		t.Error("rumble refused")
	}
	if f.SetRumble(4, libretro.RumbleStrong, 1) || f.SetRumble(0, libretro.RumbleEffect(5), 1) {
		t.Error("bad rumble accepted")
	}
}

func TestScreenshot(t *testing.T) {
	f := New(Options{Log: logger.Nop()})
	if _, err := f.Screenshot(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("err = %v", err)
	}

	// 2x2 XRGB8888 with 4 bytes of row padding
	frame := []byte{
		0x30, 0x20, 0x10, 0, 0xff, 0, 0, 0, 9, 9, 9, 9,
		0, 0xff, 0, 0, 0, 0, 0xff, 0, 9, 9, 9, 9,
	}
	f.VideoRefresh(frame, 2, 2, 12)
	frame[0] = 0
	img, err := f.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		x, y    int
		r, g, b uint8
	}{
		{0, 0, 0x10, 0x20, 0x30},
		{1, 0, 0, 0, 0xff},
		{0, 1, 0, 0xff, 0},
		{1, 1, 0xff, 0, 0},
	}
	for _, tt := range tests {
		c := img.RGBAAt(tt.x, tt.y)
		if c.R != tt.r || c.G != tt.g || c.B != tt.b || c.A != 255 {
			t.Errorf("(%v,%v) = %v", tt.x, tt.y, c)
		}
	}

	gl := &fakeGL{pixels: []byte{1, 2, 3, 0}}
	hw := New(Options{Hw: true, NewGL: func(libretro.HwRender) (GL, error) { return gl, nil }, Log: logger.Nop()})
	hw.SetHwRender(libretro.HwRender{Type: libretro.ContextOpenGLCore})
	hw.GLFrameDone(1, 1)
	img, err = hw.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if c := img.RGBAAt(0, 0); c.R != 3 || c.G != 2 || c.B != 1 {
		t.Errorf("gl pixel %v", c)
	}
	hw.GLFrameDone(2, 2)
	if _, err := hw.Screenshot(); err == nil {
		t.Error("short read accepted")
	}
	if s := hw.Stats(); s.Frames != 2 || s.Width != 2 || s.Height != 2 {
		t.Errorf("stats %+v", s)
	}
}

func TestAudio(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := monitoring.NewMetrics(reg, "test")
	f := New(Options{Metrics: m, Log: logger.Nop()})
	if n := f.AudioSampleBatch(make([]int16, 1764)); n != 882 {
		t.Errorf("frames %v", n)
	}
	if f.Stats().Samples != 1764 || testutil.ToFloat64(m.Samples) != 1764 {
		t.Error("samples not counted")
	}
	if !f.RegisterAsyncAudio() || !f.Async() {
		t.Error("async audio")
	}
	if !f.RegisterFrameTime(time.Millisecond) || f.Reference() != time.Millisecond {
		t.Error("frame time")
	}
}

func TestDirectories(t *testing.T) {
	f := New(Options{SystemDir: "/bios", Log: logger.Nop()})
	if d, ok := f.SystemDirectory(); d != "/bios" || !ok {
		t.Errorf("system dir %v %v", d, ok)
	}
	if _, ok := f.SaveDirectory(); ok {
		t.Error("save dir without one")
	}
	if f.Session().String() == "" {
		t.Error("no session")
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "1x")

	f := New(Options{Values: map[string]string{"c_scale": "1x"}, Log: logger.Nop()})
	f.SetVariables(vars)

	load := func() (map[string]string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return map[string]string{"c_scale": string(data)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := f.Watch(ctx, path, load); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "other.yaml"), "2x")
	writeFile(t, path, "3x")

	deadline := time.Now().Add(5 * time.Second)
	for {
		if v, _ := f.Variable("c_scale"); v == "3x" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no reload")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !f.VariablesUpdated() {
		t.Error("reload not flagged")
	}

	if err := f.Watch(ctx, filepath.Join(dir, "missing", "config.yaml"), load); err == nil {
		t.Error("watching a missing dir")
	}
}
