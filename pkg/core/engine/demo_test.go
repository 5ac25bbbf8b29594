package engine

import (
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/libretro/retrotest"
	"github.com/giongto35/retrocore/pkg/renderer"
	"github.com/spf13/afero"
)

const tick = 10 * time.Millisecond

type pad struct{ strengths []uint16 }

func (p *pad) rumble(s uint16) bool {
	p.strengths = append(p.strengths, s)
	return true
}

func newDemo(t *testing.T, fs afero.Fs) (*Demo, *pad) {
	t.Helper()
	e, err := NewDemo(Config{Fs: fs, ResourceDir: "/game/data", UserDir: "/user", SampleRate: sampleRate, Width: 320, Height: 240})
	if err != nil {
		t.Fatal(err)
	}
	d := e.(*Demo)
	p := &pad{}
	d.AddGamepad(0, p.rumble)
	d.AddGamepad(1, nil)
	return d, p
}

// fly starts a game, boosts for a second and lets the ship fall.
func fly(d *Demo) {
	d.SetButton(0, ButtonStart, true)
	d.Update(tick)
	d.SetButton(0, ButtonStart, false)
	d.SetKey(libretro.KeySpace, true)
	for i := 0; i < 100; i++ {
		d.Update(tick)
	}
	d.SetKey(libretro.KeySpace, false)
	for i := 0; i < 200; i++ {
		d.Update(tick)
	}
}

func TestDemoTitle(t *testing.T) {
	d, _ := newDemo(t, afero.NewMemMapFs())
	d.Update(tick)
	if d.scene != sceneTitle || d.title != "d-rs" {
		t.Fatalf("scene %v, title %q", d.scene, d.title)
	}
	d.SetKey(libretro.KeyReturn, true)
	d.Update(tick)
	if d.scene != scenePlay {
		t.Fatal("start ignored")
	}
	d.SetKey(libretro.KeyReturn, false)
	d.SetButton(1, ButtonBack, true)
	d.Update(tick)
	if d.scene != sceneTitle {
		t.Error("back ignored")
	}
	d.SetButton(1, ButtonBack, false)
	d.SetButton(5, ButtonBack, true)
	d.SetButton(0, Button(99), true)

	d.scene = scenePlay
	d.ResetToTitle()
	if d.scene != sceneTitle || d.alive != 0 || d.fuel != maxFuel {
		t.Errorf("reset %+v", d)
	}
}

func TestDemoCrash(t *testing.T) {
	tests := []struct {
		name        string
		opts        GameOptions
		wantCrashes bool
		wantFuel    float64
	}{
		{name: "normal", wantCrashes: true},
		{name: "god mode", opts: GameOptions{GodMode: true}},
		{name: "infinite booster", opts: GameOptions{InfiniteBooster: true}, wantCrashes: true, wantFuel: maxFuel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			d, p := newDemo(t, fs)
			d.SetOptions(tt.opts)
			fly(d)

			if got := d.crashes > 0; got != tt.wantCrashes {
				t.Fatalf("crashes %v", d.crashes)
			}
			if !tt.wantCrashes {
				if len(p.strengths) != 0 {
					t.Errorf("rumble %v", p.strengths)
				}
				return
			}
			if len(p.strengths) < 2 || p.strengths[0] != 0xffff || p.strengths[len(p.strengths)-1] != 0 {
				t.Errorf("rumble %v", p.strengths)
			}
			if b, err := afero.ReadFile(fs, filepath.Join("/user", scoreFile)); err != nil || len(b) == 0 {
				t.Errorf("best time not saved: %v", err)
			}
			if tt.wantFuel > 0 && d.fuel != tt.wantFuel {
				t.Errorf("fuel %v", d.fuel)
			}
		})
	}
}

func TestDemoBestTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/game/data/title.txt", []byte(" Cave Story \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/user/best.txt", []byte("1500"), 0o644); err != nil {
		t.Fatal(err)
	}
	d, _ := newDemo(t, fs)
	if d.title != "Cave Story" || d.best != 1500*time.Millisecond {
		t.Fatalf("title %q, best %v", d.title, d.best)
	}

	d.scene, d.alive = scenePlay, 2*time.Second
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	b, err := afero.ReadFile(fs, "/user/best.txt")
	if err != nil || string(b) != "2000" {
		t.Errorf("best %q, %v", b, err)
	}
}

func TestDemoAudio(t *testing.T) {
	d, _ := newDemo(t, afero.NewMemMapFs())
	d.Update(20 * time.Millisecond)
	s := d.Audio()
	if len(s) != 2*882 {
		t.Fatalf("samples %v", len(s))
	}
	for _, v := range s {
		if v != 0 {
			t.Fatal("noise on the title screen")
		}
	}
	if len(d.Audio()) != 0 {
		t.Error("samples twice")
	}

	d.SetButton(0, ButtonStart, true)
	d.Update(tick)
	d.Audio()
	d.SetButton(0, ButtonSouth, true)
	d.Update(tick)
	loud := false
	for _, v := range d.Audio() {
		loud = loud || v != 0
	}
	if !loud {
		t.Error("booster is silent")
	}
}

func pixel(fe *retrotest.Frontend, x, y int) color.RGBA {
	i := (y*fe.LastW + x) * 4
	return color.RGBA{R: fe.LastFrame[i+2], G: fe.LastFrame[i+1], B: fe.LastFrame[i], A: 255}
}

func TestDemoDraw(t *testing.T) {
	fe := retrotest.New("")
	r, err := renderer.New(renderer.Software, renderer.Options{Width: 320, Height: 240, Video: fe})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	d, _ := newDemo(t, afero.NewMemMapFs())
	if err := d.Draw(nil); err != nil {
		t.Fatal(err)
	}
	d.SetOptions(GameOptions{DrawDebugOutlines: true, ShowFPS: true, ShowDebugWindow: true, DisplayInternal: true})
	if err := d.Draw(r); err != nil {
		t.Fatal(err)
	}
	if err := r.Present(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"ship", 164, 212, hull},
		{"outline", 164, 207, outline},
		{"sky", 300, 100, sky},
		{"ground", 300, 230, ground},
		{"fuel", 10, 231, fuelBar},
	}
	for _, tt := range tests {
		if got := pixel(fe, tt.x, tt.y); got != tt.want {
			t.Errorf("%v at %v,%v = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDemoResize(t *testing.T) {
	d, _ := newDemo(t, afero.NewMemMapFs())
	d.Resize(853, 480)
	if d.scale != 2 {
		t.Errorf("scale %v", d.scale)
	}
	if w, h := d.field(); int(w) != 426 || h != Height {
		t.Errorf("field %vx%v", w, h)
	}
	if r := d.rect(1, 1, 2, 2); r.Min.X != 2 || r.Max.X != 6 {
		t.Errorf("rect %v", r)
	}
	d.Resize(0, 0)
	if d.w != 320 || d.h != 240 {
		t.Errorf("fallback %vx%v", d.w, d.h)
	}
}
