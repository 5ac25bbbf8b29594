package engine

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/renderer"
	"github.com/spf13/afero"
)

const (
	titleFile = "title.txt"
	scoreFile = "best.txt"

	gravity   = 300.0 // px/s² at 1x
	thrust    = 700.0
	walkSpeed = 120.0
	maxFuel   = 1.5 // seconds of booster
	crashV    = 250.0
	toneHz    = 220.0
	shipSize  = 8
)

var (
	sky     = color.RGBA{R: 16, G: 16, B: 48, A: 255}
	ground  = color.RGBA{R: 96, G: 64, B: 32, A: 255}
	hull    = color.RGBA{R: 220, G: 220, B: 220, A: 255}
	flame   = color.RGBA{R: 255, G: 160, B: 0, A: 255}
	fuelBar = color.RGBA{R: 0, G: 200, B: 80, A: 255}
	outline = color.RGBA{R: 255, A: 255}
	textFg  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

type scene int

const (
	sceneTitle scene = iota
	scenePlay
)

// Demo is a small booster game, the stand-in engine when no other is
// linked in. Positions are kept in native (1x) pixels.
type Demo struct {
	fs      afero.Fs
	userDir string
	title   string
	rate    float64

	w, h  int
	scale float64

	scene   scene
	x, y    float64
	vy      float64
	fuel    float64
	boost   bool
	crashes int
	alive   time.Duration
	best    time.Duration

	keys    map[libretro.Key]bool
	pads    [][ButtonCount]bool
	rumble  []RumbleFunc
	shaking []bool
	opts    GameOptions

	pending float64 // audio frames owed
	phase   float64
	audio   []int16

	updates  int
	fpsClock time.Duration
	fps      float64

	log *logger.Logger
}

var _ Engine = (*Demo)(nil)

// NewDemo is a Factory. The title comes from title.txt in the resource
// dir, the best time is kept in the user dir.
func NewDemo(cfg Config) (Engine, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewMemMapFs()
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	d := Demo{
		fs:      cfg.Fs,
		userDir: cfg.UserDir,
		title:   "d-rs",
		rate:    cfg.SampleRate,
		keys:    map[libretro.Key]bool{},
		log:     cfg.Log.Extend(cfg.Log.With().Str("engine", "demo")),
	}
	if d.rate <= 0 {
		d.rate = sampleRate
	}
	if b, err := afero.ReadFile(cfg.Fs, filepath.Join(cfg.ResourceDir, titleFile)); err == nil {
		if t := string(bytes.TrimSpace(b)); t != "" {
			d.title = t
		}
	}
	if b, err := afero.ReadFile(cfg.Fs, filepath.Join(cfg.UserDir, scoreFile)); err == nil {
		if ms, err := strconv.ParseInt(string(bytes.TrimSpace(b)), 10, 64); err == nil {
			d.best = time.Duration(ms) * time.Millisecond
		}
	}
	d.Resize(cfg.Width, cfg.Height)
	d.ResetToTitle()
	return &d, nil
}

func (d *Demo) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		w, h = Height*4/3, Height
	}
	d.w, d.h = w, h
	d.scale = float64(h) / Height
}

// native size of the play field
func (d *Demo) field() (float64, float64) { return float64(d.w) / d.scale, Height }

func (d *Demo) floor() float64 { return Height - 16 }

func (d *Demo) SetKey(k libretro.Key, pressed bool) { d.keys[k] = pressed }

func (d *Demo) SetButton(pad int, b Button, pressed bool) {
	if pad < 0 || pad >= len(d.pads) || b < 0 || b >= ButtonCount {
		return
	}
	d.pads[pad][b] = pressed
}

func (d *Demo) AddGamepad(pad int, rumble RumbleFunc) {
	for len(d.pads) <= pad {
		d.pads = append(d.pads, [ButtonCount]bool{})
		d.rumble = append(d.rumble, nil)
		d.shaking = append(d.shaking, false)
	}
	d.rumble[pad] = rumble
}

func (d *Demo) SetOptions(o GameOptions) { d.opts = o }

func (d *Demo) ResetToTitle() {
	d.scene = sceneTitle
	w, _ := d.field()
	d.x, d.y, d.vy = w/2, d.floor()-shipSize, 0
	d.fuel = maxFuel
	d.alive = 0
	d.crashes = 0
}

func (d *Demo) pressed(keys []libretro.Key, buttons ...Button) bool {
	for _, k := range keys {
		if d.keys[k] {
			return true
		}
	}
	for _, p := range d.pads {
		for _, b := range buttons {
			if p[b] {
				return true
			}
		}
	}
	return false
}

func (d *Demo) Update(delta time.Duration) {
	d.pending += delta.Seconds() * d.rate
	d.tickFps(delta)

	if d.scene == sceneTitle {
		d.boost = false
		if d.pressed([]libretro.Key{libretro.KeyReturn, libretro.KeySpace}, ButtonStart, ButtonSouth) {
			d.scene = scenePlay
		}
		return
	}
	if d.pressed([]libretro.Key{libretro.KeyEscape}, ButtonBack) {
		d.saveBest()
		d.ResetToTitle()
		return
	}

	dt := delta.Seconds()
	d.alive += delta
	w, _ := d.field()

	if d.pressed([]libretro.Key{libretro.KeyLeft, libretro.Letter('a')}, ButtonDPadLeft) {
		d.x -= walkSpeed * dt
	}
	if d.pressed([]libretro.Key{libretro.KeyRight, libretro.Letter('d')}, ButtonDPadRight) {
		d.x += walkSpeed * dt
	}
	d.x = math.Max(0, math.Min(d.x, w-shipSize))

	d.boost = d.pressed([]libretro.Key{libretro.KeyUp, libretro.KeySpace}, ButtonSouth, ButtonDPadUp) &&
		(d.fuel > 0 || d.opts.InfiniteBooster)
	if d.boost {
		d.vy -= thrust * dt
		if !d.opts.InfiniteBooster {
			d.fuel = math.Max(0, d.fuel-dt)
		}
	}
	d.vy += gravity * dt
	d.y += d.vy * dt

	hit := false
	switch floor := d.floor() - shipSize; {
	case d.y >= floor:
		hit = d.vy > crashV
		d.y, d.vy = floor, 0
		d.fuel = math.Min(maxFuel, d.fuel+dt)
	case d.y <= 0:
		hit = -d.vy > crashV
		d.y, d.vy = 0, 0
	}
	if hit && !d.opts.GodMode {
		d.crash()
	} else {
		d.setRumble(0)
	}
}

func (d *Demo) crash() {
	d.crashes++
	d.log.Debug().Msgf("Crash %d after %v", d.crashes, d.alive)
	d.saveBest()
	d.alive = 0
	d.setRumble(0xffff)
}

func (d *Demo) setRumble(strength uint16) {
	for i, fn := range d.rumble {
		on := strength > 0
		if fn == nil || d.shaking[i] == on {
			continue
		}
		if fn(strength) {
			d.shaking[i] = on
		}
	}
}

func (d *Demo) saveBest() {
	if d.alive <= d.best {
		return
	}
	d.best = d.alive
	if d.userDir == "" {
		return
	}
	if err := d.fs.MkdirAll(d.userDir, 0o755); err != nil {
		d.log.Warn().Err(err).Msg("Couldn't create the user dir")
		return
	}
	ms := strconv.FormatInt(d.best.Milliseconds(), 10)
	if err := afero.WriteFile(d.fs, filepath.Join(d.userDir, scoreFile), []byte(ms), 0o644); err != nil {
		d.log.Warn().Err(err).Msg("Couldn't save the best time")
	}
}

func (d *Demo) tickFps(delta time.Duration) {
	d.updates++
	d.fpsClock += delta
	if d.fpsClock >= time.Second {
		d.fps = float64(d.updates) / d.fpsClock.Seconds()
		d.updates, d.fpsClock = 0, 0
	}
}

func (d *Demo) rect(x, y, w, h float64) image.Rectangle {
	s := d.scale
	return image.Rect(int(x*s), int(y*s), int((x+w)*s), int((y+h)*s))
}

func (d *Demo) Draw(r renderer.Renderer) error {
	if r == nil {
		return nil
	}
	if err := r.SetRenderTarget(nil); err != nil {
		return err
	}
	r.SetClipRect(nil)
	r.SetBlendMode(renderer.BlendNone)
	r.Clear(sky)

	w, _ := d.field()
	r.DrawRect(d.rect(0, d.floor(), w, Height-d.floor()), ground)
	ship := d.rect(d.x, d.y, shipSize, shipSize)
	r.DrawRect(ship, hull)
	if d.boost {
		r.DrawRect(d.rect(d.x+2, d.y+shipSize, shipSize-4, 4), flame)
	}
	r.DrawRect(d.rect(4, Height-10, 40*d.fuel/maxFuel, 4), fuelBar)
	if d.opts.DrawDebugOutlines {
		drawOutline(r, ship.Inset(-1), outline)
	}

	var lines []string
	switch d.scene {
	case sceneTitle:
		lines = append(lines, d.title, "press start")
	case scenePlay:
		lines = append(lines, fmt.Sprintf("time %.1fs best %.1fs", d.alive.Seconds(), d.best.Seconds()))
	}
	if d.opts.ShowFPS {
		lines = append(lines, fmt.Sprintf("%.0f fps", d.fps))
	}
	if d.opts.DisplayInternal {
		lines = append(lines, fmt.Sprintf("tick %d", d.updates))
	}
	if d.opts.ShowDebugWindow {
		lines = append(lines,
			fmt.Sprintf("pos %.0f,%.0f v %.0f", d.x, d.y, d.vy),
			fmt.Sprintf("fuel %.2f crashes %d", d.fuel, d.crashes))
	}
	for i, l := range lines {
		if err := renderer.Text(r, image.Pt(4, 4+i*14), l, textFg); err != nil {
			return err
		}
	}
	return nil
}

func drawOutline(r renderer.Renderer, b image.Rectangle, c color.RGBA) {
	r.DrawRect(image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+1), c)
	r.DrawRect(image.Rect(b.Min.X, b.Max.Y-1, b.Max.X, b.Max.Y), c)
	r.DrawRect(image.Rect(b.Min.X, b.Min.Y, b.Min.X+1, b.Max.Y), c)
	r.DrawRect(image.Rect(b.Max.X-1, b.Min.Y, b.Max.X, b.Max.Y), c)
}

// Audio is a tone while the booster fires, silence otherwise.
func (d *Demo) Audio() []int16 {
	n := int(d.pending)
	d.pending -= float64(n)
	if cap(d.audio) < 2*n {
		d.audio = make([]int16, 2*n)
	}
	out := d.audio[:2*n]
	for i := 0; i < n; i++ {
		var s int16
		if d.boost {
			s = int16(4000 * math.Sin(d.phase))
			d.phase += 2 * math.Pi * toneHz / d.rate
			if d.phase > 2*math.Pi {
				d.phase -= 2 * math.Pi
			}
		}
		out[2*i], out[2*i+1] = s, s
	}
	return out
}

func (d *Demo) Close() error {
	d.setRumble(0)
	d.saveBest()
	return nil
}
