package frontend

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/giongto35/retrocore/pkg/config"
	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/monitoring"
	"github.com/giongto35/retrocore/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// counter draws its frame number and saves it as a 4 byte state.
type counter struct {
	env       libretro.Env
	frame     uint32
	elapsed   time.Duration
	callbacks int
	noStates  bool
}

func (c *counter) RenderFrame() {
	c.env.PollInput()
	c.frame++
	px := make([]byte, 4)
	binary.LittleEndian.PutUint32(px, c.frame)
	c.env.VideoRefresh(px, 1, 1, 4)
}

func (c *counter) SystemAVInfo() libretro.SystemAVInfo {
	return libretro.SystemAVInfo{
		Geometry: libretro.Geometry{BaseWidth: 1, BaseHeight: 1, MaxWidth: 1, MaxHeight: 1, AspectRatio: 1},
		Timing:   libretro.Timing{FPS: 1000, SampleRate: 44100},
	}
}

func (c *counter) RefreshVariables() {}
func (c *counter) Reset()            { c.frame = 0 }
func (c *counter) GLContextReset()   {}
func (c *counter) GLContextDestroy() {}

func (c *counter) SerializeSize() int {
	if c.noStates {
		return 0
	}
	return 4
}

func (c *counter) Serialize(buf []byte) error {
	binary.LittleEndian.PutUint32(buf, c.frame)
	return nil
}

func (c *counter) Unserialize(buf []byte) error {
	if len(buf) != 4 {
		return errors.New("bad state")
	}
	c.frame = binary.LittleEndian.Uint32(buf)
	return nil
}

func (c *counter) ElapseTime(d time.Duration) { c.elapsed += d }
func (c *counter) AudioCallback()             { c.callbacks++ }
func (c *counter) AudioSetState(bool)         {}

type runnerFixture struct {
	host    *libretro.Host
	fe      *Frontend
	core    *counter
	store   storage.Storage
	metrics *monitoring.Metrics
}

func newRunnerFixture(t *testing.T, noStates bool) *runnerFixture {
	t.Helper()
	f := &runnerFixture{core: &counter{noStates: noStates}}
	def := libretro.Definition{
		Info: libretro.SystemInfo{LibraryName: "counter", LibraryVersion: "1"},
		Load: func(env libretro.Env, path string) (libretro.Core, error) {
			if path == "" {
				return nil, errors.New("no game")
			}
			f.core.env = env
			env.RegisterFrameTime(time.Millisecond)
			env.RegisterAsyncAudio()
			return f.core, nil
		},
	}
	f.host = libretro.NewHost(def, logger.Nop())
	f.metrics = monitoring.NewMetrics(prometheus.NewRegistry(), "counter")
	f.fe = New(Options{Metrics: f.metrics, Log: logger.Nop()})
	local, err := storage.NewLocal(t.TempDir(), logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	f.store = local
	return f
}

func (f *runnerFixture) runner(conf config.Frontend) *Runner {
	return NewRunner(f.host, f.fe, f.store, f.metrics, conf, logger.Nop())
}

func TestRunnerFrames(t *testing.T) {
	f := newRunnerFixture(t, false)
	r := f.runner(config.Frontend{Game: "/games/count.bin", Frames: 5})
	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if r.Frame() != 5 || f.core.frame != 5 || f.fe.Stats().Frames != 5 || f.fe.Stats().Polls != 5 {
		t.Errorf("frames %v %v %+v", r.Frame(), f.core.frame, f.fe.Stats())
	}
	if f.core.elapsed != 5*time.Millisecond || f.core.callbacks != 5 {
		t.Errorf("elapsed %v, callbacks %v", f.core.elapsed, f.core.callbacks)
	}
	if n := testutil.ToFloat64(f.metrics.Frames); n != 5 {
		t.Errorf("frame metric %v", n)
	}
	if n := testutil.ToFloat64(f.metrics.SavestateBytes); n != 4 {
		t.Errorf("savestate metric %v", n)
	}
	if err := r.Close(ctx); err != nil {
		t.Error(err)
	}
	if f.host.State() != libretro.Destroyed {
		t.Errorf("host %v", f.host.State())
	}
}

func TestRunnerLoadFailure(t *testing.T) {
	f := newRunnerFixture(t, false)
	r := f.runner(config.Frontend{})
	if err := r.Start(context.Background()); !errors.Is(err, ErrLoad) {
		t.Errorf("err = %v", err)
	}
	if n := testutil.ToFloat64(f.metrics.LoadFailures); n != 1 {
		t.Errorf("load failures %v", n)
	}
}

func TestRunnerCancel(t *testing.T) {
	f := newRunnerFixture(t, false)
	r := f.runner(config.Frontend{Game: "count.bin"})
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestRunnerRealtime(t *testing.T) {
	f := newRunnerFixture(t, false)
	r := f.runner(config.Frontend{Game: "count.bin", Frames: 3, Realtime: true})
	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	// the first frame gets the reference, the others the measured time
	if f.core.elapsed <= time.Millisecond {
		t.Errorf("elapsed %v", f.core.elapsed)
	}
}

func TestRunnerStates(t *testing.T) {
	f := newRunnerFixture(t, false)
	ctx := context.Background()
	conf := config.Frontend{Game: "/games/count.bin", Frames: 4, Autosave: 2}
	r := f.runner(conf)
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadState(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("load before save: %v", err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	data, err := f.store.Load(ctx, "count.0.state")
	if err != nil || binary.LittleEndian.Uint32(data) != 4 {
		t.Fatalf("autosave %v %v", data, err)
	}

	f.core.frame = 100
	if err := r.LoadState(ctx); err != nil || f.core.frame != 4 {
		t.Errorf("load %v, frame %v", err, f.core.frame)
	}
	if err := f.store.Save(ctx, "count.0.state", []byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := r.LoadState(ctx); !errors.Is(err, ErrState) || f.core.frame != 4 {
		t.Errorf("bad state %v, frame %v", err, f.core.frame)
	}
	if n := testutil.ToFloat64(f.metrics.States.WithLabelValues("save", "ok")); n != 2 {
		t.Errorf("saves %v", n)
	}
	if n := testutil.ToFloat64(f.metrics.States.WithLabelValues("load", "fail")); n != 2 {
		t.Errorf("failed loads %v", n)
	}

	// resumes on start
	g := newRunnerFixture(t, false)
	g.store = f.store
	if err := g.store.Save(ctx, "count.0.state", []byte{9, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	conf.LoadState = true
	if err := g.runner(conf).Start(ctx); err != nil || g.core.frame != 9 {
		t.Errorf("resume %v, frame %v", err, g.core.frame)
	}
}

func TestRunnerNoStates(t *testing.T) {
	f := newRunnerFixture(t, true)
	ctx := context.Background()
	r := f.runner(config.Frontend{Game: "count.bin", Frames: 2, Autosave: 1})
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.SaveState(ctx); !errors.Is(err, ErrNoStates) {
		t.Errorf("save %v", err)
	}
	if err := r.LoadState(ctx); !errors.Is(err, ErrNoStates) {
		t.Errorf("load %v", err)
	}
	if err := r.Close(ctx); err != nil {
		t.Error(err)
	}
}

func TestRunnerSaveOnExit(t *testing.T) {
	f := newRunnerFixture(t, false)
	ctx := context.Background()
	r := f.runner(config.Frontend{Game: "count.bin", Frames: 3, Slot: 2, SaveState: true})
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(ctx); err != nil {
		t.Fatal(err)
	}
	data, err := f.store.Load(ctx, "count.2.state")
	if err != nil || binary.LittleEndian.Uint32(data) != 3 {
		t.Errorf("state %v %v", data, err)
	}
}
