package frontend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giongto35/retrocore/pkg/config"
	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/monitoring"
	"github.com/giongto35/retrocore/pkg/storage"
)

var (
	ErrInit     = errors.New("core init failed")
	ErrLoad     = errors.New("game load failed")
	ErrNoStates = errors.New("core has no savestates")
	ErrState    = errors.New("core refused the state")
)

// Runner plays one game on a Host.
type Runner struct {
	host    *libretro.Host
	fe      *Frontend
	store   storage.Storage
	metrics *monitoring.Metrics
	conf    config.Frontend

	frame int
	last  time.Time
	log   *logger.Logger
}

func NewRunner(host *libretro.Host, fe *Frontend, store storage.Storage, metrics *monitoring.Metrics,
	conf config.Frontend, log *logger.Logger) *Runner {
	if store == nil {
		store = storage.Noop{}
	}
	return &Runner{host: host, fe: fe, store: store, metrics: metrics, conf: conf,
		log: log.Extend(log.With().Str("m", "runner"))}
}

// Start loads the game, gives it the GL context and restores the saved
// state when asked to.
func (r *Runner) Start(ctx context.Context) error {
	if !r.host.Init(r.fe) {
		return ErrInit
	}
	if !r.host.LoadGame(r.conf.Game) {
		if r.metrics != nil {
			r.metrics.LoadFailures.Inc()
		}
		return fmt.Errorf("%w: %v", ErrLoad, r.conf.Game)
	}
	if r.fe.Hw() {
		r.host.ContextReset()
	}
	if r.metrics != nil {
		r.metrics.SavestateBytes.Set(float64(r.host.SerializeSize()))
	}
	if r.conf.LoadState {
		if err := r.LoadState(ctx); err != nil && !errors.Is(err, storage.ErrNotFound) {
			r.log.Warn().Err(err).Msg("Couldn't restore the state")
		}
	}
	return nil
}

// Run plays the configured number of frames, all of them when it is 0,
// until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if r.conf.Realtime {
		if av, ok := r.host.SystemAVInfo(); ok && av.Timing.FPS > 0 {
			t := time.NewTicker(time.Duration(float64(time.Second) / av.Timing.FPS))
			defer t.Stop()
			pace = t.C
		}
	}
	for r.conf.Frames == 0 || r.frame < r.conf.Frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}
		r.Step()
		if r.conf.Autosave > 0 && r.frame%r.conf.Autosave == 0 {
			if err := r.SaveState(ctx); err != nil && !errors.Is(err, ErrNoStates) {
				r.log.Warn().Err(err).Msg("Autosave failed")
			}
		}
	}
	return nil
}

// Step runs one frame.
func (r *Runner) Step() {
	now := time.Now()
	if ref := r.fe.Reference(); ref > 0 {
		d := ref
		if r.conf.Realtime && !r.last.IsZero() {
			d = now.Sub(r.last)
		}
		r.host.FrameTime(d)
	}
	r.last = now

	r.host.Run()
	if r.fe.Async() {
		r.host.AudioCallback()
	}
	r.frame++
	if r.metrics != nil {
		r.metrics.Frame(time.Since(now))
	}
}

func (r *Runner) Frame() int { return r.frame }

func (r *Runner) stateName() string { return storage.StateName(r.conf.Game, r.conf.Slot) }

func (r *Runner) SaveState(ctx context.Context) (err error) {
	defer r.count("save", &err)
	n := r.host.SerializeSize()
	if n == 0 {
		return ErrNoStates
	}
	buf := make([]byte, n)
	if !r.host.Serialize(buf) {
		return ErrState
	}
	if err = r.store.Save(ctx, r.stateName(), buf); err != nil {
		return err
	}
	r.log.Info().Msgf("Saved %v at frame %v", r.stateName(), r.frame)
	return nil
}

func (r *Runner) LoadState(ctx context.Context) (err error) {
	defer r.count("load", &err)
	if r.host.SerializeSize() == 0 {
		return ErrNoStates
	}
	buf, err := r.store.Load(ctx, r.stateName())
	if err != nil {
		return err
	}
	if !r.host.Unserialize(buf) {
		return ErrState
	}
	r.log.Info().Msgf("Loaded %v", r.stateName())
	return nil
}

func (r *Runner) count(op string, err *error) {
	if r.metrics != nil && !errors.Is(*err, ErrNoStates) {
		r.metrics.State(op, *err)
	}
}

// Close saves the state when asked to and unloads the game.
func (r *Runner) Close(ctx context.Context) error {
	if r.host.State() == libretro.Running {
		if r.conf.Autosave > 0 || r.conf.SaveState {
			if err := r.SaveState(ctx); err != nil && !errors.Is(err, ErrNoStates) {
				r.log.Warn().Err(err).Msg("Couldn't save on exit")
			}
		}
		if r.fe.Hw() {
			r.host.ContextDestroy()
		}
		r.host.UnloadGame()
	}
	r.host.Deinit()
	return errors.Join(r.fe.Close(), r.store.Close())
}
