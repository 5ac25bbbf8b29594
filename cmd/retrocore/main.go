package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"

	"github.com/giongto35/retrocore/pkg/config"
	"github.com/giongto35/retrocore/pkg/core/engine"
	"github.com/giongto35/retrocore/pkg/core/psx"
	"github.com/giongto35/retrocore/pkg/frontend"
	"github.com/giongto35/retrocore/pkg/frontend/graphics"
	"github.com/giongto35/retrocore/pkg/libretro"
	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/monitoring"
	xos "github.com/giongto35/retrocore/pkg/os"
	"github.com/giongto35/retrocore/pkg/psx/bios"
	"github.com/giongto35/retrocore/pkg/storage"
	"github.com/giongto35/retrocore/pkg/thread"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"
)

var Version = "?"

func main() {
	thread.MainWrapMaybe(func() {
		if err := run(os.Args); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	})
}

func run(args []string) error {
	conf, path, err := loadConfig(args)
	if err != nil {
		return err
	}

	var log *logger.Logger
	if conf.Log.Console {
		log = logger.NewConsole(conf.Log.Debug, "rc", conf.Log.NoColor)
	} else {
		log = logger.New(conf.Log.Debug)
	}
	log.Info().Msgf("version %s", Version)
	if path != "" {
		log.Info().Msgf("config: %v", path)
	}
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	reg := monitoring.NewRegistry()
	metrics := monitoring.NewMetrics(reg, conf.Core.Name)
	if conf.Monitoring.IsEnabled() {
		mon := monitoring.New(conf.Monitoring, reg, log)
		if err := mon.Run(); err != nil {
			return fmt.Errorf("monitoring: %w", err)
		}
		defer func() {
			if err := mon.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("monitoring shutdown")
			}
		}()
	}

	def, err := definition(conf.Core, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-xos.ExpectTermination()
		log.Info().Msg("Shutting down")
		cancel()
	}()

	store, err := storage.New(ctx, conf.Storage, log)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	fe := frontend.New(frontend.Options{
		SystemDir: conf.Core.SystemDir,
		SaveDir:   conf.Core.SaveDir,
		Values:    conf.Core.Options,
		Hw:        conf.Frontend.Hw,
		NewGL:     glFactory(conf.Frontend, log),
		Metrics:   metrics,
		Log:       log,
	})
	r := frontend.NewRunner(libretro.NewHost(def, log), fe, store, metrics, conf.Frontend, log)
	defer func() {
		if err := r.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("close")
		}
	}()

	if err := r.Start(ctx); err != nil {
		return err
	}
	if conf.Frontend.WatchConfig && path != "" {
		if err := fe.Watch(ctx, path, reloadOptions(path)); err != nil {
			log.Warn().Err(err).Msg("No config watch")
		}
	}
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msgf("Stopped after %v frames", r.Frame())

	if conf.Frontend.Screenshot != "" {
		if err := screenshot(fe, conf.Frontend.Screenshot); err != nil {
			log.Warn().Err(err).Msg("No screenshot")
		}
	}
	return nil
}

// loadConfig reads the config file then lets the command line override
// it. No config file is fine, the defaults and the env are used then.
func loadConfig(args []string) (conf config.Config, path string, err error) {
	pre := flag.NewFlagSet(args[0], flag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	file := pre.StringP("config", "c", "", "Config file or the directory it is in")
	_ = pre.Parse(args[1:])

	if path, err = config.LoadConfig(&conf, *file); err != nil {
		if *file != "" {
			return conf, "", err
		}
		path = ""
		if err = config.LoadConfigEnv(&conf); err != nil {
			return conf, "", err
		}
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.StringP("config", "c", *file, "Config file or the directory it is in")
	conf.WithFlags(fs)
	if err = fs.Parse(args[1:]); err != nil {
		return conf, "", err
	}
	return conf, path, nil
}

func definition(conf config.Core, log *logger.Logger) (libretro.Definition, error) {
	fs := afero.NewOsFs()
	switch conf.Name {
	case "psx":
		db, err := bios.NewDatabase(conf.Bios.Database)
		if err != nil {
			return libretro.Definition{}, fmt.Errorf("bios database: %w", err)
		}
		log.Info().Msgf("BIOS database: %v images", db.Len())
		tb, err := bios.ParseTieBreak(conf.Bios.TieBreak)
		if err != nil {
			return libretro.Definition{}, err
		}
		return psx.Definition(psx.Options{Fs: fs, DB: db, TieBreak: tb, Preferred: conf.Bios.Preferred}), nil
	case "engine":
		return engine.Definition(engine.Options{Fs: fs, Engine: engine.NewDemo}), nil
	}
	return libretro.Definition{}, fmt.Errorf("unknown core %q", conf.Name)
}

func glFactory(conf config.Frontend, log *logger.Logger) frontend.GLFactory {
	return func(hw libretro.HwRender) (frontend.GL, error) {
		ctx, err := graphics.New(graphics.Config{
			Ctx:          hw.Type,
			VersionMajor: hw.VersionMajor,
			VersionMinor: hw.VersionMinor,
			Depth:        hw.Depth,
			Stencil:      hw.Stencil,
			W:            conf.Width,
			H:            conf.Height,
			Log:          log,
		})
		if err != nil {
			return nil, err
		}
		return ctx, nil
	}
}

func reloadOptions(path string) func() (map[string]string, error) {
	return func() (map[string]string, error) {
		var conf config.Config
		if _, err := config.LoadConfig(&conf, path); err != nil {
			return nil, err
		}
		return conf.Core.Options, nil
	}
}

func screenshot(fe *frontend.Frontend, name string) error {
	img, err := fe.Screenshot()
	if err != nil {
		return err
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err = png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
