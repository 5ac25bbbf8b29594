package config

import (
	"github.com/giongto35/retrocore/pkg/psx/bios"
	"github.com/spf13/pflag"
)

type Config struct {
	Core       Core
	Frontend   Frontend
	Storage    Storage
	Monitoring Monitoring
	Log        Log
}

type Core struct {
	// Name of the core: psx or engine.
	Name      string `default:"psx"`
	SystemDir string
	SaveDir   string
	Bios      Bios
	// Options are core option values keyed by the full option name
	// (rustation_internal_upscale_factor).
	Options map[string]string
}

type Bios struct {
	// TieBreak is first, name or preferred.
	TieBreak  string `default:"name"`
	Preferred []string
	Database  []bios.Entry
}

type Frontend struct {
	Game string
	// Frames to run, 0 runs until interrupted.
	Frames   int
	Realtime bool
	// Hw allows the OpenGL context, the headless SDL one.
	Hw     bool
	Width  int `default:"1680"`
	Height int `default:"960"`
	// Autosave saves the state every N frames, 0 disables it.
	Autosave  int
	Slot      int
	LoadState bool
	// SaveState saves the state on exit.
	SaveState bool
	// Screenshot is a PNG file the last frame is written to on exit.
	Screenshot  string
	WatchConfig bool
}

type Storage struct {
	// Backend is local, gcs or none.
	Backend string `default:"local"`
	Dir     string `default:"saves"`
	Bucket  string
	// Credentials is a service account key file for gcs, the default
	// credentials are used without it.
	Credentials string
	// Endpoint overrides the gcs API endpoint.
	Endpoint string
	Zip      bool
}

type Monitoring struct {
	Port             int `default:"6601"`
	URLPrefix        string
	MetricEnabled    bool
	ProfilingEnabled bool
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

type Log struct {
	Debug   bool
	Console bool
	NoColor bool
}

// WithFlags binds the command line switches over the loaded values.
func (c *Config) WithFlags(fs *pflag.FlagSet) *Config {
	fs.StringVar(&c.Core.Name, "core", c.Core.Name, "Core to run (psx, engine)")
	fs.StringVar(&c.Core.SystemDir, "system", c.Core.SystemDir, "Directory with the BIOS images")
	fs.StringVar(&c.Core.SaveDir, "save", c.Core.SaveDir, "Directory the core keeps its saves in")
	fs.StringVarP(&c.Frontend.Game, "game", "g", c.Frontend.Game, "Game to load")
	fs.IntVar(&c.Frontend.Frames, "frames", c.Frontend.Frames, "Frames to run, 0 runs until interrupted")
	fs.BoolVar(&c.Frontend.Realtime, "realtime", c.Frontend.Realtime, "Run at the core frame rate")
	fs.BoolVar(&c.Frontend.Hw, "hw", c.Frontend.Hw, "Allow the OpenGL context")
	fs.IntVar(&c.Frontend.Autosave, "autosave", c.Frontend.Autosave, "Save the state every N frames")
	fs.IntVar(&c.Frontend.Slot, "slot", c.Frontend.Slot, "Savestate slot")
	fs.BoolVar(&c.Frontend.LoadState, "load-state", c.Frontend.LoadState, "Load the saved state after boot")
	fs.BoolVar(&c.Frontend.SaveState, "save-state", c.Frontend.SaveState, "Save the state on exit")
	fs.StringVar(&c.Frontend.Screenshot, "screenshot", c.Frontend.Screenshot, "Write the last frame to a PNG file")
	fs.BoolVar(&c.Frontend.WatchConfig, "watch", c.Frontend.WatchConfig, "Reload the core options when the config file changes")
	fs.StringVar(&c.Storage.Backend, "storage", c.Storage.Backend, "Savestate storage (local, gcs, none)")
	fs.IntVar(&c.Monitoring.Port, "monitoring.port", c.Monitoring.Port, "Monitoring server port")
	fs.BoolVar(&c.Log.Debug, "debug", c.Log.Debug, "Debug logging")
	return c
}
