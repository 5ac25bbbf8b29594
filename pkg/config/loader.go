package config

import (
	"os"
	"path/filepath"

	"github.com/kkyr/fig"
)

const (
	EnvPrefix = "RETROCORE"
	FileName  = "config.yaml"
)

// LoadConfig loads a configuration file into the given struct and
// returns the path of the file it used.
// The path param is either a directory or a yaml file, empty searches
// the usual places.
// Reads and puts environment variables with the prefix RETROCORE_.
// Params from the config should be in uppercase separated with _.
func LoadConfig(config any, path string) (string, error) {
	name := FileName
	dirs := []string{path}
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		dirs, name = []string{filepath.Dir(path)}, filepath.Base(path)
	}
	if path == "" {
		dirs = append(dirs, ".", "configs", "../../configs")
		if home, err := os.UserHomeDir(); err == nil {
			dirs = append(dirs, filepath.Join(home, ".retrocore"))
		}
	}
	if err := fig.Load(config, fig.File(name), fig.Dirs(dirs...), fig.UseEnv(EnvPrefix)); err != nil {
		return "", err
	}
	return locate(name, dirs), nil
}

func LoadConfigEnv(config any) error {
	return fig.Load(config, fig.IgnoreFile(), fig.UseEnv(EnvPrefix))
}

// locate returns the file fig picked, the first one found.
func locate(name string, dirs []string) string {
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
