package frontend

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the option values whenever the file at path changes,
// until ctx is done. The directory is watched since editors replace
// files rather than write them.
func (f *Frontend) Watch(ctx context.Context, path string, load func() (map[string]string, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err = w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return err
	}
	name := filepath.Clean(path)
	f.log.Info().Msgf("Watching %v", name)
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != name || e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				values, err := load()
				if err != nil {
					f.log.Warn().Err(err).Msg("Couldn't reload the config")
					continue
				}
				f.SetValues(values)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				f.log.Warn().Err(err).Msg("Config watch")
			}
		}
	}()
	return nil
}
