package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/giongto35/retrocore/pkg/logger"
	xos "github.com/giongto35/retrocore/pkg/os"
)

const lockName = ".lock"

// Local keeps states as files of a directory. The directory is locked
// during every access so that runners can share it.
type Local struct {
	dir  string
	lock *xos.Flock
	log  *logger.Logger
}

func NewLocal(dir string, log *logger.Logger) (*Local, error) {
	if dir == "" {
		dir = "."
	}
	if err := xos.CheckCreateDir(dir); err != nil {
		return nil, err
	}
	lock, err := xos.NewFileLock(filepath.Join(dir, lockName))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Local{dir: dir, lock: lock, log: log.Extend(log.With().Str("m", "storage"))}, nil
}

func (l *Local) path(name string) string { return filepath.Join(l.dir, filepath.Base(name)) }

func (l *Local) Save(_ context.Context, name string, data []byte) error {
	if err := l.lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = l.lock.Unlock() }()
	if err := xos.WriteFileAtomic(l.path(name), data, 0o644); err != nil {
		return err
	}
	l.log.Debug().Msgf("Saved %v (%v bytes)", name, len(data))
	return nil
}

func (l *Local) Load(_ context.Context, name string) ([]byte, error) {
	if err := l.lock.Lock(); err != nil {
		return nil, err
	}
	defer func() { _ = l.lock.Unlock() }()
	data, err := os.ReadFile(l.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (l *Local) Close() error { return nil }
