// Package storage keeps savestates.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/giongto35/retrocore/pkg/config"
	"github.com/giongto35/retrocore/pkg/logger"
)

var ErrNotFound = errors.New("state not found")

type Storage interface {
	Save(ctx context.Context, name string, data []byte) error
	// Load fails with ErrNotFound when there is no such state.
	Load(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// StateName is the name of a game savestate slot.
func StateName(game string, slot int) string {
	base := strings.TrimSuffix(filepath.Base(game), filepath.Ext(game))
	return fmt.Sprintf("%s.%d.state", base, slot)
}

// New makes the configured storage.
func New(ctx context.Context, conf config.Storage, log *logger.Logger) (Storage, error) {
	var s Storage
	var err error
	switch conf.Backend {
	case "", "local":
		s, err = NewLocal(conf.Dir, log)
	case "gcs":
		s, err = NewGoogleCloudClient(ctx, conf.Bucket, log, gcsOptions(conf.Credentials, conf.Endpoint)...)
	case "none":
		s = Noop{}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", conf.Backend)
	}
	if err != nil {
		return nil, err
	}
	if conf.Zip {
		s = Zip{Storage: s}
	}
	return s, nil
}
