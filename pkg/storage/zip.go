package storage

import (
	"context"
	"errors"

	"github.com/giongto35/retrocore/pkg/compression/zip"
)

// Zip compresses the states of the wrapped storage. States saved before
// compression was on still load.
type Zip struct {
	Storage
}

func (z Zip) Save(ctx context.Context, name string, data []byte) error {
	b, err := zip.Compress(data, name)
	if err != nil {
		return err
	}
	return z.Storage.Save(ctx, name+zip.Ext, b)
}

func (z Zip) Load(ctx context.Context, name string) ([]byte, error) {
	b, err := z.Storage.Load(ctx, name+zip.Ext)
	if errors.Is(err, ErrNotFound) {
		b, err = z.Storage.Load(ctx, name)
	}
	if err != nil {
		return nil, err
	}
	if !zip.IsZip(b) {
		return b, nil
	}
	data, _, err := zip.Decompress(b)
	return data, err
}
