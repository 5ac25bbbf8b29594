package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/giongto35/retrocore/pkg/compression/zip"
	"github.com/giongto35/retrocore/pkg/config"
	"github.com/giongto35/retrocore/pkg/logger"
)

func TestStateName(t *testing.T) {
	tests := []struct {
		game string
		slot int
		want string
	}{
		{"/games/Crash Bandicoot (USA).cue", 0, "Crash Bandicoot (USA).0.state"},
		{"demo.exe", 3, "demo.3.state"},
		{"/games/drs", 1, "drs.1.state"},
	}
	for _, tt := range tests {
		if got := StateName(tt.game, tt.slot); got != tt.want {
			t.Errorf("StateName(%q, %v) = %q, want %q", tt.game, tt.slot, got, tt.want)
		}
	}
}

func TestStorage(t *testing.T) {
	ctx := context.Background()
	data := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 1024)

	tests := []struct {
		name string
		conf config.Storage
		file string
	}{
		{name: "local", conf: config.Storage{Backend: "local"}, file: "game.0.state"},
		{name: "default", conf: config.Storage{}, file: "game.0.state"},
		{name: "zip", conf: config.Storage{Backend: "local", Zip: true}, file: "game.0.state.zip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.conf.Dir = filepath.Join(t.TempDir(), "saves")
			s, err := New(ctx, tt.conf, logger.Nop())
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			if _, err := s.Load(ctx, "game.0.state"); !errors.Is(err, ErrNotFound) {
				t.Errorf("empty load err = %v", err)
			}
			if err := s.Save(ctx, "game.0.state", data); err != nil {
				t.Fatal(err)
			}
			got, err := s.Load(ctx, "game.0.state")
			if err != nil || !bytes.Equal(got, data) {
				t.Errorf("load %v bytes, %v", len(got), err)
			}
			raw, err := os.ReadFile(filepath.Join(tt.conf.Dir, tt.file))
			if err != nil {
				t.Fatal(err)
			}
			if zip.IsZip(raw) != tt.conf.Zip {
				t.Errorf("stored zip %v", zip.IsZip(raw))
			}
		})
	}
}

func TestZipReadsPlainStates(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Save(ctx, "old.state", []byte("RTRCSAVE")); err != nil {
		t.Fatal(err)
	}
	got, err := Zip{Storage: l}.Load(ctx, "old.state")
	if err != nil || string(got) != "RTRCSAVE" {
		t.Errorf("load %q, %v", got, err)
	}
}

func TestLocalKeepsToItsDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	l, err := NewLocal(filepath.Join(dir, "saves"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Save(ctx, "../escape.state", []byte{1}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.state")); err == nil {
		t.Error("wrote outside the storage dir")
	}
	if _, err := l.Load(ctx, "escape.state"); err != nil {
		t.Error(err)
	}
}

func TestNewBackends(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, config.Storage{Backend: "none"}, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "x", []byte{1}); err != nil {
		t.Error(err)
	}
	if _, err := s.Load(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("noop load err = %v", err)
	}
	if _, err := New(ctx, config.Storage{Backend: "floppy"}, logger.Nop()); err == nil {
		t.Error("unknown backend accepted")
	}
}

func TestGoogleCloud(t *testing.T) {
	bucket := os.Getenv("RETROCORE_TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("Cloud storage is not configured")
	}
	ctx := context.Background()
	c, err := NewGoogleCloudClient(ctx, bucket, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	data := []byte("Test Hello")
	if err := c.Save(ctx, "retrocore-test.state", data); err != nil {
		t.Fatal(err)
	}
	got, err := c.Load(ctx, "retrocore-test.state")
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("load %q, %v", got, err)
	}
	if _, err := c.Load(ctx, "retrocore-missing.state"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestGoogleCloudOptions(t *testing.T) {
	tests := []struct {
		name        string
		credentials string
		endpoint    string
		want        int
	}{
		{name: "default"},
		{name: "key file", credentials: "/keys/sa.json", want: 1},
		{name: "emulator", endpoint: "http://localhost:4443/storage/v1/", want: 2},
		{name: "remote endpoint", credentials: "/keys/sa.json", endpoint: "https://storage.example.com/", want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gcsOptions(tt.credentials, tt.endpoint); len(got) != tt.want {
				t.Errorf("%v options, want %v", len(got), tt.want)
			}
		})
	}

	c, err := NewGoogleCloudClient(context.Background(), "", logger.Nop(), gcsOptions("", "http://localhost:4443/storage/v1/")...)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Error(err)
	}
}
