package bios

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/spf13/afero"
)

// TieBreak decides which candidate wins when several images in the
// system directory satisfy the same predicate.
type TieBreak string

const (
	// TieFirst keeps the order the filesystem lists the directory in.
	TieFirst TieBreak = "first"
	// TieName scans candidates in lexical file name order.
	TieName TieBreak = "name"
	// TiePreferred scans the configured file names first, then the
	// rest in lexical order.
	TiePreferred TieBreak = "preferred"
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch t := TieBreak(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TieFirst, nil
	case TieFirst, TieName, TiePreferred:
		return t, nil
	}
	return "", fmt.Errorf("unknown bios tie-break rule %q", s)
}

// Resolver looks for BIOS images in the frontend system directory.
type Resolver struct {
	Fs afero.Fs
	// SystemDir returns the frontend system directory, false if the
	// frontend didn't provide one.
	SystemDir func() (string, bool)
	DB        *Database
	TieBreak  TieBreak
	Preferred []string

	log *logger.Logger
}

func NewResolver(fs afero.Fs, systemDir func() (string, bool), db *Database, log *logger.Logger) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Resolver{
		Fs:        fs,
		SystemDir: systemDir,
		DB:        db,
		TieBreak:  TieFirst,
		log:       log.Extend(log.With().Str("m", "bios")),
	}
}

// Find returns the first valid BIOS in the system directory accepted by
// the predicate. Bad candidates are skipped, never returned.
func (r *Resolver) Find(predicate func(*Metadata) bool) (*Bios, bool) {
	dir, ok := r.SystemDir()
	if !ok {
		r.log.Error().Msg("The frontend didn't give us a system directory, no BIOS can be loaded")
		return nil, false
	}

	r.log.Info().Msgf("Looking for a suitable BIOS in %v", dir)

	entries, err := r.list(dir)
	if err != nil {
		r.log.Error().Err(err).Msgf("Can't read directory %v", dir)
		return nil, false
	}

	for _, fi := range entries {
		path := filepath.Join(dir, fi.Name())
		switch {
		case !fi.Mode().IsRegular():
			r.log.Debug().Msgf("Ignoring %v: not a file", path)
		case fi.Size() != Size:
			r.log.Debug().Msgf("Ignoring %v: bad size", path)
		default:
			if b := r.try(predicate, path); b != nil {
				return b, true
			}
		}
	}
	return nil, false
}

// FindSha256 looks for the exact image a savestate was made with.
func (r *Resolver) FindSha256(sum Sha256) (*Bios, bool) {
	return r.Find(func(m *Metadata) bool { return m.Sha256 == sum })
}

func (r *Resolver) list(dir string) ([]os.FileInfo, error) {
	d, err := r.Fs.Open(dir)
	if err != nil {
		return nil, err
	}
	defer func() { _ = d.Close() }()

	entries, err := d.Readdir(-1)
	if err != nil {
		return nil, err
	}

	switch r.TieBreak {
	case TieName:
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	case TiePreferred:
		rank := make(map[string]int, len(r.Preferred))
		for i, name := range r.Preferred {
			rank[name] = i
		}
		sort.SliceStable(entries, func(i, j int) bool {
			ri, iok := rank[entries[i].Name()]
			rj, jok := rank[entries[j].Name()]
			switch {
			case iok && jok:
				return ri < rj
			case iok != jok:
				return iok
			}
			return entries[i].Name() < entries[j].Name()
		})
	}
	return entries, nil
}

func (r *Resolver) try(predicate func(*Metadata) bool, path string) *Bios {
	f, err := r.Fs.Open(path)
	if err != nil {
		r.log.Warn().Err(err).Msgf("Can't open %v", path)
		return nil
	}
	defer func() { _ = f.Close() }()

	var data [Size]byte
	if err := readFull(f, data[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			r.log.Warn().Msgf("Short read while loading %v", path)
		} else {
			r.log.Warn().Err(err).Msgf("Error while reading %v", path)
		}
		return nil
	}

	b, ok := New(&data, r.DB)
	if !ok {
		r.log.Debug().Msgf("Ignoring %v: not a known PlayStation BIOS", path)
		return nil
	}

	md := b.Metadata()
	r.log.Info().Msgf("Found BIOS DB entry for %v: %v", path, md)

	switch {
	case md.KnownBad:
		r.log.Warn().Msgf("Ignoring %v: known bad dump", path)
		return nil
	case !predicate(md):
		r.log.Info().Msgf("Ignoring %v: rejected by predicate", path)
		return nil
	}
	r.log.Info().Msgf("Using BIOS %v (%v)", path, md)
	return b
}

// readFull keeps reading until buf is full. A reader running dry early
// gives io.ErrUnexpectedEOF.
func readFull(r io.Reader, buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := r.Read(buf[n:])
		n += m
		if n == len(buf) {
			return nil
		}
		if err == io.EOF || (err == nil && m == 0) {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
	}
	return nil
}
