package bios

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/giongto35/retrocore/pkg/psx"
)

// Entry is a BIOS database record as it appears in the configuration.
// Hooks are hex or decimal BIOS offsets, empty when unknown.
type Entry struct {
	Sha256            string
	Region            string
	Version           string
	KnownBad          bool
	AnimationJumpHook string
	DebugUartHook     string
}

// Database maps image checksums to their metadata.
type Database struct {
	entries map[Sha256]*Metadata
}

// NewDatabase builds a database out of configuration records.
func NewDatabase(entries []Entry) (*Database, error) {
	db := &Database{entries: make(map[Sha256]*Metadata, len(entries))}
	for i, e := range entries {
		m, err := e.metadata()
		if err != nil {
			return nil, fmt.Errorf("bios db entry %d: %w", i, err)
		}
		if _, dup := db.entries[m.Sha256]; dup {
			return nil, fmt.Errorf("bios db entry %d: duplicate sha256 %s", i, m.Sha256)
		}
		db.entries[m.Sha256] = m
	}
	return db, nil
}

// Add registers m, replacing any entry with the same checksum.
func (db *Database) Add(m Metadata) { db.entries[m.Sha256] = &m }

// Lookup returns the metadata of a checksum.
func (db *Database) Lookup(sum Sha256) (*Metadata, bool) {
	if db == nil {
		return nil, false
	}
	m, ok := db.entries[sum]
	return m, ok
}

func (db *Database) Len() int { return len(db.entries) }

func (e Entry) metadata() (*Metadata, error) {
	sum, err := ParseSha256(strings.TrimSpace(e.Sha256))
	if err != nil {
		return nil, err
	}
	region, err := psx.ParseRegion(e.Region)
	if err != nil {
		return nil, err
	}
	m := &Metadata{Version: e.Version, Region: region, Sha256: sum, KnownBad: e.KnownBad}
	if m.AnimationJumpHook, err = parseHook(e.AnimationJumpHook); err != nil {
		return nil, fmt.Errorf("animation jump hook: %w", err)
	}
	if m.DebugUARTHook, err = parseHook(e.DebugUartHook); err != nil {
		return nil, fmt.Errorf("debug uart hook: %w", err)
	}
	return m, nil
}

func parseHook(s string) (*uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return nil, err
	}
	// patches write two words
	if v%4 != 0 || v+8 > Size {
		return nil, fmt.Errorf("offset %#x outside of the image", v)
	}
	hook := uint32(v)
	return &hook, nil
}
