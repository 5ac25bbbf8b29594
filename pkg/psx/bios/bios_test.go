package bios

import (
	"crypto/sha256"
	"errors"
	"io"
	"testing"

	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/giongto35/retrocore/pkg/psx"
	"github.com/spf13/afero"
)

const sysDir = "/system"

func image(seed byte) *[Size]byte {
	var data [Size]byte
	for i := range data {
		data[i] = byte(i*7) ^ seed
	}
	return &data
}

func hook(v uint32) *uint32 { return &v }

func meta(data *[Size]byte, region psx.Region, jump *uint32) Metadata {
	return Metadata{Version: "test", Region: region, Sha256: sha256.Sum256(data[:]), AnimationJumpHook: jump}
}

// countingFs records every Open call per path.
type countingFs struct {
	afero.Fs
	opens map[string]int
	short map[string]bool
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens[name]++
	f, err := c.Fs.Open(name)
	if err != nil || !c.short[name] {
		return f, err
	}
	return &shortFile{File: f, left: Size / 2}, nil
}

// shortFile runs dry before the end of the image.
type shortFile struct {
	afero.File
	left int
}

func (s *shortFile) Read(p []byte) (int, error) {
	if s.left <= 0 {
		return 0, io.EOF
	}
	if len(p) > s.left {
		p = p[:s.left]
	}
	n, err := s.File.Read(p)
	s.left -= n
	return n, err
}

func newFs(t *testing.T) *countingFs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll(sysDir+"/nested", 0o755); err != nil {
		t.Fatal(err)
	}
	return &countingFs{Fs: fs, opens: map[string]int{}, short: map[string]bool{}}
}

func (c *countingFs) put(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := afero.WriteFile(c.Fs, sysDir+"/"+name, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func newResolver(fs afero.Fs, db *Database) *Resolver {
	return NewResolver(fs, func() (string, bool) { return sysDir, true }, db, logger.Nop())
}

func anyBios(*Metadata) bool { return true }

func TestFindSizeGate(t *testing.T) {
	good := image(1)
	db := &Database{entries: map[Sha256]*Metadata{}}
	db.Add(meta(good, psx.Europe, nil))

	fs := newFs(t)
	fs.put(t, "tiny.bin", make([]byte, 1024))
	fs.put(t, "large.bin", make([]byte, Size+1))
	fs.put(t, "empty.bin", nil)
	fs.put(t, "scph.bin", good[:])

	b, ok := newResolver(fs, db).Find(anyBios)
	if !ok {
		t.Fatal("no bios found")
	}
	if b.Metadata().Region != psx.Europe {
		t.Errorf("wrong bios %v", b.Metadata())
	}
	for _, name := range []string{"tiny.bin", "large.bin", "empty.bin", "nested"} {
		if n := fs.opens[sysDir+"/"+name]; n != 0 {
			t.Errorf("%v opened %d times", name, n)
		}
	}
	if fs.opens[sysDir+"/scph.bin"] != 1 {
		t.Errorf("scph.bin opened %d times", fs.opens[sysDir+"/scph.bin"])
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	data := image(42)
	entry := meta(data, psx.Japan, hook(0x6990))
	db := &Database{entries: map[Sha256]*Metadata{}}
	db.Add(entry)

	b, ok := New(data, db)
	if !ok {
		t.Fatal("image not recognized")
	}
	if b.Metadata().Sha256 != entry.Sha256 {
		t.Errorf("sha256 %v, want %v", b.Metadata().Sha256, entry.Sha256)
	}
	if Sha256(sha256.Sum256(data[:])) != b.Metadata().Sha256 {
		t.Errorf("metadata checksum doesn't match the image")
	}

	if err := b.PatchBootAnimation(); err != nil {
		t.Fatal(err)
	}
	if b.Metadata().Sha256 != entry.Sha256 {
		t.Errorf("patching changed the metadata")
	}

	if _, ok := New(image(43), db); ok {
		t.Errorf("unknown image accepted")
	}
}

func TestFindSkips(t *testing.T) {
	bad, na, eu := image(1), image(2), image(3)

	db := &Database{entries: map[Sha256]*Metadata{}}
	badMeta := meta(bad, psx.Europe, hook(0x10))
	badMeta.KnownBad = true
	db.Add(badMeta)
	db.Add(meta(na, psx.NorthAmerica, nil))
	db.Add(meta(eu, psx.Europe, hook(0x10)))

	tests := []struct {
		name      string
		files     map[string][]byte
		short     []string
		predicate func(*Metadata) bool
		want      *[Size]byte
	}{
		{
			name:      "known bad",
			files:     map[string][]byte{"a.bin": bad[:]},
			predicate: anyBios,
		},
		{
			name:      "rejected by predicate",
			files:     map[string][]byte{"a.bin": na[:]},
			predicate: func(m *Metadata) bool { return m.Region == psx.Europe },
		},
		{
			name:      "unknown content",
			files:     map[string][]byte{"a.bin": image(9)[:]},
			predicate: anyBios,
		},
		{
			name:      "short read",
			files:     map[string][]byte{"a.bin": eu[:]},
			short:     []string{"a.bin"},
			predicate: anyBios,
		},
		{
			name:      "good after bad",
			files:     map[string][]byte{"a.bin": bad[:], "b.bin": na[:], "c.bin": eu[:]},
			predicate: func(m *Metadata) bool { return m.Region == psx.Europe && m.AnimationJumpHook != nil },
			want:      eu,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fs := newFs(t)
			for name, data := range test.files {
				fs.put(t, name, data)
			}
			for _, name := range test.short {
				fs.short[sysDir+"/"+name] = true
			}
			r := newResolver(fs, db)
			r.TieBreak = TieName
			b, ok := r.Find(test.predicate)
			if test.want == nil {
				if ok {
					t.Errorf("unexpected bios %v", b.Metadata())
				}
				return
			}
			if !ok {
				t.Fatal("no bios found")
			}
			if b.Metadata().Sha256 != Sha256(sha256.Sum256(test.want[:])) {
				t.Errorf("wrong bios %v", b.Metadata())
			}
		})
	}
}

func TestFindNoSystemDir(t *testing.T) {
	r := NewResolver(afero.NewMemMapFs(), func() (string, bool) { return "", false }, &Database{}, logger.Nop())
	if _, ok := r.Find(anyBios); ok {
		t.Error("found a bios without a system directory")
	}

	r = NewResolver(afero.NewMemMapFs(), func() (string, bool) { return "/nope", true }, &Database{}, logger.Nop())
	if _, ok := r.Find(anyBios); ok {
		t.Error("found a bios in a missing directory")
	}
}

func TestTieBreak(t *testing.T) {
	first, second := image(10), image(20)
	db := &Database{entries: map[Sha256]*Metadata{}}
	db.Add(meta(first, psx.Japan, nil))
	db.Add(meta(second, psx.Japan, nil))

	fs := newFs(t)
	fs.put(t, "a.bin", first[:])
	fs.put(t, "b.bin", second[:])

	tests := []struct {
		rule      TieBreak
		preferred []string
		want      *[Size]byte
	}{
		{rule: TieName, want: first},
		{rule: TiePreferred, preferred: []string{"b.bin"}, want: second},
		{rule: TiePreferred, preferred: []string{"missing.bin"}, want: first},
	}
	for _, test := range tests {
		r := newResolver(fs, db)
		r.TieBreak, r.Preferred = test.rule, test.preferred
		b, ok := r.Find(anyBios)
		if !ok {
			t.Fatalf("%v: no bios", test.rule)
		}
		if b.Metadata().Sha256 != Sha256(sha256.Sum256(test.want[:])) {
			t.Errorf("%v %v: picked %v", test.rule, test.preferred, b.Metadata())
		}
	}
}

func TestParseTieBreak(t *testing.T) {
	for in, want := range map[string]TieBreak{"": TieFirst, "Name": TieName, " preferred ": TiePreferred} {
		got, err := ParseTieBreak(in)
		if err != nil || got != want {
			t.Errorf("ParseTieBreak(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseTieBreak("random"); err == nil {
		t.Error("expected an error")
	}
}

func TestPatches(t *testing.T) {
	data := image(5)
	db := &Database{entries: map[Sha256]*Metadata{}}
	m := meta(data, psx.NorthAmerica, hook(0x6990))
	m.DebugUARTHook = hook(0x6f34)
	db.Add(m)

	b, _ := New(data, db)
	if err := b.PatchJump(0x1f000000); err != nil {
		t.Fatal(err)
	}
	if got := b.Load32(0x6990); got != 0x0bc00000 {
		t.Errorf("jump = %#08x", got)
	}
	if got := b.Load32(0x6994); got != 0 {
		t.Errorf("delay slot = %#08x", got)
	}
	if err := b.EnableDebugUART(); err != nil {
		t.Fatal(err)
	}
	if got := b.Load32(0x6f34); got != 0x24040001 {
		t.Errorf("uart patch = %#08x", got)
	}

	plain := image(6)
	db.Add(meta(plain, psx.NorthAmerica, nil))
	p, _ := New(plain, db)
	for name, patch := range map[string]func() error{
		"animation": p.PatchBootAnimation,
		"jump":      func() error { return p.PatchJump(0) },
		"uart":      p.EnableDebugUART,
	} {
		if err := patch(); !errors.Is(err, ErrNoHook) {
			t.Errorf("%v: got %v, want %v", name, err, ErrNoHook)
		}
	}
	if string(p.Data()) != string(plain[:]) {
		t.Error("failed patches modified the image")
	}
}

func TestNewDatabase(t *testing.T) {
	sum := Sha256(sha256.Sum256([]byte("x"))).String()
	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{name: "ok", entries: []Entry{{Sha256: sum, Region: "europe", AnimationJumpHook: "0x6990"}}},
		{name: "bad sum", entries: []Entry{{Sha256: "zz", Region: "europe"}}, wantErr: true},
		{name: "bad region", entries: []Entry{{Sha256: sum, Region: "moon"}}, wantErr: true},
		{name: "bad hook", entries: []Entry{{Sha256: sum, Region: "japan", AnimationJumpHook: "0x80000"}}, wantErr: true},
		{name: "duplicate", entries: []Entry{{Sha256: sum, Region: "japan"}, {Sha256: sum, Region: "japan"}}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			db, err := NewDatabase(test.entries)
			if (err != nil) != test.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, test.wantErr)
			}
			if err == nil && db.Len() != len(test.entries) {
				t.Errorf("len %d", db.Len())
			}
		})
	}
}
