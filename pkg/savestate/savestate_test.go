package savestate

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

type inner struct {
	mode  uint8
	words []uint32
}

func (in *inner) Encode(e *Encoder) error {
	return e.Struct("Inner", 2, func() error {
		if err := e.FieldU8("mode", 0, in.mode); err != nil {
			return err
		}
		return e.Field("words", 1, func() error { return e.U32s(in.words) })
	})
}

func (in *inner) Decode(d *Decoder) error {
	return d.Struct("Inner", 2, func() error {
		if err := d.FieldU8("mode", 0, &in.mode); err != nil {
			return err
		}
		return d.Field("words", 1, func() (err error) { in.words, err = d.U32s(); return })
	})
}

type outer struct {
	pc     uint32
	cycles uint64
	on     bool
	ram    []byte
	halves []uint16
	label  string
	opt    *uint32
	clock  uint32
	in     inner
	list   []uint16
}

func (o *outer) Encode(e *Encoder) error {
	return e.Struct("Outer", 10, func() error {
		if err := e.FieldU32("pc", 0, o.pc); err != nil {
			return err
		}
		if err := e.FieldU64("cycles", 1, o.cycles); err != nil {
			return err
		}
		if err := e.FieldBool("on", 2, o.on); err != nil {
			return err
		}
		if err := e.FieldBytes("ram", 3, o.ram); err != nil {
			return err
		}
		if err := e.Field("halves", 4, func() error { return e.U16s(o.halves) }); err != nil {
			return err
		}
		if err := e.Field("label", 5, func() error { return e.Text(o.label) }); err != nil {
			return err
		}
		if err := e.Field("opt", 6, func() error {
			return e.Option(o.opt != nil, func() error { return e.U32(*o.opt) })
		}); err != nil {
			return err
		}
		if err := e.Field("clock", 7, func() error { return e.Enum("Clock", o.clock) }); err != nil {
			return err
		}
		if err := e.FieldValue("in", 8, &o.in); err != nil {
			return err
		}
		return e.Field("list", 9, func() error {
			return e.Seq(len(o.list), func(i int) error { return e.U16(o.list[i]) })
		})
	})
}

func (o *outer) Decode(d *Decoder) error {
	return d.Struct("Outer", 10, func() error {
		if err := d.FieldU32("pc", 0, &o.pc); err != nil {
			return err
		}
		if err := d.FieldU64("cycles", 1, &o.cycles); err != nil {
			return err
		}
		if err := d.FieldBool("on", 2, &o.on); err != nil {
			return err
		}
		if err := d.FieldBytes("ram", 3, o.ram); err != nil {
			return err
		}
		if err := d.Field("halves", 4, func() (err error) { o.halves, err = d.U16s(); return }); err != nil {
			return err
		}
		if err := d.Field("label", 5, func() (err error) { o.label, err = d.Text(); return }); err != nil {
			return err
		}
		if err := d.Field("opt", 6, func() error {
			o.opt = nil
			_, err := d.Option(func() error {
				v, err := d.U32()
				o.opt = &v
				return err
			})
			return err
		}); err != nil {
			return err
		}
		if err := d.Field("clock", 7, func() (err error) { o.clock, err = d.Enum("Clock", 2); return }); err != nil {
			return err
		}
		if err := d.FieldValue("in", 8, &o.in); err != nil {
			return err
		}
		return d.Field("list", 9, func() error {
			return d.Seq(func(n, i int) error {
				if i == 0 {
					o.list = make([]uint16, n)
				}
				v, err := d.U16()
				o.list[i] = v
				return err
			})
		})
	})
}

func sample() *outer {
	opt := uint32(0x1f000000)
	return &outer{
		pc:     0xbfc00000,
		cycles: 1 << 40,
		on:     true,
		ram:    []byte{1, 2, 3, 4},
		halves: []uint16{0xffff, 0x1234},
		label:  "SLUS-00594",
		opt:    &opt,
		clock:  1,
		in:     inner{mode: 3, words: []uint32{7, 8, 9}},
		list:   []uint16{5, 6},
	}
}

func TestSaveLoad(t *testing.T) {
	src := sample()
	var buf bytes.Buffer
	if err := Save(&buf, src); err != nil {
		t.Fatalf("save: %v", err)
	}
	// frontends pass zero-padded buffers
	buf.Write(make([]byte, 64))

	dst := &outer{ram: make([]byte, 4)}
	if err := Load(&buf, dst); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(src, dst) {
		t.Errorf("got %+v, want %+v", dst, src)
	}
}

func TestSize(t *testing.T) {
	src := sample()
	n, err := Size(src)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Save(&buf, src); err != nil {
		t.Fatal(err)
	}
	if n != buf.Len() {
		t.Errorf("Size = %d, encoded %d bytes", n, buf.Len())
	}
}

func TestSliceWriterShort(t *testing.T) {
	src := sample()
	n, _ := Size(src)

	if err := Save(NewSliceWriter(make([]byte, n)), src); err != nil {
		t.Errorf("exact buffer: %v", err)
	}
	err := Save(NewSliceWriter(make([]byte, n-1)), src)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("short buffer: got %v, want %v", err, io.ErrShortWrite)
	}
}

func TestLoadErrors(t *testing.T) {
	var good bytes.Buffer
	if err := Save(&good, sample()); err != nil {
		t.Fatal(err)
	}
	blob := good.Bytes()

	badVersion := append([]byte(nil), blob...)
	badVersion[len(Magic)] = 9

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "empty", data: nil, want: io.ErrUnexpectedEOF},
		{name: "magic", data: append([]byte("NOTSAVE!"), blob[len(Magic):]...), want: ErrBadMagic},
		{name: "version", data: badVersion, want: ErrVersion},
		{name: "truncated", data: blob[:len(blob)/2], want: io.ErrUnexpectedEOF},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Load(bytes.NewReader(test.data), &outer{ram: make([]byte, 4)})
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}
}

func TestLoadWrongRAMSize(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	err := Load(&buf, &outer{ram: make([]byte, 8)})
	if !errors.Is(err, ErrMismatch) {
		t.Fatalf("got %v, want %v", err, ErrMismatch)
	}
	var se *Error
	if !errors.As(err, &se) || !strings.HasSuffix(se.Path, "ram") {
		t.Errorf("error path %q should point at ram", se.Path)
	}
}

// short encodes one field less than it declares.
type short struct{}

func (short) Encode(e *Encoder) error {
	return e.Struct("Short", 2, func() error { return e.FieldU8("a", 0, 1) })
}

type skipper struct{}

func (skipper) Encode(e *Encoder) error {
	return e.Struct("Skip", 2, func() error { return e.FieldU8("b", 1, 1) })
}

func TestEncodeArity(t *testing.T) {
	for _, v := range []Encodable{short{}, skipper{}} {
		if err := Save(io.Discard, v); !errors.Is(err, ErrArity) {
			t.Errorf("%T: got %v, want %v", v, err, ErrArity)
		}
	}
}

type wide struct{}

func (wide) Decode(d *Decoder) error {
	return d.Struct("Outer", 11, func() error { return nil })
}

func TestDecodeArity(t *testing.T) {
	var buf bytes.Buffer
	if err := Save(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	if err := Load(&buf, wide{}); !errors.Is(err, ErrArity) {
		t.Errorf("got %v, want %v", err, ErrArity)
	}
}
