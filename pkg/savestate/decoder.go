package savestate

import (
	"errors"
	"fmt"
	"io"
)

// Decoder reads a savestate token stream, checking every tag, struct name,
// field name and arity against what the caller expects.
type Decoder struct {
	walker

	r   io.Reader
	buf [16]byte
}

// NewDecoder checks the savestate header of r.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{r: r}
	if err := d.read(d.buf[:len(Magic)+4]); err != nil {
		return nil, err
	}
	if string(d.buf[:len(Magic)]) != Magic {
		return nil, &Error{Err: ErrBadMagic}
	}
	if v := le.Uint32(d.buf[len(Magic):]); v != Version {
		return nil, &Error{Err: fmt.Errorf("%w: %d", ErrVersion, v)}
	}
	return d, nil
}

func (d *Decoder) read(p []byte) error {
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return d.fail(err)
	}
	return nil
}

func (d *Decoder) expect(want tag) error {
	if err := d.read(d.buf[:1]); err != nil {
		return err
	}
	if got := tag(d.buf[0]); got != want {
		return d.fail(fmt.Errorf("%w: expected %v, got %v", ErrMismatch, want, got))
	}
	return nil
}

func (d *Decoder) u32() (uint32, error) {
	if err := d.read(d.buf[:4]); err != nil {
		return 0, err
	}
	return le.Uint32(d.buf[:4]), nil
}

func (d *Decoder) length() (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	if n > MaxLen {
		return 0, d.fail(fmt.Errorf("%w: %d", ErrTooLong, n))
	}
	return int(n), nil
}

func (d *Decoder) str() (string, error) {
	n, err := d.length()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if err := d.read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Decoder) name(kind, want string) error {
	got, err := d.str()
	if err != nil {
		return err
	}
	if got != want {
		return d.fail(fmt.Errorf("%w: expected %s %s, got %s", ErrMismatch, kind, want, got))
	}
	return nil
}

// Struct reads a struct header named name with exactly `fields` fields
// and runs fn to read them.
func (d *Decoder) Struct(name string, fields int, fn func() error) error {
	if err := d.expect(tagStruct); err != nil {
		return err
	}
	if err := d.name("struct", name); err != nil {
		return err
	}
	n, err := d.u32()
	if err != nil {
		return err
	}
	if int(n) != fields {
		return d.fail(fmt.Errorf("%w: %s has %d fields, expected %d", ErrArity, name, n, fields))
	}
	d.push(name, fields)
	if err := fn(); err != nil {
		d.pop()
		return d.fail(err)
	}
	return d.closeStruct()
}

// Field reads the next field header of the current struct and runs fn
// to read its value.
func (d *Decoder) Field(name string, idx int, fn func() error) error {
	if err := d.enterField(name, idx); err != nil {
		return err
	}
	if err := d.expect(tagField); err != nil {
		return err
	}
	if err := d.name("field", name); err != nil {
		return err
	}
	got, err := d.u32()
	if err != nil {
		return err
	}
	if int(got) != idx {
		return d.fail(fmt.Errorf("%w: field %s at index %d, expected %d", ErrArity, name, got, idx))
	}
	if err := fn(); err != nil {
		return d.fail(err)
	}
	d.leaveField()
	return nil
}

// Value reads a nested Decodable.
func (d *Decoder) Value(v Decodable) error { return v.Decode(d) }

func (d *Decoder) U8() (uint8, error) {
	if err := d.expect(tagU8); err != nil {
		return 0, err
	}
	if err := d.read(d.buf[:1]); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *Decoder) U16() (uint16, error) {
	if err := d.expect(tagU16); err != nil {
		return 0, err
	}
	if err := d.read(d.buf[:2]); err != nil {
		return 0, err
	}
	return le.Uint16(d.buf[:2]), nil
}

func (d *Decoder) U32() (uint32, error) {
	if err := d.expect(tagU32); err != nil {
		return 0, err
	}
	return d.u32()
}

func (d *Decoder) U64() (uint64, error) {
	if err := d.expect(tagU64); err != nil {
		return 0, err
	}
	if err := d.read(d.buf[:8]); err != nil {
		return 0, err
	}
	return le.Uint64(d.buf[:8]), nil
}

func (d *Decoder) Bool() (bool, error) {
	if err := d.expect(tagBool); err != nil {
		return false, err
	}
	if err := d.read(d.buf[:1]); err != nil {
		return false, err
	}
	switch d.buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, d.fail(fmt.Errorf("%w: bad bool %#x", ErrMismatch, d.buf[0]))
}

// Text reads a length-prefixed string.
func (d *Decoder) Text() (string, error) {
	if err := d.expect(tagString); err != nil {
		return "", err
	}
	return d.str()
}

// Bytes reads a length-prefixed byte slice.
func (d *Decoder) Bytes() ([]byte, error) {
	if err := d.expect(tagBytes); err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if err := d.read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// BytesInto reads a byte slice that must have exactly len(dst) bytes.
func (d *Decoder) BytesInto(dst []byte) error {
	if err := d.expect(tagBytes); err != nil {
		return err
	}
	n, err := d.length()
	if err != nil {
		return err
	}
	if n != len(dst) {
		return d.fail(fmt.Errorf("%w: %d bytes, expected %d", ErrMismatch, n, len(dst)))
	}
	return d.read(dst)
}

// U16s reads a length-prefixed halfword slice.
func (d *Decoder) U16s() ([]uint16, error) {
	if err := d.expect(tagU16s); err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	raw := make([]byte, n*2)
	if err := d.read(raw); err != nil {
		return nil, err
	}
	v := make([]uint16, n)
	for i := range v {
		v[i] = le.Uint16(raw[i*2:])
	}
	return v, nil
}

// U32s reads a length-prefixed word slice.
func (d *Decoder) U32s() ([]uint32, error) {
	if err := d.expect(tagU32s); err != nil {
		return nil, err
	}
	n, err := d.length()
	if err != nil {
		return nil, err
	}
	raw := make([]byte, n*4)
	if err := d.read(raw); err != nil {
		return nil, err
	}
	v := make([]uint32, n)
	for i := range v {
		v[i] = le.Uint32(raw[i*4:])
	}
	return v, nil
}

// Seq reads a sequence length and calls fn for every element.
func (d *Decoder) Seq(fn func(n, i int) error) error {
	if err := d.expect(tagSeq); err != nil {
		return err
	}
	n, err := d.length()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(n, i); err != nil {
			return err
		}
	}
	return nil
}

// Option reads a presence flag and runs fn when the value is present.
func (d *Decoder) Option(fn func() error) (bool, error) {
	if err := d.expect(tagOption); err != nil {
		return false, err
	}
	if err := d.read(d.buf[:1]); err != nil {
		return false, err
	}
	switch d.buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, fn()
	}
	return false, d.fail(fmt.Errorf("%w: bad option flag %#x", ErrMismatch, d.buf[0]))
}

// Enum reads a variant of the enum called name. Variants at or above
// count are rejected.
func (d *Decoder) Enum(name string, count uint32) (uint32, error) {
	if err := d.expect(tagEnum); err != nil {
		return 0, err
	}
	if err := d.name("enum", name); err != nil {
		return 0, err
	}
	v, err := d.u32()
	if err != nil {
		return 0, err
	}
	if v >= count {
		return 0, d.fail(fmt.Errorf("%w: %s variant %d out of range", ErrMismatch, name, v))
	}
	return v, nil
}

// Shorthands reading a single primitive field into a destination.

func (d *Decoder) FieldU8(name string, idx int, dst *uint8) error {
	return d.Field(name, idx, func() (err error) { *dst, err = d.U8(); return })
}

func (d *Decoder) FieldU16(name string, idx int, dst *uint16) error {
	return d.Field(name, idx, func() (err error) { *dst, err = d.U16(); return })
}

func (d *Decoder) FieldU32(name string, idx int, dst *uint32) error {
	return d.Field(name, idx, func() (err error) { *dst, err = d.U32(); return })
}

func (d *Decoder) FieldU64(name string, idx int, dst *uint64) error {
	return d.Field(name, idx, func() (err error) { *dst, err = d.U64(); return })
}

func (d *Decoder) FieldBool(name string, idx int, dst *bool) error {
	return d.Field(name, idx, func() (err error) { *dst, err = d.Bool(); return })
}

func (d *Decoder) FieldBytes(name string, idx int, dst []byte) error {
	return d.Field(name, idx, func() error { return d.BytesInto(dst) })
}

func (d *Decoder) FieldValue(name string, idx int, v Decodable) error {
	return d.Field(name, idx, func() error { return v.Decode(d) })
}
