package savestate

import (
	"encoding/binary"
	"io"
)

var le = binary.LittleEndian

// Encoder writes a savestate token stream.
type Encoder struct {
	walker

	w   io.Writer
	buf [16]byte
}

// NewEncoder writes the savestate header into w.
func NewEncoder(w io.Writer) (*Encoder, error) {
	e := &Encoder{w: w}
	if _, err := io.WriteString(w, Magic); err != nil {
		return nil, &Error{Err: err}
	}
	le.PutUint32(e.buf[:4], Version)
	if _, err := w.Write(e.buf[:4]); err != nil {
		return nil, &Error{Err: err}
	}
	return e, nil
}

func (e *Encoder) write(p []byte) error {
	if _, err := e.w.Write(p); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *Encoder) tag(t tag) error {
	e.buf[0] = byte(t)
	return e.write(e.buf[:1])
}

func (e *Encoder) u32(v uint32) error {
	le.PutUint32(e.buf[:4], v)
	return e.write(e.buf[:4])
}

func (e *Encoder) str(s string) error {
	if err := e.u32(uint32(len(s))); err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, s); err != nil {
		return e.fail(err)
	}
	return nil
}

// Struct emits a struct header and runs fn to emit its fields.
// Exactly `fields` fields must be emitted.
func (e *Encoder) Struct(name string, fields int, fn func() error) error {
	if err := e.tag(tagStruct); err != nil {
		return err
	}
	if err := e.str(name); err != nil {
		return err
	}
	if err := e.u32(uint32(fields)); err != nil {
		return err
	}
	e.push(name, fields)
	if err := fn(); err != nil {
		e.pop()
		return e.fail(err)
	}
	return e.closeStruct()
}

// Field emits the field header for the current struct and runs fn to
// emit the value. Fields must be emitted in index order.
func (e *Encoder) Field(name string, idx int, fn func() error) error {
	if err := e.enterField(name, idx); err != nil {
		return err
	}
	if err := e.tag(tagField); err != nil {
		return err
	}
	if err := e.str(name); err != nil {
		return err
	}
	if err := e.u32(uint32(idx)); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return e.fail(err)
	}
	e.leaveField()
	return nil
}

// Value emits a nested Encodable.
func (e *Encoder) Value(v Encodable) error { return v.Encode(e) }

func (e *Encoder) U8(v uint8) error {
	e.buf[0], e.buf[1] = byte(tagU8), v
	return e.write(e.buf[:2])
}

func (e *Encoder) U16(v uint16) error {
	e.buf[0] = byte(tagU16)
	le.PutUint16(e.buf[1:3], v)
	return e.write(e.buf[:3])
}

func (e *Encoder) U32(v uint32) error {
	e.buf[0] = byte(tagU32)
	le.PutUint32(e.buf[1:5], v)
	return e.write(e.buf[:5])
}

func (e *Encoder) U64(v uint64) error {
	e.buf[0] = byte(tagU64)
	le.PutUint64(e.buf[1:9], v)
	return e.write(e.buf[:9])
}

func (e *Encoder) Bool(v bool) error {
	e.buf[0], e.buf[1] = byte(tagBool), 0
	if v {
		e.buf[1] = 1
	}
	return e.write(e.buf[:2])
}

// Text emits a length-prefixed string.
func (e *Encoder) Text(v string) error {
	if err := e.tag(tagString); err != nil {
		return err
	}
	return e.str(v)
}

// Bytes emits a length-prefixed byte slice.
func (e *Encoder) Bytes(v []byte) error {
	if err := e.tag(tagBytes); err != nil {
		return err
	}
	if err := e.u32(uint32(len(v))); err != nil {
		return err
	}
	return e.write(v)
}

// U16s emits a length-prefixed halfword slice.
func (e *Encoder) U16s(v []uint16) error {
	if err := e.tag(tagU16s); err != nil {
		return err
	}
	if err := e.u32(uint32(len(v))); err != nil {
		return err
	}
	for _, x := range v {
		le.PutUint16(e.buf[:2], x)
		if err := e.write(e.buf[:2]); err != nil {
			return err
		}
	}
	return nil
}

// U32s emits a length-prefixed word slice.
func (e *Encoder) U32s(v []uint32) error {
	if err := e.tag(tagU32s); err != nil {
		return err
	}
	if err := e.u32(uint32(len(v))); err != nil {
		return err
	}
	for _, x := range v {
		le.PutUint32(e.buf[:4], x)
		if err := e.write(e.buf[:4]); err != nil {
			return err
		}
	}
	return nil
}

// Seq emits n elements, fn is called for each index.
func (e *Encoder) Seq(n int, fn func(i int) error) error {
	if err := e.tag(tagSeq); err != nil {
		return err
	}
	if err := e.u32(uint32(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			return err
		}
	}
	return nil
}

// Option emits a presence flag and, when present, the value.
func (e *Encoder) Option(present bool, fn func() error) error {
	e.buf[0], e.buf[1] = byte(tagOption), 0
	if present {
		e.buf[1] = 1
	}
	if err := e.write(e.buf[:2]); err != nil {
		return err
	}
	if !present {
		return nil
	}
	return fn()
}

// Enum emits a named enum variant.
func (e *Encoder) Enum(name string, variant uint32) error {
	if err := e.tag(tagEnum); err != nil {
		return err
	}
	if err := e.str(name); err != nil {
		return err
	}
	return e.u32(variant)
}

// Shorthands emitting a single primitive field.

func (e *Encoder) FieldU8(name string, idx int, v uint8) error {
	return e.Field(name, idx, func() error { return e.U8(v) })
}

func (e *Encoder) FieldU16(name string, idx int, v uint16) error {
	return e.Field(name, idx, func() error { return e.U16(v) })
}

func (e *Encoder) FieldU32(name string, idx int, v uint32) error {
	return e.Field(name, idx, func() error { return e.U32(v) })
}

func (e *Encoder) FieldU64(name string, idx int, v uint64) error {
	return e.Field(name, idx, func() error { return e.U64(v) })
}

func (e *Encoder) FieldBool(name string, idx int, v bool) error {
	return e.Field(name, idx, func() error { return e.Bool(v) })
}

func (e *Encoder) FieldBytes(name string, idx int, v []byte) error {
	return e.Field(name, idx, func() error { return e.Bytes(v) })
}

func (e *Encoder) FieldValue(name string, idx int, v Encodable) error {
	return e.Field(name, idx, func() error { return v.Encode(e) })
}
