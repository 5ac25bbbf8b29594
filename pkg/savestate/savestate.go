// Package savestate implements the binary savestate format.
//
// A savestate starts with an 8-byte magic and a format version followed
// by a self-describing token stream: every value is preceded by a type
// tag, structs carry their name and field count, fields carry their
// name and index. A decoder can therefore walk a blob without knowing its
// length in advance and reject any layout it doesn't expect.
package savestate

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Magic   = "RTRCSAVE"
	Version = uint32(1)

	// MaxLen caps any length prefix read from a blob so a corrupt
	// savestate can't make the decoder allocate gigabytes.
	MaxLen = 64 << 20
)

type tag byte

const (
	tagStruct tag = 'S'
	tagField  tag = 'F'
	tagU8     tag = 'b'
	tagU16    tag = 'h'
	tagU32    tag = 'w'
	tagU64    tag = 'd'
	tagBool   tag = 'z'
	tagBytes  tag = 'B'
	tagU16s   tag = 'H'
	tagU32s   tag = 'W'
	tagString tag = 's'
	tagSeq    tag = 'q'
	tagOption tag = 'o'
	tagEnum   tag = 'e'
)

func (t tag) String() string {
	switch t {
	case tagStruct:
		return "struct"
	case tagField:
		return "field"
	case tagU8:
		return "u8"
	case tagU16:
		return "u16"
	case tagU32:
		return "u32"
	case tagU64:
		return "u64"
	case tagBool:
		return "bool"
	case tagBytes:
		return "bytes"
	case tagU16s:
		return "[]u16"
	case tagU32s:
		return "[]u32"
	case tagString:
		return "string"
	case tagSeq:
		return "seq"
	case tagOption:
		return "option"
	case tagEnum:
		return "enum"
	}
	return fmt.Sprintf("tag(%#x)", byte(t))
}

var (
	ErrBadMagic   = errors.New("not a savestate")
	ErrVersion    = errors.New("unsupported savestate version")
	ErrMismatch   = errors.New("layout mismatch")
	ErrArity      = errors.New("struct arity mismatch")
	ErrTooLong    = errors.New("length prefix too large")
	ErrOutOfField = errors.New("field outside of a struct")
)

// Error annotates a codec failure with the path of the value being processed,
// e.g. Context.cpu.inter.gpu.load_buffer.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "savestate: " + e.Err.Error()
	}
	return "savestate: " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Encodable is implemented by every persisted component.
type Encodable interface {
	Encode(e *Encoder) error
}

// Decodable restores a component from a Decoder.
type Decodable interface {
	Decode(d *Decoder) error
}

// frame tracks one struct being walked.
type frame struct {
	name     string
	declared int
	seen     int
}

// walker keeps the struct stack and value path shared by both directions.
type walker struct {
	frames []frame
	path   []string
}

func (w *walker) pathString() string { return strings.Join(w.path, ".") }

func (w *walker) fail(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Path: w.pathString(), Err: err}
}

func (w *walker) push(name string, fields int) {
	w.frames = append(w.frames, frame{name: name, declared: fields})
	w.path = append(w.path, name)
}

func (w *walker) pop() frame {
	f := w.frames[len(w.frames)-1]
	w.frames = w.frames[:len(w.frames)-1]
	w.path = w.path[:len(w.path)-1]
	return f
}

func (w *walker) top() *frame {
	if len(w.frames) == 0 {
		return nil
	}
	return &w.frames[len(w.frames)-1]
}

func (w *walker) enterField(name string, idx int) error {
	f := w.top()
	if f == nil {
		return w.fail(fmt.Errorf("%w: %s", ErrOutOfField, name))
	}
	if idx != f.seen || idx >= f.declared {
		return w.fail(fmt.Errorf("%w: field %s has index %d, expected %d of %d",
			ErrArity, name, idx, f.seen, f.declared))
	}
	w.path = append(w.path, name)
	return nil
}

func (w *walker) leaveField() {
	w.path = w.path[:len(w.path)-1]
	w.top().seen++
}

func (w *walker) closeStruct() error {
	f := w.top()
	if f.seen != f.declared {
		err := w.fail(fmt.Errorf("%w: %s has %d fields, %d declared", ErrArity, f.name, f.seen, f.declared))
		w.pop()
		return err
	}
	w.pop()
	return nil
}
