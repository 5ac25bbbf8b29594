package savestate

import "io"

// Counter is a writer that only counts the bytes written into it.
// Used to size the savestate buffer without keeping the blob around.
type Counter struct {
	N int
}

func (c *Counter) Write(p []byte) (int, error) {
	c.N += len(p)
	return len(p), nil
}

// SliceWriter writes into a fixed, caller-provided buffer.
// Writes past the end fail with io.ErrShortWrite.
type SliceWriter struct {
	buf []byte
	off int
}

func NewSliceWriter(buf []byte) *SliceWriter { return &SliceWriter{buf: buf} }

func (w *SliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf[w.off:], p)
	w.off += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Len returns the number of bytes written so far.
func (w *SliceWriter) Len() int { return w.off }

// Size returns the encoded length of v including the header.
func Size(v Encodable) (int, error) {
	var c Counter
	if err := Save(&c, v); err != nil {
		return 0, err
	}
	return c.N, nil
}

// Save writes the header and v into w.
func Save(w io.Writer, v Encodable) error {
	e, err := NewEncoder(w)
	if err != nil {
		return err
	}
	return v.Encode(e)
}

// Load checks the header in r and decodes v from it.
// Trailing bytes after v are ignored since frontends hand over
// zero-padded buffers of the advertised maximum size.
func Load(r io.Reader, v Decodable) error {
	d, err := NewDecoder(r)
	if err != nil {
		return err
	}
	return v.Decode(d)
}
