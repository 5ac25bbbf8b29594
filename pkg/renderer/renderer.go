// Package renderer is the drawing backend of the cores.
//
// The backends form a closed set (see Kind), all of them behind the
// Renderer interface. A renderer lives inside one GL context (or none for
// Software): it is created on context reset and closed on destroy, its
// textures are never reused across contexts.
package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/logger"
)

type Kind int

const (
	OpenGL Kind = iota
	Software
)

func (k Kind) String() string {
	switch k {
	case OpenGL:
		return "opengl"
	case Software:
		return "software"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type BlendMode int

const (
	BlendNone BlendMode = iota
	BlendAlpha
	BlendAdd
	BlendMultiply
)

var (
	ErrClosed      = errors.New("renderer is closed")
	ErrTexture     = errors.New("bad texture")
	ErrImmutable   = errors.New("texture is immutable")
	ErrNoGL        = errors.New("no GL context")
	ErrUnknownKind = errors.New("unknown renderer")
)

// Vertex of a triangle, in target pixels. U and V are normalized texture
// coordinates.
type Vertex struct {
	X, Y  float32
	U, V  float32
	Color color.RGBA
}

// Texture is an RGBA image owned by a renderer.
type Texture interface {
	Size() (w, h int)
	// Update replaces the pixels (RGBA, w*h*4 bytes), mutable textures only.
	Update(rgba []byte) error
	Close()
}

type Renderer interface {
	Kind() Kind
	Clear(c color.RGBA)
	// Present hands the frame to the frontend.
	Present() error
	CreateTexture(w, h int, rgba []byte) (Texture, error)
	CreateTextureMutable(w, h int) (Texture, error)
	SetBlendMode(m BlendMode)
	// SetRenderTarget redirects drawing into t, nil is the frontend
	// framebuffer.
	SetRenderTarget(t Texture) error
	DrawRect(r image.Rectangle, c color.RGBA)
	// SetClipRect limits drawing to r, nil removes the clip.
	SetClipRect(r *image.Rectangle)
	// DrawTriangleList draws len(v)/3 triangles, textured when t is set.
	DrawTriangleList(v []Vertex, t Texture) error
	Close() error
}

// GLContext is the part of the frontend a GL renderer talks to, captured
// at context reset.
type GLContext struct {
	ProcAddress        func(sym string) unsafe.Pointer
	CurrentFramebuffer func() uintptr
}

// VideoSink receives finished frames.
type VideoSink interface {
	VideoRefresh(frame []byte, width, height, pitch int)
	GLFrameDone(width, height int)
}

type Options struct {
	// Width and Height of the output, in pixels.
	Width, Height int
	GL            GLContext
	Video         VideoSink
	Log           *logger.Logger
}

func New(kind Kind, opts Options) (Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("bad output size %vx%v", opts.Width, opts.Height)
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	opts.Log = opts.Log.Extend(opts.Log.With().Str("m", "renderer"))
	switch kind {
	case OpenGL:
		r, err := newGL(opts)
		if err != nil {
			return nil, err
		}
		return r, nil
	case Software:
		return newSoftware(opts), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// Quad returns the two triangles covering r with the whole texture.
func Quad(r image.Rectangle, c color.RGBA) []Vertex {
	x0, y0, x1, y1 := float32(r.Min.X), float32(r.Min.Y), float32(r.Max.X), float32(r.Max.Y)
	return []Vertex{
		{X: x0, Y: y0, U: 0, V: 0, Color: c},
		{X: x1, Y: y0, U: 1, V: 0, Color: c},
		{X: x0, Y: y1, U: 0, V: 1, Color: c},
		{X: x1, Y: y0, U: 1, V: 0, Color: c},
		{X: x1, Y: y1, U: 1, V: 1, Color: c},
		{X: x0, Y: y1, U: 0, V: 1, Color: c},
	}
}
