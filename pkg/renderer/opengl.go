package renderer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/gl/v2.1/gl"
)

// glRenderer draws with the fixed pipeline of a GL 2.1 compatibility
// context provided by the frontend.
type glRenderer struct {
	opts     Options
	textures map[*glTexture]struct{}
	target   *glTexture
	closed   bool
}

type glTexture struct {
	id, fbo uint32
	w, h    int
	mutable bool
	owner   *glRenderer
}

func newGL(opts Options) (*glRenderer, error) {
	if opts.GL.ProcAddress == nil || opts.GL.CurrentFramebuffer == nil {
		return nil, ErrNoGL
	}
	if opts.GL.ProcAddress("glGetString") == nil {
		return nil, ErrNoGL
	}
	// the function table is bound to the current context, reloaded on
	// every context reset
	if err := gl.InitWithProcAddrFunc(opts.GL.ProcAddress); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}
	opts.Log.Info().Msgf("[OpenGL] Version: %v, Renderer: %v",
		gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))
	r := &glRenderer{opts: opts, textures: map[*glTexture]struct{}{}}
	if err := r.SetRenderTarget(nil); err != nil {
		return nil, err
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	return r, nil
}

func (r *glRenderer) Kind() Kind { return OpenGL }

func (r *glRenderer) Clear(c color.RGBA) {
	gl.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (r *glRenderer) Present() error {
	if r.closed {
		return ErrClosed
	}
	gl.Flush()
	if e := gl.GetError(); e != gl.NO_ERROR {
		r.opts.Log.Warn().Msgf("[OpenGL] GL error: 0x%X", e)
	}
	if r.opts.Video != nil {
		r.opts.Video.GLFrameDone(r.opts.Width, r.opts.Height)
	}
	return nil
}

func (r *glRenderer) CreateTexture(w, h int, rgba []byte) (Texture, error) {
	if len(rgba) != w*h*4 {
		return nil, fmt.Errorf("%w: %vx%v with %v bytes", ErrTexture, w, h, len(rgba))
	}
	return r.newTexture(w, h, rgba, false)
}

func (r *glRenderer) CreateTextureMutable(w, h int) (Texture, error) {
	return r.newTexture(w, h, nil, true)
}

func (r *glRenderer) newTexture(w, h int, rgba []byte, mutable bool) (*glTexture, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %vx%v", ErrTexture, w, h)
	}
	t := &glTexture{w: w, h: h, mutable: mutable, owner: r}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	var ptr = gl.Ptr(nil)
	if len(rgba) > 0 {
		ptr = gl.Ptr(&rgba[0])
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	r.textures[t] = struct{}{}
	return t, nil
}

func (r *glRenderer) SetBlendMode(m BlendMode) {
	switch m {
	case BlendNone:
		gl.Disable(gl.BLEND)
		return
	case BlendAlpha:
		gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)
	case BlendAdd:
		gl.BlendFunc(gl.ONE, gl.ONE)
	case BlendMultiply:
		gl.BlendFunc(gl.DST_COLOR, gl.ZERO)
	}
	gl.Enable(gl.BLEND)
}

// SetRenderTarget binds t, or the frontend framebuffer which is looked up
// again every time.
func (r *glRenderer) SetRenderTarget(t Texture) error {
	if r.closed {
		return ErrClosed
	}
	w, h := r.opts.Width, r.opts.Height
	if t == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(r.opts.GL.CurrentFramebuffer()))
		r.target = nil
	} else {
		gt, err := r.texture(t)
		if err != nil {
			return err
		}
		if gt.fbo == 0 {
			gl.GenFramebuffers(1, &gt.fbo)
			gl.BindFramebuffer(gl.FRAMEBUFFER, gt.fbo)
			gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, gt.id, 0)
			if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
				return fmt.Errorf("framebuffer incomplete: 0x%X", status)
			}
		} else {
			gl.BindFramebuffer(gl.FRAMEBUFFER, gt.fbo)
		}
		r.target, w, h = gt, gt.w, gt.h
	}
	gl.Viewport(0, 0, int32(w), int32(h))
	gl.MatrixMode(gl.PROJECTION)
	gl.LoadIdentity()
	gl.Ortho(0, float64(w), float64(h), 0, -1, 1)
	gl.MatrixMode(gl.MODELVIEW)
	gl.LoadIdentity()
	return nil
}

func (r *glRenderer) DrawRect(rect image.Rectangle, c color.RGBA) {
	gl.Color4ub(c.R, c.G, c.B, c.A)
	gl.Begin(gl.QUADS)
	gl.Vertex2i(int32(rect.Min.X), int32(rect.Min.Y))
	gl.Vertex2i(int32(rect.Max.X), int32(rect.Min.Y))
	gl.Vertex2i(int32(rect.Max.X), int32(rect.Max.Y))
	gl.Vertex2i(int32(rect.Min.X), int32(rect.Max.Y))
	gl.End()
}

func (r *glRenderer) SetClipRect(rect *image.Rectangle) {
	if rect == nil {
		gl.Disable(gl.SCISSOR_TEST)
		return
	}
	h := r.opts.Height
	if r.target != nil {
		h = r.target.h
	}
	c := rect.Canon()
	gl.Enable(gl.SCISSOR_TEST)
	// GL counts rows from the bottom
	gl.Scissor(int32(c.Min.X), int32(h-c.Max.Y), int32(c.Dx()), int32(c.Dy()))
}

func (r *glRenderer) DrawTriangleList(v []Vertex, t Texture) error {
	if r.closed {
		return ErrClosed
	}
	if t != nil {
		gt, err := r.texture(t)
		if err != nil {
			return err
		}
		gl.Enable(gl.TEXTURE_2D)
		gl.BindTexture(gl.TEXTURE_2D, gt.id)
		defer func() {
			gl.BindTexture(gl.TEXTURE_2D, 0)
			gl.Disable(gl.TEXTURE_2D)
		}()
	}
	// flat shaded with the first vertex color, like the software path
	gl.Begin(gl.TRIANGLES)
	for i, p := range v[:len(v)/3*3] {
		c := v[i-i%3].Color
		gl.Color4ub(c.R, c.G, c.B, c.A)
		gl.TexCoord2f(p.U, p.V)
		gl.Vertex2f(p.X, p.Y)
	}
	gl.End()
	return nil
}

func (r *glRenderer) texture(t Texture) (*glTexture, error) {
	gt, ok := t.(*glTexture)
	if !ok || gt.owner != r || gt.id == 0 {
		return nil, ErrTexture
	}
	return gt, nil
}

// Close deletes every GL object of the renderer. It has to run while
// the context is still current.
func (r *glRenderer) Close() error {
	if r.closed {
		return ErrClosed
	}
	for t := range r.textures {
		t.Close()
	}
	r.closed = true
	return nil
}

func (t *glTexture) Size() (int, int) { return t.w, t.h }

func (t *glTexture) Update(rgba []byte) error {
	if !t.mutable {
		return ErrImmutable
	}
	if t.id == 0 || len(rgba) != t.w*t.h*4 {
		return ErrTexture
	}
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(t.w), int32(t.h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&rgba[0]))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (t *glTexture) Close() {
	if t.id == 0 {
		return
	}
	if t.fbo != 0 {
		gl.DeleteFramebuffers(1, &t.fbo)
	}
	gl.DeleteTextures(1, &t.id)
	t.id, t.fbo = 0, 0
	delete(t.owner.textures, t)
}
