package graphics

import (
	"fmt"
	"unsafe"

	"github.com/giongto35/retrocore/pkg/logger"
	"github.com/go-gl/gl/v2.1/gl"
)

type framebuffer struct {
	tex, fbo, rbo uint32
	w, h          int
	depth         bool
}

func newFramebuffer(procAddr func(string) unsafe.Pointer, w, h int, depth, stencil bool, log *logger.Logger) (framebuffer, error) {
	if err := gl.InitWithProcAddrFunc(procAddr); err != nil {
		return framebuffer{}, fmt.Errorf("gl init: %w", err)
	}
	log.Info().Msgf("[OpenGL] Version: %v", get(gl.VERSION))
	log.Info().Msgf("[OpenGL] Vendor: %v", get(gl.VENDOR))
	log.Info().Msgf("[OpenGL] Renderer: %v", get(gl.RENDERER))

	fb := framebuffer{w: w, h: h, depth: depth}
	gl.GenTextures(1, &fb.tex)
	gl.BindTexture(gl.TEXTURE_2D, fb.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.BGRA, gl.UNSIGNED_INT_8_8_8_8_REV, nil)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.GenFramebuffers(1, &fb.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, fb.tex, 0)

	if depth {
		gl.GenRenderbuffers(1, &fb.rbo)
		gl.BindRenderbuffer(gl.RENDERBUFFER, fb.rbo)
		if stencil {
			gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(w), int32(h))
			gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, fb.rbo)
		} else {
			gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(w), int32(h))
			gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.rbo)
		}
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		e := gl.GetError()
		fb.destroy()
		return framebuffer{}, fmt.Errorf("framebuffer status 0x%X, gl error 0x%X", status, e)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return fb, nil
}

// read returns the bottom-left w x h area with the rows flipped, GL
// counts them from the bottom.
func (fb *framebuffer) read(w, h int) ([]byte, error) {
	if fb.fbo == 0 {
		return nil, fmt.Errorf("no framebuffer")
	}
	if w > fb.w || h > fb.h || w <= 0 || h <= 0 {
		return nil, fmt.Errorf("frame %vx%v outside the %vx%v framebuffer", w, h, fb.w, fb.h)
	}
	data := make([]byte, w*h*4)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.fbo)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.BGRA, gl.UNSIGNED_INT_8_8_8_8_REV, gl.Ptr(&data[0]))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	pitch := w * 4
	tmp := make([]byte, pitch)
	for top, bottom := 0, h-1; top < bottom; top, bottom = top+1, bottom-1 {
		a, b := data[top*pitch:(top+1)*pitch], data[bottom*pitch:(bottom+1)*pitch]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
	return data, nil
}

func (fb *framebuffer) destroy() {
	if fb.depth && fb.rbo != 0 {
		gl.DeleteRenderbuffers(1, &fb.rbo)
	}
	if fb.fbo != 0 {
		gl.DeleteFramebuffers(1, &fb.fbo)
	}
	if fb.tex != 0 {
		gl.DeleteTextures(1, &fb.tex)
	}
	*fb = framebuffer{}
}

func get(name uint32) string { return gl.GoStr(gl.GetString(name)) }
