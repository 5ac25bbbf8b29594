package renderer

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Text draws s with its top left corner at pt using the 7x13 bitmap
// face. Blending is left in alpha mode.
func Text(r Renderer, pt image.Point, s string, c color.RGBA) error {
	face := basicfont.Face7x13
	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return nil
	}
	m := face.Metrics()
	h := m.Height.Ceil()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: img, Src: image.NewUniform(c), Face: face, Dot: fixed.P(0, m.Ascent.Ceil())}
	d.DrawString(s)

	t, err := r.CreateTexture(w, h, img.Pix)
	if err != nil {
		return err
	}
	defer t.Close()
	r.SetBlendMode(BlendAlpha)
	return r.DrawTriangleList(Quad(image.Rect(pt.X, pt.Y, pt.X+w, pt.Y+h), color.RGBA{R: 255, G: 255, B: 255, A: 255}), t)
}
