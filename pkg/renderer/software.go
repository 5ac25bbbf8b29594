package renderer

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// software draws into an RGBA canvas and submits XRGB8888 frames.
type software struct {
	opts   Options
	screen *image.RGBA
	target *image.RGBA
	clip   *image.Rectangle
	blend  BlendMode
	out    []byte
	closed bool
}

type softTexture struct {
	img     *image.RGBA
	mutable bool
	owner   *software
	closed  bool
}

func newSoftware(opts Options) *software {
	screen := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	return &software{
		opts:   opts,
		screen: screen,
		target: screen,
		out:    make([]byte, opts.Width*opts.Height*4),
	}
}

func (s *software) Kind() Kind { return Software }

func (s *software) Clear(c color.RGBA) {
	draw.Draw(s.target, s.bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Present converts the canvas to XRGB8888, little endian.
func (s *software) Present() error {
	if s.closed {
		return ErrClosed
	}
	pix := s.screen.Pix
	for i := 0; i < len(pix); i += 4 {
		s.out[i], s.out[i+1], s.out[i+2], s.out[i+3] = pix[i+2], pix[i+1], pix[i], 0
	}
	if s.opts.Video != nil {
		s.opts.Video.VideoRefresh(s.out, s.opts.Width, s.opts.Height, s.opts.Width*4)
	}
	return nil
}

func (s *software) CreateTexture(w, h int, rgba []byte) (Texture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if w <= 0 || h <= 0 || len(rgba) != w*h*4 {
		return nil, fmt.Errorf("%w: %vx%v with %v bytes", ErrTexture, w, h, len(rgba))
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, rgba)
	return &softTexture{img: img, owner: s}, nil
}

func (s *software) CreateTextureMutable(w, h int) (Texture, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %vx%v", ErrTexture, w, h)
	}
	return &softTexture{img: image.NewRGBA(image.Rect(0, 0, w, h)), mutable: true, owner: s}, nil
}

func (s *software) SetBlendMode(m BlendMode) { s.blend = m }

func (s *software) SetRenderTarget(t Texture) error {
	if t == nil {
		s.target = s.screen
		return nil
	}
	st, err := s.texture(t)
	if err != nil {
		return err
	}
	s.target = st.img
	return nil
}

func (s *software) DrawRect(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(s.bounds())
	switch s.blend {
	case BlendNone:
		draw.Draw(s.target, r, image.NewUniform(c), image.Point{}, draw.Src)
	case BlendAlpha:
		draw.Draw(s.target, r, image.NewUniform(c), image.Point{}, draw.Over)
	default:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				s.plot(x, y, c)
			}
		}
	}
}

func (s *software) SetClipRect(r *image.Rectangle) {
	if r == nil {
		s.clip = nil
		return
	}
	c := r.Canon()
	s.clip = &c
}

// DrawTriangleList fills the triangles flat shaded with the color of
// their first vertex, textures are sampled nearest and modulated by it.
func (s *software) DrawTriangleList(v []Vertex, t Texture) error {
	if s.closed {
		return ErrClosed
	}
	var tex *image.RGBA
	if t != nil {
		st, err := s.texture(t)
		if err != nil {
			return err
		}
		tex = st.img
	}
	for i := 0; i+2 < len(v); i += 3 {
		s.triangle(v[i], v[i+1], v[i+2], tex)
	}
	return nil
}

func (s *software) triangle(a, b, c Vertex, tex *image.RGBA) {
	area := edge(a, b, c.X, c.Y)
	if area == 0 {
		return
	}
	box := image.Rect(
		int(min3(a.X, b.X, c.X)), int(min3(a.Y, b.Y, c.Y)),
		int(max3(a.X, b.X, c.X))+1, int(max3(a.Y, b.Y, c.Y))+1,
	).Intersect(s.bounds())

	for y := box.Min.Y; y < box.Max.Y; y++ {
		py := float32(y) + 0.5
		for x := box.Min.X; x < box.Max.X; x++ {
			px := float32(x) + 0.5
			w0, w1, w2 := edge(b, c, px, py)/area, edge(c, a, px, py)/area, edge(a, b, px, py)/area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			col := a.Color
			if tex != nil {
				u := w0*a.U + w1*b.U + w2*c.U
				v := w0*a.V + w1*b.V + w2*c.V
				col = modulate(sample(tex, u, v), a.Color)
			}
			s.plot(x, y, col)
		}
	}
}

func (s *software) plot(x, y int, c color.RGBA) {
	i := s.target.PixOffset(x, y)
	d := s.target.Pix[i : i+4 : i+4]
	switch s.blend {
	case BlendNone:
		d[0], d[1], d[2], d[3] = c.R, c.G, c.B, c.A
	case BlendAlpha:
		k := 255 - uint32(c.A)
		d[0] = uint8(uint32(c.R) + uint32(d[0])*k/255)
		d[1] = uint8(uint32(c.G) + uint32(d[1])*k/255)
		d[2] = uint8(uint32(c.B) + uint32(d[2])*k/255)
		d[3] = uint8(uint32(c.A) + uint32(d[3])*k/255)
	case BlendAdd:
		d[0], d[1], d[2] = addSat(d[0], c.R), addSat(d[1], c.G), addSat(d[2], c.B)
	case BlendMultiply:
		d[0] = uint8(uint32(d[0]) * uint32(c.R) / 255)
		d[1] = uint8(uint32(d[1]) * uint32(c.G) / 255)
		d[2] = uint8(uint32(d[2]) * uint32(c.B) / 255)
	}
}

func (s *software) bounds() image.Rectangle {
	b := s.target.Bounds()
	if s.clip != nil {
		b = b.Intersect(*s.clip)
	}
	return b
}

func (s *software) texture(t Texture) (*softTexture, error) {
	st, ok := t.(*softTexture)
	if !ok || st.owner != s || st.closed {
		return nil, ErrTexture
	}
	return st, nil
}

func (s *software) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.target, s.screen = nil, image.NewRGBA(image.Rectangle{})
	return nil
}

func (t *softTexture) Size() (int, int) {
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

func (t *softTexture) Update(rgba []byte) error {
	if !t.mutable {
		return ErrImmutable
	}
	if t.closed || len(rgba) != len(t.img.Pix) {
		return ErrTexture
	}
	copy(t.img.Pix, rgba)
	return nil
}

func (t *softTexture) Close() { t.closed = true }

func edge(a, b Vertex, x, y float32) float32 {
	return (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
}

func sample(img *image.RGBA, u, v float32) color.RGBA {
	b := img.Bounds()
	x := clamp(int(u*float32(b.Dx())), 0, b.Dx()-1)
	y := clamp(int(v*float32(b.Dy())), 0, b.Dy()-1)
	return img.RGBAAt(x, y)
}

func modulate(c, m color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8(uint32(c.R) * uint32(m.R) / 255),
		G: uint8(uint32(c.G) * uint32(m.G) / 255),
		B: uint8(uint32(c.B) * uint32(m.B) / 255),
		A: uint8(uint32(c.A) * uint32(m.A) / 255),
	}
}

func addSat(a, b uint8) uint8 {
	if s := uint16(a) + uint16(b); s < 255 {
		return uint8(s)
	}
	return 255
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min3(a, b, c float32) float32 { return min(a, min(b, c)) }
func max3(a, b, c float32) float32 { return max(a, max(b, c)) }
