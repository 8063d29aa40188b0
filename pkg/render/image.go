package render

import (
	"image"
	"image/color"
	"math"

	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/abworrall/lensblur/pkg/lmath"
)

// Image is a dense linear-RGB radiance buffer at a fixed resolution.
// The renderer accumulates into it sample by sample, so values are
// unbounded above and can dip below zero for out-of-gamut spectra.
// Implements the image.Image and hdr.Image interfaces, so the
// mdouchement codecs and tonemap operators can consume it directly.
type Image struct {
	W, H int
	Pix  []float64 // 3 floats per pixel, row major
}

func NewImage(w, h int) *Image {
	return &Image{W: w, H: h, Pix: make([]float64, w*h*3)}
}

func (im *Image)idx(x, y int) int { return (y*im.W + x) * 3 }

// Implement image.Image
func (im *Image)ColorModel() color.Model { return hdrcolor.RGBModel }
func (im *Image)Bounds() image.Rectangle { return image.Rect(0, 0, im.W, im.H) }
func (im *Image)At(x, y int) color.Color { return im.HDRAt(x, y) }

// Implement hdr.Image
func (im *Image)HDRAt(x, y int) hdrcolor.Color {
	v := im.RGBAt(x, y)
	return hdrcolor.RGB{R: v[0], G: v[1], B: v[2]}
}
func (im *Image)Size() int { return im.W * im.H }

// RGBAt reads one pixel; out of range reads are black.
func (im *Image)RGBAt(x, y int) lmath.Vec3 {
	if x < 0 || y < 0 || x >= im.W || y >= im.H {
		return lmath.Vec3{}
	}
	i := im.idx(x, y)
	return lmath.Vec3{im.Pix[i], im.Pix[i+1], im.Pix[i+2]}
}

func (im *Image)SetRGB(x, y int, v lmath.Vec3) {
	if x < 0 || y < 0 || x >= im.W || y >= im.H {
		return
	}
	i := im.idx(x, y)
	im.Pix[i], im.Pix[i+1], im.Pix[i+2] = v[0], v[1], v[2]
}

// tap is one corner of a bilinear footprint.
type tap struct {
	idx int
	w   float64
}

// taps computes the bilinear footprint of a fractional pixel
// position, dropping corners that fall outside the image. Returns
// how many of buf are valid.
func (im *Image)taps(x, y float64, buf *[4]tap) int {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	dx := x - float64(x0)
	dy := y - float64(y0)

	n := 0
	add := func(px, py int, w float64) {
		if px < 0 || py < 0 || px >= im.W || py >= im.H {
			return
		}
		buf[n] = tap{im.idx(px, py), w}
		n++
	}
	add(x0, y0, (1-dx)*(1-dy))
	add(x0+1, y0, dx*(1-dy))
	add(x0, y0+1, (1-dx)*dy)
	add(x0+1, y0+1, dx*dy)
	return n
}

// BilinearAt samples the image at a fractional position. Footprint
// corners outside the image read as black, same as RGBAt.
func (im *Image)BilinearAt(x, y float64) lmath.Vec3 {
	var buf [4]tap
	n := im.taps(x, y, &buf)
	var v lmath.Vec3
	for i := 0; i < n; i++ {
		v[0] += im.Pix[buf[i].idx+0] * buf[i].w
		v[1] += im.Pix[buf[i].idx+1] * buf[i].w
		v[2] += im.Pix[buf[i].idx+2] * buf[i].w
	}
	return v
}

// Splat accumulates v into the bilinear footprint of a fractional
// position. Contributions falling outside the image are dropped.
func (im *Image)Splat(x, y float64, v lmath.Vec3) {
	var buf [4]tap
	n := im.taps(x, y, &buf)
	for i := 0; i < n; i++ {
		im.Pix[buf[i].idx+0] += v[0] * buf[i].w
		im.Pix[buf[i].idx+1] += v[1] * buf[i].w
		im.Pix[buf[i].idx+2] += v[2] * buf[i].w
	}
}

// Total sums every channel of every pixel, for energy accounting.
func (im *Image)Total() float64 {
	t := 0.0
	for _, v := range im.Pix {
		t += v
	}
	return t
}
