// Package imaging holds the raster primitives the forensic detectors are
// built from: decoding, grayscale conversion, adaptive thresholding,
// contour tracing, Laplacian and DCT transforms, and pixel statistics.
//
// Rasters use 8-bit samples, row-major, three interleaved RGB channels.
// Alpha is dropped on load.
package imaging

import (
	"image"
	"image/color"
)

// Channels is the number of interleaved samples per pixel in a Raster.
const Channels = 3

// Raster is an immutable RGB pixel grid.
type Raster struct {
	Width  int
	Height int
	Pix    []uint8 // len = Width*Height*Channels
}

// Gray is a single-channel 8-bit grid. Masks use 0 and 255.
type Gray struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewGray allocates a zeroed gray grid.
func NewGray(w, h int) *Gray {
	return &Gray{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At returns the sample at (x, y).
func (g *Gray) At(x, y int) uint8 {
	return g.Pix[y*g.Width+x]
}

// FromImage copies an image.Image into a Raster.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	r := &Raster{Width: w, Height: h, Pix: make([]uint8, w*h*Channels)}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				o := (y*w + x) * Channels
				copy(r.Pix[o:o+Channels], src.Pix[i:i+Channels])
			}
		}
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
				o := (y*w + x) * Channels
				copy(r.Pix[o:o+Channels], src.Pix[i:i+Channels])
			}
		}
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				v := src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]
				o := (y*w + x) * Channels
				r.Pix[o], r.Pix[o+1], r.Pix[o+2] = v, v, v
			}
		}
	case *image.YCbCr:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				yi := src.YOffset(b.Min.X+x, b.Min.Y+y)
				ci := src.COffset(b.Min.X+x, b.Min.Y+y)
				o := (y*w + x) * Channels
				r.Pix[o], r.Pix[o+1], r.Pix[o+2] = color.YCbCrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				o := (y*w + x) * Channels
				r.Pix[o], r.Pix[o+1], r.Pix[o+2] = c.R, c.G, c.B
			}
		}
	}
	return r
}

// FromGray expands a gray grid into an RGB raster.
func FromGray(g *Gray) *Raster {
	r := &Raster{Width: g.Width, Height: g.Height, Pix: make([]uint8, len(g.Pix)*Channels)}
	for i, v := range g.Pix {
		r.Pix[i*Channels], r.Pix[i*Channels+1], r.Pix[i*Channels+2] = v, v, v
	}
	return r
}

// Image returns an *image.RGBA view suitable for encoders.
func (r *Raster) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i := 0; i < r.Width*r.Height; i++ {
		copy(img.Pix[i*4:i*4+Channels], r.Pix[i*Channels:i*Channels+Channels])
		img.Pix[i*4+3] = 0xff
	}
	return img
}

// Gray converts to luma with the fixed-point BT.601 weights
// (0.299, 0.587, 0.114) scaled by 2^14.
func (r *Raster) Gray() *Gray {
	const (
		shift = 14
		wr    = 4899
		wg    = 9617
		wb    = 1868
		half  = 1 << (shift - 1)
	)
	g := NewGray(r.Width, r.Height)
	for i := range g.Pix {
		o := i * Channels
		y := int(r.Pix[o])*wr + int(r.Pix[o+1])*wg + int(r.Pix[o+2])*wb
		g.Pix[i] = uint8((y + half) >> shift)
	}
	return g
}

// Empty reports whether the raster has no pixels.
func (r *Raster) Empty() bool {
	return r == nil || r.Width == 0 || r.Height == 0
}
