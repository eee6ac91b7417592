package imaging

import (
	"errors"
	"math"
)

// ErrSizeMismatch is returned when two grids of different shape are combined.
var ErrSizeMismatch = errors.New("raster sizes differ")

// gaussianKernel returns a normalized 1D kernel. A non-positive sigma is
// derived from the size as 0.3*((ksize-1)*0.5-1)+0.8.
func gaussianKernel(ksize int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}
	k := make([]float64, ksize)
	var sum float64
	c := float64(ksize-1) / 2
	for i := range k {
		d := float64(i) - c
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// reflect101 maps an out-of-range index by mirroring without repeating the edge.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}

// GaussianBlur smooths g with a separable ksize x ksize kernel and
// replicated borders.
func GaussianBlur(g *Gray, ksize int, sigma float64) *Gray {
	k := gaussianKernel(ksize, sigma)
	r := ksize / 2
	w, h := g.Width, g.Height

	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * float64(row[clampIndex(x+i-r, w)])
			}
			tmp[y*w+x] = acc
		}
	}

	out := NewGray(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range k {
				acc += kv * tmp[clampIndex(y+i-r, h)*w+x]
			}
			out.Pix[y*w+x] = saturate(acc)
		}
	}
	return out
}

// AdaptiveThresholdGaussianInv binarizes g against a Gaussian-weighted local
// mean: a pixel becomes 255 when it is at least c darker than its
// neighbourhood, 0 otherwise.
func AdaptiveThresholdGaussianInv(g *Gray, blockSize int, c float64) *Gray {
	mean := GaussianBlur(g, blockSize, 0)
	delta := int(math.Floor(c))
	out := NewGray(g.Width, g.Height)
	for i, v := range g.Pix {
		if int(v)-int(mean.Pix[i]) <= -delta {
			out.Pix[i] = 255
		}
	}
	return out
}

// MedianBlur3 applies a 3x3 median filter with replicated borders.
func MedianBlur3(g *Gray) *Gray {
	w, h := g.Width, g.Height
	out := NewGray(w, h)
	var win [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				yy := clampIndex(y+dy, h)
				for dx := -1; dx <= 1; dx++ {
					win[n] = g.Pix[yy*w+clampIndex(x+dx, w)]
					n++
				}
			}
			out.Pix[y*w+x] = median9(&win)
		}
	}
	return out
}

// Laplacian applies the 4-neighbour Laplacian kernel with reflect-101
// borders and returns float samples.
func Laplacian(g *Gray) []float64 {
	w, h := g.Width, g.Height
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		up := reflect101(y-1, h)
		down := reflect101(y+1, h)
		for x := 0; x < w; x++ {
			left := reflect101(x-1, w)
			right := reflect101(x+1, w)
			c := float64(g.Pix[y*w+x])
			out[y*w+x] = float64(g.Pix[y*w+left]) + float64(g.Pix[y*w+right]) +
				float64(g.Pix[up*w+x]) + float64(g.Pix[down*w+x]) - 4*c
		}
	}
	return out
}

// AbsDiff returns |a-b| per sample. Both slices must have the same length.
func AbsDiff(a, b []uint8) ([]uint8, error) {
	if len(a) != len(b) {
		return nil, ErrSizeMismatch
	}
	out := make([]uint8, len(a))
	for i := range a {
		if a[i] > b[i] {
			out[i] = a[i] - b[i]
		} else {
			out[i] = b[i] - a[i]
		}
	}
	return out, nil
}

func median9(win *[9]uint8) uint8 {
	for i := 1; i < len(win); i++ {
		for j := i; j > 0 && win[j-1] > win[j]; j-- {
			win[j-1], win[j] = win[j], win[j-1]
		}
	}
	return win[4]
}

func saturate(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
