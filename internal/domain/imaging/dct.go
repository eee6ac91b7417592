package imaging

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrOddDimensions is returned by DCT2 for grids with an odd side.
var ErrOddDimensions = errors.New("odd-size DCT is not supported")

// DCT2 computes the orthonormal two-dimensional DCT-II of g, rows first.
// Both sides must be even.
func DCT2(g *Gray) ([]float64, error) {
	w, h := g.Width, g.Height
	if w == 0 || h == 0 {
		return nil, ErrNoSamples
	}
	if w%2 != 0 || h%2 != 0 {
		return nil, ErrOddDimensions
	}

	out := make([]float64, w*h)
	for i, v := range g.Pix {
		out[i] = float64(v)
	}

	row := newDCT(w)
	buf := make([]float64, max(w, h))
	for y := 0; y < h; y++ {
		row.transform(out[y*w:(y+1)*w], out[y*w:(y+1)*w])
	}

	col := row
	if h != w {
		col = newDCT(h)
	}
	for x := 0; x < w; x++ {
		c := buf[:h]
		for y := 0; y < h; y++ {
			c[y] = out[y*w+x]
		}
		col.transform(c, c)
		for y := 0; y < h; y++ {
			out[y*w+x] = c[y]
		}
	}
	return out, nil
}

// dct1 is a length-n orthonormal DCT-II computed through one real FFT of a
// reordered sequence (Makhoul).
type dct1 struct {
	n       int
	fft     *fourier.FFT
	twiddle []complex128
	seq     []float64
	coeff   []complex128
}

func newDCT(n int) *dct1 {
	d := &dct1{
		n:       n,
		fft:     fourier.NewFFT(n),
		twiddle: make([]complex128, n),
		seq:     make([]float64, n),
		coeff:   make([]complex128, n/2+1),
	}
	for k := range d.twiddle {
		d.twiddle[k] = cmplx.Exp(complex(0, -math.Pi*float64(k)/float64(2*n)))
	}
	return d
}

// transform writes the DCT of src into dst. They may alias.
func (d *dct1) transform(dst, src []float64) {
	n := d.n
	for i := 0; i < n/2; i++ {
		d.seq[i] = src[2*i]
		d.seq[n-1-i] = src[2*i+1]
	}
	d.coeff = d.fft.Coefficients(d.coeff, d.seq)

	s0 := math.Sqrt(1 / float64(n))
	sk := math.Sqrt(2 / float64(n))
	for k := 0; k < n; k++ {
		var v complex128
		if k <= n/2 {
			v = d.coeff[k]
		} else {
			v = cmplx.Conj(d.coeff[n-k])
		}
		x := real(v * d.twiddle[k])
		if k == 0 {
			dst[k] = x * s0
		} else {
			dst[k] = x * sk
		}
	}
}
