package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoPageImages is returned when a PDF embeds no decodable image, as with
// born-digital documents that carry only text and vector graphics.
var ErrNoPageImages = errors.New("pdf has no page images")

// maxPDFPages bounds how many pages of one PDF are analyzed.
const maxPDFPages = 20

// DecodePDF returns one raster per PDF page that embeds an image, in page
// order. A page with several images is represented by the largest one, which
// for a scanned document is the scan itself. Thumbnails and masks are
// ignored, as are images the decoders cannot read.
func DecodePDF(data []byte) (pages []*Raster, err error) {
	if !IsPDF(data) {
		return nil, fmt.Errorf("%w: not a pdf", ErrUnreadable)
	}
	// pdfcpu indexes past the end of the page list for a PDF without pages.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: pdf: %v", ErrUnreadable, r)
		}
	}()

	var order []int
	best := make(map[int]*Raster)
	digest := func(img model.Image, _ bool, _ int) error {
		if img.Thumb || img.IsImgMask || img.PageNr > maxPDFPages {
			return nil
		}
		raw, rerr := io.ReadAll(img)
		if rerr != nil {
			return rerr
		}
		r, _, derr := Decode(raw)
		if derr != nil {
			return nil
		}
		cur, seen := best[img.PageNr]
		if !seen {
			order = append(order, img.PageNr)
		}
		if !seen || r.Width*r.Height > cur.Width*cur.Height {
			best[img.PageNr] = r
		}
		return nil
	}
	if xerr := api.ExtractImages(bytes.NewReader(data), nil, digest, model.NewDefaultConfiguration()); xerr != nil {
		return nil, fmt.Errorf("%w: pdf: %v", ErrUnreadable, xerr)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, ErrNoPageImages)
	}
	pages = make([]*Raster, 0, len(order))
	for _, nr := range order {
		pages = append(pages, best[nr])
	}
	return pages, nil
}
