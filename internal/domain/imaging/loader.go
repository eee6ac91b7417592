package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
)

// Errors returned by decoding and encoding.
var (
	ErrUnreadable = errors.New("unreadable image")
	ErrEmpty      = errors.New("empty raster")
)

var (
	pdfMagic   = []byte("%PDF-")
	pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}
)

// IsPDF reports whether data starts with the PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), pdfMagic)
}

// Decode turns encoded image bytes into a Raster. Any failure, including a
// PDF or an empty image, is reported as ErrUnreadable. PDFs go through
// DecodePDF.
func Decode(data []byte) (*Raster, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: no data", ErrUnreadable)
	}
	if IsPDF(data) {
		return nil, "pdf", fmt.Errorf("%w: pdf documents carry no raster", ErrUnreadable)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	r := FromImage(img)
	if r.Empty() {
		return nil, format, fmt.Errorf("%w: %v", ErrUnreadable, ErrEmpty)
	}
	return r, format, nil
}

// EncodeJPEG encodes the raster at the given quality.
func (r *Raster) EncodeJPEG(quality int) ([]byte, error) {
	if r.Empty() {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes the raster losslessly.
func (r *Raster) EncodePNG() ([]byte, error) {
	if r.Empty() {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, r.Image()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// RecompressJPEG round-trips the raster through a JPEG encode at quality.
func (r *Raster) RecompressJPEG(quality int) (*Raster, error) {
	data, err := r.EncodeJPEG(quality)
	if err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return FromImage(img), nil
}
