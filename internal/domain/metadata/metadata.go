// Package metadata reads document properties (PDF info dictionary, EXIF
// tags, file times) and lists suspicions about how the file was produced.
// Suspicions are informational and do not feed the risk score.
package metadata

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rwcarlsen/goexif/exif"
)

// Kinds of inspected files.
const (
	KindPDF     = "pdf"
	KindImage   = "image"
	KindUnknown = "unknown"
)

// Suspicions.
const (
	SuspicionPDFPhotoshop    = "El documento PDF fue creado con Photoshop, lo cual es inusual"
	SuspicionImagePhotoshop  = "La imagen fue editada con Photoshop"
	SuspicionModifiedFirst   = "La fecha de modificación es anterior a la fecha de creación"
	SuspicionRecentlyCreated = "El documento fue creado hace menos de 24 horas"
)

// ErrNoMetadata is recorded when a file carries no readable properties.
var ErrNoMetadata = errors.New("no metadata")

const exifTimeLayout = "2006:01:02 15:04:05"

var imageExtensions = map[string]bool{ //nolint:gochecknoglobals // lookup table
	".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true, ".bmp": true, ".webp": true,
}

// File is the input to an inspection. Created and Modified are file system
// times and are used only when the content carries no dates of its own.
type File struct {
	Name     string
	Content  []byte
	Created  time.Time
	Modified time.Time
}

// Report describes one file.
type Report struct {
	Kind       string            `json:"kind"`
	Size       int               `json:"size_bytes"`
	PageCount  int               `json:"page_count,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Created    *time.Time        `json:"created,omitempty"`
	Modified   *time.Time        `json:"modified,omitempty"`
	Suspicions []string          `json:"suspicions"`

	Err error `json:"-"`
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithClock sets the time source used for the recent-creation rule.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) {
		if now != nil {
			i.now = now
		}
	}
}

// Inspector extracts metadata. It is safe for concurrent use.
type Inspector struct {
	now func() time.Time
}

// NewInspector creates an Inspector using the wall clock.
func NewInspector(opts ...Option) *Inspector {
	i := &Inspector{now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect reads the file's properties and evaluates the suspicion rules.
// Read failures are kept on Report.Err; the rules still run on whatever was
// recovered.
func (i *Inspector) Inspect(f File) Report {
	r := Report{Kind: KindUnknown, Size: len(f.Content), Fields: map[string]string{}, Suspicions: []string{}}

	switch {
	case isPDF(f):
		r.Kind = KindPDF
		r.Err = readPDF(f.Content, &r)
	case isImage(f):
		r.Kind = KindImage
		r.Err = readEXIF(f.Content, &r)
	}

	if r.Created == nil && !f.Created.IsZero() {
		t := f.Created
		r.Created = &t
	}
	if r.Modified == nil && !f.Modified.IsZero() {
		t := f.Modified
		r.Modified = &t
	}

	r.Suspicions = evaluate(r, i.now())
	return r
}

func evaluate(r Report, now time.Time) []string {
	out := []string{}
	if r.Created != nil && r.Modified != nil && r.Modified.Before(*r.Created) {
		out = append(out, SuspicionModifiedFirst)
	}
	if r.Kind == KindPDF {
		creator := r.Fields["creator"]
		if strings.Contains(creator, "Adobe") && strings.Contains(creator, "Photoshop") {
			out = append(out, SuspicionPDFPhotoshop)
		}
	}
	if r.Kind == KindImage && strings.Contains(r.Fields["software"], "Photoshop") {
		out = append(out, SuspicionImagePhotoshop)
	}
	if r.Created != nil && now.Sub(*r.Created) < 24*time.Hour {
		out = append(out, SuspicionRecentlyCreated)
	}
	return out
}

func isPDF(f File) bool {
	return bytes.HasPrefix(bytes.TrimLeft(f.Content[:min(len(f.Content), 1024)], "\x00\t\r\n "), []byte("%PDF-")) ||
		strings.EqualFold(filepath.Ext(f.Name), ".pdf")
}

func isImage(f File) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(f.Name))]
}

func readPDF(content []byte, r *Report) error {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(content), model.NewDefaultConfiguration())
	if err != nil {
		return err
	}
	// Configuration also has a CreationDate; the info dictionary lives on the
	// xref table.
	xt := ctx.XRefTable
	r.PageCount = xt.PageCount
	for key, val := range map[string]string{
		"author":   xt.Author,
		"creator":  xt.Creator,
		"producer": xt.Producer,
		"title":    xt.Title,
		"subject":  xt.Subject,
		"keywords": xt.Keywords,
	} {
		if val != "" {
			r.Fields[key] = val
		}
	}
	if t, ok := parsePDFDate(xt.CreationDate); ok {
		r.Created = &t
	}
	if t, ok := parsePDFDate(xt.ModDate); ok {
		r.Modified = &t
	}
	return nil
}

func readEXIF(content []byte, r *Report) error {
	x, err := exif.Decode(bytes.NewReader(content))
	if err != nil {
		return errors.Join(ErrNoMetadata, err)
	}
	for key, field := range map[string]exif.FieldName{
		"software": exif.Software,
		"make":     exif.Make,
		"model":    exif.Model,
	} {
		if tag, err := x.Get(field); err == nil {
			if s, err := tag.StringVal(); err == nil && s != "" {
				r.Fields[key] = strings.TrimSpace(s)
			}
		}
	}
	if t, ok := exifTime(x, exif.DateTimeOriginal); ok {
		r.Created = &t
	}
	if t, ok := exifTime(x, exif.DateTime); ok {
		r.Modified = &t
	}
	return nil
}

func exifTime(x *exif.Exif, field exif.FieldName) (time.Time, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return time.Time{}, false
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse(exifTimeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parsePDFDate parses "D:YYYYMMDDHHmmSSOHH'mm'" with every part after the
// year optional.
func parsePDFDate(s string) (time.Time, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "D:")
	if len(s) < 4 {
		return time.Time{}, false
	}
	digits := s
	zone := ""
	if idx := strings.IndexAny(s, "Z+-"); idx >= 0 {
		digits, zone = s[:idx], s[idx:]
	}
	const full = "20060102150405"
	if len(digits) > len(full) || len(digits)%2 != 0 {
		return time.Time{}, false
	}
	t, err := time.Parse(full[:len(digits)], digits)
	if err != nil {
		return time.Time{}, false
	}
	if zone == "" || zone[0] == 'Z' {
		return t, true
	}
	z := strings.ReplaceAll(zone[1:], "'", "")
	if len(z) != 2 && len(z) != 4 {
		return t, true
	}
	hours := int(z[0]-'0')*10 + int(z[1]-'0')
	minutes := 0
	if len(z) == 4 {
		minutes = int(z[2]-'0')*10 + int(z[3]-'0')
	}
	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if zone[0] == '+' {
		offset = -offset
	}
	return t.Add(offset), true
}
