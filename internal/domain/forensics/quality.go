package forensics

import (
	"context"

	"github.com/okian/docrisk/internal/domain/imaging"
)

// QualitySecurity measures sharpness and contrast and counts blobs in the
// size band of stamps and watermarks.
type QualitySecurity struct {
	settings
}

// NewQualitySecurity creates a quality and security element detector.
func NewQualitySecurity(opts ...Option) *QualitySecurity {
	return &QualitySecurity{settings: newSettings(opts)}
}

// Detect runs the general quality and security element checks on r.
func (q *QualitySecurity) Detect(ctx context.Context, r *imaging.Raster) CategoryReport {
	rep := NewCategoryReport()
	if r.Empty() {
		rep.fail(errPrefixQuality, imaging.ErrEmpty)
		return rep
	}
	gray := r.Gray()

	rep.record(CheckGeneralQuality, guarded(ctx, func() DetectionResult { return q.general(gray) }), incrementGeneralQuality, AlertGeneralQuality)
	rep.record(CheckSecurityElements, guarded(ctx, func() DetectionResult { return q.security(gray) }), incrementSecurityElements, AlertSecurityElements)
	return rep
}

func (q *QualitySecurity) general(gray *imaging.Gray) DetectionResult {
	blur, err := imaging.Variance(imaging.Laplacian(gray))
	if err != nil {
		return defaulted(err)
	}
	_, contrast, err := imaging.ByteMeanStd(gray.Pix)
	if err != nil {
		return defaulted(err)
	}
	return result(blur < q.th.MinBlurVariance || contrast < q.th.MinContrast, map[string]float64{
		"blur":     blur,
		"contrast": contrast,
	})
}

func (q *QualitySecurity) security(gray *imaging.Gray) DetectionResult {
	n := 0
	for _, c := range externalContours(gray, q.th) {
		if a := c.Area(); a > q.th.SecurityMinArea && a < q.th.SecurityMaxArea {
			n++
		}
	}
	return result(n < q.th.MinSecurityElements, map[string]float64{
		"elements": float64(n),
	})
}
