package forensics

import (
	"context"
	"image"

	"github.com/okian/docrisk/internal/domain/imaging"
)

// Signatures locates signature-sized ink regions and checks that their
// sizes agree.
type Signatures struct {
	settings
}

// NewSignatures creates a signature detector.
func NewSignatures(opts ...Option) *Signatures {
	return &Signatures{settings: newSettings(opts)}
}

// Detect finds signature candidates on r and evaluates quality and
// consistency. No candidates at all is itself suspicious.
func (s *Signatures) Detect(ctx context.Context, r *imaging.Raster) CategoryReport {
	rep := NewCategoryReport()
	if r.Empty() {
		rep.fail(errPrefixSignatures, imaging.ErrEmpty)
		return rep
	}
	if err := ctx.Err(); err != nil {
		rep.fail(errPrefixSignatures, err)
		return rep
	}

	var boxes []image.Rectangle
	search := guarded(ctx, func() DetectionResult {
		boxes = s.Candidates(r.Gray())
		return result(false, map[string]float64{"candidates": float64(len(boxes))})
	})
	if search.Err != nil {
		// Without candidates neither check can run; both stay unflagged.
		rep.record(CheckSignatureQuality, search, incrementSignatureQuality, AlertSignatureQuality)
		return rep
	}
	rep.record(CheckSignatureQuality, guarded(ctx, func() DetectionResult { return s.Quality(boxes) }), incrementSignatureQuality, AlertSignatureQuality)
	if len(boxes) >= 2 {
		rep.record(CheckSignatureConsistency, guarded(ctx, func() DetectionResult { return s.Consistency(boxes) }), incrementSignatureConsistency, AlertSignatureConsistency)
	}
	return rep
}

// Candidates returns bounding boxes of external contours wider and taller
// than the signature minimums.
func (s *Signatures) Candidates(gray *imaging.Gray) []image.Rectangle {
	var boxes []image.Rectangle
	for _, c := range externalContours(gray, s.th) {
		b := c.BoundingRect()
		if b.Dx() > s.th.SignatureMinWidth && b.Dy() > s.th.SignatureMinHeight {
			boxes = append(boxes, b)
		}
	}
	return boxes
}

// Quality flags an empty candidate set or a wide spread of box areas.
func (s *Signatures) Quality(boxes []image.Rectangle) DetectionResult {
	if len(boxes) == 0 {
		return result(true, map[string]float64{"candidates": 0})
	}
	mean, std := boxAreaStats(boxes)
	return result(std > mean*s.th.SignatureQualitySpread, map[string]float64{
		"candidates": float64(len(boxes)),
		"mean_area":  mean,
		"std_area":   std,
	})
}

// Consistency compares box areas across two or more candidates. Fewer
// candidates are never inconsistent.
func (s *Signatures) Consistency(boxes []image.Rectangle) DetectionResult {
	if len(boxes) < 2 {
		return result(false, map[string]float64{"candidates": float64(len(boxes))})
	}
	mean, std := boxAreaStats(boxes)
	return result(std > mean*s.th.SignatureConsistencySpread, map[string]float64{
		"candidates": float64(len(boxes)),
		"mean_area":  mean,
		"std_area":   std,
	})
}

func boxAreaStats(boxes []image.Rectangle) (float64, float64) {
	areas := make([]float64, len(boxes))
	for i, b := range boxes {
		areas[i] = float64(b.Dx() * b.Dy())
	}
	mean, std, _ := imaging.MeanStd(areas)
	return mean, std
}
