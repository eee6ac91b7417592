package forensics

import (
	"context"

	"github.com/okian/docrisk/internal/domain/imaging"
)

// PrintPatterns checks printer dot regularity and the effective resolution.
type PrintPatterns struct {
	settings
}

// NewPrintPatterns creates a print pattern detector.
func NewPrintPatterns(opts ...Option) *PrintPatterns {
	return &PrintPatterns{settings: newSettings(opts)}
}

// Detect runs the dot pattern and resolution checks on r.
func (p *PrintPatterns) Detect(ctx context.Context, r *imaging.Raster) CategoryReport {
	rep := NewCategoryReport()
	if r.Empty() {
		rep.fail(errPrefixPatterns, imaging.ErrEmpty)
		return rep
	}

	rep.record(CheckDotPattern, guarded(ctx, func() DetectionResult { return p.dots(r.Gray()) }), incrementDotPattern, AlertDotPattern)
	rep.record(CheckResolution, guarded(ctx, func() DetectionResult { return p.resolution(r) }), incrementResolution, AlertResolution)
	return rep
}

func (p *PrintPatterns) dots(gray *imaging.Gray) DetectionResult {
	contours := externalContours(gray, p.th)
	if len(contours) == 0 {
		return defaulted(ErrNoContours)
	}
	areas := make([]float64, len(contours))
	for i, c := range contours {
		areas[i] = c.Area()
	}
	mean, std, err := imaging.MeanStd(areas)
	if err != nil {
		return defaulted(err)
	}
	return result(std > mean*p.th.DotAreaSpread, map[string]float64{
		"mean_area": mean,
		"std_area":  std,
		"contours":  float64(len(contours)),
	})
}

// resolution assumes the shorter side spans a letter-size page width.
func (p *PrintPatterns) resolution(r *imaging.Raster) DetectionResult {
	dpi := float64(min(r.Width, r.Height)) / p.th.PageWidthInches
	return result(dpi < p.th.MinDPI || dpi > p.th.MaxDPI, map[string]float64{
		"effective_dpi": dpi,
	})
}

func externalContours(gray *imaging.Gray, th Thresholds) []imaging.Contour {
	mask := imaging.AdaptiveThresholdGaussianInv(gray, th.AdaptiveBlockSize, th.AdaptiveC)
	return imaging.FindExternalContours(mask)
}
