package forensics

import (
	"context"

	"github.com/okian/docrisk/internal/domain/imaging"
)

// Manipulation looks for editing traces: error levels after recompression,
// noise residual spread and DCT coefficient spread.
type Manipulation struct {
	settings
}

// NewManipulation creates a manipulation detector.
func NewManipulation(opts ...Option) *Manipulation {
	return &Manipulation{settings: newSettings(opts)}
}

// Detect runs ELA, noise and compression checks on r.
func (m *Manipulation) Detect(ctx context.Context, r *imaging.Raster) CategoryReport {
	rep := NewCategoryReport()
	if r.Empty() {
		rep.fail(errPrefixManipulation, imaging.ErrEmpty)
		return rep
	}
	gray := r.Gray()

	rep.record(CheckELA, guarded(ctx, func() DetectionResult { return m.ela(r) }), incrementELA, AlertELA)
	rep.record(CheckNoise, guarded(ctx, func() DetectionResult { return m.noise(gray) }), incrementNoise, AlertNoise)
	rep.record(CheckCompression, guarded(ctx, func() DetectionResult { return m.compression(gray) }), incrementCompression, AlertCompression)
	return rep
}

func (m *Manipulation) ela(r *imaging.Raster) DetectionResult {
	recompressed, err := r.RecompressJPEG(m.th.ELAQuality)
	if err != nil {
		return defaulted(err)
	}
	diff, err := imaging.AbsDiff(r.Pix, recompressed.Pix)
	if err != nil {
		return defaulted(err)
	}
	mean, std, err := imaging.ByteMeanStd(diff)
	if err != nil {
		return defaulted(err)
	}
	return result(mean > m.th.ELAMeanDiff || std > m.th.ELAStdDiff, map[string]float64{
		"mean_diff": mean,
		"std_diff":  std,
	})
}

func (m *Manipulation) noise(gray *imaging.Gray) DetectionResult {
	denoised := imaging.MedianBlur3(gray)
	residual, err := imaging.AbsDiff(gray.Pix, denoised.Pix)
	if err != nil {
		return defaulted(err)
	}
	mean, std, err := imaging.ByteMeanStd(residual)
	if err != nil {
		return defaulted(err)
	}
	return result(std > m.th.NoiseStd, map[string]float64{
		"mean_noise": mean,
		"std_noise":  std,
	})
}

func (m *Manipulation) compression(gray *imaging.Gray) DetectionResult {
	coeffs, err := imaging.DCT2(gray)
	if err != nil {
		return defaulted(err)
	}
	var absSum float64
	for _, c := range coeffs {
		if c < 0 {
			absSum -= c
		} else {
			absSum += c
		}
	}
	_, std, err := imaging.MeanStd(coeffs)
	if err != nil {
		return defaulted(err)
	}
	return result(std > m.th.DCTStd, map[string]float64{
		"dct_mean": absSum / float64(len(coeffs)),
		"dct_std":  std,
	})
}

// guarded runs check unless ctx is done. A panic inside a check defaults it.
func guarded(ctx context.Context, check func() DetectionResult) (res DetectionResult) {
	if err := ctx.Err(); err != nil {
		return defaulted(err)
	}
	defer func() {
		if p := recover(); p != nil {
			res = defaulted(panicError{value: p})
		}
	}()
	return check()
}
