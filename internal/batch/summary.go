package batch

import (
	"context"
	"sort"

	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
)

// summarize counts analyzed and failed documents and the band distribution.
func summarize(results []Result, stats *Stats) {
	stats.ByBand = make(map[risk.Band]int, 3)
	for _, r := range results {
		if r.Report == nil {
			stats.Failed++
			continue
		}
		stats.Analyzed++
		stats.ByBand[r.Report.Band]++
	}
}

// riskiest returns up to n analyzed results ordered by descending risk.
// Ties keep path order.
func riskiest(results []Result, n int) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Report != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Report.RiskScore > out[j].Report.RiskScore
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// averageScore is the mean risk of analyzed results.
func averageScore(results []Result) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if r.Report != nil {
			sum += r.Report.RiskScore
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// displayFinalStats logs the run statistics and the riskiest documents.
func displayFinalStats(ctx context.Context, stats *Stats, results []Result, filename string) {
	log := logger.Get()
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Found) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("found", stats.Found),
		logger.Int("analyzed", stats.Analyzed),
		logger.Int("failed", stats.Failed),
		logger.Int("high", stats.ByBand[risk.BandHigh]),
		logger.Int("medium", stats.ByBand[risk.BandMedium]),
		logger.Int("low", stats.ByBand[risk.BandLow]),
		logger.Float64("averageRisk", averageScore(results)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("documentsPerSecond", perSecond),
		logger.String("output", filename))

	for i, r := range riskiest(results, topRisky) {
		log.Info(ctx, "risky document",
			logger.Int("rank", i+1),
			logger.String("path", r.Path),
			logger.Float64("risk", r.Report.RiskScore),
			logger.String("band", string(r.Report.Band)),
			logger.Int("alerts", len(r.Report.Alerts)))
	}
}
