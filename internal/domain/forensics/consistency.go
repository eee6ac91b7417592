package forensics

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	datePattern = regexp.MustCompile(`\d{2}[/-]\d{2}[/-]\d{4}`)
	// Either grouped thousands or a plain digit run, so "$5000" is one amount.
	amountPattern = regexp.MustCompile(`\$\s*(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?`)
	namePattern   = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)+`)
)

// Consistency cross-checks dates, amounts and names found in OCR text.
type Consistency struct {
	settings
}

// NewConsistency creates a text consistency checker.
func NewConsistency(opts ...Option) *Consistency {
	return &Consistency{settings: newSettings(opts)}
}

// Check extracts dates, amounts and names from text. A kind with no matches
// contributes nothing.
func (c *Consistency) Check(ctx context.Context, text string) CategoryReport {
	rep := NewCategoryReport()

	if dates := datePattern.FindAllString(text, -1); len(dates) > 0 {
		rep.record(CheckDates, guarded(ctx, func() DetectionResult { return duplicates(dates) }), incrementDates, AlertDuplicateDates)
	}
	if amounts := amountPattern.FindAllString(text, -1); len(amounts) > 0 {
		rep.record(CheckAmounts, guarded(ctx, func() DetectionResult { return c.amounts(amounts) }), incrementAmounts, AlertAmountDiscrepancy)
	}
	if names := namePattern.FindAllString(text, -1); len(names) > 0 {
		rep.record(CheckNames, guarded(ctx, func() DetectionResult { return duplicates(names) }), incrementNames, AlertDuplicateNames)
	}
	return rep
}

func duplicates(matches []string) DetectionResult {
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		seen[m] = struct{}{}
	}
	res := result(len(seen) != len(matches), map[string]float64{
		"count":  float64(len(matches)),
		"unique": float64(len(seen)),
	})
	res.Matches = matches
	return res
}

func (c *Consistency) amounts(matches []string) DetectionResult {
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := parseAmount(m)
		if err != nil {
			return defaulted(err)
		}
		values = append(values, v)
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == 0 {
		res := defaulted(ErrZeroAmount)
		res.Matches = matches
		return res
	}
	ratio := hi / lo
	res := result(ratio > c.th.AmountDiscrepancyRatio, map[string]float64{
		"count": float64(len(values)),
		"min":   lo,
		"max":   hi,
		"ratio": ratio,
	})
	res.Matches = matches
	return res
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}
