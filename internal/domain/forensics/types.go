// Package forensics implements the rule-based document detectors. Each
// detector inspects one raster (or the OCR text) and returns a CategoryReport
// whose score is the sum of fixed increments for every suspicious check.
//
// Detectors never fail: an internal error turns the affected check into a
// non-suspicious DetectionResult marked Defaulted, so callers can log it.
package forensics

import "slices"

// Category names, in the order reports are assembled.
const (
	CategoryConsistency  = "consistency"
	CategoryManipulation = "manipulation"
	CategoryPatterns     = "patterns"
	CategorySignatures   = "signatures"
	CategoryQuality      = "quality"
)

// Categories lists every category in report order.
func Categories() []string {
	return []string{
		CategoryConsistency,
		CategoryManipulation,
		CategoryPatterns,
		CategorySignatures,
		CategoryQuality,
	}
}

// ImageCategories lists the categories computed from pixels.
func ImageCategories() []string {
	return []string{
		CategoryManipulation,
		CategoryPatterns,
		CategorySignatures,
		CategoryQuality,
	}
}

// Check names used as CategoryReport.Details keys.
const (
	CheckELA                  = "ela"
	CheckNoise                = "noise"
	CheckCompression          = "compression"
	CheckDotPattern           = "dot_pattern"
	CheckResolution           = "resolution"
	CheckSignatureQuality     = "signature_quality"
	CheckSignatureConsistency = "signature_consistency"
	CheckGeneralQuality       = "general_quality"
	CheckSecurityElements     = "security_elements"
	CheckDates                = "dates"
	CheckAmounts              = "amounts"
	CheckNames                = "names"
)

// DetectionResult is the outcome of one check.
type DetectionResult struct {
	Suspicious bool               `json:"suspicious"`
	Metrics    map[string]float64 `json:"metrics"`
	// Matches holds the extracted strings for text checks.
	Matches []string `json:"matches,omitempty"`

	// Defaulted is set when the check could not be computed and fell back
	// to a non-suspicious result.
	Defaulted bool  `json:"-"`
	Err       error `json:"-"`
}

// CategoryReport aggregates the checks of one category.
type CategoryReport struct {
	Score   float64                    `json:"score"`
	Alerts  []string                   `json:"alerts"`
	Details map[string]DetectionResult `json:"details"`

	// Skipped distinguishes "not assessed" from "assessed with zero score".
	Skipped    bool   `json:"skipped,omitempty"`
	SkipReason string `json:"skip_reason,omitempty"`

	Err error `json:"-"`
}

// NewCategoryReport returns an empty, assessed report.
func NewCategoryReport() CategoryReport {
	return CategoryReport{Alerts: []string{}, Details: map[string]DetectionResult{}}
}

// SkippedReport returns a zero-score report that was not assessed.
func SkippedReport(reason string) CategoryReport {
	r := NewCategoryReport()
	r.Skipped = true
	r.SkipReason = reason
	return r
}

// Defaulted returns the sorted names of checks that fell back after an error.
func (r CategoryReport) Defaulted() []string {
	var out []string
	for name, d := range r.Details {
		if d.Defaulted {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func (r *CategoryReport) record(check string, res DetectionResult, increment float64, alert string) {
	r.Details[check] = res
	if res.Suspicious {
		r.Score += increment
		r.Alerts = append(r.Alerts, alert)
	}
}

func (r *CategoryReport) fail(prefix string, err error) {
	r.Err = err
	r.Alerts = append(r.Alerts, prefix+err.Error())
}

func result(suspicious bool, metrics map[string]float64) DetectionResult {
	return DetectionResult{Suspicious: suspicious, Metrics: metrics}
}

func defaulted(err error) DetectionResult {
	return DetectionResult{Metrics: map[string]float64{}, Defaulted: true, Err: err}
}
