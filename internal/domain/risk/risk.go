// Package risk folds the per-category forensic scores into a single bounded
// risk score and a human-readable verdict.
package risk

import (
	"github.com/okian/docrisk/internal/domain/forensics"
)

// Band names a risk level.
type Band string

// Risk bands.
const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// Verdict alerts and recommendations.
const (
	AlertHigh   = "ALTO RIESGO: Se detectaron múltiples indicadores de posible fraude"
	AlertMedium = "RIESGO MEDIO: Se detectaron algunos indicadores sospechosos"
	AlertLow    = "RIESGO BAJO: No se detectaron indicadores claros de fraude"

	RecommendPhysicalReview = "Revisar el documento físicamente"
	RecommendMoreDocuments  = "Solicitar documentación adicional"
	RecommendVerify         = "Verificar la autenticidad del documento"
	RecommendCompare        = "Comparar con documentos originales"
)

// categoryCount divides the score sum even when categories were skipped.
const categoryCount = 5

const (
	defaultHighThreshold   = 0.8
	defaultMediumThreshold = 0.5
)

// Report is the final artifact of one document analysis.
type Report struct {
	DocumentID      string                              `json:"document_id,omitempty"`
	DocumentType    string                              `json:"document_type,omitempty"`
	RiskScore       float64                             `json:"risk_score"`
	Band            Band                                `json:"band"`
	Alerts          []string                            `json:"alerts"`
	Details         map[string]forensics.CategoryReport `json:"details"`
	Recommendations []string                            `json:"recommendations"`

	// Metadata lists informational suspicions that do not affect the score.
	Metadata []string `json:"metadata,omitempty"`
	// ApplicantID is the identity number found in the text, if any.
	ApplicantID string `json:"applicant_id,omitempty"`
}

// Skipped lists the categories that were not assessed.
func (r *Report) Skipped() []string {
	var out []string
	for _, c := range forensics.Categories() {
		if d, ok := r.Details[c]; ok && d.Skipped {
			out = append(out, c)
		}
	}
	return out
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithThresholds sets the band thresholds. Values outside [0,1] or a medium
// above high are ignored.
func WithThresholds(high, medium float64) Option {
	return func(a *Aggregator) {
		if high >= 0 && high <= 1 && medium >= 0 && medium <= high {
			a.high = high
			a.medium = medium
		}
	}
}

// Aggregator combines category reports. It holds no mutable state.
type Aggregator struct {
	high   float64
	medium float64
}

// NewAggregator creates an aggregator with the default 0.8/0.5 bands.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{high: defaultHighThreshold, medium: defaultMediumThreshold}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate sums the five category scores, normalizes by the fixed category
// count and classifies the result. Missing categories count as zero and
// unknown keys are carried in Details without scoring. The input map is copied.
func (a *Aggregator) Aggregate(categories map[string]forensics.CategoryReport) *Report {
	details := make(map[string]forensics.CategoryReport, len(categories))
	for name, c := range categories {
		details[name] = c
	}
	var sum float64
	for _, name := range forensics.Categories() {
		sum += categories[name].Score
	}

	score := a.Score(sum)
	band := a.Classify(score)
	r := &Report{
		RiskScore:       score,
		Band:            band,
		Details:         details,
		Alerts:          []string{},
		Recommendations: []string{},
	}
	switch band {
	case BandHigh:
		r.Alerts = append(r.Alerts, AlertHigh)
		r.Recommendations = append(r.Recommendations, RecommendPhysicalReview, RecommendMoreDocuments)
	case BandMedium:
		r.Alerts = append(r.Alerts, AlertMedium)
		r.Recommendations = append(r.Recommendations, RecommendVerify, RecommendCompare)
	default:
		r.Alerts = append(r.Alerts, AlertLow)
	}
	return r
}

// Score normalizes a raw category sum into [0,1].
func (a *Aggregator) Score(sum float64) float64 {
	return min(1, max(0, sum/categoryCount))
}

// Classify maps a risk score to its band. Both comparisons are strict.
func (a *Aggregator) Classify(score float64) Band {
	switch {
	case score > a.high:
		return BandHigh
	case score > a.medium:
		return BandMedium
	default:
		return BandLow
	}
}
