package risk

// Confidence labels.
const (
	ConfidenceHigh   = "Alta confianza"
	ConfidenceMedium = "Media confianza"
	ConfidenceLow    = "Baja confianza"
)

// Review grades a confidence value against the review thresholds. These are
// independent of the aggregator bands and use inclusive bounds.
type Review struct {
	High   float64
	Medium float64
}

// DefaultReview returns the 0.7/0.5 review thresholds.
func DefaultReview() Review {
	return Review{High: 0.7, Medium: 0.5}
}

// Grade returns the confidence label for v.
func (r Review) Grade(v float64) string {
	switch {
	case v >= r.High:
		return ConfidenceHigh
	case v >= r.Medium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
