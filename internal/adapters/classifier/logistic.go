package classifier

import (
	"context"
	"fmt"
	"math"
)

// Logistic is a binary logistic regression with optional standard scaling
// applied before the linear term.
type Logistic struct {
	FeatureNames []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
}

// Features implements ensemble.Classifier.
func (l *Logistic) Features() []string { return l.FeatureNames }

// PredictNonFraud returns sigmoid(w·z + b), where z is x standardized when a
// scaler is present.
func (l *Logistic) PredictNonFraud(_ context.Context, x []float64) (float64, error) {
	if len(x) != len(l.Coefficients) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), len(l.Coefficients))
	}
	z := l.Intercept
	for i, v := range x {
		if len(l.Mean) > 0 {
			v = (v - l.Mean[i]) / l.Scale[i]
		}
		z += l.Coefficients[i] * v
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func (l *Logistic) validate() error {
	n := len(l.Coefficients)
	switch {
	case n == 0:
		return fmt.Errorf("%w: no coefficients", ErrInvalidModel)
	case len(l.FeatureNames) != n:
		return fmt.Errorf("%w: %d features for %d coefficients", ErrInvalidModel, len(l.FeatureNames), n)
	case len(l.Mean) != len(l.Scale):
		return fmt.Errorf("%w: scaler mean and scale differ in length", ErrInvalidModel)
	case len(l.Mean) > 0 && len(l.Mean) != n:
		return fmt.Errorf("%w: scaler has %d columns for %d coefficients", ErrInvalidModel, len(l.Mean), n)
	}
	for i, s := range l.Scale {
		if s == 0 {
			return fmt.Errorf("%w: zero scale for feature %q", ErrInvalidModel, l.FeatureNames[i])
		}
	}
	return nil
}
