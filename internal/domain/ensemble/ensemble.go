// Package ensemble blends two independently trained fraud classifiers into
// one probability for an applicant.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/docrisk/pkg/logger"
	"github.com/okian/docrisk/pkg/metrics"
	"github.com/okian/docrisk/pkg/tracing"
)

// Blend weights. They sum to one, so the result stays a probability.
const (
	WeightA = 0.4
	WeightB = 0.6
)

const defaultDecisionThreshold = 0.5

// FeatureRow is one applicant's record as stored by the feature source.
type FeatureRow struct {
	ApplicantID string
	Fields      map[string]string
}

// FeatureSource looks up applicant rows. Lookup returns ErrApplicantNotFound
// (possibly wrapped) for unknown ids.
type FeatureSource interface {
	Lookup(ctx context.Context, applicantID string) (FeatureRow, error)
}

// Classifier is a trained binary model.
type Classifier interface {
	// Features lists the input columns in the order PredictNonFraud expects.
	Features() []string
	// PredictNonFraud returns the probability of the non-fraud class.
	PredictNonFraud(ctx context.Context, features []float64) (float64, error)
}

// Result is the blended score for one applicant.
type Result struct {
	ApplicantID   string  `json:"applicant_id"`
	Probability   float64 `json:"probability"`
	ModelA        float64 `json:"model_a"`
	ModelB        float64 `json:"model_b"`
	PossibleFraud bool    `json:"possible_fraud"`
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithDropColumns sets identifier columns removed before feature selection.
func WithDropColumns(cols ...string) Option {
	return func(s *Scorer) {
		s.drop = make(map[string]bool, len(cols))
		for _, c := range cols {
			s.drop[c] = true
		}
	}
}

// WithDecisionThreshold sets the probability above which an applicant is
// flagged as possible fraud.
func WithDecisionThreshold(t float64) Option {
	return func(s *Scorer) {
		if t >= 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scorer computes ensemble fraud probabilities. It is safe for concurrent use
// when its source and classifiers are.
type Scorer struct {
	source    FeatureSource
	modelA    Classifier
	modelB    Classifier
	drop      map[string]bool
	threshold float64
	logger    logger.Logger
	tracer    trace.Tracer
}

// NewScorer wires a feature source and the two classifiers.
func NewScorer(source FeatureSource, modelA, modelB Classifier, opts ...Option) *Scorer {
	s := &Scorer{
		source:    source,
		modelA:    modelA,
		modelB:    modelB,
		drop:      map[string]bool{"CEDULA": true, "N": true},
		threshold: defaultDecisionThreshold,
		logger:    logger.Get().Named("ensemble"),
		tracer:    tracing.Tracer("github.com/okian/docrisk/ensemble"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score looks up the applicant and scores the row. Transient lookup errors
// are retried once without backoff; a missing applicant is not retried.
func (s *Scorer) Score(ctx context.Context, applicantID string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "ensemble.Score", trace.WithAttributes(attribute.String("applicant.id", applicantID)))
	defer span.End()
	start := time.Now()
	defer func() {
		metrics.RecordEnsembleLatency(float64(time.Since(start).Milliseconds()))
	}()

	row, err := s.lookup(ctx, applicantID)
	if err != nil {
		metrics.RecordEnsembleScore("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	res, err := s.ScoreRow(ctx, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Float64("ensemble.probability", res.Probability))
	return res, nil
}

func (s *Scorer) lookup(ctx context.Context, applicantID string) (FeatureRow, error) {
	row, err := s.source.Lookup(ctx, applicantID)
	if err == nil {
		return row, nil
	}
	if errors.Is(err, ErrApplicantNotFound) {
		metrics.RecordFeatureLookupFailure("not_found")
		return FeatureRow{}, err
	}
	if ctx.Err() != nil {
		metrics.RecordFeatureLookupFailure("cancelled")
		return FeatureRow{}, fmt.Errorf("%w: %w", ErrFeatureLookup, ctx.Err())
	}

	metrics.RecordFeatureLookupRetry()
	s.logger.Warn(ctx, "feature lookup failed, retrying",
		logger.String("applicant_id", applicantID),
		logger.Error(err),
	)
	row, err = s.source.Lookup(ctx, applicantID)
	if err == nil {
		return row, nil
	}
	if errors.Is(err, ErrApplicantNotFound) {
		metrics.RecordFeatureLookupFailure("not_found")
		return FeatureRow{}, err
	}
	metrics.RecordFeatureLookupFailure("unavailable")
	return FeatureRow{}, fmt.Errorf("%w: %w", ErrFeatureLookup, err)
}

// ScoreRow blends both classifiers over an already fetched row.
func (s *Scorer) ScoreRow(ctx context.Context, row FeatureRow) (Result, error) {
	pA, err := s.fraudProbability(ctx, s.modelA, row)
	if err != nil {
		metrics.RecordEnsembleScore("error")
		return Result{}, fmt.Errorf("model a: %w", err)
	}
	pB, err := s.fraudProbability(ctx, s.modelB, row)
	if err != nil {
		metrics.RecordEnsembleScore("error")
		return Result{}, fmt.Errorf("model b: %w", err)
	}

	p := Blend(pA, pB)
	res := Result{
		ApplicantID:   row.ApplicantID,
		Probability:   p,
		ModelA:        pA,
		ModelB:        pB,
		PossibleFraud: p > s.threshold,
	}
	if res.PossibleFraud {
		metrics.RecordEnsembleScore("possible_fraud")
	} else {
		metrics.RecordEnsembleScore("clear")
	}
	return res, nil
}

// Blend combines two fraud probabilities with the fixed weights.
func Blend(pA, pB float64) float64 {
	return WeightA*pA + WeightB*pB
}

func (s *Scorer) fraudProbability(ctx context.Context, c Classifier, row FeatureRow) (float64, error) {
	vec, err := s.Vector(row, c.Features())
	if err != nil {
		return 0, err
	}
	nonFraud, err := c.PredictNonFraud(ctx, vec)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(nonFraud) || nonFraud < 0 || nonFraud > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, nonFraud)
	}
	return 1 - nonFraud, nil
}

// Vector selects columns in order after dropping identifier columns. A
// missing, dropped or non-numeric column is a schema mismatch.
func (s *Scorer) Vector(row FeatureRow, columns []string) ([]float64, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: classifier declares no features", ErrSchemaMismatch)
	}
	out := make([]float64, len(columns))
	for i, col := range columns {
		raw, ok := row.Fields[col]
		if !ok || s.drop[col] {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, col)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q is not numeric: %q", ErrSchemaMismatch, col, raw)
		}
		out[i] = v
	}
	return out, nil
}
