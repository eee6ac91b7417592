package ensemble

import "errors"

// Sentinel errors returned by the scorer.
var (
	// ErrApplicantNotFound means the feature source has no row for the id.
	ErrApplicantNotFound = errors.New("applicant not found")
	// ErrSchemaMismatch means a row lacks a column a classifier expects or
	// holds a non-numeric value there.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	// ErrFeatureLookup wraps transient feature source failures.
	ErrFeatureLookup = errors.New("feature lookup failed")
	// ErrInvalidProbability means a classifier returned a value outside [0,1].
	ErrInvalidProbability = errors.New("classifier returned an invalid probability")
	// ErrScorerUnavailable means no classifier models are configured.
	ErrScorerUnavailable = errors.New("fraud scorer not configured")
)
