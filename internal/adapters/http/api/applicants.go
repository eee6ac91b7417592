package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/docrisk/internal/domain/ensemble"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
)

const fraudScoreSuffix = "/fraud-score"

// fraudScoreResponse adds the review grade of the blended probability.
type fraudScoreResponse struct {
	ensemble.Result
	Confidence string `json:"confidence"`
}

// ApplicantsHandler serves ensemble fraud scores.
type ApplicantsHandler struct {
	deps   Dependencies
	review risk.Review
	logger logger.Logger
}

// NewApplicantsHandler creates a new applicants handler.
func NewApplicantsHandler(deps Dependencies, review risk.Review, l logger.Logger) *ApplicantsHandler {
	return &ApplicantsHandler{deps: deps, review: review, logger: l}
}

// HandleFraudScore handles GET /applicants/{id}/fraud-score requests.
func (h *ApplicantsHandler) HandleFraudScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.fraud_score"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/applicants/")
	id, ok := strings.CutSuffix(path, fraudScoreSuffix)
	if !ok {
		http.NotFound(w, r)
		return
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	res, err := h.deps.FraudScore(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, fraudScoreResponse{Result: res, Confidence: h.review.Grade(res.Probability)})
	case errors.Is(err, ensemble.ErrApplicantNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, ensemble.ErrSchemaMismatch):
		h.logger.Error(r.Context(), "feature schema mismatch", logger.String("applicant_id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "schema_mismatch", err)
	case errors.Is(err, ensemble.ErrScorerUnavailable), errors.Is(err, ensemble.ErrFeatureLookup):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		h.logger.Error(r.Context(), "fraud score failed", logger.String("applicant_id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
