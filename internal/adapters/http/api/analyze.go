package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/pkg/logger"
)

// AnalyzeHandler runs a synchronous analysis.
type AnalyzeHandler struct {
	deps     Dependencies
	maxBytes int64
	logger   logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies, maxBytes int64, l logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, maxBytes: maxBytes, logger: l}
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sub, status, err := decodeSubmission(w, r, h.maxBytes)
	if err != nil {
		writeError(w, status, codeFor(status), WrapKind(op, ErrBadRequest, err))
		return
	}

	rep, err := h.deps.Analyze(r.Context(), sub)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rep)
	case errors.Is(err, analysis.ErrDocumentTypeDisabled):
		writeError(w, http.StatusUnprocessableEntity, "document_type_disabled", WrapKind(op, ErrUnprocessable, err))
	case errors.Is(err, analysis.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", err)
	default:
		h.logger.Error(r.Context(), "analysis failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
