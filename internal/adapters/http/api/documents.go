package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/docrisk/internal/adapters/mq/queue"
	"github.com/okian/docrisk/internal/adapters/repository"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/pkg/logger"
)

// DocumentsHandler handles asynchronous document submissions.
type DocumentsHandler struct {
	deps     Dependencies
	maxBytes int64
	logger   logger.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(deps Dependencies, maxBytes int64, l logger.Logger) *DocumentsHandler {
	return &DocumentsHandler{deps: deps, maxBytes: maxBytes, logger: l}
}

// HandlePostDocument handles POST /documents requests.
func (h *DocumentsHandler) HandlePostDocument(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_document"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	sub, status, err := decodeSubmission(w, r, h.maxBytes)
	if err != nil {
		writeError(w, status, codeFor(status), WrapKind(op, ErrBadRequest, err))
		return
	}

	receipt, err := h.deps.Submit(r.Context(), sub)
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	case errors.Is(err, queue.ErrQueueClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	case errors.Is(err, model.ErrEmptySubmission):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	default:
		h.logger.Error(r.Context(), "submit failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	if receipt.Duplicate {
		writeJSON(w, http.StatusOK, receipt)
		return
	}
	writeJSON(w, http.StatusAccepted, receipt)
}

// HandleGetDocument handles GET /documents/{id} requests.
func (h *DocumentsHandler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_document"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Record(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		h.logger.Error(r.Context(), "record lookup failed", logger.String("document_id", id), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// decodeSubmission reads a size-capped JSON submission and returns the
// status to answer with when it cannot be used.
func decodeSubmission(w http.ResponseWriter, r *http.Request, maxBytes int64) (model.Submission, int, error) {
	var sub model.Submission
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return sub, http.StatusRequestEntityTooLarge, err
		}
		return sub, http.StatusBadRequest, err
	}
	if err := sub.Validate(); err != nil {
		return sub, http.StatusBadRequest, err
	}
	return sub, http.StatusOK, nil
}

func codeFor(status int) string {
	if status == http.StatusRequestEntityTooLarge {
		return "payload_too_large"
	}
	return "bad_request"
}
