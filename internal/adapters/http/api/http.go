// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/docrisk/internal/domain/ensemble"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/auth"
	"github.com/okian/docrisk/pkg/logger"
)

const defaultMaxUploadBytes = 32 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a document for asynchronous analysis.
	Submit(ctx context.Context, s model.Submission) (model.Receipt, error)
	// Record returns the stored state of a submitted document.
	Record(ctx context.Context, documentID string) (model.Record, error)
	// Analyze runs the analysis inline and returns the report.
	Analyze(ctx context.Context, s model.Submission) (*risk.Report, error)
	// FraudScore runs the classifier ensemble for an applicant.
	FraudScore(ctx context.Context, applicantID string) (ensemble.Result, error)
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Option configures a Server.
type Option func(*Server)

// WithMaxUploadBytes caps request bodies on document endpoints.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithVerifier requires a valid bearer token on business routes.
func WithVerifier(v TokenVerifier) Option {
	return func(s *Server) {
		if v != nil {
			s.verifier = v
		}
	}
}

// WithReview sets the thresholds used to grade fraud probabilities.
func WithReview(r risk.Review) Option {
	return func(s *Server) {
		s.review = r
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	stats          StatsProvider
	verifier       TokenVerifier
	review         risk.Review
	maxUploadBytes int64
	logger         logger.Logger

	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	documentsHandler  *DocumentsHandler
	analyzeHandler    *AnalyzeHandler
	applicantsHandler *ApplicantsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		stats:          statsProvider,
		review:         risk.DefaultReview(),
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.documentsHandler = NewDocumentsHandler(deps, s.maxUploadBytes, s.logger)
	s.analyzeHandler = NewAnalyzeHandler(deps, s.maxUploadBytes, s.logger)
	s.applicantsHandler = NewApplicantsHandler(deps, s.review, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.authenticated(s.statsHandler.HandleStats), "stats"))
	mux.HandleFunc("/documents", MetricsMiddleware(s.authenticated(s.documentsHandler.HandlePostDocument), "documents"))
	mux.HandleFunc("/documents/", MetricsMiddleware(s.authenticated(s.documentsHandler.HandleGetDocument), "document"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.authenticated(s.analyzeHandler.HandleAnalyze), "analyze"))
	mux.HandleFunc("/applicants/", MetricsMiddleware(s.authenticated(s.applicantsHandler.HandleFraudScore), "fraud_score"))
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	if s.verifier == nil {
		return next
	}
	return AuthMiddleware(s.verifier, next)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
