// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/docrisk/internal/adapters/mq/kafka"
	"github.com/okian/docrisk/internal/adapters/mq/queue"
	"github.com/okian/docrisk/internal/adapters/mq/worker"
	"github.com/okian/docrisk/internal/adapters/repository"
	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/dedupe"
	"github.com/okian/docrisk/internal/domain/ensemble"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
	"github.com/okian/docrisk/pkg/metrics"
)

// documentNamespace derives stable document ids from submission fingerprints,
// so resubmitting the same bytes yields the id of the first submission.
var documentNamespace = uuid.MustParse("6f1c9a52-3b8e-4d27-9e0a-5c4b7d2e8f13")

// Service implements the API dependencies for document risk analysis.
type Service struct {
	mu sync.RWMutex

	// Core components
	analyzer  *analysis.Analyzer
	scorer    *ensemble.Scorer
	store     repository.Store
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	publisher worker.Publisher

	checks map[string]HealthCheck

	// Configuration
	workerCount     int
	queueSize       int
	dedupeSize      int
	reportCapacity  int
	analysisTimeout time.Duration
	now             func() time.Time

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// healthCheckTimeout bounds each dependency check run by GetStats.
const healthCheckTimeout = 2 * time.Second

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued documents.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication index.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithReportCapacity bounds the default in-memory report store.
func WithReportCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.reportCapacity = n
		}
	}
}

// WithAnalysisTimeout bounds a single document analysis.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.analysisTimeout = d
		}
	}
}

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(a *analysis.Analyzer) Option {
	return func(s *Service) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithScorer enables applicant fraud scoring.
func WithScorer(sc *ensemble.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithStore replaces the default in-memory report store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithPublisher forwards finished reports.
func WithPublisher(p worker.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHealthCheck adds a dependency check reported by GetStats under name.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Service) {
		if name == "" || check == nil {
			return
		}
		if s.checks == nil {
			s.checks = make(map[string]HealthCheck)
		}
		s.checks[name] = check
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       1_000,
		dedupeSize:      50_000,
		reportCapacity:  10_000,
		analysisTimeout: time.Minute,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components. Cancelling ctx does
// not stop the workers; call Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.analyzer == nil {
		s.analyzer = analysis.NewAnalyzer()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(repository.WithCapacity(s.reportCapacity))
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))

	deduper := s.deduper
	wopts := []worker.Option{
		worker.WithAnalysisTimeout(s.analysisTimeout),
		worker.WithFailureHook(func(ctx context.Context, j model.Job, _ error) {
			deduper.Unrecord(ctx, j.Fingerprint)
		}),
	}
	if s.publisher != nil {
		wopts = append(wopts, worker.WithPublisher(s.publisher))
	}
	s.pool = worker.NewPool(s.workerCount, s.queue, s.analyzer, s.store, wopts...)
	// Workers outlive ctx; Stop closes the queue and drains it.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "document risk service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("ensemble", s.scorer != nil),
	)
	return nil
}

// Stop closes the queue and waits for in-flight documents.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	s.logger.Info(ctx, "stopping document risk service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "document risk service stopped")
	return nil
}

// Submit records a pending document and queues it. A submission whose
// content and text were already seen is acknowledged as a duplicate carrying
// the id of the first submission and is not analyzed again. A failed
// analysis forgets its fingerprint so the document can be resubmitted.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (model.Receipt, error) {
	if err := sub.Validate(); err != nil {
		return model.Receipt{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Receipt{}, fmt.Errorf("submit: %w", queue.ErrQueueClosed)
	}

	fp := dedupe.Fingerprint(sub.Content, sub.OCRText)
	id := sub.DocumentID
	if id == "" {
		id = uuid.NewSHA1(documentNamespace, []byte(fp)).String()
	}

	if first, seen := s.deduper.SeenAndRecord(ctx, fp, id); seen {
		metrics.RecordDocumentDuplicate()
		s.logger.Debug(ctx, "duplicate document",
			logger.String("document_id", first),
			logger.String("requested_id", id),
		)
		return model.Receipt{DocumentID: first, Status: model.ReceiptDuplicate, Duplicate: true}, nil
	}

	job := model.Job{Fingerprint: fp, Document: sub.Document(id), SubmittedAt: s.now()}
	if err := s.store.Save(ctx, model.Pending(job)); err != nil {
		s.deduper.Unrecord(ctx, fp)
		return model.Receipt{}, fmt.Errorf("save pending record: %w", err)
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, fp)
		if serr := s.store.Save(ctx, model.Failed(job, err, s.now())); serr != nil {
			s.logger.Warn(ctx, "failed to record rejected document", logger.String("document_id", id), logger.Error(serr))
		}
		return model.Receipt{}, fmt.Errorf("enqueue %s: %w", id, err)
	}
	return model.Receipt{DocumentID: id, Status: model.ReceiptAccepted}, nil
}

// HandleSubmission adapts Submit to stream consumers, where duplicates are
// not an error. Invalid submissions are marked permanent so the consumer
// drops them instead of retrying.
func (s *Service) HandleSubmission(ctx context.Context, sub model.Submission) error {
	_, err := s.Submit(ctx, sub)
	if errors.Is(err, model.ErrEmptySubmission) {
		return kafka.Permanent(err)
	}
	return err
}

// Record returns the stored state of a submitted document.
func (s *Service) Record(ctx context.Context, documentID string) (model.Record, error) {
	return s.store.Get(ctx, documentID)
}

// Analyze runs the analysis inline, bypassing the queue and the report store.
func (s *Service) Analyze(ctx context.Context, sub model.Submission) (*risk.Report, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	a := s.analyzer
	if a == nil {
		a = analysis.NewAnalyzer()
	}
	ctx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	defer cancel()
	return a.AnalyzeDocument(ctx, sub.Document(uuid.NewString()))
}

// FraudScore blends the classifier ensemble for an applicant.
func (s *Service) FraudScore(ctx context.Context, applicantID string) (ensemble.Result, error) {
	if s.scorer == nil {
		return ensemble.Result{}, ensemble.ErrScorerUnavailable
	}
	return s.scorer.Score(ctx, applicantID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"ensemble":    s.scorer != nil,
	}
	if len(s.checks) > 0 {
		stats["dependencies"] = s.checkDependencies(ctx)
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["fingerprints"] = s.deduper.Size()
	metrics.UpdateQueueSize(queueLen)

	reports, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "report stats unavailable", logger.Error(err))
		return stats
	}
	stats["documents"] = reports
	metrics.UpdateReportsStored(reports.Total)
	return stats
}

func (s *Service) checkDependencies(ctx context.Context) map[string]string {
	out := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := check(cctx)
		cancel()
		if err != nil {
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	return out
}
