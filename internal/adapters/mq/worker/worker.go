// Package worker runs queued document analyses and stores their outcome.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
	"github.com/okian/docrisk/pkg/metrics"
)

const (
	defaultAnalysisTimeout = 60 * time.Second
	poolShutdownTimeout    = 30 * time.Second
)

// Analyzer produces the risk report of one document.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, doc analysis.Document) (*risk.Report, error)
}

// Store persists submission records.
type Store interface {
	Save(ctx context.Context, r model.Record) error
}

// Publisher forwards finished reports downstream.
type Publisher interface {
	Publish(ctx context.Context, rep *risk.Report) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs until stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker analyzes jobs read from a Queue.
type InMemoryWorker struct {
	queue     Queue
	analyzer  Analyzer
	store     Store
	publisher Publisher
	timeout   time.Duration
	name      string
	now       func() time.Time
	onFailure func(ctx context.Context, j model.Job, err error)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker. The publisher is optional.
func NewInMemoryWorker(q Queue, a Analyzer, s Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		analyzer: a,
		store:    s,
		timeout:  defaultAnalysisTimeout,
		name:     "worker",
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx ends, Shutdown is called or
// the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing document", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process analyzes one job. Analysis failures are stored as failed records;
// only store errors are returned.
func (w *InMemoryWorker) process(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	actx, cancel := context.WithTimeout(ctx, w.timeout)
	rep, err := w.analyzer.AnalyzeDocument(actx, j.Document)
	cancel()

	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Warn(ctx, "analysis failed",
			logger.String("document_id", j.Document.ID),
			logger.Error(err),
		)
		if serr := w.store.Save(ctx, model.Failed(j, err, w.now())); serr != nil {
			return fmt.Errorf("store failed record %s: %w", j.Document.ID, serr)
		}
		if w.onFailure != nil {
			w.onFailure(ctx, j, err)
		}
		return nil
	}

	if err := w.store.Save(ctx, model.Done(j, rep, w.now())); err != nil {
		metrics.RecordWorkerError()
		return fmt.Errorf("store report %s: %w", j.Document.ID, err)
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, rep); err != nil {
			metrics.RecordPublishError()
			w.logger.Warn(ctx, "publish failed",
				logger.String("document_id", j.Document.ID),
				logger.Error(err),
			)
		} else {
			metrics.RecordReportPublished()
		}
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. A count below one uses the number of
// CPUs. Worker options apply to every worker.
func NewPool(workerCount int, q Queue, a Analyzer, s Store, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range workerCount {
		wopts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, a, s, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start runs every worker in its own goroutine.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-sctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", sctx.Err())
	}
	return nil
}
