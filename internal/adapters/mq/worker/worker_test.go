package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/docrisk/internal/adapters/mq/queue"
	"github.com/okian/docrisk/internal/adapters/mq/worker"
	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	logging "github.com/okian/docrisk/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

type stubAnalyzer struct {
	fail map[string]error
}

func (s *stubAnalyzer) AnalyzeDocument(_ context.Context, doc analysis.Document) (*risk.Report, error) {
	if err, ok := s.fail[doc.ID]; ok {
		return nil, err
	}
	return &risk.Report{DocumentID: doc.ID, Band: risk.BandLow}, nil
}

type memStore struct {
	mu      sync.Mutex
	records map[string]model.Record
	err     error
}

func newMemStore() *memStore {
	return &memStore{records: map[string]model.Record{}}
}

func (m *memStore) Save(_ context.Context, r model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[r.DocumentID] = r
	return nil
}

func (m *memStore) get(id string) (model.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

type countingPublisher struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (p *countingPublisher) Publish(_ context.Context, rep *risk.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, rep.DocumentID)
	return nil
}

func (p *countingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func submit(q *queue.InMemoryQueue, ids ...string) {
	for _, id := range ids {
		if err := q.Enqueue(context.Background(), model.Job{Document: analysis.Document{ID: id}, SubmittedAt: time.Now()}); err != nil {
			panic(err)
		}
	}
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over a queue of documents", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		store := newMemStore()
		pub := &countingPublisher{}
		a := &stubAnalyzer{fail: map[string]error{"bad": analysis.ErrDocumentTypeDisabled}}
		pool := worker.NewPool(3, q, a, store, worker.WithPublisher(pub))
		convey.So(pool.Size(), convey.ShouldEqual, 3)

		submit(q, "d1", "d2", "bad")
		pool.Start(context.Background())
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

		convey.Convey("Then successful analyses are stored and published", func() {
			r, ok := store.get("d1")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(r.Status, convey.ShouldEqual, model.StatusDone)
			convey.So(r.Report.DocumentID, convey.ShouldEqual, "d1")
			convey.So(r.CompletedAt, convey.ShouldNotBeNil)
			convey.So(pub.published(), convey.ShouldHaveLength, 2)
		})

		convey.Convey("Then failed analyses are stored as failed", func() {
			r, ok := store.get("bad")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(r.Status, convey.ShouldEqual, model.StatusFailed)
			convey.So(r.Error, convey.ShouldContainSubstring, "document type disabled")
			convey.So(pub.published(), convey.ShouldNotContain, "bad")
		})
	})

	convey.Convey("Given a pool with a failure hook", t, func() {
		q := queue.NewInMemoryQueue()
		store := newMemStore()
		a := &stubAnalyzer{fail: map[string]error{"bad": analysis.ErrDocumentTypeDisabled}}
		var (
			mu     sync.Mutex
			failed []string
			status model.Status
		)
		hook := worker.WithFailureHook(func(_ context.Context, j model.Job, err error) {
			mu.Lock()
			defer mu.Unlock()
			failed = append(failed, j.Document.ID)
			if errors.Is(err, analysis.ErrDocumentTypeDisabled) {
				r, _ := store.get(j.Document.ID)
				status = r.Status
			}
		})
		pool := worker.NewPool(2, q, a, store, hook)

		submit(q, "d1", "bad", "d2")
		pool.Start(context.Background())
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

		convey.Convey("Then it runs only for the failed document after its record is stored", func() {
			mu.Lock()
			defer mu.Unlock()
			convey.So(failed, convey.ShouldResemble, []string{"bad"})
			convey.So(status, convey.ShouldEqual, model.StatusFailed)
		})
	})

	convey.Convey("Given a publisher that fails", t, func() {
		q := queue.NewInMemoryQueue()
		store := newMemStore()
		pub := &countingPublisher{err: errors.New("broker down")}
		pool := worker.NewPool(1, q, &stubAnalyzer{}, store, worker.WithPublisher(pub))

		submit(q, "d1")
		pool.Start(context.Background())
		convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

		convey.Convey("Then the report is still stored", func() {
			r, ok := store.get("d1")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(r.Status, convey.ShouldEqual, model.StatusDone)
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker with an empty queue", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, &stubAnalyzer{}, newMemStore(), worker.WithName("solo"))
		go w.Run(context.Background())

		convey.Convey("Then shutdown returns once the loop exits", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
		})
	})
}
