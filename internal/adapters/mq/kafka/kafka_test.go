package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafkago.Message
	committed []int64
	fetchErr  error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) == 0 {
		if r.fetchErr != nil {
			return kafkago.Message{}, r.fetchErr
		}
		return kafkago.Message{}, context.Canceled
	}
	m := r.pending[0]
	r.pending = r.pending[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestPublisher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a publisher", t, func() {
		w := &fakeWriter{}
		p := &Publisher{writer: w}
		rep := &risk.Report{DocumentID: "doc-1", RiskScore: 0.9, Band: risk.BandHigh, Alerts: []string{risk.AlertHigh}}

		Convey("When a report is published", func() {
			So(p.Publish(ctx, rep), ShouldBeNil)

			Convey("Then it is keyed by document id and carries the band", func() {
				So(w.msgs, ShouldHaveLength, 1)
				So(string(w.msgs[0].Key), ShouldEqual, "doc-1")
				So(string(w.msgs[0].Headers[0].Value), ShouldEqual, "high")

				var got risk.Report
				So(json.Unmarshal(w.msgs[0].Value, &got), ShouldBeNil)
				So(got.RiskScore, ShouldEqual, 0.9)
			})
		})

		Convey("When the broker rejects the write", func() {
			w.err = errors.New("leader not available")
			So(p.Publish(ctx, rep), ShouldNotBeNil)
		})

		Convey("When it is closed", func() {
			So(p.Close(), ShouldBeNil)
			So(w.closed, ShouldBeTrue)
		})
	})
}

func TestConsumer(t *testing.T) {
	ctx := context.Background()

	Convey("Given a topic with valid, malformed and rejected submissions", t, func() {
		good, _ := json.Marshal(model.Submission{OCRText: "texto"})
		busy, _ := json.Marshal(model.Submission{DocumentID: "busy", OCRText: "x"})
		empty, _ := json.Marshal(model.Submission{DocumentID: "empty"})
		r := &fakeReader{pending: []kafkago.Message{
			{Key: []byte("from-key"), Value: good, Offset: 1},
			{Value: []byte("{not json"), Offset: 2},
			{Value: busy, Offset: 3},
			{Value: empty, Offset: 4},
		}}

		var got []model.Submission
		attempts := map[string]int{}
		c := &Consumer{reader: r, logger: logger.Get(), handler: func(_ context.Context, s model.Submission) error {
			attempts[s.DocumentID]++
			switch {
			case s.DocumentID == "busy" && attempts["busy"] == 1:
				return errors.New("queue full")
			case s.DocumentID == "empty":
				return Permanent(model.ErrEmptySubmission)
			}
			got = append(got, s)
			return nil
		}}

		So(c.Run(ctx), ShouldBeNil)

		Convey("Then the message key fills a missing document id", func() {
			So(got[0].DocumentID, ShouldEqual, "from-key")
		})

		Convey("Then a failed message is retried before later offsets are committed", func() {
			So(attempts["busy"], ShouldEqual, 2)
			So(got, ShouldHaveLength, 2)
			So(got[1].DocumentID, ShouldEqual, "busy")
		})

		Convey("Then every message is committed in order", func() {
			So(attempts["empty"], ShouldEqual, 1)
			So(r.committed, ShouldResemble, []int64{1, 2, 3, 4})
		})
	})

	Convey("Given a handler that keeps failing", t, func() {
		busy, _ := json.Marshal(model.Submission{DocumentID: "busy", OCRText: "x"})
		r := &fakeReader{pending: []kafkago.Message{{Value: busy, Offset: 7}}}
		cctx, cancel := context.WithCancel(ctx)
		calls := 0
		c := &Consumer{reader: r, logger: logger.Get(), handler: func(context.Context, model.Submission) error {
			calls++
			if calls == 3 {
				cancel()
			}
			return errors.New("store down")
		}}

		So(c.Run(cctx), ShouldBeNil)

		Convey("Then the message stays uncommitted when the context ends", func() {
			So(calls, ShouldBeGreaterThanOrEqualTo, 3)
			So(r.committed, ShouldBeEmpty)
		})
	})

	Convey("Given a broken connection", t, func() {
		c := &Consumer{reader: &fakeReader{fetchErr: io.ErrUnexpectedEOF}, logger: logger.Get()}
		So(errors.Is(c.Run(ctx), io.ErrUnexpectedEOF), ShouldBeTrue)
	})
}
