package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/docrisk/internal/adapters/repository"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

func pending(id string) model.Record {
	return model.Record{DocumentID: id, Status: model.StatusPending, SubmittedAt: time.Now()}
}

func done(id string, band risk.Band) model.Record {
	at := time.Now()
	return model.Record{
		DocumentID:  id,
		Status:      model.StatusDone,
		Report:      &risk.Report{DocumentID: id, Band: band},
		SubmittedAt: at,
		CompletedAt: &at,
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := repository.NewMemoryStore()

		Convey("When reading an unknown document", func() {
			_, err := s.Get(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When saving without an id", func() {
			So(errors.Is(s.Save(ctx, model.Record{}), repository.ErrEmptyDocumentID), ShouldBeTrue)
		})

		Convey("When a pending record is completed", func() {
			So(s.Save(ctx, pending("a")), ShouldBeNil)
			So(s.Save(ctx, done("a", risk.BandHigh)), ShouldBeNil)

			Convey("Then the latest record wins", func() {
				r, err := s.Get(ctx, "a")
				So(err, ShouldBeNil)
				So(r.Status, ShouldEqual, model.StatusDone)
				So(r.Report.Band, ShouldEqual, risk.BandHigh)
				So(s.Len(), ShouldEqual, 1)
			})
		})

		Convey("When records of every status exist", func() {
			So(s.Save(ctx, pending("p")), ShouldBeNil)
			So(s.Save(ctx, done("l", risk.BandLow)), ShouldBeNil)
			So(s.Save(ctx, done("h", risk.BandHigh)), ShouldBeNil)
			So(s.Save(ctx, model.Record{DocumentID: "f", Status: model.StatusFailed, Error: "boom"}), ShouldBeNil)

			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st, ShouldResemble, repository.Stats{
				Total: 4, Pending: 1, Done: 2, Failed: 1,
				ByBand: map[string]int{"low": 1, "high": 1},
			})
		})
	})

	Convey("Given a store bounded to three records", t, func() {
		s := repository.NewMemoryStore(repository.WithCapacity(3))
		for _, id := range []string{"a", "b", "c"} {
			So(s.Save(ctx, pending(id)), ShouldBeNil)
		}
		So(s.Save(ctx, done("a", risk.BandLow)), ShouldBeNil)
		So(s.Save(ctx, pending("d")), ShouldBeNil)

		Convey("Then the oldest submission is evicted even if it was updated", func() {
			So(s.Len(), ShouldEqual, 3)
			_, err := s.Get(ctx, "a")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.Get(ctx, "d")
			So(err, ShouldBeNil)
		})
	})

	Convey("Given concurrent writers", t, func() {
		s := repository.NewMemoryStore(repository.WithCapacity(50))
		var wg sync.WaitGroup
		for i := range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.Save(ctx, pending(fmt.Sprintf("doc-%d", i)))
			}()
		}
		wg.Wait()
		So(s.Len(), ShouldEqual, 50)
	})
}
