//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/docrisk/internal/adapters/repository"
	"github.com/okian/docrisk/internal/domain/forensics"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/internal/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	pg := testutil.StartPostgres(ctx, t)
	s := repository.NewPostgresStore(pg.Pool)

	Convey("Given a postgres store", t, func() {
		Convey("When a report is saved and read back", func() {
			rec := done("pg-1", risk.BandMedium)
			rec.Report.RiskScore = 0.6
			rec.Report.Details = map[string]forensics.CategoryReport{
				forensics.CategorySignatures: forensics.SkippedReport("disabled for document type"),
			}
			So(s.Save(ctx, pending("pg-1")), ShouldBeNil)
			So(s.Save(ctx, rec), ShouldBeNil)

			got, err := s.Get(ctx, "pg-1")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, model.StatusDone)
			So(got.Report.RiskScore, ShouldEqual, 0.6)
			So(got.Report.Details[forensics.CategorySignatures].Skipped, ShouldBeTrue)
			So(got.CompletedAt, ShouldNotBeNil)
		})

		Convey("When an unknown id is read", func() {
			_, err := s.Get(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When stats are requested", func() {
			So(s.Save(ctx, model.Record{DocumentID: "pg-f", Status: model.StatusFailed, Error: "x", SubmittedAt: time.Now()}), ShouldBeNil)
			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.Failed, ShouldBeGreaterThanOrEqualTo, 1)
			So(st.Total, ShouldEqual, st.Pending+st.Done+st.Failed)
		})
	})
}
