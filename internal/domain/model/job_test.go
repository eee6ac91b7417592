package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecord(t *testing.T) {
	submitted := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	job := model.Job{Fingerprint: "f", Document: analysis.Document{ID: "doc-7"}, SubmittedAt: submitted}

	Convey("Given a queued job", t, func() {
		r := model.Pending(job)
		So(r.DocumentID, ShouldEqual, "doc-7")
		So(r.Status, ShouldEqual, model.StatusPending)
		So(r.Terminal(), ShouldBeFalse)
		So(r.CompletedAt, ShouldBeNil)
	})

	Convey("Given a finished job", t, func() {
		at := submitted.Add(time.Second)
		rep := &risk.Report{DocumentID: "doc-7", Band: risk.BandLow}
		r := model.Done(job, rep, at)
		So(r.Status, ShouldEqual, model.StatusDone)
		So(r.Report, ShouldEqual, rep)
		So(*r.CompletedAt, ShouldEqual, at)
		So(r.Terminal(), ShouldBeTrue)
	})

	Convey("Given a failed job", t, func() {
		r := model.Failed(job, errors.New("document type disabled"), submitted)
		So(r.Status, ShouldEqual, model.StatusFailed)
		So(r.Error, ShouldEqual, "document type disabled")
		So(r.Report, ShouldBeNil)
		So(r.Terminal(), ShouldBeTrue)
	})
}

func TestSubmission(t *testing.T) {
	Convey("Given a submission without an id", t, func() {
		s := model.Submission{DocumentType: "carta laboral", FileName: "c.png", Content: []byte{1}, OCRText: "x"}
		So(s.Validate(), ShouldBeNil)

		doc := s.Document("generated")
		So(doc.ID, ShouldEqual, "generated")
		So(doc.Type, ShouldEqual, "carta laboral")
		So(doc.Text, ShouldEqual, "x")
		So(doc.Created.IsZero(), ShouldBeTrue)
	})

	Convey("Given a submission with its own id", t, func() {
		So(model.Submission{DocumentID: "mine", OCRText: "x"}.Document("generated").ID, ShouldEqual, "mine")
	})

	Convey("Given an empty submission", t, func() {
		err := model.Submission{OCRText: "  "}.Validate()
		So(errors.Is(err, model.ErrEmptySubmission), ShouldBeTrue)
	})
}
