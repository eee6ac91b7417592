package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/forensics"
	"github.com/okian/docrisk/internal/domain/imaging"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

const paystubText = "Colilla CC 1.023.456.789 fecha 01/01/2020 corte 01/01/2020 salario $100 bono $5000"

func flat(w, h int, v uint8) *imaging.Gray {
	g := imaging.NewGray(w, h)
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func ink(g *imaging.Gray, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.Pix[y*g.Width+x] = 0
		}
	}
}

func encodePNG(g *imaging.Gray) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.FromGray(g).Image()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// scannedPDF wraps each scan as a JPEG page of a new PDF.
func scannedPDF(scans ...*imaging.Gray) []byte {
	imgs := make([]io.Reader, 0, len(scans))
	for _, g := range scans {
		data, err := imaging.FromGray(g).EncodeJPEG(95)
		if err != nil {
			panic(err)
		}
		imgs = append(imgs, bytes.NewReader(data))
	}
	var buf bytes.Buffer
	if err := api.ImportImages(nil, &buf, imgs, nil, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestAnalyzeDocument(t *testing.T) {
	ctx := context.Background()
	a := analysis.NewAnalyzer()

	Convey("Given a flat scan with inconsistent text", t, func() {
		doc := analysis.Document{
			ID:       "doc-1",
			Type:     "colilla de pago",
			FileName: "colilla.png",
			Content:  encodePNG(flat(64, 64, 30)),
			Text:     paystubText,
		}

		Convey("When it is analyzed", func() {
			rep, err := a.AnalyzeDocument(ctx, doc)
			So(err, ShouldBeNil)

			Convey("Then every category is assessed", func() {
				So(rep.Details, ShouldHaveLength, 5)
				So(rep.Skipped(), ShouldBeEmpty)
				So(rep.Details[forensics.CategoryManipulation].Score, ShouldEqual, 0)
				So(rep.Details[forensics.CategoryPatterns].Score, ShouldAlmostEqual, 0.2, 1e-9)
				So(rep.Details[forensics.CategorySignatures].Score, ShouldAlmostEqual, 0.3, 1e-9)
				So(rep.Details[forensics.CategoryQuality].Score, ShouldAlmostEqual, 0.5, 1e-9)
				So(rep.Details[forensics.CategoryConsistency].Score, ShouldAlmostEqual, 0.4, 1e-9)
			})

			Convey("Then the scores are folded into a low risk", func() {
				So(rep.RiskScore, ShouldAlmostEqual, 0.28, 1e-9)
				So(rep.Band, ShouldEqual, risk.BandLow)
				So(rep.Alerts, ShouldResemble, []string{risk.AlertLow})
			})

			Convey("Then the report carries the document identity", func() {
				So(rep.DocumentID, ShouldEqual, "doc-1")
				So(rep.DocumentType, ShouldEqual, "colilla de pago")
				So(rep.ApplicantID, ShouldEqual, "1023456789")
				So(rep.Metadata, ShouldBeEmpty)
			})
		})

		Convey("When it is analyzed twice", func() {
			first, err := a.AnalyzeDocument(ctx, doc)
			So(err, ShouldBeNil)
			second, err := a.AnalyzeDocument(ctx, doc)
			So(err, ShouldBeNil)

			Convey("Then the reports are identical", func() {
				So(second, ShouldResemble, first)
			})
		})
	})

	Convey("Given content that is not an image", t, func() {
		rep, err := a.AnalyzeDocument(ctx, analysis.Document{
			Content: []byte("definitely not pixels"),
			Text:    paystubText,
		})
		So(err, ShouldBeNil)

		Convey("Then image categories are skipped and the divisor stays five", func() {
			So(rep.Skipped(), ShouldResemble, forensics.ImageCategories())
			So(rep.Details[forensics.CategorySignatures].SkipReason, ShouldEqual, analysis.SkipUndecodable)
			So(rep.Details[forensics.CategoryConsistency].Skipped, ShouldBeFalse)
			So(rep.RiskScore, ShouldAlmostEqual, 0.08, 1e-9)
		})
	})

	Convey("Given a scanned PDF", t, func() {
		rep, err := a.AnalyzeDocument(ctx, analysis.Document{
			ID:       "pdf-1",
			Type:     "colilla de pago",
			FileName: "colilla.pdf",
			Content:  scannedPDF(flat(64, 64, 30), flat(64, 64, 30)),
			Text:     paystubText,
		})
		So(err, ShouldBeNil)

		Convey("Then its pages get every image category", func() {
			So(rep.Details, ShouldHaveLength, 5)
			So(rep.Skipped(), ShouldBeEmpty)
		})
	})

	Convey("Given a PDF without page images", t, func() {
		rep, err := a.AnalyzeDocument(ctx, analysis.Document{
			FileName: "carta.pdf",
			Content:  []byte("%PDF-1.4\ntruncated"),
			Text:     paystubText,
		})
		So(err, ShouldBeNil)

		Convey("Then image categories are skipped as undecodable", func() {
			So(rep.Skipped(), ShouldResemble, forensics.ImageCategories())
			So(rep.Details[forensics.CategoryQuality].SkipReason, ShouldEqual, analysis.SkipUndecodable)
		})
	})

	Convey("Given a document type that is disabled", t, func() {
		a := analysis.NewAnalyzer(analysis.WithProfiles(analysis.StaticProfiles(map[string]analysis.Profile{
			"extracto bancario": {Enabled: false},
		})))
		_, err := a.AnalyzeDocument(ctx, analysis.Document{Type: "Extracto Bancario", Text: paystubText})
		So(errors.Is(err, analysis.ErrDocumentTypeDisabled), ShouldBeTrue)
	})

	Convey("Given a profile without signature checks", t, func() {
		p := analysis.FullProfile()
		p.Signatures = false
		a := analysis.NewAnalyzer(analysis.WithProfiles(analysis.StaticProfiles(map[string]analysis.Profile{"carta laboral": p})))
		rep, err := a.AnalyzeDocument(ctx, analysis.Document{
			Type:  "carta laboral",
			Pages: []*imaging.Raster{imaging.FromGray(flat(64, 64, 30))},
		})
		So(err, ShouldBeNil)
		So(rep.Skipped(), ShouldResemble, []string{forensics.CategorySignatures})
		So(rep.Details[forensics.CategorySignatures].SkipReason, ShouldEqual, analysis.SkipDisabled)
		So(rep.Details[forensics.CategorySignatures].Score, ShouldEqual, 0)
	})

	Convey("Given a document with several pages", t, func() {
		clean := flat(400, 300, 255)
		ink(clean, image.Rect(20, 120, 100, 150))
		ink(clean, image.Rect(180, 120, 260, 150))
		forged := flat(400, 300, 255)
		ink(forged, image.Rect(20, 20, 80, 45))
		ink(forged, image.Rect(150, 100, 350, 200))

		a := analysis.NewAnalyzer(analysis.WithProfiles(func(string) analysis.Profile {
			return analysis.Profile{Enabled: true, Signatures: true}
		}))
		rep, err := a.AnalyzeDocument(ctx, analysis.Document{
			Pages: []*imaging.Raster{imaging.FromGray(clean), imaging.FromGray(forged), imaging.FromGray(clean)},
		})

		Convey("Then the worst page decides the category", func() {
			So(err, ShouldBeNil)
			sig := rep.Details[forensics.CategorySignatures]
			So(sig.Score, ShouldAlmostEqual, 0.5, 1e-9)
			So(sig.Alerts, ShouldResemble, []string{forensics.AlertSignatureQuality, forensics.AlertSignatureConsistency})
			So(rep.RiskScore, ShouldAlmostEqual, 0.1, 1e-9)
		})
	})

	Convey("Given an empty document", t, func() {
		_, err := a.AnalyzeDocument(ctx, analysis.Document{ID: "empty"})
		So(errors.Is(err, analysis.ErrEmptyDocument), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := a.AnalyzeDocument(cctx, analysis.Document{Text: paystubText})
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestStaticProfiles(t *testing.T) {
	Convey("Given no configured profiles", t, func() {
		p := analysis.StaticProfiles(nil)("anything")
		So(p, ShouldResemble, analysis.FullProfile())
	})
}
