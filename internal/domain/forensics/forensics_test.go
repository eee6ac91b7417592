package forensics_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/okian/docrisk/internal/domain/forensics"
	"github.com/okian/docrisk/internal/domain/imaging"
	. "github.com/smartystreets/goconvey/convey"
)

func page(w, h int, v uint8) *imaging.Gray {
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

func noise(w, h int) *imaging.Gray {
	g := imaging.NewGray(w, h)
	state := uint32(2024)
	for i := range g.Pix {
		state = state*1103515245 + 12345
		g.Pix[i] = uint8(state >> 16)
	}
	return g
}

func TestManipulation(t *testing.T) {
	ctx := context.Background()
	d := forensics.NewManipulation()

	Convey("Given a flat dark scan", t, func() {
		rep := d.Detect(ctx, imaging.FromGray(page(64, 64, 30)))

		Convey("Then no manipulation check fires", func() {
			So(rep.Score, ShouldEqual, 0)
			So(rep.Alerts, ShouldBeEmpty)
			So(rep.Skipped, ShouldBeFalse)
			So(rep.Details, ShouldContainKey, forensics.CheckELA)
			So(rep.Details, ShouldContainKey, forensics.CheckNoise)
			So(rep.Details, ShouldContainKey, forensics.CheckCompression)
			So(rep.Details[forensics.CheckNoise].Metrics["std_noise"], ShouldEqual, 0)
			So(rep.Details[forensics.CheckCompression].Metrics["dct_std"], ShouldBeLessThan, 100)
			So(rep.Defaulted(), ShouldBeEmpty)
		})
	})

	Convey("Given a scan full of uncorrelated noise", t, func() {
		r := imaging.FromGray(noise(64, 64))
		rep := d.Detect(ctx, r)

		Convey("Then noise and compression checks fire", func() {
			So(rep.Details[forensics.CheckNoise].Suspicious, ShouldBeTrue)
			So(rep.Details[forensics.CheckCompression].Suspicious, ShouldBeTrue)
			So(rep.Score, ShouldBeGreaterThanOrEqualTo, 0.4-1e-9)
			So(rep.Alerts, ShouldContain, forensics.AlertNoise)
			So(rep.Alerts, ShouldContain, forensics.AlertCompression)
		})

		Convey("Then repeated runs are identical", func() {
			So(d.Detect(ctx, r), ShouldResemble, rep)
		})
	})

	Convey("Given a scan with an odd width", t, func() {
		rep := d.Detect(ctx, imaging.FromGray(page(63, 64, 30)))

		Convey("Then only the compression check defaults", func() {
			So(rep.Defaulted(), ShouldResemble, []string{forensics.CheckCompression})
			c := rep.Details[forensics.CheckCompression]
			So(c.Suspicious, ShouldBeFalse)
			So(c.Metrics, ShouldNotBeNil)
			So(errors.Is(c.Err, imaging.ErrOddDimensions), ShouldBeTrue)
		})
	})

	Convey("Given no raster", t, func() {
		rep := d.Detect(ctx, nil)

		Convey("Then the category reports an error alert without a score", func() {
			So(rep.Score, ShouldEqual, 0)
			So(rep.Alerts, ShouldResemble, []string{"Error en análisis de manipulación: empty raster"})
			So(rep.Err, ShouldEqual, imaging.ErrEmpty)
		})
	})

	Convey("Given a cancelled context", t, func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		rep := d.Detect(cctx, imaging.FromGray(noise(32, 32)))

		Convey("Then every check defaults", func() {
			So(rep.Score, ShouldEqual, 0)
			So(rep.Defaulted(), ShouldHaveLength, 3)
		})
	})
}

func TestPrintPatterns(t *testing.T) {
	ctx := context.Background()
	d := forensics.NewPrintPatterns()

	Convey("Given a small blank page", t, func() {
		rep := d.Detect(ctx, imaging.FromGray(page(100, 100, 255)))

		Convey("Then the resolution is flagged and the dot check defaults", func() {
			So(rep.Score, ShouldAlmostEqual, 0.2, 1e-9)
			So(rep.Alerts, ShouldResemble, []string{forensics.AlertResolution})
			So(rep.Details[forensics.CheckResolution].Metrics["effective_dpi"], ShouldAlmostEqual, 100/8.5, 1e-9)
			So(rep.Defaulted(), ShouldResemble, []string{forensics.CheckDotPattern})
		})
	})

	Convey("Given evenly sized printer dots", t, func() {
		g := page(100, 100, 255)
		for y := 10; y < 90; y += 10 {
			for x := 10; x < 90; x += 10 {
				ink(g, image.Rect(x, y, x+3, y+3))
			}
		}
		rep := d.Detect(ctx, imaging.FromGray(g))

		Convey("Then the dot pattern is regular", func() {
			dots := rep.Details[forensics.CheckDotPattern]
			So(dots.Suspicious, ShouldBeFalse)
			So(dots.Metrics["mean_area"], ShouldAlmostEqual, 4, 1e-9)
			So(dots.Metrics["std_area"], ShouldAlmostEqual, 0, 1e-9)
		})
	})

	Convey("Given dots of two very different sizes", t, func() {
		g := page(120, 120, 255)
		for i, x := range []int{10, 30, 50, 70} {
			if i%2 == 0 {
				ink(g, image.Rect(x, 20, x+3, 23))
			} else {
				ink(g, image.Rect(x, 20, x+9, 29))
			}
		}
		rep := d.Detect(ctx, imaging.FromGray(g))

		Convey("Then the dot pattern is flagged", func() {
			So(rep.Details[forensics.CheckDotPattern].Suspicious, ShouldBeTrue)
			So(rep.Alerts, ShouldContain, forensics.AlertDotPattern)
		})
	})

	Convey("Given a page whose short side fits 300 dpi", t, func() {
		th := forensics.DefaultThresholds()
		th.PageWidthInches = 1
		rep := forensics.NewPrintPatterns(forensics.WithThresholds(th)).Detect(ctx, imaging.FromGray(page(300, 320, 255)))
		So(rep.Details[forensics.CheckResolution].Suspicious, ShouldBeFalse)
	})
}

func TestSignatures(t *testing.T) {
	ctx := context.Background()
	d := forensics.NewSignatures()

	Convey("Given a page without any signature-sized ink", t, func() {
		rep := d.Detect(ctx, imaging.FromGray(page(200, 200, 255)))

		Convey("Then quality is suspicious and consistency is not evaluated", func() {
			So(rep.Score, ShouldAlmostEqual, 0.3, 1e-9)
			So(rep.Alerts, ShouldResemble, []string{forensics.AlertSignatureQuality})
			So(rep.Details[forensics.CheckSignatureQuality].Suspicious, ShouldBeTrue)
			So(rep.Details, ShouldNotContainKey, forensics.CheckSignatureConsistency)
		})
	})

	Convey("Given exactly one signature", t, func() {
		g := page(200, 200, 255)
		ink(g, image.Rect(40, 120, 120, 150))
		rep := d.Detect(ctx, imaging.FromGray(g))

		Convey("Then nothing is flagged", func() {
			So(d.Candidates(g), ShouldResemble, []image.Rectangle{image.Rect(40, 120, 120, 150)})
			So(rep.Score, ShouldEqual, 0)
			So(rep.Alerts, ShouldBeEmpty)
			So(rep.Details, ShouldNotContainKey, forensics.CheckSignatureConsistency)
		})

		Convey("Then a single box is never inconsistent", func() {
			So(d.Consistency(d.Candidates(g)).Suspicious, ShouldBeFalse)
		})
	})

	Convey("Given two signatures of the same size", t, func() {
		g := page(300, 200, 255)
		ink(g, image.Rect(20, 120, 100, 150))
		ink(g, image.Rect(180, 120, 260, 150))
		rep := d.Detect(ctx, imaging.FromGray(g))

		So(rep.Score, ShouldEqual, 0)
		So(rep.Details[forensics.CheckSignatureConsistency].Suspicious, ShouldBeFalse)
	})

	Convey("Given two signatures of very different sizes", t, func() {
		g := page(400, 300, 255)
		ink(g, image.Rect(20, 20, 80, 45))
		ink(g, image.Rect(150, 100, 350, 200))
		rep := d.Detect(ctx, imaging.FromGray(g))

		Convey("Then both quality and consistency are flagged", func() {
			So(rep.Score, ShouldAlmostEqual, 0.5, 1e-9)
			So(rep.Alerts, ShouldResemble, []string{forensics.AlertSignatureQuality, forensics.AlertSignatureConsistency})
		})
	})

	Convey("Given small ink only", t, func() {
		g := page(200, 200, 255)
		ink(g, image.Rect(10, 10, 40, 60))
		ink(g, image.Rect(60, 10, 160, 25))
		So(d.Candidates(g), ShouldBeEmpty)
	})

	Convey("Given a raster whose pixels do not cover its size", t, func() {
		broken := &imaging.Raster{Width: 80, Height: 60, Pix: make([]uint8, 10)}

		Convey("Then the candidate search fails open instead of panicking", func() {
			var rep forensics.CategoryReport
			So(func() { rep = d.Detect(ctx, broken) }, ShouldNotPanic)
			So(rep.Score, ShouldEqual, 0)
			So(rep.Alerts, ShouldBeEmpty)
			So(rep.Defaulted(), ShouldResemble, []string{forensics.CheckSignatureQuality})
			So(rep.Details[forensics.CheckSignatureQuality].Err, ShouldNotBeNil)
		})
	})
}

func TestQualitySecurity(t *testing.T) {
	ctx := context.Background()
	d := forensics.NewQualitySecurity()

	Convey("Given a blank page", t, func() {
		rep := d.Detect(ctx, imaging.FromGray(page(100, 100, 255)))

		Convey("Then it is blurry, flat and lacks security elements", func() {
			So(rep.Score, ShouldAlmostEqual, 0.5, 1e-9)
			So(rep.Alerts, ShouldResemble, []string{forensics.AlertGeneralQuality, forensics.AlertSecurityElements})
			So(rep.Details[forensics.CheckSecurityElements].Metrics["elements"], ShouldEqual, 0)
		})
	})

	Convey("Given a sharp page with four stamps", t, func() {
		g := page(100, 100, 255)
		for _, p := range []image.Point{{10, 10}, {60, 10}, {10, 60}, {60, 60}} {
			ink(g, image.Rect(p.X, p.Y, p.X+15, p.Y+15))
		}
		rep := d.Detect(ctx, imaging.FromGray(g))

		Convey("Then nothing is flagged", func() {
			So(rep.Details[forensics.CheckGeneralQuality].Suspicious, ShouldBeFalse)
			So(rep.Details[forensics.CheckSecurityElements].Metrics["elements"], ShouldEqual, 4)
			So(rep.Score, ShouldEqual, 0)
		})
	})

	Convey("Given a lower blur threshold", t, func() {
		g := page(100, 100, 255)
		d := forensics.NewQualitySecurity(forensics.WithMinBlurVariance(0))
		rep := d.Detect(ctx, imaging.FromGray(g))
		So(rep.Details[forensics.CheckGeneralQuality].Suspicious, ShouldBeTrue) // contrast is still zero
	})
}

func TestConsistency(t *testing.T) {
	ctx := context.Background()
	c := forensics.NewConsistency()

	Convey("Given text with a repeated date and distant amounts", t, func() {
		rep := c.Check(ctx, "fecha de pago 01/01/2020, corte 01/01/2020. salario $100 bono $5000")

		Convey("Then dates and amounts are flagged", func() {
			So(rep.Score, ShouldAlmostEqual, 0.4, 1e-9)
			So(rep.Alerts, ShouldResemble, []string{forensics.AlertDuplicateDates, forensics.AlertAmountDiscrepancy})
			So(rep.Details[forensics.CheckAmounts].Matches, ShouldResemble, []string{"$100", "$5000"})
			So(rep.Details[forensics.CheckAmounts].Metrics["ratio"], ShouldAlmostEqual, 50, 1e-9)
		})
	})

	Convey("Given amounts with thousands separators", t, func() {
		rep := c.Check(ctx, "devengado $ 2,500.00 deducciones $1,000 neto $1,500.00")
		a := rep.Details[forensics.CheckAmounts]
		So(a.Matches, ShouldHaveLength, 3)
		So(a.Metrics["max"], ShouldAlmostEqual, 2500, 1e-9)
		So(a.Metrics["min"], ShouldAlmostEqual, 1000, 1e-9)
		So(a.Suspicious, ShouldBeFalse)
	})

	Convey("Given a repeated full name", t, func() {
		rep := c.Check(ctx, "firma: Juan Perez. aprobado por Juan Perez")
		So(rep.Score, ShouldAlmostEqual, 0.2, 1e-9)
		So(rep.Alerts, ShouldResemble, []string{forensics.AlertDuplicateNames})
	})

	Convey("Given a zero amount", t, func() {
		rep := c.Check(ctx, "saldo $0 abono $100")
		So(rep.Score, ShouldEqual, 0)
		So(rep.Defaulted(), ShouldResemble, []string{forensics.CheckAmounts})
		So(errors.Is(rep.Details[forensics.CheckAmounts].Err, forensics.ErrZeroAmount), ShouldBeTrue)
	})

	Convey("Given text without dates, amounts or names", t, func() {
		rep := c.Check(ctx, "sin datos relevantes")
		So(rep.Score, ShouldEqual, 0)
		So(rep.Alerts, ShouldBeEmpty)
		So(rep.Details, ShouldBeEmpty)
	})

	Convey("Given a higher discrepancy ratio", t, func() {
		c := forensics.NewConsistency(forensics.WithAmountDiscrepancyRatio(100))
		rep := c.Check(ctx, "salario $100 bono $5000")
		So(rep.Score, ShouldEqual, 0)
	})
}

func TestReports(t *testing.T) {
	Convey("Given a skipped report", t, func() {
		r := forensics.SkippedReport("decode failed")
		So(r.Skipped, ShouldBeTrue)
		So(r.SkipReason, ShouldEqual, "decode failed")
		So(r.Score, ShouldEqual, 0)
		So(r.Alerts, ShouldNotBeNil)
		So(r.Details, ShouldNotBeNil)
	})

	Convey("Category lists are stable", t, func() {
		So(forensics.Categories(), ShouldHaveLength, 5)
		So(forensics.ImageCategories(), ShouldNotContain, forensics.CategoryConsistency)
	})
}
