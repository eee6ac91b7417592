package featurestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/okian/docrisk/internal/domain/ensemble"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory source with one applicant", t, func() {
		fields := map[string]string{"EDAD": "34"}
		m := NewMemory(ensemble.FeatureRow{ApplicantID: " 1023 ", Fields: fields})

		Convey("Then lookups trim the id", func() {
			r, err := m.Lookup(ctx, "1023")
			So(err, ShouldBeNil)
			So(r.ApplicantID, ShouldEqual, "1023")
			So(r.Fields["EDAD"], ShouldEqual, "34")
		})

		Convey("Then callers cannot mutate stored rows", func() {
			fields["EDAD"] = "99"
			r, _ := m.Lookup(ctx, "1023")
			r.Fields["EDAD"] = "0"
			again, _ := m.Lookup(ctx, "1023")
			So(again.Fields["EDAD"], ShouldEqual, "34")
		})

		Convey("Then unknown ids are not found", func() {
			_, err := m.Lookup(ctx, "42")
			So(errors.Is(err, ensemble.ErrApplicantNotFound), ShouldBeTrue)
		})
	})
}

func TestExcel(t *testing.T) {
	Convey("Given a workbook of applicants", t, func() {
		path := filepath.Join(t.TempDir(), "clientes.xlsx")
		f := excelize.NewFile()
		So(f.SetSheetRow("Sheet1", "A1", &[]any{"N", " CEDULA ", "EDAD", "INGRESO"}), ShouldBeNil)
		So(f.SetSheetRow("Sheet1", "A2", &[]any{1, "1023456789", 34, 2500000}), ShouldBeNil)
		So(f.SetSheetRow("Sheet1", "A3", &[]any{2, "", 50, 100}), ShouldBeNil)
		So(f.SetSheetRow("Sheet1", "A4", &[]any{3, "52000111", 41}), ShouldBeNil)
		So(f.SaveAs(path), ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		Convey("When it is loaded", func() {
			m, err := LoadExcel(path, "", "cedula")
			So(err, ShouldBeNil)

			Convey("Then rows are keyed by the id column", func() {
				So(m.Len(), ShouldEqual, 2)
				r, err := m.Lookup(context.Background(), "1023456789")
				So(err, ShouldBeNil)
				So(r.Fields["EDAD"], ShouldEqual, "34")
				So(r.Fields["INGRESO"], ShouldEqual, "2500000")
				So(r.Fields["CEDULA"], ShouldEqual, "1023456789")
			})

			Convey("Then short rows omit trailing columns", func() {
				r, err := m.Lookup(context.Background(), "52000111")
				So(err, ShouldBeNil)
				So(r.Fields, ShouldNotContainKey, "INGRESO")
			})
		})

		Convey("When the id column is absent", func() {
			_, err := LoadExcel(path, "Sheet1", "DOCUMENTO")
			So(errors.Is(err, ErrMissingIDColumn), ShouldBeTrue)
		})
	})

	Convey("Given a missing workbook", t, func() {
		_, err := LoadExcel(filepath.Join(t.TempDir(), "nope.xlsx"), "", "CEDULA")
		So(err, ShouldNotBeNil)
	})
}

func TestDecodeFields(t *testing.T) {
	Convey("Given stored JSON fields", t, func() {
		fields, err := decodeFields([]byte(`{"EDAD": 34, "INGRESO": 2500000.50, "CIUDAD": "Cali", "MORA": null, "ACTIVO": true}`))
		So(err, ShouldBeNil)
		So(fields, ShouldResemble, map[string]string{
			"EDAD":    "34",
			"INGRESO": "2500000.50",
			"CIUDAD":  "Cali",
			"MORA":    "",
			"ACTIVO":  "true",
		})

		_, err = decodeFields([]byte(`[1,2]`))
		So(err, ShouldNotBeNil)
	})
}
