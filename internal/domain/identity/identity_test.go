package identity_test

import (
	"testing"

	"github.com/okian/docrisk/internal/domain/identity"
	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractCedula(t *testing.T) {
	Convey("Given employment letter text", t, func() {
		Convey("When the number follows an accented label", func() {
			id, err := identity.ExtractCedula("identificado con Cédula de Ciudadanía No. 1.020.345.678 de Bogotá")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "1020345678")
		})

		Convey("When the number follows CC", func() {
			id, err := identity.ExtractCedula("Empleado: Ana Ruiz CC 52 123 456")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "52123456")
		})

		Convey("When the label uses numero", func() {
			id, err := identity.ExtractCedula("CEDULA NUMERO: 80.111.222")
			So(err, ShouldBeNil)
			So(id, ShouldEqual, "80111222")
		})

		Convey("When no identity number is present", func() {
			_, err := identity.ExtractCedula("certificamos que la persona labora en esta empresa")
			So(err, ShouldEqual, identity.ErrNoApplicantID)
		})

		Convey("When the label has no digits after it", func() {
			_, err := identity.ExtractCedula("cedula  . ")
			So(err, ShouldEqual, identity.ErrNoApplicantID)
		})
	})

	Convey("Accents are folded", t, func() {
		So(identity.FoldAccents("Cédula Ciudadanía Bogotá"), ShouldEqual, "Cedula Ciudadania Bogota")
		So(identity.FoldAccents("año"), ShouldEqual, "ano")
	})
}
