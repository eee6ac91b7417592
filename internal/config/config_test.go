package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/docrisk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.AggregatorHighThreshold, convey.ShouldEqual, 0.8)
			convey.So(cfg.AggregatorMediumThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.ReviewHighThreshold, convey.ShouldEqual, 0.7)
			convey.So(cfg.ReviewMediumThreshold, convey.ShouldEqual, 0.5)
			convey.So(cfg.FeatureDropColumns, convey.ShouldResemble, []string{"CEDULA", "N"})
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.EnsembleEnabled(), convey.ShouldBeFalse)
			convey.So(cfg.KafkaEnabled(), convey.ShouldBeFalse)
			convey.So(cfg.AuthEnabled(), convey.ShouldBeFalse)
		})
	})
}

func TestConfig_Profile(t *testing.T) {
	convey.Convey("Given the default document profiles", t, func() {
		cfg := config.New()

		convey.Convey("Then bank statements are disabled and skip signatures", func() {
			p := cfg.Profile("Extracto Bancario")
			convey.So(p.Enabled, convey.ShouldBeFalse)
			convey.So(p.Validations.Signatures, convey.ShouldBeFalse)
			convey.So(p.Validations.Visual, convey.ShouldBeTrue)
		})

		convey.Convey("Then unknown types run every validation", func() {
			p := cfg.Profile("contrato")
			convey.So(p.Enabled, convey.ShouldBeTrue)
			convey.So(p.Validations, convey.ShouldResemble, config.AllValidations())
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid configurations", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":               func(c *config.Config) { c.Addr = " " },
			"inverted aggregator band": func(c *config.Config) { c.AggregatorMediumThreshold = 0.9 },
			"review out of range":      func(c *config.Config) { c.ReviewHighThreshold = 1.5 },
			"unknown feature store":    func(c *config.Config) { c.FeatureStore = "redis" },
			"excel without path":       func(c *config.Config) { c.FeatureStore = config.FeatureStoreExcel },
			"postgres without dsn":     func(c *config.Config) { c.ReportStore = config.ReportStorePostgres },
			"single model path":        func(c *config.Config) { c.ModelAPath = "a.json" },
			"unknown model format":     func(c *config.Config) { c.ModelFormat = "xgboost" },
			"tiny amount ratio":        func(c *config.Config) { c.AmountDiscrepancyRatio = 1 },
			"onnx without feature list": func(c *config.Config) {
				c.ModelFormat = config.ModelFormatONNX
				c.ModelAPath, c.ModelBPath = "a.onnx", "b.onnx"
			},
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			convey.Convey("Then "+name+" is rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
