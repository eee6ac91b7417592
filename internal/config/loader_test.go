package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/docrisk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.AggregatorHighThreshold, convey.ShouldEqual, 0.8)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DOCRISK_ADDR", ":8080")
			_ = os.Setenv("DOCRISK_QUEUE_SIZE", "64")
			_ = os.Setenv("DOCRISK_AGGREGATOR_HIGH_THRESHOLD", "0.9")
			_ = os.Setenv("DOCRISK_KAFKA_BROKERS", "k1:9092,k2:9092")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.AggregatorHighThreshold, convey.ShouldEqual, 0.9)
				convey.So(cfg.KafkaBrokers, convey.ShouldResemble, []string{"k1:9092", "k2:9092"})
				convey.So(cfg.KafkaEnabled(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
worker_count: 3
review_high_threshold: 0.75
document_types:
  carta laboral:
    enabled: true
    validations:
      consistency: true
      visual: false
      metadata: true
      signatures: true
      quality: true
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("DOCRISK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load values and profiles from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.ReviewHighThreshold, convey.ShouldEqual, 0.75)
				convey.So(cfg.Profile("carta laboral").Validations.Visual, convey.ShouldBeFalse)
				convey.So(cfg.Profile("colilla de pago").Enabled, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When env overrides the YAML file", func() {
			tmpFile := createTempConfigFile(t, "addr: \":9090\"\n")
			_ = os.Setenv("DOCRISK_CONFIG", tmpFile)
			_ = os.Setenv("DOCRISK_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("DOCRISK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When list keys are set through env", func() {
			_ = os.Setenv("DOCRISK_FEATURE_DROP_COLUMNS", "CEDULA, N,")
			_ = os.Setenv("DOCRISK_MODEL_FEATURES", "EDAD,INGRESOS,SCORE")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then values are split on commas", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.FeatureDropColumns, convey.ShouldResemble, []string{"CEDULA", "N"})
				convey.So(cfg.ModelFeatures, convey.ShouldResemble, []string{"EDAD", "INGRESOS", "SCORE"})
			})
		})

		convey.Convey("When env produces an invalid config", func() {
			_ = os.Setenv("DOCRISK_FEATURE_STORE", "postgres")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation should reject it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"DOCRISK_CONFIG",
		"DOCRISK_ADDR",
		"DOCRISK_QUEUE_SIZE",
		"DOCRISK_AGGREGATOR_HIGH_THRESHOLD",
		"DOCRISK_KAFKA_BROKERS",
		"DOCRISK_FEATURE_STORE",
		"DOCRISK_FEATURE_DROP_COLUMNS",
		"DOCRISK_MODEL_FEATURES",
	} {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docrisk.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
