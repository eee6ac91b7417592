// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() builds a Config with defaults; Load(ctx) layers file and env on top.
//   - Keys are flat snake_case so every value can be set from DOCRISK_* env vars.
//     Nested maps (document_types) are only settable from the YAML file.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Feature store backends.
const (
	FeatureStoreMemory   = "memory"
	FeatureStoreExcel    = "excel"
	FeatureStorePostgres = "postgres"
)

// Report store backends.
const (
	ReportStoreMemory   = "memory"
	ReportStorePostgres = "postgres"
)

// Classifier model formats.
const (
	ModelFormatForest   = "forest"
	ModelFormatLogistic = "logistic"
	ModelFormatONNX     = "onnx"
)

// DocumentProfile toggles validations for one document type.
type DocumentProfile struct {
	Enabled     bool        `koanf:"enabled"`
	Validations Validations `koanf:"validations"`
}

// Validations selects which analysis categories run.
type Validations struct {
	Consistency bool `koanf:"consistency"`
	Visual      bool `koanf:"visual"`
	Metadata    bool `koanf:"metadata"`
	Signatures  bool `koanf:"signatures"`
	Quality     bool `koanf:"quality"`
}

// AllValidations enables every category.
func AllValidations() Validations {
	return Validations{Consistency: true, Visual: true, Metadata: true, Signatures: true, Quality: true}
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory document queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the submission dedupe index.
	DedupeSize int `koanf:"dedupe_size"`
	// ReportCapacity bounds the in-memory report store; oldest reports are evicted.
	ReportCapacity int `koanf:"report_capacity"`
	// MaxUploadBytes caps request bodies on document endpoints.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
	// AnalysisTimeoutMS bounds a single document analysis.
	AnalysisTimeoutMS int `koanf:"analysis_timeout_ms"`

	// Aggregator bands: strictly above high is ALTO, strictly above medium is MEDIO.
	AggregatorHighThreshold   float64 `koanf:"aggregator_high_threshold"`
	AggregatorMediumThreshold float64 `koanf:"aggregator_medium_threshold"`
	// Review thresholds (umbral_riesgo) used to route documents to manual review.
	ReviewHighThreshold   float64 `koanf:"review_high_threshold"`
	ReviewMediumThreshold float64 `koanf:"review_medium_threshold"`
	// FraudDecisionThreshold turns an ensemble probability into a verdict.
	FraudDecisionThreshold float64 `koanf:"fraud_decision_threshold"`
	// AmountDiscrepancyRatio flags max/min amount ratios above it.
	AmountDiscrepancyRatio float64 `koanf:"amount_discrepancy_ratio"`
	// MinBlurVariance is the Laplacian variance below which a scan is blurry.
	MinBlurVariance float64 `koanf:"min_blur_variance"`

	// FeatureStore selects memory, excel or postgres.
	FeatureStore       string   `koanf:"feature_store"`
	FeatureExcelPath   string   `koanf:"feature_excel_path"`
	FeatureExcelSheet  string   `koanf:"feature_excel_sheet"`
	FeatureTable       string   `koanf:"feature_table"`
	FeatureIDColumn    string   `koanf:"feature_id_column"`
	FeatureDropColumns []string `koanf:"feature_drop_columns"`

	// PostgresDSN is shared by the postgres feature and report stores.
	PostgresDSN      string `koanf:"postgres_dsn"`
	PostgresMaxConns int32  `koanf:"postgres_max_conns"`
	// ReportStore selects memory or postgres.
	ReportStore string `koanf:"report_store"`

	// ModelFormat selects forest, logistic or onnx classifiers.
	ModelFormat     string   `koanf:"model_format"`
	ModelAPath      string   `koanf:"model_a_path"`
	ModelBPath      string   `koanf:"model_b_path"`
	ModelFeatures   []string `koanf:"model_features"`
	ONNXLibraryPath string   `koanf:"onnx_library_path"`
	// ONNXInputName and ONNXOutputName override the graph tensor names.
	ONNXInputName  string `koanf:"onnx_input_name"`
	ONNXOutputName string `koanf:"onnx_output_name"`

	// Kafka is disabled when KafkaBrokers is empty.
	KafkaBrokers    []string `koanf:"kafka_brokers"`
	KafkaTopic      string   `koanf:"kafka_topic"`
	KafkaInputTopic string   `koanf:"kafka_input_topic"`
	KafkaGroupID    string   `koanf:"kafka_group_id"`

	// Bearer auth is disabled when neither secret nor public key is set.
	AuthJWTSecret        string `koanf:"auth_jwt_secret"`
	AuthJWTPublicKeyFile string `koanf:"auth_jwt_public_key_file"`
	AuthJWTIssuer        string `koanf:"auth_jwt_issuer"`

	// OTLPEndpoint enables tracing export when set.
	OTLPEndpoint     string  `koanf:"otlp_endpoint"`
	OTLPInsecure     bool    `koanf:"otlp_insecure"`
	TraceSampleRatio float64 `koanf:"trace_sample_ratio"`

	// DocumentTypes maps a lower-case document type to its profile.
	DocumentTypes map[string]DocumentProfile `koanf:"document_types"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                  "info",
		LogFormat:                 "text",
		Addr:                      ":9080",
		QueueSize:                 1_000,
		WorkerCount:               runtime.NumCPU(),
		DedupeSize:                50_000,
		ReportCapacity:            10_000,
		MaxUploadBytes:            32 << 20,
		AnalysisTimeoutMS:         60_000,
		AggregatorHighThreshold:   0.8,
		AggregatorMediumThreshold: 0.5,
		ReviewHighThreshold:       0.7,
		ReviewMediumThreshold:     0.5,
		FraudDecisionThreshold:    0.5,
		AmountDiscrepancyRatio:    10,
		MinBlurVariance:           100,
		FeatureStore:              FeatureStoreMemory,
		FeatureTable:              "applicant_features",
		FeatureIDColumn:           "CEDULA",
		FeatureDropColumns:        []string{"CEDULA", "N"},
		PostgresMaxConns:          4,
		ReportStore:               ReportStoreMemory,
		ModelFormat:               ModelFormatForest,
		KafkaTopic:                "docrisk.reports",
		KafkaGroupID:              "docrisk",
		TraceSampleRatio:          1,
		DocumentTypes: map[string]DocumentProfile{
			"colilla de pago":   {Enabled: true, Validations: AllValidations()},
			"carta laboral":     {Enabled: true, Validations: AllValidations()},
			"extracto bancario": {Enabled: false, Validations: Validations{Consistency: true, Visual: true, Metadata: true, Quality: true}},
		},
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !inUnit(c.AggregatorHighThreshold) || !inUnit(c.AggregatorMediumThreshold):
		return fmt.Errorf("%w: aggregator thresholds must be within [0,1]", ErrInvalidConfig)
	case c.AggregatorMediumThreshold > c.AggregatorHighThreshold:
		return fmt.Errorf("%w: aggregator_medium_threshold exceeds aggregator_high_threshold", ErrInvalidConfig)
	case !inUnit(c.ReviewHighThreshold) || !inUnit(c.ReviewMediumThreshold):
		return fmt.Errorf("%w: review thresholds must be within [0,1]", ErrInvalidConfig)
	case c.ReviewMediumThreshold > c.ReviewHighThreshold:
		return fmt.Errorf("%w: review_medium_threshold exceeds review_high_threshold", ErrInvalidConfig)
	case !inUnit(c.FraudDecisionThreshold):
		return fmt.Errorf("%w: fraud_decision_threshold must be within [0,1]", ErrInvalidConfig)
	case c.AmountDiscrepancyRatio <= 1:
		return fmt.Errorf("%w: amount_discrepancy_ratio must be greater than 1", ErrInvalidConfig)
	case c.MinBlurVariance < 0:
		return fmt.Errorf("%w: min_blur_variance must not be negative", ErrInvalidConfig)
	}

	switch c.FeatureStore {
	case FeatureStoreMemory:
	case FeatureStoreExcel:
		if c.FeatureExcelPath == "" {
			return fmt.Errorf("%w: feature_excel_path is required for the excel feature store", ErrInvalidConfig)
		}
	case FeatureStorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres feature store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown feature_store %q", ErrInvalidConfig, c.FeatureStore)
	}

	switch c.ReportStore {
	case ReportStoreMemory:
	case ReportStorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres report store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown report_store %q", ErrInvalidConfig, c.ReportStore)
	}

	switch c.ModelFormat {
	case ModelFormatForest, ModelFormatLogistic:
	case ModelFormatONNX:
		if len(c.ModelFeatures) == 0 && (c.ModelAPath != "" || c.ModelBPath != "") {
			return fmt.Errorf("%w: model_features is required for onnx models", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown model_format %q", ErrInvalidConfig, c.ModelFormat)
	}

	if (c.ModelAPath == "") != (c.ModelBPath == "") {
		return fmt.Errorf("%w: model_a_path and model_b_path must be set together", ErrInvalidConfig)
	}
	return nil
}

// EnsembleEnabled reports whether both classifier models are configured.
func (c *Config) EnsembleEnabled() bool {
	return c.ModelAPath != "" && c.ModelBPath != ""
}

// KafkaEnabled reports whether brokers are configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// AuthEnabled reports whether bearer token validation is configured.
func (c *Config) AuthEnabled() bool {
	return c.AuthJWTSecret != "" || c.AuthJWTPublicKeyFile != ""
}

// Profile returns the profile for a document type. Unknown or empty types
// run every validation.
func (c *Config) Profile(documentType string) DocumentProfile {
	key := strings.ToLower(strings.TrimSpace(documentType))
	if p, ok := c.DocumentTypes[key]; ok {
		return p
	}
	return DocumentProfile{Enabled: true, Validations: AllValidations()}
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
