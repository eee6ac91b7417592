package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/docrisk/internal/adapters/classifier"
	"github.com/okian/docrisk/internal/adapters/featurestore"
	"github.com/okian/docrisk/internal/adapters/mq/kafka"
	"github.com/okian/docrisk/internal/adapters/repository"
	"github.com/okian/docrisk/internal/config"
	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/ensemble"
	"github.com/okian/docrisk/internal/domain/forensics"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/auth"
	"github.com/okian/docrisk/pkg/logger"
	"github.com/okian/docrisk/pkg/postgres"
)

// Runtime is a configured service together with the resources it opened.
type Runtime struct {
	Service *Service
	// Consumer is set when kafka_input_topic is configured.
	Consumer *kafka.Consumer
	// Verifier is set when bearer auth is configured.
	Verifier *auth.Verifier
	// Review grades fraud probabilities for API responses.
	Review risk.Review

	closers []func() error
}

// Close releases every resource in reverse order of acquisition.
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) onClose(f func() error) {
	r.closers = append(r.closers, f)
}

// NewAnalyzer builds the document analyzer described by cfg.
func NewAnalyzer(cfg *config.Config) *analysis.Analyzer {
	profiles := make(map[string]analysis.Profile, len(cfg.DocumentTypes))
	for name, p := range cfg.DocumentTypes {
		profiles[name] = analysis.Profile{
			Enabled:     p.Enabled,
			Consistency: p.Validations.Consistency,
			Visual:      p.Validations.Visual,
			Metadata:    p.Validations.Metadata,
			Signatures:  p.Validations.Signatures,
			Quality:     p.Validations.Quality,
		}
	}
	return analysis.NewAnalyzer(
		analysis.WithProfiles(analysis.StaticProfiles(profiles)),
		analysis.WithForensics(
			forensics.WithAmountDiscrepancyRatio(cfg.AmountDiscrepancyRatio),
			forensics.WithMinBlurVariance(cfg.MinBlurVariance),
		),
		analysis.WithAggregator(risk.NewAggregator(risk.WithThresholds(cfg.AggregatorHighThreshold, cfg.AggregatorMediumThreshold))),
	)
}

// Bootstrap opens every backend selected by cfg and returns the service
// built on top of them. The service is not started. On error, anything
// already opened is closed.
func Bootstrap(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *Runtime, err error) {
	rt := &Runtime{Review: risk.Review{High: cfg.ReviewHighThreshold, Medium: cfg.ReviewMediumThreshold}}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	opts := []Option{
		WithLogger(log),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithReportCapacity(cfg.ReportCapacity),
		WithAnalysisTimeout(time.Duration(cfg.AnalysisTimeoutMS) * time.Millisecond),
		WithAnalyzer(NewAnalyzer(cfg)),
	}

	var pool *pgxpool.Pool
	if cfg.ReportStore == config.ReportStorePostgres || cfg.FeatureStore == config.FeatureStorePostgres {
		if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
			return nil, err
		}
		pool, err = postgres.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, err
		}
		rt.onClose(func() error { pool.Close(); return nil })
		opts = append(opts, WithHealthCheck("postgres", func(ctx context.Context) error {
			return postgres.HealthCheck(ctx, pool)
		}))
		log.Info(ctx, "postgres connected")
	}

	if cfg.ReportStore == config.ReportStorePostgres {
		opts = append(opts, WithStore(repository.NewPostgresStore(pool)))
	}

	if cfg.EnsembleEnabled() {
		scorer, err := newScorer(ctx, cfg, pool, rt, log)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithScorer(scorer))
	}

	if cfg.KafkaEnabled() {
		pub := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		rt.onClose(pub.Close)
		opts = append(opts, WithPublisher(pub))
		log.Info(ctx, "publishing reports to kafka", logger.String("topic", cfg.KafkaTopic))
	}

	if cfg.AuthEnabled() {
		acfg := auth.Config{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthJWTIssuer}
		if cfg.AuthJWTPublicKeyFile != "" {
			key, err := auth.LoadKeyFile(cfg.AuthJWTPublicKeyFile)
			if err != nil {
				return nil, err
			}
			acfg.PublicKeyPEM = key
		}
		rt.Verifier, err = auth.NewVerifier(acfg)
		if err != nil {
			return nil, err
		}
	}

	rt.Service = New(opts...)

	if cfg.KafkaEnabled() && cfg.KafkaInputTopic != "" {
		rt.Consumer = kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaInputTopic, cfg.KafkaGroupID, rt.Service.HandleSubmission)
		rt.onClose(rt.Consumer.Close)
	}
	return rt, nil
}

func newScorer(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, rt *Runtime, log logger.Logger) (*ensemble.Scorer, error) {
	var source ensemble.FeatureSource
	switch cfg.FeatureStore {
	case config.FeatureStoreExcel:
		mem, err := featurestore.LoadExcel(cfg.FeatureExcelPath, cfg.FeatureExcelSheet, cfg.FeatureIDColumn)
		if err != nil {
			return nil, err
		}
		log.Info(ctx, "applicant features loaded", logger.String("path", cfg.FeatureExcelPath), logger.Int("rows", mem.Len()))
		source = mem
	case config.FeatureStorePostgres:
		source = featurestore.NewPostgres(pool, cfg.FeatureTable)
	default:
		source = featurestore.NewMemory()
	}

	if cfg.ModelFormat == config.ModelFormatONNX {
		if err := classifier.InitRuntime(cfg.ONNXLibraryPath); err != nil {
			return nil, fmt.Errorf("onnx runtime: %w", err)
		}
		rt.onClose(classifier.ShutdownRuntime)
	}

	models := make([]ensemble.Classifier, 0, 2)
	for _, path := range []string{cfg.ModelAPath, cfg.ModelBPath} {
		m, err := classifier.Load(cfg.ModelFormat, path, cfg.ModelFeatures,
			classifier.WithIONames(cfg.ONNXInputName, cfg.ONNXOutputName))
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		if c, ok := m.(io.Closer); ok {
			rt.onClose(c.Close)
		}
		models = append(models, m)
	}

	return ensemble.NewScorer(source, models[0], models[1],
		ensemble.WithDropColumns(cfg.FeatureDropColumns...),
		ensemble.WithDecisionThreshold(cfg.FraudDecisionThreshold),
	), nil
}
