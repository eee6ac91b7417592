// Package analysis runs every forensic category over one document and folds
// the results into a risk report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/docrisk/internal/domain/forensics"
	"github.com/okian/docrisk/internal/domain/identity"
	"github.com/okian/docrisk/internal/domain/imaging"
	"github.com/okian/docrisk/internal/domain/metadata"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
	"github.com/okian/docrisk/pkg/metrics"
	"github.com/okian/docrisk/pkg/tracing"
)

// Document is one unit of analysis. Pages, when set, are used instead of
// decoding Content.
type Document struct {
	ID       string
	Type     string
	FileName string
	Content  []byte
	Pages    []*imaging.Raster
	Text     string
	Created  time.Time
	Modified time.Time
}

type imageDetector interface {
	Detect(ctx context.Context, r *imaging.Raster) forensics.CategoryReport
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithProfiles sets how document types map to enabled categories.
func WithProfiles(f ProfileFunc) Option {
	return func(a *Analyzer) {
		if f != nil {
			a.profiles = f
		}
	}
}

// WithForensics passes options to every detector.
func WithForensics(opts ...forensics.Option) Option {
	return func(a *Analyzer) {
		a.forensicOpts = append(a.forensicOpts, opts...)
	}
}

// WithAggregator sets the risk aggregator.
func WithAggregator(agg *risk.Aggregator) Option {
	return func(a *Analyzer) {
		if agg != nil {
			a.aggregator = agg
		}
	}
}

// WithInspector sets the metadata inspector.
func WithInspector(i *metadata.Inspector) Option {
	return func(a *Analyzer) {
		if i != nil {
			a.inspector = i
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer orchestrates the detectors. It holds no per-document state and is
// safe for concurrent use.
type Analyzer struct {
	detectors    map[string]imageDetector
	consistency  *forensics.Consistency
	aggregator   *risk.Aggregator
	inspector    *metadata.Inspector
	profiles     ProfileFunc
	forensicOpts []forensics.Option
	logger       logger.Logger
	tracer       trace.Tracer
}

// NewAnalyzer creates an Analyzer with default detectors and thresholds.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		aggregator: risk.NewAggregator(),
		inspector:  metadata.NewInspector(),
		profiles:   StaticProfiles(nil),
		logger:     logger.Get().Named("analysis"),
		tracer:     tracing.Tracer("github.com/okian/docrisk/analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.detectors = map[string]imageDetector{
		forensics.CategoryManipulation: forensics.NewManipulation(a.forensicOpts...),
		forensics.CategoryPatterns:     forensics.NewPrintPatterns(a.forensicOpts...),
		forensics.CategorySignatures:   forensics.NewSignatures(a.forensicOpts...),
		forensics.CategoryQuality:      forensics.NewQualitySecurity(a.forensicOpts...),
	}
	a.consistency = forensics.NewConsistency(a.forensicOpts...)
	return a
}

// AnalyzeDocument produces the risk report of doc. It fails only when the
// document type is disabled, the document is empty or ctx ends before the
// report is complete. Detector failures are folded into the report.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, doc Document) (*risk.Report, error) {
	ctx, span := a.tracer.Start(ctx, "analysis.AnalyzeDocument", trace.WithAttributes(
		attribute.String("document.id", doc.ID),
		attribute.String("document.type", doc.Type),
	))
	defer span.End()
	start := time.Now()

	rep, err := a.analyze(ctx, doc)
	if err != nil {
		metrics.RecordAnalysisError(errorReason(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordDocumentAnalyzed()
	metrics.RecordAnalysisLatency(float64(time.Since(start).Milliseconds()))
	metrics.RecordRiskScore(rep.RiskScore)
	metrics.RecordRiskBand(string(rep.Band))
	span.SetAttributes(
		attribute.Float64("risk.score", rep.RiskScore),
		attribute.String("risk.band", string(rep.Band)),
	)
	return rep, nil
}

func (a *Analyzer) analyze(ctx context.Context, doc Document) (*risk.Report, error) {
	profile := a.profiles(doc.Type)
	if !profile.Enabled {
		return nil, fmt.Errorf("%w: %q", ErrDocumentTypeDisabled, doc.Type)
	}
	if len(doc.Content) == 0 && len(doc.Pages) == 0 && doc.Text == "" {
		return nil, ErrEmptyDocument
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	categories := make(map[string]forensics.CategoryReport, len(forensics.Categories()))

	if profile.Consistency {
		categories[forensics.CategoryConsistency] = a.consistency.Check(ctx, doc.Text)
	} else {
		categories[forensics.CategoryConsistency] = forensics.SkippedReport(SkipDisabled)
	}

	pages, decodeErr := a.pages(doc)
	if decodeErr != nil && anyImageCategory(profile) {
		metrics.RecordDecodeFailure()
		a.logger.Warn(ctx, "document is not a decodable image, skipping image categories",
			logger.String("document_id", doc.ID),
			logger.String("file_name", doc.FileName),
			logger.Error(decodeErr),
		)
	}
	for category, report := range a.detectImages(ctx, profile, pages, decodeErr) {
		categories[category] = report
	}

	var suspicions []string
	if profile.Metadata && len(doc.Content) > 0 {
		md := a.inspector.Inspect(metadata.File{
			Name:     doc.FileName,
			Content:  doc.Content,
			Created:  doc.Created,
			Modified: doc.Modified,
		})
		if md.Err != nil && !errors.Is(md.Err, metadata.ErrNoMetadata) {
			a.logger.Debug(ctx, "metadata read failed",
				logger.String("document_id", doc.ID),
				logger.Error(md.Err),
			)
		}
		suspicions = md.Suspicions
		metrics.RecordMetadataSuspicions(len(suspicions))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.observe(ctx, doc.ID, categories)
	rep := a.aggregator.Aggregate(categories)
	rep.DocumentID = doc.ID
	rep.DocumentType = doc.Type
	rep.Metadata = suspicions
	if id, err := identity.ExtractCedula(doc.Text); err == nil {
		rep.ApplicantID = id
	}
	return rep, nil
}

func (a *Analyzer) pages(doc Document) ([]*imaging.Raster, error) {
	if len(doc.Pages) > 0 {
		out := make([]*imaging.Raster, 0, len(doc.Pages))
		for _, p := range doc.Pages {
			if !p.Empty() {
				out = append(out, p)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: %v", imaging.ErrUnreadable, imaging.ErrEmpty)
		}
		return out, nil
	}
	if imaging.IsPDF(doc.Content) {
		return imaging.DecodePDF(doc.Content)
	}
	r, _, err := imaging.Decode(doc.Content)
	if err != nil {
		return nil, err
	}
	return []*imaging.Raster{r}, nil
}

// detectImages runs every enabled image category on every page and keeps, per
// category, the report of the page with the highest score. Ties keep the
// earliest page.
func (a *Analyzer) detectImages(ctx context.Context, profile Profile, pages []*imaging.Raster, decodeErr error) map[string]forensics.CategoryReport {
	out := make(map[string]forensics.CategoryReport, len(a.detectors))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, category := range forensics.ImageCategories() {
		switch {
		case !profile.runs(category):
			out[category] = forensics.SkippedReport(SkipDisabled)
			continue
		case decodeErr != nil:
			out[category] = forensics.SkippedReport(SkipUndecodable)
			continue
		}

		det := a.detectors[category]
		wg.Add(1)
		go func(category string) {
			defer wg.Done()
			best := det.Detect(ctx, pages[0])
			for _, page := range pages[1:] {
				if r := det.Detect(ctx, page); r.Score > best.Score {
					best = r
				}
			}
			mu.Lock()
			out[category] = best
			mu.Unlock()
		}(category)
	}
	wg.Wait()
	return out
}

func (a *Analyzer) observe(ctx context.Context, documentID string, categories map[string]forensics.CategoryReport) {
	for _, category := range forensics.Categories() {
		report, ok := categories[category]
		if !ok {
			continue
		}
		if report.Skipped {
			metrics.RecordCategorySkipped(category, report.SkipReason)
			continue
		}
		if report.Err != nil {
			metrics.RecordDetectorDefaulted(category, "category")
			a.logger.Error(ctx, "detector failed",
				logger.String("document_id", documentID),
				logger.String("category", category),
				logger.Error(report.Err),
			)
		}
		for check, res := range report.Details {
			if res.Suspicious {
				metrics.RecordCheckFlag(category, check)
			}
		}
		for _, check := range report.Defaulted() {
			metrics.RecordDetectorDefaulted(category, check)
			a.logger.Warn(ctx, "check defaulted to not suspicious",
				logger.String("document_id", documentID),
				logger.String("category", category),
				logger.String("check", check),
				logger.Error(report.Details[check].Err),
			)
		}
	}
}

func anyImageCategory(p Profile) bool {
	return p.Visual || p.Signatures || p.Quality
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrDocumentTypeDisabled):
		return "type_disabled"
	case errors.Is(err, ErrEmptyDocument):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}
