package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/logger"
)

// Analyzer produces the risk report of a document.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, doc analysis.Document) (*risk.Report, error)
}

// analyzeAll runs a on every item with at most cfg.Workers analyses in
// flight. Per-document failures are kept in the results; only cancellation
// of ctx stops the run.
func analyzeAll(ctx context.Context, cfg *Config, a Analyzer, items []Item) ([]Result, error) {
	log := logger.Get()
	log.Info(ctx, "analyzing documents", logger.Int("count", len(items)), logger.Int("workers", cfg.Workers))

	results := make([]Result, len(items))
	var done int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = analyzeOne(gctx, cfg, a, items[i])
			n := atomic.AddInt64(&done, 1)
			if cfg.Verbose {
				log.Info(gctx, "document analyzed",
					logger.String("path", results[i].Path),
					logger.Int("done", int(n)),
					logger.Int("total", len(items)),
					logger.String("error", results[i].Error),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis interrupted: %w", err)
	}
	return results, nil
}

func analyzeOne(ctx context.Context, cfg *Config, a Analyzer, item Item) Result {
	start := time.Now()
	res := Result{Path: item.Path, DocumentID: uuid.NewString()}

	doc, err := load(item, cfg.DocumentType)
	if err != nil {
		res.Error = err.Error()
		res.DurationMS = time.Since(start).Milliseconds()
		return res
	}
	doc.ID = res.DocumentID

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	rep, err := a.AnalyzeDocument(ctx, doc)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Report = rep
	}
	res.DurationMS = time.Since(start).Milliseconds()
	return res
}

// load reads a document and its sidecar text. Local files keep their
// modification time, which feeds the metadata date checks.
func load(item Item, documentType string) (analysis.Document, error) {
	content, err := os.ReadFile(item.Path)
	if err != nil {
		return analysis.Document{}, fmt.Errorf("read %s: %w", item.Path, err)
	}
	doc := analysis.Document{
		Type:     documentType,
		FileName: filepath.Base(item.Path),
		Content:  content,
		Modified: item.Modified,
	}
	if item.TextPath != "" {
		text, err := os.ReadFile(item.TextPath)
		if err != nil {
			return analysis.Document{}, fmt.Errorf("read %s: %w", item.TextPath, err)
		}
		doc.Text = string(text)
	}
	return doc, nil
}
