package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/docrisk/pkg/logger"
)

// ErrNoDocuments is returned when the scanned directory holds no supported
// document.
var ErrNoDocuments = errors.New("no documents found")

// Run analyzes every document under config.Dir and writes the results.
func Run(ctx context.Context, config *Config, a Analyzer) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting batch analysis",
		logger.String("dir", config.Dir),
		logger.String("documentType", config.DocumentType),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	items, err := Scan(ctx, config.Dir)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, config.Dir)
	}
	stats.Found = len(items)

	results, err := analyzeAll(ctx, config, a, items)
	if err != nil {
		return nil, err
	}
	summarize(results, stats)

	filename, err := saveResults(ctx, config, results)
	if err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats, results, filename)
	return stats, nil
}

// saveResults writes results as an indented JSON array and returns the
// file name used.
func saveResults(ctx context.Context, config *Config, results []Result) (string, error) {
	filename := config.OutputFile
	if filename == "" {
		filename = "batch_results_" + time.Now().Format(timestampLayout) + ".json"
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), outputFilePermission); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "results saved to file", logger.String("filename", filename))
	return filename, nil
}
