package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/docrisk/pkg/logger"
)

// SetupLogging sends log output to stdout and to logFile. When logFile is
// empty, a timestamped name is used. The returned closer flushes the file.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "" {
		logFile = "batch_log_" + time.Now().Format(timestampLayout) + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the batch tool.
func ShowHelp() {
	os.Stdout.WriteString(`docrisk batch analyzer
======================

Analyzes every document in a directory and writes one risk report per file.

Supported files: .jpg .jpeg .png .tif .tiff .bmp .webp .pdf
OCR text is read from a sibling file with the same name and a .txt extension.

Usage:
  go run ./cmd/batch -dir <path> [options]

Options:
  -dir string
        Directory to analyze (required)
  -type string
        Document type applied to every file, e.g. "Colilla de Pago"
  -workers int
        Number of concurrent analyses (default CPU cores)
  -timeout duration
        Per-document analysis timeout (default 1m)
  -output string
        JSON results file (default: batch_results_TIMESTAMP.json)
  -log string
        Log file (default: batch_log_TIMESTAMP.log)
  -verbose
        Log every analyzed document
  -help
        Show this help message

Thresholds and document type profiles are read from the same DOCRISK_
environment variables and DOCRISK_CONFIG file as the service.

Examples:
  go run ./cmd/batch -dir ./samples -type "Carta Laboral"
  go run ./cmd/batch -dir ./samples -workers 8 -output out/results.json -verbose
`)
}
