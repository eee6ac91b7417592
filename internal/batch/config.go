package batch

import (
	"time"

	"github.com/okian/docrisk/internal/domain/risk"
)

// Config holds configuration for a batch run.
type Config struct {
	Dir          string        // Directory walked for documents
	DocumentType string        // Type applied to every document
	Workers      int           // Number of concurrent analyses
	Timeout      time.Duration // Per-document analysis timeout
	OutputFile   string        // JSON results file
	LogFile      string        // Log file for run output
	Verbose      bool          // Log every document
}

// Item is one document found on disk.
type Item struct {
	Path     string
	TextPath string // empty when no sidecar exists
	Modified time.Time
}

// Result is the outcome of analyzing one Item.
type Result struct {
	Path       string       `json:"path"`
	DocumentID string       `json:"document_id"`
	Report     *risk.Report `json:"report,omitempty"`
	Error      string       `json:"error,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

// Stats holds run statistics.
type Stats struct {
	Found     int
	Analyzed  int
	Failed    int
	ByBand    map[risk.Band]int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
