package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	app "github.com/okian/docrisk/internal/app"
	"github.com/okian/docrisk/internal/batch"
	"github.com/okian/docrisk/internal/config"
	"github.com/okian/docrisk/pkg/logger"
)

const (
	defaultTimeout    = time.Minute
	defaultRunTimeout = 2 * time.Hour
)

func main() {
	var (
		dir        = flag.String("dir", "", "Directory to analyze")
		docType    = flag.String("type", "", "Document type applied to every file")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent analyses")
		timeout    = flag.Duration("timeout", defaultTimeout, "Per-document analysis timeout")
		outputFile = flag.String("output", "", "JSON results file (default: batch_results_TIMESTAMP.json)")
		logFile    = flag.String("log", "", "Log file (default: batch_log_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Log every analyzed document")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help || *dir == "" {
		batch.ShowHelp()
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	closer, err := batch.SetupLogging(*logFile, cfg.LogFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()
	_ = logger.SetLevelString(cfg.LogLevel)

	run := &batch.Config{
		Dir:          *dir,
		DocumentType: *docType,
		Workers:      *workers,
		Timeout:      *timeout,
		OutputFile:   *outputFile,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}
	if _, err := batch.Run(ctx, run, app.NewAnalyzer(cfg)); err != nil {
		logger.Get().Error(ctx, "batch failed", logger.Error(err))
		_ = closer.Close()
		stop()
		os.Exit(1)
	}
}
