package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/app"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/ingest"
	"github.com/joseph-ayodele/phototranslate/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem    = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir      = flag.String("dir", "", "directory of images to scan (required)")
		out      = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		model    = flag.String("model", "", "OCR model to try first")
		target   = flag.String("target", "", "translate every scan into this language tag")
		force    = flag.Bool("force", false, "rescan images already in history")
		sinceStr = flag.String("since", "", "export only scans started on or after YYYY-MM-DD")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), "scans.xlsx")
	}
	var since time.Time
	if *sinceStr != "" {
		parsed, err := time.Parse(time.DateOnly, *sinceStr)
		if err != nil {
			printError("Error: invalid --since date format, use YYYY-MM-DD: %v\n", err)
			os.Exit(1)
		}
		since = parsed
	}
	var m constants.OCRModel
	if *model != "" {
		var ok bool
		if m, ok = constants.ParseOCRModel(*model); !ok {
			printError("Error: unknown --model %q\n", *model)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	_ = godotenv.Load()
	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *inmem {
		cfg.Database = common.DatabaseConfig{Driver: "sqlite"}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	logger.Info("starting batch scan", "dir", *dir)
	start := time.Now()
	results, stats, err := ingest.ScanDirectory(ctx, *dir, true, ingest.ProcessSubmitter{
		Proc:   a.Processor,
		Model:  m,
		Target: *target,
		Force:  *force,
	})
	if err != nil {
		logger.Error("failed to scan directory", "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("scan failed", "path", r.Path, "error", r.Err)
		}
	}
	logger.Info("batch scan complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"reused", stats.Reused,
		"failed", stats.Failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	logger.Info("exporting to XLSX", "output", *out)
	xlsx, err := a.Exporter.ExportScansXLSX(ctx, repository.ListFilter{Since: since})
	if err != nil {
		logger.Error("failed to export scans", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsx, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch scan complete!\n")
	fmt.Printf("- Images matched: %d\n", stats.Matched)
	fmt.Printf("- Scanned: %d (reused %d)\n", stats.Succeeded, stats.Reused)
	fmt.Printf("- Failures: %d\n", stats.Failed)
	fmt.Printf("- Output: %s\n", *out)
}
