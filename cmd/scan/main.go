package main

import (
	"context"
	"encoding/json"
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
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
)

func main() {
	var (
		model       = flag.String("model", "", "OCR model to try first (general, latin, chinese, devanagari, japanese, korean)")
		target      = flag.String("target", "", "translate into this language tag, e.g. en or fr-FR")
		force       = flag.Bool("force", false, "rescan even if the image was seen before")
		noTranslate = flag.Bool("no-translate", false, "skip translation even when auto-translate is on")
		inmem       = flag.Bool("inmem", false, "use a throwaway in-memory SQLite store")
		timeout     = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: scan [flags] <image>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// stdout carries the JSON result
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	_ = godotenv.Load()
	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if *inmem {
		cfg.Database = common.DatabaseConfig{Driver: "sqlite"}
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(2)
	}

	var m constants.OCRModel
	if *model != "" {
		var ok bool
		if m, ok = constants.ParseOCRModel(*model); !ok {
			logger.Error("unknown model", "model", *model)
			os.Exit(2)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read image", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, app.Options{SkipArchive: *inmem}, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	abs, _ := filepath.Abs(path)
	out, err := a.Processor.ProcessImage(ctx, pipeline.ScanInput{
		Data:        data,
		Name:        filepath.Base(path),
		SourcePath:  abs,
		Model:       m,
		Target:      *target,
		Force:       *force,
		NoTranslate: *noTranslate,
	})
	if err != nil && out.TranslationError == "" {
		logger.Error("scan failed", "path", path, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		logger.Error("write result", "error", encErr)
		os.Exit(1)
	}
	if err != nil {
		os.Exit(3)
	}
}
