package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
)

// TesseractBackend drives the tesseract binary for one model's language packs.
type TesseractBackend struct {
	model  constants.OCRModel
	cfg    Config
	langs  string
	runner Runner
	logger *slog.Logger
}

func NewTesseractBackend(model constants.OCRModel, cfg Config, runner Runner, logger *slog.Logger) *TesseractBackend {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &TesseractBackend{
		model:  model,
		cfg:    cfg,
		langs:  cfg.Languages[model],
		runner: runner,
		logger: logger,
	}
}

func (b *TesseractBackend) Name() string              { return "tesseract-cli:" + string(b.model) }
func (b *TesseractBackend) Model() constants.OCRModel { return b.model }

// Languages is the -l value passed to tesseract.
func (b *TesseractBackend) Languages() string { return b.langs }

func (b *TesseractBackend) Recognize(ctx context.Context, img Image) (Outcome, error) {
	start := time.Now()
	res := Outcome{Model: b.model, Backend: b.Name()}
	if len(img.Data) == 0 {
		return res, ErrNoImageData
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "pt-ocr-*")
	if err != nil {
		return res, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	ext := img.Format
	if ext == "" {
		ext = "png"
	}
	path := filepath.Join(tmpDir, "image."+ext)
	if err := os.WriteFile(path, img.Data, 0o600); err != nil {
		return res, err
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := b.runner.Run(ctx, b.cfg.Tesseract, b.args(path)...)
	res.Duration = time.Since(start)
	if err != nil {
		if len(errb) > 0 {
			res.Warnings = append(res.Warnings, truncate(strings.TrimSpace(string(errb)), 1024))
		}
		return res, fmt.Errorf("tesseract %s: %w", b.langs, err)
	}

	res.Text = Normalize(string(out))
	b.logger.Debug("ocr.tesseract.done",
		"model", b.model,
		"langs", b.langs,
		"chars", len(res.Text),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (b *TesseractBackend) args(path string) []string {
	args := []string{path, "stdout", "-l", b.langs}
	if b.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", b.cfg.TessdataDir)
	}
	if b.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(b.cfg.PSM))
	}
	if b.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(b.cfg.OEM))
	}
	return args
}

// Version probes the tesseract binary, returning the first line of --version.
func Version(ctx context.Context, runner Runner, bin string) (string, error) {
	if bin == "" {
		bin = "tesseract"
	}
	out, errb, err := runner.Run(ctx, bin, "--version")
	if err != nil {
		return "", fmt.Errorf("tesseract --version: %w", err)
	}
	// older builds print the banner on stderr
	text := string(out)
	if strings.TrimSpace(text) == "" {
		text = string(errb)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	return strings.TrimSpace(line), nil
}
