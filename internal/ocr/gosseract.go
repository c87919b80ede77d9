//go:build gosseract

package ocr

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/phototranslate/constants"
)

// GosseractBackend runs tesseract in-process through libtesseract.
// A client is not safe for concurrent use, so calls are serialized.
type GosseractBackend struct {
	model  constants.OCRModel
	cfg    Config
	langs  []string
	logger *slog.Logger

	mu sync.Mutex
}

func NewGosseractBackend(model constants.OCRModel, cfg Config, logger *slog.Logger) (Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &GosseractBackend{
		model:  model,
		cfg:    cfg,
		langs:  strings.Split(cfg.Languages[model], "+"),
		logger: logger,
	}, nil
}

func (b *GosseractBackend) Name() string              { return "gosseract:" + string(b.model) }
func (b *GosseractBackend) Model() constants.OCRModel { return b.model }

func (b *GosseractBackend) Recognize(ctx context.Context, img Image) (Outcome, error) {
	start := time.Now()
	res := Outcome{Model: b.model, Backend: b.Name()}
	if len(img.Data) == 0 {
		return res, ErrNoImageData
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if b.cfg.TessdataDir != "" {
		client.TessdataPrefix = b.cfg.TessdataDir
	}
	if err := client.SetLanguage(b.langs...); err != nil {
		return res, err
	}
	if b.cfg.PSM > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(b.cfg.PSM)); err != nil {
			return res, err
		}
	}
	if err := client.SetImageFromBytes(img.Data); err != nil {
		return res, err
	}
	text, err := client.Text()
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(text)
	b.logger.Debug("ocr.gosseract.done", "model", b.model, "chars", len(res.Text), "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}
