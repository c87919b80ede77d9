//go:build !gosseract

package ocr

import (
	"log/slog"

	"github.com/joseph-ayodele/phototranslate/constants"
)

// NewGosseractBackend reports ErrDriverUnavailable; build with -tags gosseract to link libtesseract.
func NewGosseractBackend(model constants.OCRModel, _ Config, logger *slog.Logger) (Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("ocr.gosseract.unavailable", "model", model, "hint", "rebuild with -tags gosseract")
	return nil, ErrDriverUnavailable
}
