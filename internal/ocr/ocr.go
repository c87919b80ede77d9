package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
)

var (
	ErrNoImageData       = errors.New("ocr: no image data")
	ErrUnsupportedImage  = errors.New("ocr: unsupported image format")
	ErrDriverUnavailable = errors.New("ocr: driver not available in this build")
)

// Image is one raster image handed to a recognizer. Format is sniffed when empty.
type Image struct {
	Data   []byte
	Format string
	Name   string
}

// Outcome is what one backend produced for one image.
type Outcome struct {
	Text     string
	Model    constants.OCRModel
	Backend  string
	Duration time.Duration
	Warnings []string
}

// IsEmpty reports whether no usable text was recognized.
func (o Outcome) IsEmpty() bool {
	return strings.TrimSpace(o.Text) == ""
}

// Recognizer is a single text-recognition backend.
type Recognizer interface {
	Name() string
	Model() constants.OCRModel
	Recognize(ctx context.Context, img Image) (Outcome, error)
}

// Config configures the recognition backends.
type Config struct {
	Driver    string // "cli" (default) or "gosseract"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default

	// Languages overrides the tesseract -l value per model.
	Languages map[constants.OCRModel]string

	HeicConverter    string
	ArtifactCacheDir string
	Timeout          time.Duration
}

// DefaultLanguages maps each model to the traineddata packs it loads.
var DefaultLanguages = map[constants.OCRModel]string{
	constants.OCRModelGeneral:    "eng+fra+deu+spa+ita+por",
	constants.OCRModelLatin:      "script/Latin",
	constants.OCRModelChinese:    "chi_sim+chi_tra",
	constants.OCRModelDevanagari: "hin+mar+nep+san",
	constants.OCRModelJapanese:   "jpn+jpn_vert",
	constants.OCRModelKorean:     "kor+kor_vert",
}

func (c Config) withDefaults() Config {
	if c.Driver == "" {
		c.Driver = "cli"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	langs := make(map[constants.OCRModel]string, len(DefaultLanguages))
	for m, l := range DefaultLanguages {
		langs[m] = l
	}
	for m, l := range c.Languages {
		if strings.TrimSpace(l) != "" {
			langs[m] = l
		}
	}
	c.Languages = langs
	return c
}

// NewBackends builds one recognizer per model for the configured driver.
func NewBackends(cfg Config, runner Runner, logger *slog.Logger) (map[constants.OCRModel]Recognizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}

	out := make(map[constants.OCRModel]Recognizer, len(cfg.Languages))
	for _, m := range constants.AllOCRModels() {
		switch cfg.Driver {
		case "cli":
			out[m] = NewTesseractBackend(m, cfg, runner, logger)
		case "gosseract":
			b, err := NewGosseractBackend(m, cfg, logger)
			if err != nil {
				return nil, err
			}
			out[m] = b
		default:
			return nil, fmt.Errorf("ocr: unknown driver %q", cfg.Driver)
		}
	}
	logger.Info("ocr.backends.ready", "driver", cfg.Driver, "count", len(out))
	return out, nil
}
