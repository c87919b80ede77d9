package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

// LibreConfig configures a LibreTranslate-compatible server.
type LibreConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// LibreTranslator calls the /translate endpoint of a LibreTranslate server.
type LibreTranslator struct {
	cfg  LibreConfig
	http *http.Client
	log  *slog.Logger
}

func NewLibreTranslator(cfg LibreConfig, logger *slog.Logger) *LibreTranslator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:5000"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LibreTranslator{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

func (t *LibreTranslator) Name() string { return "libretranslate" }

type libreRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText   string `json:"translatedText"`
	DetectedLanguage *struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	} `json:"detectedLanguage,omitempty"`
	Error string `json:"error,omitempty"`
}

func (t *LibreTranslator) Translate(ctx context.Context, req Request) (Response, error) {
	if err := Validate(req); err != nil {
		return Response{}, err
	}
	source := "auto"
	if src := sourceOrDetect(req.Source); src != "" {
		source = libreCode(src)
	}
	body := libreRequest{
		Q:      req.Text,
		Source: source,
		Target: libreCode(req.Target),
		Format: "text",
		APIKey: t.cfg.APIKey,
	}

	endpoint := strings.TrimRight(t.cfg.BaseURL, "/") + "/translate"
	raw, status, err := sendJSON(ctx, t.http, endpoint, body, nil, t.log)

	var out libreResponse
	if len(raw) > 0 {
		if jerr := json.Unmarshal(raw, &out); jerr != nil && err == nil {
			return Response{}, fmt.Errorf("decode libretranslate response: %w", jerr)
		}
	}
	if err != nil {
		t.log.Warn("translate.libre.failed", "status", status, "error", err, "detail", out.Error)
		switch {
		case status == http.StatusBadRequest:
			return Response{}, fmt.Errorf("libretranslate: %s: %w", out.Error, common.ErrInvalidInput)
		case status == http.StatusForbidden:
			return Response{}, fmt.Errorf("libretranslate: %s: %w", out.Error, common.ErrUnauthorized)
		case status == 0:
			return Response{}, err
		default:
			return Response{}, fmt.Errorf("libretranslate status %d: %w", status, common.ErrUnavailable)
		}
	}

	resp := Response{
		Text:     out.TranslatedText,
		Source:   sourceOrDetect(req.Source),
		Target:   req.Target,
		Provider: t.Name(),
	}
	if resp.Source == "" && out.DetectedLanguage != nil {
		resp.Source = out.DetectedLanguage.Language
	}
	return resp, nil
}

// libreCode reduces a BCP-47 tag to the codes LibreTranslate accepts.
// Chinese keeps its script distinction; everything else uses the base language.
func libreCode(tag string) string {
	tag = strings.ToLower(strings.ReplaceAll(tag, "_", "-"))
	switch tag {
	case "zh-tw", "zh-hant", "zh-hk":
		return "zt"
	}
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}
