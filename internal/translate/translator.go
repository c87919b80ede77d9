package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
)

// MaxTextRunes bounds the text sent to a provider in one request.
const MaxTextRunes = 20000

// ErrNoProvider is returned when translation is requested but none is configured.
var ErrNoProvider = errors.New("translate: no provider configured")

// Request asks for Text to be rendered in Target. Source may be empty or "detect".
type Request struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
}

// Response is a completed translation.
type Response struct {
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"` // as given, or as detected by the provider
	Target   string `json:"target"`
	Provider string `json:"provider"`
}

// Translator is an external translation service.
type Translator interface {
	Name() string
	Translate(ctx context.Context, req Request) (Response, error)
}

// Validate refuses requests missing the text or either language.
// An empty or "detect" source is allowed and left to the provider.
func Validate(req Request) error {
	v := common.NewValidator().
		Field("text", req.Text, common.Required, common.MaxLength(MaxTextRunes)).
		Field("target", req.Target, common.Required, common.LanguageTag)
	if src := strings.TrimSpace(req.Source); src != "" && !strings.EqualFold(src, constants.DetectLanguage) {
		v.Field("source", src, common.LanguageTag)
	}
	return v.Error()
}

// New builds the configured provider. An empty provider returns (nil, ErrNoProvider).
func New(ctx context.Context, cfg common.TranslateConfig, logger *slog.Logger) (Translator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, ErrNoProvider
	case "openai":
		return NewOpenAITranslator(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		}, logger), nil
	case "gemini":
		g, err := NewGeminiTranslator(ctx, GeminiConfig{
			APIKey: cfg.GeminiKey,
			Model:  cfg.GeminiModel,
		}, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "libre":
		return NewLibreTranslator(LibreConfig{
			BaseURL: cfg.LibreURL,
			APIKey:  cfg.LibreKey,
			Timeout: cfg.Timeout,
		}, logger), nil
	default:
		return nil, fmt.Errorf("%w: translate provider %q", common.ErrUnsupported, cfg.Provider)
	}
}

func sourceOrDetect(src string) string {
	src = strings.TrimSpace(src)
	if src == "" || strings.EqualFold(src, constants.DetectLanguage) {
		return ""
	}
	return src
}
