package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

// GeminiConfig configures the Gemini translator.
type GeminiConfig struct {
	APIKey string
	Model  string // e.g. "gemini-1.5-flash"
}

// GeminiTranslator translates through the Gemini generative API.
type GeminiTranslator struct {
	cfg    GeminiConfig
	client *genai.Client
	log    *slog.Logger
}

func NewGeminiTranslator(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiTranslator, error) {
	if cfg.APIKey == "" {
		return nil, common.NewAppError("config", "gemini api key is required", common.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiTranslator{cfg: cfg, client: client, log: logger}, nil
}

func (t *GeminiTranslator) Name() string { return "gemini:" + t.cfg.Model }

// Close releases the underlying client connection.
func (t *GeminiTranslator) Close() error {
	return t.client.Close()
}

func (t *GeminiTranslator) Translate(ctx context.Context, req Request) (Response, error) {
	if err := Validate(req); err != nil {
		return Response{}, err
	}
	rid := uuid.New().String()
	start := time.Now()

	t.log.Info("translate.gemini.start",
		"req_id", rid,
		"model", t.cfg.Model,
		"source", req.Source,
		"target", req.Target,
		"text_len", len(req.Text),
	)

	model := t.client.GenerativeModel(t.cfg.Model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(buildSystemPrompt(req))}}

	resp, err := model.GenerateContent(ctx, genai.Text(buildUserPrompt(req.Text)))
	if err != nil {
		t.log.Error("translate.gemini.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Response{}, fmt.Errorf("gemini request failed: %w: %w", common.ErrUnavailable, err)
	}

	content := geminiText(resp)
	if content == "" {
		t.log.Error("translate.gemini.no_candidates",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Response{}, fmt.Errorf("%w: no candidates in gemini response", common.ErrUnavailable)
	}

	out, err := parseLLMResult([]byte(content))
	if err != nil {
		t.log.Error("translate.gemini.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Response{}, fmt.Errorf("gemini: %w", err)
	}

	t.log.Info("translate.gemini.ok",
		"req_id", rid,
		"detected", out.DetectedSource,
		"out_len", len(out.Translation),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Response{
		Text:     out.Translation,
		Source:   pickSource(req.Source, out.DetectedSource),
		Target:   req.Target,
		Provider: t.Name(),
	}, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if txt, ok := p.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(b.String())
}
