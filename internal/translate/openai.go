package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

// OpenAIConfig configures the chat-completions translator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g. "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
}

// OpenAITranslator translates through an OpenAI-compatible chat completions API.
type OpenAITranslator struct {
	cfg    OpenAIConfig
	client *openai.Client
	log    *slog.Logger
}

func NewOpenAITranslator(cfg OpenAIConfig, logger *slog.Logger) *OpenAITranslator {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAITranslator{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		log:    logger,
	}
}

func (t *OpenAITranslator) Name() string { return "openai:" + t.cfg.Model }

func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Response, error) {
	if err := Validate(req); err != nil {
		return Response{}, err
	}
	rid := uuid.New().String()
	start := time.Now()

	t.log.Info("translate.openai.start",
		"req_id", rid,
		"model", t.cfg.Model,
		"source", req.Source,
		"target", req.Target,
		"text_len", len(req.Text),
	)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.cfg.Model,
		Temperature: t.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req.Text) + "\n\nReturn ONLY JSON."},
		},
	})
	if err != nil {
		t.log.Error("translate.openai.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Response{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		t.log.Error("translate.openai.no_choices",
			"req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Response{}, fmt.Errorf("%w: no choices in openai response", common.ErrUnavailable)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	out, err := parseLLMResult([]byte(content))
	if err != nil {
		t.log.Error("translate.openai.schema_validation_failed",
			"req_id", rid, "error", err, "content", content,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Response{}, fmt.Errorf("openai: %w", err)
	}

	t.log.Info("translate.openai.ok",
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

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("openai rejected credentials: %w: %w", common.ErrUnauthorized, err)
		case http.StatusBadRequest:
			return fmt.Errorf("openai rejected request: %w: %w", common.ErrInvalidInput, err)
		}
	}
	return fmt.Errorf("openai request failed: %w: %w", common.ErrUnavailable, err)
}

// pickSource prefers the caller's explicit source over the provider's guess.
func pickSource(requested, detected string) string {
	if src := sourceOrDetect(requested); src != "" {
		return src
	}
	return strings.TrimSpace(detected)
}
