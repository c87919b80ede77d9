package translate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/phototranslate/internal/common"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"ok with detect", Request{Text: "hola", Source: "detect", Target: "en"}, false},
		{"ok without source", Request{Text: "hola", Target: "en-US"}, false},
		{"missing text", Request{Target: "en"}, true},
		{"missing target", Request{Text: "hola"}, true},
		{"bad source", Request{Text: "hola", Source: "not a tag!", Target: "en"}, true},
		{"too long", Request{Text: strings.Repeat("a", MaxTextRunes+1), Target: "en"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrValidation) {
				t.Errorf("error %v does not wrap ErrValidation", err)
			}
		})
	}
}

func TestNewProviderSelection(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, common.TranslateConfig{}, quietLogger()); !errors.Is(err, ErrNoProvider) {
		t.Errorf("empty provider: got %v, want ErrNoProvider", err)
	}
	if _, err := New(ctx, common.TranslateConfig{Provider: "babelfish"}, quietLogger()); !errors.Is(err, common.ErrUnsupported) {
		t.Errorf("unknown provider: got %v, want ErrUnsupported", err)
	}
	tr, err := New(ctx, common.TranslateConfig{Provider: "libre", LibreURL: "http://localhost:1"}, quietLogger())
	if err != nil || tr.Name() != "libretranslate" {
		t.Errorf("libre provider: got %v, %v", tr, err)
	}
	if _, err := New(ctx, common.TranslateConfig{Provider: "gemini"}, quietLogger()); !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("gemini without key: got %v, want ErrInvalidInput", err)
	}
}

func chatCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestOpenAITranslate(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion("```json\n{\"translation\":\"Hello world\",\"detected_source_language\":\"es\"}\n```"))
	}))
	defer srv.Close()

	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, quietLogger())
	got, err := tr.Translate(context.Background(), Request{Text: "Hola mundo", Source: "detect", Target: "en"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := Response{Text: "Hello world", Source: "es", Target: "en", Provider: "openai:gpt-4o-mini"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", gotBody["model"])
	}
	rf, _ := gotBody["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", gotBody["response_format"])
	}
}

func TestOpenAITranslateRejectsOffSchemaOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatCompletion(`{"text":"Hello"}`))
	}))
	defer srv.Close()

	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "k", BaseURL: srv.URL}, quietLogger())
	if _, err := tr.Translate(context.Background(), Request{Text: "Hola", Target: "en"}); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestOpenAITranslateUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	tr := NewOpenAITranslator(OpenAIConfig{APIKey: "bad", BaseURL: srv.URL}, quietLogger())
	_, err := tr.Translate(context.Background(), Request{Text: "Hola", Target: "en"})
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestLibreTranslate(t *testing.T) {
	var got libreRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"translatedText":"Good morning","detectedLanguage":{"confidence":92,"language":"de"}}`)
	}))
	defer srv.Close()

	tr := NewLibreTranslator(LibreConfig{BaseURL: srv.URL + "/", APIKey: "k"}, quietLogger())
	resp, err := tr.Translate(context.Background(), Request{Text: "Guten Morgen", Target: "en-US"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	wantReq := libreRequest{Q: "Guten Morgen", Source: "auto", Target: "en", Format: "text", APIKey: "k"}
	if diff := cmp.Diff(wantReq, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	wantResp := Response{Text: "Good morning", Source: "de", Target: "en-US", Provider: "libretranslate"}
	if diff := cmp.Diff(wantResp, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestLibreTranslateErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"xx is not supported"}`)
	}))
	defer srv.Close()

	tr := NewLibreTranslator(LibreConfig{BaseURL: srv.URL}, quietLogger())
	_, err := tr.Translate(context.Background(), Request{Text: "hi", Source: "en", Target: "zh-TW"})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestLibreCode(t *testing.T) {
	tests := map[string]string{"en-US": "en", "zh-TW": "zt", "zh-CN": "zh", "pt_BR": "pt", "fr": "fr"}
	for in, want := range tests {
		if got := libreCode(in); got != want {
			t.Errorf("libreCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLLMResult(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    llmResult
		wantErr bool
	}{
		{"plain", `{"translation":"hi"}`, llmResult{Translation: "hi"}, false},
		{"fenced", "```json\n{\"translation\":\"hi\",\"detected_source_language\":\"fr\"}\n```", llmResult{Translation: "hi", DetectedSource: "fr"}, false},
		{"missing translation", `{"detected_source_language":"fr"}`, llmResult{}, true},
		{"extra field", `{"translation":"hi","note":"x"}`, llmResult{}, true},
		{"not json", `hello`, llmResult{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLLMResult([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSystemPromptMentionsDetection(t *testing.T) {
	if p := buildSystemPrompt(Request{Target: "en"}); !strings.Contains(p, "detected_source_language") {
		t.Errorf("prompt without source should ask for detection: %q", p)
	}
	if p := buildSystemPrompt(Request{Source: "es", Target: "en"}); !strings.Contains(p, "source language is es") {
		t.Errorf("prompt should name the source: %q", p)
	}
}
