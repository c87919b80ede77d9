package server

import (
	"context"
	"net/http"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/repository"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

const healthTimeout = 3 * time.Second

type componentHealth struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status     string          `json:"status"`
	Tesseract  componentHealth `json:"tesseract"`
	Database   componentHealth `json:"database"`
	Translator string          `json:"translator,omitempty"`
	Queue      bool            `json:"queue"`
}

// Health probes the OCR engine and the scan store.
func (s *Server) Health(ctx context.Context) healthResponse {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	out := healthResponse{Status: "ok", Queue: s.deps.Queue != nil}
	if s.deps.OCRVersion != nil {
		v, err := s.deps.OCRVersion(ctx)
		out.Tesseract = componentHealth{OK: err == nil, Version: v}
		if err != nil {
			out.Tesseract.Error = err.Error()
		}
	} else {
		out.Tesseract = componentHealth{Error: "not configured"}
	}
	if s.deps.DB != nil {
		err := repository.HealthCheck(ctx, s.deps.DB, healthTimeout, s.logger)
		out.Database = componentHealth{OK: err == nil, Version: s.deps.DB.Dialect}
		if err != nil {
			out.Database.Error = err.Error()
		}
	} else {
		out.Database = componentHealth{Error: "not configured"}
	}
	if s.deps.Translator != nil {
		out.Translator = s.deps.Translator.Name()
	}
	if !out.Tesseract.OK || !out.Database.OK {
		out.Status = "degraded"
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.Health(r.Context())
	status := http.StatusOK
	if h.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

type modelView struct {
	ID        constants.OCRModel `json:"id"`
	Name      string             `json:"name"`
	Preferred bool               `json:"preferred"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	preferred := s.deps.Processor.Preferences().PreferredModel
	models := constants.AllOCRModels()
	out := make([]modelView, 0, len(models))
	for _, m := range models {
		out = append(out, modelView{ID: m, Name: m.DisplayName(), Preferred: m == preferred})
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": out})
}

type languageView struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := translate.SortLanguages(append([]translate.SupportedLanguage(nil), s.deps.Processor.Languages()...))
	out := make([]languageView, 0, len(langs))
	for _, l := range langs {
		out = append(out, languageView{Code: l.Code(), Name: l.LocalizedName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"languages":      out,
		"default_target": s.deps.Processor.Preferences().DefaultTargetLanguage,
		"translation":    s.deps.Translator != nil,
	})
}
