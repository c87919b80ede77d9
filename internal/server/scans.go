package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/entity"
	"github.com/joseph-ayodele/phototranslate/internal/pipeline"
	"github.com/joseph-ayodele/phototranslate/internal/repository"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

const (
	multipartMemory = 8 << 20
	presignTTL      = 15 * time.Minute
)

type scanResponse struct {
	pipeline.ScanOutcome
	ImageURL string `json:"image_url,omitempty"`
}

type scanView struct {
	*entity.Scan
	ImageURL string `json:"image_url,omitempty"`
}

// handleScan runs one uploaded image through the processor.
// Form fields: image or file (required), model, target, translate, force.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > s.cfg.MaxUploadBytes {
			writeErr(w, r, http.StatusRequestEntityTooLarge, "too_large",
				fmt.Sprintf("upload exceeds %d bytes", s.cfg.MaxUploadBytes))
			return
		}
		writeErr(w, r, http.StatusBadRequest, "invalid_request", "expected multipart/form-data: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	in, err := s.scanInput(r)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}

	out, err := s.deps.Processor.ProcessImage(r.Context(), in)
	resp := scanResponse{ScanOutcome: out, ImageURL: s.presign(r, out.ArchivePath)}
	if err != nil {
		if out.TranslationError == "" {
			writeAppErr(w, r, err)
			return
		}
		// recognition succeeded; report the outcome with the translation failure status
		writeJSON(w, translationFailureStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) scanInput(r *http.Request) (pipeline.ScanInput, error) {
	data, hdr, err := readUpload(r)
	if err != nil {
		return pipeline.ScanInput{}, err
	}
	in := pipeline.ScanInput{
		Data:        data,
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
	}
	opts := scanOptions{
		Model:     r.FormValue("model"),
		Target:    r.FormValue("target"),
		Translate: r.FormValue("translate"),
		Force:     r.FormValue("force"),
	}
	if err := opts.apply(&in, s.deps.Processor.Preferences().DefaultTargetLanguage); err != nil {
		return in, err
	}
	return in, nil
}

func readUpload(r *http.Request) ([]byte, *multipart.FileHeader, error) {
	f, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		f, hdr, err = r.FormFile("file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: image file is required", common.ErrInvalidInput)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read upload: %v", common.ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: image file is empty", common.ErrInvalidInput)
	}
	return data, hdr, nil
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Translator == nil {
		writeErr(w, r, http.StatusServiceUnavailable, "no_provider", translate.ErrNoProvider.Error())
		return
	}
	body, err := parseJSON[translateRequest](r)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	req := translate.Request{Text: body.Text, Source: body.Source, Target: body.Target}
	if err := translate.Validate(req); err != nil {
		writeAppErr(w, r, err)
		return
	}
	start := time.Now()
	resp, err := s.deps.Translator.Translate(r.Context(), req)
	if err != nil {
		s.logger.Error("http.translate.failed", "provider", s.deps.Translator.Name(), "error", err)
		writeAppErr(w, r, err)
		return
	}
	s.logger.Info("http.translate.ok",
		"provider", resp.Provider,
		"target", resp.Target,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scans == nil {
		writeErr(w, r, http.StatusServiceUnavailable, "unavailable", "scan history is not configured")
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	scans, err := s.deps.Scans.List(r.Context(), filter)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	if scans == nil {
		scans = []*entity.Scan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans, "count": len(scans)})
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	if s.deps.Scans == nil {
		writeErr(w, r, http.StatusServiceUnavailable, "unavailable", "scan history is not configured")
		return
	}
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, http.StatusBadRequest, "invalid_request", "id must be a UUID")
		return
	}
	scan, err := s.deps.Scans.GetByID(r.Context(), id)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	view := scanView{Scan: scan}
	if scan.ArchivePath != nil {
		view.ImageURL = s.presign(r, *scan.ArchivePath)
	}
	writeJSON(w, http.StatusOK, view)
}

// parseListFilter reads status, language, since (RFC 3339 or YYYY-MM-DD), limit and offset.
func parseListFilter(r *http.Request) (repository.ListFilter, error) {
	q := r.URL.Query()
	f := repository.ListFilter{
		Status:   constants.ScanStatus(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		Language: strings.TrimSpace(q.Get("language")),
	}
	if v := strings.TrimSpace(q.Get("since")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			if t, err = time.Parse(time.DateOnly, v); err != nil {
				return f, fmt.Errorf("%w: since must be RFC 3339 or YYYY-MM-DD", common.ErrInvalidInput)
			}
		}
		f.Since = t
	}
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: %s must be a non-negative integer", common.ErrInvalidInput, name)
		}
		*dst = n
	}
	return f, nil
}

func (s *Server) presign(r *http.Request, object string) string {
	if s.deps.Archive == nil || object == "" {
		return ""
	}
	url, err := s.deps.Archive.PresignedURL(r.Context(), object, presignTTL)
	if err != nil {
		s.logger.Warn("http.presign.failed", "object", object, "error", err)
		return ""
	}
	return url
}
