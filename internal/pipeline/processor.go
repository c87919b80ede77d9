package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/cache"
	"github.com/joseph-ayodele/phototranslate/internal/cascade"
	"github.com/joseph-ayodele/phototranslate/internal/common"
	"github.com/joseph-ayodele/phototranslate/internal/entity"
	"github.com/joseph-ayodele/phototranslate/internal/langid"
	"github.com/joseph-ayodele/phototranslate/internal/ocr"
	"github.com/joseph-ayodele/phototranslate/internal/repository"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

// Archiver keeps a copy of the uploaded image. Put returns the object path.
type Archiver interface {
	Put(ctx context.Context, hashHex, name string, data []byte, contentType string) (string, error)
}

// ScanInput is one image to process.
type ScanInput struct {
	Data        []byte
	Name        string
	SourcePath  string
	ContentType string
	Model       constants.OCRModel // overrides the preferred model when set
	Target      string             // BCP-47 tag; empty falls back to the auto-translate preference
	Force       bool               // ignore stored and cached results
	NoTranslate bool               // suppress translation, including auto-translate
}

// ScanOutcome is the processed result returned to callers.
type ScanOutcome struct {
	ScanID           uuid.UUID            `json:"scan_id,omitempty"`
	Hash             string               `json:"hash"`
	Reused           bool                 `json:"reused"`
	Status           constants.ScanStatus `json:"status"`
	Text             string               `json:"text"`
	Model            constants.OCRModel   `json:"model,omitempty"`
	Language         langid.Result        `json:"language"`
	Attempts         []cascade.Attempt    `json:"attempts,omitempty"`
	Translation      *translate.Response  `json:"translation,omitempty"`
	TranslationError string               `json:"translation_error,omitempty"`
	ArchivePath      string               `json:"archive_path,omitempty"`
	Elapsed          time.Duration        `json:"elapsed_ns"`
}

// Deps are the processor's collaborators. Only Cascade is required.
type Deps struct {
	Cascade    *cascade.Controller
	Repo       repository.ScanRepository
	Translator translate.Translator
	Cache      cache.Cache
	CacheTTL   time.Duration
	Archive    Archiver
	Languages  []translate.SupportedLanguage
	Prefs      common.Preferences
}

// Processor runs the OCR cascade on an image, records the scan and optionally translates it.
type Processor struct {
	Logger *slog.Logger
	deps   Deps
}

func NewProcessor(deps Deps, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Languages == nil {
		deps.Languages = translate.DefaultSupported
	}
	if !deps.Prefs.PreferredModel.Valid() {
		deps.Prefs.PreferredModel = constants.DefaultOCRModel
	}
	return &Processor{Logger: logger, deps: deps}
}

// Preferences returns the preferences the processor was built with.
func (p *Processor) Preferences() common.Preferences { return p.deps.Prefs }

// HasTranslator reports whether a translation provider is configured.
func (p *Processor) HasTranslator() bool { return p.deps.Translator != nil }

// Languages lists the supported translation languages.
func (p *Processor) Languages() []translate.SupportedLanguage { return p.deps.Languages }

// ProcessImage hashes the image, reuses a stored scan of the same content when allowed,
// and otherwise runs the cascade, stores the result and translates when a target applies.
func (p *Processor) ProcessImage(ctx context.Context, in ScanInput) (ScanOutcome, error) {
	start := time.Now()
	if len(in.Data) == 0 {
		return ScanOutcome{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, ocr.ErrNoImageData)
	}
	model := in.Model
	if model == "" {
		model = p.deps.Prefs.PreferredModel
	}
	if !model.Valid() {
		return ScanOutcome{}, fmt.Errorf("%w: unknown OCR model %q", common.ErrInvalidInput, model)
	}
	target := p.resolveTarget(in.Target)
	if in.NoTranslate {
		target = ""
	}
	hash := ocr.ContentHash(in.Data)

	p.Logger.Info("processor.scan.start",
		"file", in.Name,
		"bytes", len(in.Data),
		"hash", hash,
		"model", model,
		"target", target,
		"force", in.Force,
	)

	if !in.Force {
		if out, ok := p.reuse(ctx, hash, model, target); ok {
			out.Elapsed = time.Since(start)
			p.Logger.Info("processor.scan.reused", "scan_id", out.ScanID, "hash", hash, "status", out.Status)
			return out, nil
		}
	}

	var scan *entity.Scan
	if p.deps.Repo != nil {
		var err error
		scan, err = p.deps.Repo.Start(ctx, repository.StartParams{
			ContentHash:    hash,
			FileName:       in.Name,
			SourcePath:     in.SourcePath,
			PreferredModel: model,
			TargetLanguage: target,
		})
		if err != nil {
			return ScanOutcome{}, err
		}
	}
	out := ScanOutcome{Hash: hash}
	if scan != nil {
		out.ScanID = scan.ID
	}

	out.ArchivePath = p.archive(ctx, scan, hash, in)

	res := p.recognize(ctx, hash, model, in)
	out.Text = res.Text
	out.Model = res.Model
	out.Language = res.Language
	out.Attempts = res.Attempts
	out.Status = constants.ScanStatusOCROK
	if !res.Found() {
		out.Status = constants.ScanStatusOCREmpty
	}

	if scan != nil {
		attempts, _ := json.Marshal(res.Attempts)
		if err := p.deps.Repo.FinishOCR(ctx, scan.ID, repository.OCRResult{
			Text:              res.Text,
			Model:             string(res.Model),
			DominantLanguage:  res.Language.DominantLanguage,
			DominantTag:       res.Language.DominantTag,
			PossibleLanguages: res.Language.PossibleLanguages,
			Attempts:          attempts,
			Elapsed:           time.Since(start),
		}); err != nil {
			p.markFailed(ctx, scan.ID, "store ocr result: "+err.Error())
			return out, err
		}
	}

	if target != "" && res.Found() {
		resp, err := p.translateText(ctx, res, target, in.Target != "")
		switch {
		case err != nil:
			out.Status = constants.ScanStatusFailed
			out.TranslationError = err.Error()
			if scan != nil {
				p.markFailed(ctx, scan.ID, "translation: "+err.Error())
			}
			out.Elapsed = time.Since(start)
			return out, err
		case resp != nil:
			out.Translation = resp
			out.Status = constants.ScanStatusTranslated
			if scan != nil {
				if err := p.deps.Repo.FinishTranslation(ctx, scan.ID, repository.TranslationResult{
					Source:   resp.Source,
					Target:   resp.Target,
					Text:     resp.Text,
					Provider: resp.Provider,
				}); err != nil {
					p.markFailed(ctx, scan.ID, "store translation: "+err.Error())
					return out, err
				}
			}
		}
	}

	out.Elapsed = time.Since(start)
	p.Logger.Info("processor.scan.ok",
		"scan_id", out.ScanID,
		"status", out.Status,
		"model", out.Model,
		"language", out.Language.DominantLanguage,
		"elapsed_ms", out.Elapsed.Milliseconds(),
	)
	return out, nil
}

// markFailed records a terminal failure. A store error here is logged, not returned,
// so the caller sees the error that caused the failure.
func (p *Processor) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	if err := p.deps.Repo.FinishFailure(ctx, id, reason); err != nil {
		p.Logger.Warn("processor.scan.record_failure_failed", "scan_id", id, "reason", reason, "error", err)
	}
}

// resolveTarget applies the auto-translate preference to an empty request target.
func (p *Processor) resolveTarget(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		return requested
	}
	if p.deps.Prefs.AutoTranslate {
		return p.deps.Prefs.DefaultTargetLanguage
	}
	return ""
}

func (p *Processor) reuse(ctx context.Context, hash string, model constants.OCRModel, target string) (ScanOutcome, bool) {
	if p.deps.Repo == nil {
		return ScanOutcome{}, false
	}
	prev, err := p.deps.Repo.GetByHash(ctx, hash, model)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			p.Logger.Warn("processor.reuse.lookup_failed", "hash", hash, "error", err)
		}
		return ScanOutcome{}, false
	}
	if target != "" && prev.Status != constants.ScanStatusOCREmpty && !p.satisfies(prev, target) {
		return ScanOutcome{}, false
	}
	return outcomeFromScan(prev), true
}

// satisfies reports whether prev already answers a request for target: it holds a
// translation into target, or its text was recognized in the target language.
func (p *Processor) satisfies(prev *entity.Scan, target string) bool {
	if prev.Translation != nil && prev.TargetLanguage != nil {
		stored := *prev.TargetLanguage
		return stored == target || stored == p.targetCode(target)
	}
	if prev.Status != constants.ScanStatusOCROK {
		return false
	}
	return p.inTargetLanguage(langid.Result{
		DominantLanguage:  prev.DominantLanguage,
		DominantTag:       prev.DominantTag,
		PossibleLanguages: prev.PossibleLanguages,
	}, target)
}

func outcomeFromScan(s *entity.Scan) ScanOutcome {
	out := ScanOutcome{
		ScanID: s.ID,
		Hash:   s.ContentHash,
		Reused: true,
		Status: s.Status,
		Text:   s.OCRText,
		Model:  constants.OCRModel(s.Model),
		Language: langid.Result{
			DominantLanguage:  s.DominantLanguage,
			DominantTag:       s.DominantTag,
			PossibleLanguages: s.PossibleLanguages,
		},
	}
	if len(s.Attempts) > 0 {
		_ = json.Unmarshal(s.Attempts, &out.Attempts)
	}
	if s.ArchivePath != nil {
		out.ArchivePath = *s.ArchivePath
	}
	if s.Translation != nil {
		resp := &translate.Response{Text: *s.Translation}
		if s.SourceLanguage != nil {
			resp.Source = *s.SourceLanguage
		}
		if s.TargetLanguage != nil {
			resp.Target = *s.TargetLanguage
		}
		if s.TranslationProvider != nil {
			resp.Provider = *s.TranslationProvider
		}
		out.Translation = resp
	}
	return out
}

func (p *Processor) archive(ctx context.Context, scan *entity.Scan, hash string, in ScanInput) string {
	if p.deps.Archive == nil {
		return ""
	}
	path, err := p.deps.Archive.Put(ctx, hash, in.Name, in.Data, in.ContentType)
	if err != nil {
		p.Logger.Warn("processor.archive.failed", "hash", hash, "error", err)
		return ""
	}
	if scan != nil {
		if err := p.deps.Repo.SetArchivePath(ctx, scan.ID, path); err != nil {
			p.Logger.Warn("processor.archive.record_failed", "scan_id", scan.ID, "error", err)
		}
	}
	return path
}

// recognize runs the cascade for model, consulting the result cache first.
func (p *Processor) recognize(ctx context.Context, hash string, model constants.OCRModel, in ScanInput) cascade.Result {
	key := cache.Key(hash, model)
	if p.deps.Cache != nil && !in.Force {
		if raw, ok, err := p.deps.Cache.Get(ctx, key); err == nil && ok {
			var cached cascade.Result
			if err := json.Unmarshal(raw, &cached); err == nil {
				p.Logger.Debug("processor.cache.hit", "key", key)
				return cached
			}
		}
	}

	ctrl := p.deps.Cascade
	if ctrl.Preferences().PreferredModel != model {
		ctrl = ctrl.WithPreferred(model)
	}
	res := ctrl.Recognize(ctx, ocr.Image{Data: in.Data, Name: in.Name})

	if p.deps.Cache != nil && res.Found() {
		if raw, err := json.Marshal(res); err == nil {
			if err := p.deps.Cache.Set(ctx, key, raw, p.deps.CacheTTL); err != nil {
				p.Logger.Warn("processor.cache.set_failed", "key", key, "error", err)
			}
		}
	}
	return res
}
