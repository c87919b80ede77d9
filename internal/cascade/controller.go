package cascade

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/phototranslate/constants"
	"github.com/joseph-ayodele/phototranslate/internal/langid"
	"github.com/joseph-ayodele/phototranslate/internal/ocr"
)

// Step outcomes recorded in Attempt.Outcome.
const (
	OutcomeText    = "text"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Attempt records one backend invocation.
type Attempt struct {
	Model    constants.OCRModel `json:"model"`
	Outcome  string             `json:"outcome"`
	Error    string             `json:"error,omitempty"`
	Duration time.Duration      `json:"duration_ns"`
}

// Result is the cascade output. Model is empty when nothing was recognized.
type Result struct {
	Text     string             `json:"text"`
	Language langid.Result      `json:"language"`
	Model    constants.OCRModel `json:"model,omitempty"`
	Attempts []Attempt          `json:"attempts"`
}

// Found reports whether any backend produced text.
func (r Result) Found() bool { return r.Model != "" }

// LanguageRanker classifies recognized text.
type LanguageRanker interface {
	Rank(text string) langid.Result
}

// ImagePreparer normalizes an upload before recognition.
type ImagePreparer interface {
	Prepare(ctx context.Context, img ocr.Image) (ocr.Image, error)
}

// Preferences are the settings the controller is built with.
type Preferences struct {
	PreferredModel constants.OCRModel
}

// Controller runs recognizers in priority order until one yields text.
type Controller struct {
	prefs    Preferences
	order    []constants.OCRModel
	backends map[constants.OCRModel]ocr.Recognizer
	ranker   LanguageRanker
	preparer ImagePreparer
	logger   *slog.Logger
}

// NewController wires the cascade. preparer may be nil.
func NewController(prefs Preferences, backends map[constants.OCRModel]ocr.Recognizer, ranker LanguageRanker, preparer ImagePreparer, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if !prefs.PreferredModel.Valid() {
		prefs.PreferredModel = constants.DefaultOCRModel
	}
	return &Controller{
		prefs:    prefs,
		order:    Order(prefs.PreferredModel),
		backends: backends,
		ranker:   ranker,
		preparer: preparer,
		logger:   logger,
	}
}

// Preferences returns the settings the controller was built with.
func (c *Controller) Preferences() Preferences { return c.prefs }

// WithPreferred returns a controller sharing c's collaborators with another preferred model.
func (c *Controller) WithPreferred(model constants.OCRModel) *Controller {
	return NewController(Preferences{PreferredModel: model}, c.backends, c.ranker, c.preparer, c.logger)
}

// Recognize tries each backend once, strictly in order, and stops at the first
// non-empty text. Errors, missing backends and empty text all advance to the
// next step; none is returned. A done context ends the run with what was found
// so far, which is the empty result.
func (c *Controller) Recognize(ctx context.Context, img ocr.Image) Result {
	start := time.Now()
	res := Result{Language: langid.Unknown(), Attempts: make([]Attempt, 0, len(c.order))}

	if c.preparer != nil {
		prepared, err := c.preparer.Prepare(ctx, img)
		if err != nil {
			c.logger.Warn("cascade.prepare.failed", "image", img.Name, "error", err)
			for _, m := range c.order {
				res.Attempts = append(res.Attempts, Attempt{Model: m, Outcome: OutcomeError, Error: err.Error()})
			}
			return res
		}
		img = prepared
	}

	for i, model := range c.order {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("cascade.cancelled", "step", i+1, "error", err)
			break
		}

		backend, ok := c.backends[model]
		if !ok || backend == nil {
			c.logger.Warn("cascade.step.missing_backend", "step", i+1, "model", model)
			res.Attempts = append(res.Attempts, Attempt{Model: model, Outcome: OutcomeSkipped})
			continue
		}

		stepStart := time.Now()
		out, err := backend.Recognize(ctx, img)
		attempt := Attempt{Model: model, Duration: time.Since(stepStart)}
		switch {
		case err != nil:
			attempt.Outcome = OutcomeError
			attempt.Error = err.Error()
			c.logger.Warn("cascade.step.error", "step", i+1, "model", model, "backend", backend.Name(), "error", err)
		case out.IsEmpty():
			attempt.Outcome = OutcomeEmpty
			c.logger.Debug("cascade.step.empty", "step", i+1, "model", model, "elapsed_ms", attempt.Duration.Milliseconds())
		default:
			attempt.Outcome = OutcomeText
		}
		res.Attempts = append(res.Attempts, attempt)
		if attempt.Outcome != OutcomeText {
			continue
		}

		res.Text = out.Text
		res.Model = model
		res.Language = c.ranker.Rank(out.Text)
		c.logger.Info("cascade.ok",
			"step", i+1,
			"model", model,
			"chars", len(res.Text),
			"language", res.Language.DominantLanguage,
			"alternates", len(res.Language.PossibleLanguages),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return res
	}

	c.logger.Info("cascade.empty",
		"preferred", c.prefs.PreferredModel,
		"attempts", len(res.Attempts),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res
}
