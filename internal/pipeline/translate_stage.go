package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/joseph-ayodele/phototranslate/internal/cascade"
	"github.com/joseph-ayodele/phototranslate/internal/langid"
	"github.com/joseph-ayodele/phototranslate/internal/translate"
)

// translateText renders the recognized text in target. A nil response with a nil error
// means translation was skipped: the text is already in the target language, or no
// provider is configured and the target came from preferences rather than the caller.
func (p *Processor) translateText(ctx context.Context, res cascade.Result, target string, explicit bool) (*translate.Response, error) {
	targetCode := p.targetCode(target)
	source := p.sourceFor(res.Language)
	if source != "" && sameBase(source, targetCode) {
		p.Logger.Info("processor.translate.skipped", "reason", "already in target language", "source", source, "target", targetCode)
		return nil, nil
	}
	if p.deps.Translator == nil {
		if explicit {
			return nil, translate.ErrNoProvider
		}
		p.Logger.Debug("processor.translate.skipped", "reason", "no provider", "target", target)
		return nil, nil
	}

	start := time.Now()
	resp, err := p.deps.Translator.Translate(ctx, translate.Request{
		Text:   res.Text,
		Source: source,
		Target: targetCode,
	})
	if err != nil {
		p.Logger.Error("processor.translate.failed",
			"provider", p.deps.Translator.Name(),
			"target", targetCode,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	p.Logger.Info("processor.translate.ok",
		"provider", resp.Provider,
		"source", resp.Source,
		"target", resp.Target,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &resp, nil
}

// targetCode resolves a requested tag to the supported language code sent to providers.
func (p *Processor) targetCode(target string) string {
	if lang, ok := translate.FindByTag(p.deps.Languages, target); ok {
		return lang.Code()
	}
	return target
}

// inTargetLanguage reports whether text detected as lang needs no translation into target.
func (p *Processor) inTargetLanguage(lang langid.Result, target string) bool {
	source := p.sourceFor(lang)
	return source != "" && sameBase(source, p.targetCode(target))
}

// sourceFor maps the detected language onto a supported language code, falling back
// to the raw detected tag and then to provider-side detection.
func (p *Processor) sourceFor(lang langid.Result) string {
	if lang.IsUnknown() {
		return ""
	}
	if l, ok := translate.FindMatchingLanguage(p.deps.Languages, lang.DominantLanguage); ok {
		return l.Code()
	}
	if l, ok := translate.ParseLanguage(lang.DominantTag); ok {
		return l.Code()
	}
	return ""
}

func sameBase(a, b string) bool {
	base := func(s string) string {
		s = strings.ToLower(strings.ReplaceAll(s, "_", "-"))
		if i := strings.IndexByte(s, '-'); i > 0 {
			return s[:i]
		}
		return s
	}
	return base(a) == base(b)
}
