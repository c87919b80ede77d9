package langid

import (
	"strings"

	"github.com/pemistahl/lingua-go"
)

// Hypothesis is one candidate language with its probability in [0,1].
type Hypothesis struct {
	Tag         string
	Probability float64
}

// Identifier is the language identification service the ranker consults.
// Dominant is authoritative for the dominant language; Hypotheses for the alternates.
type Identifier interface {
	Hypotheses(text string, max int) []Hypothesis
	Dominant(text string) (tag string, ok bool)
}

// LinguaIdentifier backs Identifier with lingua-go's n-gram models.
type LinguaIdentifier struct {
	detector lingua.LanguageDetector
}

// LinguaOptions narrows and tunes the detector.
type LinguaOptions struct {
	Languages      []string // ISO 639-1 codes; empty means every supported language
	LowAccuracy    bool
	MinRelDistance float64
}

func NewLinguaIdentifier(opts LinguaOptions) *LinguaIdentifier {
	var builder lingua.LanguageDetectorBuilder
	if langs := linguaLanguages(opts.Languages); len(langs) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(langs...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}
	if opts.LowAccuracy {
		builder = builder.WithLowAccuracyMode()
	}
	if opts.MinRelDistance > 0 {
		builder = builder.WithMinimumRelativeDistance(opts.MinRelDistance)
	}
	return &LinguaIdentifier{detector: builder.Build()}
}

func (l *LinguaIdentifier) Hypotheses(text string, max int) []Hypothesis {
	values := l.detector.ComputeLanguageConfidenceValues(text)
	out := make([]Hypothesis, 0, max)
	for _, v := range values {
		if len(out) == max {
			break
		}
		if v.Value() <= 0 {
			continue
		}
		out = append(out, Hypothesis{Tag: isoTag(v.Language()), Probability: v.Value()})
	}
	return out
}

func (l *LinguaIdentifier) Dominant(text string) (string, bool) {
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return isoTag(lang), true
}

func isoTag(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}

func linguaLanguages(codes []string) []lingua.Language {
	var out []lingua.Language
	for _, c := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(c)))
		lang := lingua.GetLanguageFromIsoCode639_1(iso)
		if lang == lingua.Unknown {
			continue
		}
		out = append(out, lang)
	}
	return out
}
