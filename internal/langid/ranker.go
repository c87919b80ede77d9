package langid

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/joseph-ayodele/phototranslate/constants"
)

const (
	// MaxHypotheses is how many candidates are requested from the identifier.
	MaxHypotheses = 10
	// MaxAlternates caps PossibleLanguages.
	MaxAlternates = 4

	minProbability        = 0.10
	minEnglishProbability = 0.05
)

// Result is the presentation-ready language verdict for one text.
type Result struct {
	DominantLanguage  string   `json:"dominant_language"`
	DominantTag       string   `json:"dominant_tag,omitempty"`
	PossibleLanguages []string `json:"possible_languages"`
}

// Unknown is returned when no dominant language could be determined.
func Unknown() Result {
	return Result{DominantLanguage: constants.UnknownLanguage, PossibleLanguages: []string{}}
}

// IsUnknown reports whether r carries no dominant language.
func (r Result) IsUnknown() bool {
	return r.DominantLanguage == constants.UnknownLanguage && r.DominantTag == ""
}

// Ranker derives a dominant language and up to four alternates from an Identifier.
type Ranker struct {
	identifier Identifier
	namer      *Namer
	logger     *slog.Logger
}

func NewRanker(identifier Identifier, namer *Namer, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	if namer == nil {
		namer = NewNamer("en")
	}
	return &Ranker{identifier: identifier, namer: namer, logger: logger}
}

type candidate struct {
	tag  string
	name string
	prob float64
}

// Rank classifies text. Blank text and an undetermined dominant language both
// yield Unknown with no alternates.
func (r *Ranker) Rank(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Unknown()
	}

	hyps := r.identifier.Hypotheses(text, MaxHypotheses)
	domTag, ok := r.identifier.Dominant(text)
	if !ok || strings.TrimSpace(domTag) == "" {
		r.logger.Debug("langid.rank.no_dominant", "hypotheses", len(hyps), "chars", len(text))
		return Unknown()
	}
	// an unnamed dominant reads as Unknown; alternates keep their raw tag
	domName, named := r.namer.Lookup(domTag)
	if !named {
		domName = constants.UnknownLanguage
	}

	kept := make([]candidate, 0, len(hyps))
	var shown float64
	for _, h := range hyps {
		c := candidate{tag: h.Tag, name: r.namer.Name(h.Tag), prob: h.Probability}
		shown += h.Probability
		r.logger.Debug("langid.rank.hypothesis", "tag", c.tag, "name", c.name, "probability", c.prob)
		if c.prob >= minProbability || (IsEnglish(c.tag) && c.prob >= minEnglishProbability) {
			kept = append(kept, c)
		}
	}
	if other := 1 - shown; other > 0 {
		r.logger.Debug("langid.rank.other", "probability", other)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].prob != kept[j].prob {
			return kept[i].prob > kept[j].prob
		}
		return kept[i].tag < kept[j].tag
	})

	alternates := make([]candidate, 0, len(kept))
	seen := map[string]struct{}{domName: {}}
	for _, c := range kept {
		if _, dup := seen[c.name]; dup || c.tag == domTag {
			continue
		}
		seen[c.name] = struct{}{}
		alternates = append(alternates, c)
	}

	for i, c := range alternates {
		if IsEnglish(c.tag) {
			if i > 0 {
				copy(alternates[1:i+1], alternates[:i])
				alternates[0] = c
			}
			break
		}
	}

	if len(alternates) > MaxAlternates {
		alternates = alternates[:MaxAlternates]
	}

	res := Result{
		DominantLanguage:  domName,
		DominantTag:       domTag,
		PossibleLanguages: make([]string, 0, len(alternates)),
	}
	for _, c := range alternates {
		res.PossibleLanguages = append(res.PossibleLanguages, c.name)
	}
	r.logger.Debug("langid.rank.ok", "dominant", res.DominantLanguage, "alternates", res.PossibleLanguages)
	return res
}
