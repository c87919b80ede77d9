package constants

import (
	"strings"
)

// OCRModel identifies one recognition backend and the script family it is tuned for.
type OCRModel string

const (
	OCRModelGeneral    OCRModel = "general"
	OCRModelLatin      OCRModel = "latin"
	OCRModelChinese    OCRModel = "chinese"
	OCRModelDevanagari OCRModel = "devanagari"
	OCRModelJapanese   OCRModel = "japanese"
	OCRModelKorean     OCRModel = "korean"
)

// DefaultOCRModel is used when no preference is configured.
const DefaultOCRModel = OCRModelGeneral

var allOCRModels = []OCRModel{
	OCRModelGeneral,
	OCRModelLatin,
	OCRModelChinese,
	OCRModelDevanagari,
	OCRModelJapanese,
	OCRModelKorean,
}

var displayNames = map[OCRModel]string{
	OCRModelGeneral:    "General OCR (default)",
	OCRModelLatin:      "Latin script OCR",
	OCRModelChinese:    "Chinese script OCR",
	OCRModelDevanagari: "Devanagari script OCR",
	OCRModelJapanese:   "Japanese script OCR",
	OCRModelKorean:     "Korean script OCR",
}

// AllOCRModels returns every model in declaration order.
func AllOCRModels() []OCRModel {
	out := make([]OCRModel, len(allOCRModels))
	copy(out, allOCRModels)
	return out
}

func (m OCRModel) String() string { return string(m) }

// DisplayName is the human label shown in settings and API listings.
func (m OCRModel) DisplayName() string {
	if n, ok := displayNames[m]; ok {
		return n
	}
	return string(m)
}

func (m OCRModel) Valid() bool {
	_, ok := displayNames[m]
	return ok
}

// ParseOCRModel accepts canonical names, display names and a few synonyms.
// Unknown input yields DefaultOCRModel and false.
func ParseOCRModel(input string) (OCRModel, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return DefaultOCRModel, false
	}

	synonyms := map[string]OCRModel{
		"default": OCRModelGeneral,
		"vision":  OCRModelGeneral,
		"latn":    OCRModelLatin,
		"han":     OCRModelChinese,
		"hans":    OCRModelChinese,
		"hant":    OCRModelChinese,
		"zh":      OCRModelChinese,
		"deva":    OCRModelDevanagari,
		"hindi":   OCRModelDevanagari,
		"hi":      OCRModelDevanagari,
		"ja":      OCRModelJapanese,
		"jpan":    OCRModelJapanese,
		"ko":      OCRModelKorean,
		"kore":    OCRModelKorean,
		"hangul":  OCRModelKorean,
	}
	if m, ok := synonyms[normalized]; ok {
		return m, true
	}

	for _, m := range allOCRModels {
		if normalized == string(m) || normalized == strings.ToLower(m.DisplayName()) {
			return m, true
		}
	}
	return DefaultOCRModel, false
}
