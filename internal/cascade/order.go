package cascade

import "github.com/joseph-ayodele/phototranslate/constants"

// scriptTail is tried after the preferred model and its alternate.
var scriptTail = []constants.OCRModel{
	constants.OCRModelChinese,
	constants.OCRModelDevanagari,
	constants.OCRModelJapanese,
	constants.OCRModelKorean,
}

// alternates pairs the two general-purpose recognizers. Any other preferred
// model falls back to the general recognizer.
var alternates = map[constants.OCRModel]constants.OCRModel{
	constants.OCRModelGeneral: constants.OCRModelLatin,
	constants.OCRModelLatin:   constants.OCRModelGeneral,
}

// orders is the static priority table keyed by preferred model.
var orders = buildOrders()

func buildOrders() map[constants.OCRModel][]constants.OCRModel {
	out := make(map[constants.OCRModel][]constants.OCRModel)
	for _, preferred := range constants.AllOCRModels() {
		alt, ok := alternates[preferred]
		if !ok {
			alt = constants.OCRModelGeneral
		}
		seq := append([]constants.OCRModel{preferred, alt}, scriptTail...)
		out[preferred] = dedupe(seq)
	}
	return out
}

func dedupe(seq []constants.OCRModel) []constants.OCRModel {
	seen := make(map[constants.OCRModel]struct{}, len(seq))
	out := make([]constants.OCRModel, 0, len(seq))
	for _, m := range seq {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Order returns the cascade sequence for preferred. Unknown models use the default.
func Order(preferred constants.OCRModel) []constants.OCRModel {
	seq, ok := orders[preferred]
	if !ok {
		seq = orders[constants.DefaultOCRModel]
	}
	out := make([]constants.OCRModel, len(seq))
	copy(out, seq)
	return out
}
