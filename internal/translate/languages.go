package translate

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/joseph-ayodele/phototranslate/constants"
)

// SupportedLanguage is one language a user can pick as source or target.
type SupportedLanguage struct {
	Tag language.Tag
}

// DefaultSupported mirrors the on-device translation language set.
var DefaultSupported = mustLanguages(
	"ar-AE", "zh-CN", "zh-TW", "nl-NL", "en-GB", "en-US", "fr-FR", "de-DE",
	"hi-IN", "id-ID", "it-IT", "ja-JP", "ko-KR", "pl-PL", "pt-BR", "ru-RU",
	"es-ES", "th-TH", "tr-TR", "uk-UA", "vi-VN",
)

// preferredRegion picks the default variant when a name matches several languages.
var preferredRegion = map[string]string{
	"en": "US",
	"es": "ES",
	"zh": "CN",
	"pt": "BR",
	"fr": "FR",
	"de": "DE",
}

var englishNames = display.English.Tags()

// ParseLanguage converts a code to a SupportedLanguage. Empty and "detect" yield false.
func ParseLanguage(code string) (SupportedLanguage, bool) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, constants.DetectLanguage) {
		return SupportedLanguage{}, false
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil || tag == language.Und {
		return SupportedLanguage{}, false
	}
	return SupportedLanguage{Tag: tag}, true
}

func mustLanguages(codes ...string) []SupportedLanguage {
	out := make([]SupportedLanguage, 0, len(codes))
	for _, c := range codes {
		out = append(out, SupportedLanguage{Tag: language.MustParse(c)})
	}
	return SortLanguages(out)
}

// Base is the ISO 639 language code, e.g. "en".
func (l SupportedLanguage) Base() string {
	base, _ := l.Tag.Base()
	return base.String()
}

// Region is the explicit region subtag, or "".
func (l SupportedLanguage) Region() string {
	region, conf := l.Tag.Region()
	if conf != language.Exact {
		return ""
	}
	return region.String()
}

// ShortName is "lang-REGION", e.g. "en-US". The region part is empty when absent.
func (l SupportedLanguage) ShortName() string {
	return l.Base() + "-" + l.Region()
}

// Code is the tag to hand to providers: "en-US", or "en" without a region.
func (l SupportedLanguage) Code() string {
	if r := l.Region(); r != "" {
		return l.Base() + "-" + r
	}
	return l.Base()
}

// LocalizedName is the English display name, disambiguating common regional variants.
func (l SupportedLanguage) LocalizedName() string {
	base := language.Make(l.Base())
	name := englishNames.Name(base)
	if name == "" {
		return "Unknown language code"
	}
	switch l.ShortName() {
	case "en-GB":
		return "English (UK)"
	case "en-US":
		return "English (US)"
	case "zh-CN":
		return "Chinese (Mandarin, Simplified)"
	case "zh-TW":
		return "Chinese (Mandarin, Traditional)"
	case "es-ES":
		return "Spanish (Spain)"
	case "pt-BR":
		return "Portuguese (Brazil)"
	}
	return name
}

// BaseName is the English name of the base language, e.g. "English" for en-GB.
func (l SupportedLanguage) BaseName() string {
	return englishNames.Name(language.Make(l.Base()))
}

// SortLanguages orders by localized name, then code.
func SortLanguages(langs []SupportedLanguage) []SupportedLanguage {
	sort.SliceStable(langs, func(i, j int) bool {
		ni, nj := langs[i].LocalizedName(), langs[j].LocalizedName()
		if ni != nj {
			return ni < nj
		}
		return langs[i].Code() < langs[j].Code()
	})
	return langs
}

// FindMatchingLanguage maps a detected display name ("Spanish") to a supported language.
// One match is returned as is; several resolve to the preferred regional default or
// the first; none reports false.
func FindMatchingLanguage(available []SupportedLanguage, name string) (SupportedLanguage, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == constants.UnknownLanguage {
		return SupportedLanguage{}, false
	}
	var matches []SupportedLanguage
	for _, l := range available {
		if strings.EqualFold(l.BaseName(), name) || strings.EqualFold(l.LocalizedName(), name) {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return SupportedLanguage{}, false
	case 1:
		return matches[0], true
	}
	if region, ok := preferredRegion[matches[0].Base()]; ok {
		for _, m := range matches {
			if m.Region() == region {
				return m, true
			}
		}
	}
	return matches[0], true
}

// FindByTag returns the supported language sharing tag's base language, preferring
// an exact region match and then the regional default.
func FindByTag(available []SupportedLanguage, tag string) (SupportedLanguage, bool) {
	want, ok := ParseLanguage(tag)
	if !ok {
		return SupportedLanguage{}, false
	}
	var sameBase []SupportedLanguage
	for _, l := range available {
		if l.Base() != want.Base() {
			continue
		}
		if want.Region() != "" && l.Region() == want.Region() {
			return l, true
		}
		sameBase = append(sameBase, l)
	}
	if len(sameBase) == 0 {
		return SupportedLanguage{}, false
	}
	if region, ok := preferredRegion[want.Base()]; ok {
		for _, l := range sameBase {
			if l.Region() == region {
				return l, true
			}
		}
	}
	return sameBase[0], true
}
