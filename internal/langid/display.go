package langid

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Namer turns language tags into display names in one locale.
type Namer struct {
	namer display.Namer
}

// NewNamer builds a Namer for locale, defaulting to English.
func NewNamer(locale string) *Namer {
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		tag = language.English
	}
	return &Namer{namer: display.Tags(tag)}
}

// Name returns the localized name for tag, or tag itself when none is known.
func (n *Namer) Name(tag string) string {
	if name, ok := n.Lookup(tag); ok {
		return name
	}
	return tag
}

// Lookup returns the localized name for tag and whether one is known.
func (n *Namer) Lookup(tag string) (string, bool) {
	parsed, err := language.Parse(tag)
	if err != nil || parsed == language.Und {
		return "", false
	}
	name := n.namer.Name(parsed)
	return name, name != ""
}

// IsEnglish matches any tag whose base language is English.
func IsEnglish(tag string) bool {
	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(tag)), "-")
	base, _, _ = strings.Cut(base, "_")
	return base == "en"
}
