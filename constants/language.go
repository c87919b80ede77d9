package constants

const (
	// UnknownLanguage is reported when no dominant language could be determined.
	UnknownLanguage = "Unknown"

	// DetectLanguage asks the translator to infer the source language.
	DetectLanguage = "detect"

	// DefaultTargetLanguage is the translation target when none is configured.
	DefaultTargetLanguage = "en"

	// EnglishTag is the identifier tag the ranker promotes.
	EnglishTag = "en"
)
