package translate

import (
	"strings"
)

func buildSystemPrompt(req Request) string {
	parts := []string{
		"You are a translation engine. Return ONLY a JSON object matching the provided schema.",
		"Put the translated text in 'translation'. Preserve line breaks and do not add commentary.",
		"Translate into the language with BCP-47 tag " + req.Target + ".",
	}
	if src := sourceOrDetect(req.Source); src != "" {
		parts = append(parts, "The source language is "+src+".")
	} else {
		parts = append(parts, "Detect the source language and report its BCP-47 tag in 'detected_source_language'.")
	}
	parts = append(parts, "The text comes from OCR and may contain recognition noise; translate what is legible.")
	return strings.Join(parts, " ")
}

func buildUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Text to translate:\n")
	b.WriteString(text)
	return b.String()
}
