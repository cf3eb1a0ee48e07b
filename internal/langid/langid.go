// Package langid verifies that translated output is actually written in the
// requested target language. The check is advisory: a mismatch is recorded
// as a diagnostic by the pipeline, never treated as a failure.
package langid

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// minCheckRunes is the minimum rune count required to attempt language
// detection. Shorter texts produce unreliable results and pass unchecked.
const minCheckRunes = 20

// Checker detects the language of translated output. The underlying
// detector is expensive to build; reuse the instance across articles.
type Checker struct {
	detector lingua.LanguageDetector
}

// New creates a Checker backed by the lingua-go language detector.
func New() *Checker {
	det := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()
	return &Checker{detector: det}
}

// Verify reports whether text appears to be written in the language named
// by target (an English language name such as "Chinese"). It returns the
// detected language name alongside. Unknown target names, short texts, and
// undetectable texts all pass.
func (c *Checker) Verify(text, target string) (bool, string) {
	lang, known := languageByName(target)
	if !known {
		return true, ""
	}
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < minCheckRunes {
		return true, ""
	}
	detected, ok := c.detector.DetectLanguageOf(trimmed)
	if !ok {
		return true, ""
	}
	return detected == lang, detected.String()
}

func languageByName(name string) (lingua.Language, bool) {
	name = strings.TrimSpace(name)
	for _, l := range lingua.AllLanguages() {
		if strings.EqualFold(l.String(), name) {
			return l, true
		}
	}
	return lingua.Unknown, false
}
