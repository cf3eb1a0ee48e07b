package textutil

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe = regexp.MustCompile(`<[^>]+>`)
	wordRe    = regexp.MustCompile(`\b\w+\b`)
)

// CountWords counts word-boundary tokens in text. HTML tags are stripped
// first so that counts stay stable for lightly-marked-up scraped content.
func CountWords(text string) int {
	if text == "" {
		return 0
	}
	text = htmlTagRe.ReplaceAllString(text, "")
	return len(wordRe.FindAllString(text, -1))
}

// CleanTitle normalizes a scraped headline for processing: site-name
// suffixes after " | " are dropped and trailing terminal punctuation is
// stripped.
func CleanTitle(title string) string {
	t := strings.TrimSpace(title)
	if i := strings.Index(t, " | "); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.TrimRight(t, sentenceEnders)
}
