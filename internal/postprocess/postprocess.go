// Package postprocess strips common LLM artifacts from chat completions.
//
// It runs on every raw completion before the engine's line-level sanitizer,
// so the sanitizer only has to deal with content noise, not model chatter.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes model artifacts from a completion in three phases and
// returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Preamble echo removal (prompt leakage)
//  3. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removePreambles(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// preamblePatterns match introductory phrases that models prepend to
// translation and editing output even when instructed not to. Each pattern
// is anchored to the start of the string and requires a colon to reduce
// false positives on legitimate content.
var preamblePatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [translated|expanded|edited|revised] [translation|text|version|article|body]:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:translated |expanded |edited |revised )?(?:translation|text|version|article|body)\s*:`),
	// "[The] [translated|expanded|edited|revised] [translation|text|version]:"
	regexp.MustCompile(`(?i)^(?:the )?(?:translated |expanded |edited |revised )?(?:translation|text|version)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] translation:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:translated |expanded |edited )?(?:translation|text|version|article)\s*:`),
}

func removePreambles(text string) string {
	for _, re := range preamblePatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// removeQuoteWrapping strips a matching pair of outer quotes when the
// entire completion is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  “…”  ‘…’  「…」
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') ||
		(first == '「' && last == '」') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}
