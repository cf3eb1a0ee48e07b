// Package textutil provides the text-shaping primitives used by the
// processing engine: paragraph segmentation, paragraph parity between a
// source text and its translation, short-paragraph merging, word counting,
// and metadata sanitization.
//
// Multi-paragraph texts use "%%" as the explicit paragraph separator. The
// separator survives round-trips through LLM prompts better than blank
// lines, which models tend to collapse.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

// Separator is the explicit paragraph separator token used in prompts and
// in intermediate texts.
const Separator = "%%"

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// sentence-ending punctuation, ASCII and CJK
const sentenceEnders = ".!?。！？"

// SplitParagraphs splits text into non-empty paragraph segments. It prefers
// the explicit separator token, then blank-line grouping, and finally falls
// back to sentence boundaries so that a single-block text still yields
// usable segments.
func SplitParagraphs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if strings.Contains(text, Separator) {
		return nonEmpty(strings.Split(text, Separator))
	}
	if parts := nonEmpty(blankLineRe.Split(text, -1)); len(parts) > 0 {
		return parts
	}
	return SplitSentences(text)
}

// JoinParagraphs joins segments with the explicit separator.
func JoinParagraphs(paras []string) string {
	return strings.Join(paras, Separator+"\n")
}

// SplitSentences splits text at sentence-ending punctuation followed by
// whitespace. The terminator stays attached to its sentence.
func SplitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if strings.ContainsRune(sentenceEnders, runes[i]) {
			// CJK terminators need no trailing space; ASCII ones do.
			atEnd := i == len(runes)-1
			followedBySpace := !atEnd && unicode.IsSpace(runes[i+1])
			cjk := runes[i] > unicode.MaxASCII
			if atEnd || followedBySpace || cjk {
				if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// EnsureParity reconciles the paragraph count of translated against source
// and returns the translated text rejoined with the explicit separator.
//
// Equal counts are rejoined as-is. A surplus is merged into the final
// expected slot, which always succeeds. A deficit is repaired by splitting
// the translated segments on sentence boundaries, starting from the end;
// if too few sentences are available the result stays under-count rather
// than fabricating paragraph breaks.
func EnsureParity(translated, source string) string {
	src := SplitParagraphs(source)
	dst := SplitParagraphs(translated)
	if len(src) == 0 || len(dst) == 0 {
		return translated
	}
	if len(dst) == len(src) {
		return JoinParagraphs(dst)
	}
	if len(dst) > len(src) {
		merged := append([]string{}, dst[:len(src)-1]...)
		merged = append(merged, strings.Join(dst[len(src)-1:], " "))
		return JoinParagraphs(merged)
	}
	shortage := len(src) - len(dst)
	idx := len(dst) - 1
	for shortage > 0 && idx >= 0 {
		parts := SplitSentences(dst[idx])
		if len(parts) >= 2 {
			rest := strings.TrimSpace(strings.Join(parts[1:], " "))
			dst[idx] = strings.TrimSpace(parts[0])
			dst = append(dst[:idx+1], append([]string{rest}, dst[idx+1:]...)...)
			shortage--
			// continue on the remainder, which may split further
			idx++
		} else {
			idx--
		}
	}
	return JoinParagraphs(dst)
}

// MergeShortParagraphs merges paragraphs shorter than maxWords words into
// their smaller neighbor, preferring the following paragraph on ties. It
// reduces prompt fragmentation before text is sent to a model.
func MergeShortParagraphs(text string, maxWords int) string {
	paras := SplitParagraphs(text)
	if len(paras) == 0 {
		return text
	}
	const inf = int(^uint(0) >> 1)
	i := 0
	for i < len(paras) {
		if CountWords(paras[i]) >= maxWords {
			i++
			continue
		}
		prev, next := inf, inf
		if i > 0 {
			prev = CountWords(paras[i-1])
		}
		if i+1 < len(paras) {
			next = CountWords(paras[i+1])
		}
		switch {
		case prev == inf && next == inf:
			return JoinParagraphs(paras)
		case next <= prev && i+1 < len(paras):
			paras[i] = strings.TrimSpace(paras[i] + " " + paras[i+1])
			paras = append(paras[:i+1], paras[i+2:]...)
			// re-evaluate the merged paragraph
		case i > 0:
			paras[i-1] = strings.TrimSpace(paras[i-1] + " " + paras[i])
			paras = append(paras[:i], paras[i+1:]...)
			i--
			if i < 0 {
				i = 0
			}
		default:
			i++
		}
	}
	return JoinParagraphs(paras)
}

// ChunkSpans splits n items into k contiguous [start, end) spans as evenly
// as possible. k is clamped to [1, n].
func ChunkSpans(n, k int) [][2]int {
	if n <= 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	base, rem := n/k, n%k
	spans := make([][2]int, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < rem {
			size++
		}
		spans = append(spans, [2]int{start, start + size})
		start += size
	}
	return spans
}

func nonEmpty(parts []string) []string {
	var out []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
