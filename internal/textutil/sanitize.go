package textutil

import (
	"regexp"
	"strings"
)

// SanitizeResult reports what a sanitization pass removed.
type SanitizeResult struct {
	Text    string
	Removed int
	// Kinds holds de-duplicated removal tags of the form "prefix:<value>"
	// or "pattern:<value>", in first-hit order.
	Kinds []string
}

// Sanitize removes metadata lines (datestamps, bylines, disclaimers and
// similar noise) from text. A line is dropped when its trimmed form starts
// with any forbidden prefix, or, failing that, fully matches any forbidden
// regex. Prefixes are evaluated before patterns. A malformed pattern is
// skipped and never aborts the pass. The pass is idempotent for a fixed
// rule set.
func Sanitize(text string, prefixes, patterns []string) SanitizeResult {
	if strings.TrimSpace(text) == "" {
		return SanitizeResult{}
	}

	var cleanPrefixes []string
	for _, p := range prefixes {
		if s := strings.TrimSpace(p); s != "" {
			cleanPrefixes = append(cleanPrefixes, s)
		}
	}
	type compiled struct {
		raw string
		re  *regexp.Regexp
	}
	var res []compiled
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" {
			continue
		}
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			continue
		}
		res = append(res, compiled{raw: p, re: re})
	}

	result := SanitizeResult{}
	seen := make(map[string]bool)
	tag := func(kind string) {
		result.Removed++
		if !seen[kind] {
			seen[kind] = true
			result.Kinds = append(result.Kinds, kind)
		}
	}

	var kept []string
lines:
	for _, ln := range strings.Split(text, "\n") {
		s := strings.TrimSpace(ln)
		for _, pref := range cleanPrefixes {
			if strings.HasPrefix(s, pref) {
				tag("prefix:" + pref)
				continue lines
			}
		}
		for _, c := range res {
			if c.re.MatchString(s) {
				tag("pattern:" + c.raw)
				continue lines
			}
		}
		kept = append(kept, ln)
	}
	result.Text = strings.TrimSpace(strings.Join(kept, "\n"))
	return result
}
