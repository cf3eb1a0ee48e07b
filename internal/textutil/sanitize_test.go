package textutil_test

import (
	"testing"

	"newsdocx/internal/textutil"
)

func TestSanitize_PrefixRemoval(t *testing.T) {
	res := textutil.Sanitize("Note: skip\nBody one\nBody two", []string{"Note:"}, nil)
	if res.Text != "Body one\nBody two" {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if res.Removed != 1 {
		t.Errorf("expected 1 removal, got %d", res.Removed)
	}
	if len(res.Kinds) != 1 || res.Kinds[0] != "prefix:Note:" {
		t.Errorf("unexpected kinds: %v", res.Kinds)
	}
}

func TestSanitize_PatternFullMatch(t *testing.T) {
	text := "Published 2024-01-02\nThe actual story 2024-01-02 continues here."
	res := textutil.Sanitize(text, nil, []string{`Published \d{4}-\d{2}-\d{2}`})
	if res.Removed != 1 {
		t.Fatalf("expected 1 removal, got %d (%q)", res.Removed, res.Text)
	}
	// partial matches must not drop the line
	if res.Text != "The actual story 2024-01-02 continues here." {
		t.Errorf("unexpected text: %q", res.Text)
	}
	if res.Kinds[0] != `pattern:Published \d{4}-\d{2}-\d{2}` {
		t.Errorf("unexpected kind: %q", res.Kinds[0])
	}
}

func TestSanitize_PrefixBeforePattern(t *testing.T) {
	// line matches both; the prefix tag must win
	res := textutil.Sanitize("Note: anything", []string{"Note:"}, []string{`Note:.*`})
	if res.Removed != 1 || res.Kinds[0] != "prefix:Note:" {
		t.Errorf("prefix should be evaluated first: %v", res.Kinds)
	}
}

func TestSanitize_MalformedPatternSkipped(t *testing.T) {
	res := textutil.Sanitize("Body line", nil, []string{"([unclosed"})
	if res.Removed != 0 || res.Text != "Body line" {
		t.Errorf("malformed pattern must be ignored: %+v", res)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	prefixes := []string{"Note:", "Source:"}
	patterns := []string{`\d{4}-\d{2}-\d{2}`}
	in := "Note: drop\n2024-05-06\nKeep this line\nSource: drop too\nAnd this"
	once := textutil.Sanitize(in, prefixes, patterns)
	twice := textutil.Sanitize(once.Text, prefixes, patterns)
	if twice.Text != once.Text {
		t.Errorf("sanitize not idempotent: %q vs %q", once.Text, twice.Text)
	}
	if twice.Removed != 0 {
		t.Errorf("second pass removed %d lines", twice.Removed)
	}
}

func TestSanitize_DuplicateKindsDeduplicated(t *testing.T) {
	res := textutil.Sanitize("Note: a\nNote: b\nBody", []string{"Note:"}, nil)
	if res.Removed != 2 {
		t.Errorf("expected 2 removals, got %d", res.Removed)
	}
	if len(res.Kinds) != 1 {
		t.Errorf("expected de-duplicated kinds, got %v", res.Kinds)
	}
}

func TestNewsHeuristic(t *testing.T) {
	h := textutil.DefaultNewsHeuristic()

	long := ""
	for i := 0; i < 60; i++ {
		long += "word word "
	}
	body := long + "\n\n" + long + " according to officials."
	if !h.IsProbablyNews("A headline long enough to count", body) {
		t.Error("expected news-like text to pass")
	}
	if h.IsProbablyNews("Title", "too short") {
		t.Error("expected short text to fail")
	}
	if h.IsProbablyNews("Title of decent length here", long+" said someone.") {
		t.Error("expected single-paragraph text to fail")
	}
}
