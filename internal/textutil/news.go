package textutil

import "strings"

// NewsHeuristic holds the empirically tuned thresholds of the
// news-likelihood check. The zero value is not usable; start from
// DefaultNewsHeuristic.
type NewsHeuristic struct {
	MinWords      int
	MinParagraphs int
	MinTitleLen   int
	MinScore      int
	Cues          []string
}

// DefaultNewsHeuristic returns the default scoring thresholds.
func DefaultNewsHeuristic() NewsHeuristic {
	return NewsHeuristic{
		MinWords:      80,
		MinParagraphs: 2,
		MinTitleLen:   10,
		MinScore:      1,
		Cues: []string{
			" said", " reports", " according to", "breaking", " news", " report ",
		},
	}
}

// IsProbablyNews scores title and body with lightweight lexical cues and
// returns whether the text looks like a news article. It never errs on the
// side of rejection for borderline input: too-short or single-paragraph
// texts fail, everything else needs only MinScore cue hits.
func (h NewsHeuristic) IsProbablyNews(title, text string) bool {
	if CountWords(text) < h.MinWords {
		return false
	}
	if len(SplitParagraphs(text)) < h.MinParagraphs {
		return false
	}
	sample := text
	if len(sample) > 2000 {
		sample = sample[:2000]
	}
	sample = strings.ToLower(sample)
	score := 0
	for _, cue := range h.Cues {
		if strings.Contains(sample, cue) {
			score++
		}
	}
	if len(strings.TrimSpace(title)) > h.MinTitleLen {
		score++
	}
	return score >= h.MinScore
}
