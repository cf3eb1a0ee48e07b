package engine

import (
	"context"
	"strconv"

	"newsdocx/internal/textutil"
)

// ProcessArticle runs the full per-article pipeline. Soft problems
// (length shortfall, language mismatch, non-news content outside strict
// mode) end up as diagnostics on the record; a non-nil error means a
// hard failure the batch orchestrator converts into a failure record.
func (e *Engine) ProcessArticle(ctx context.Context, a Article) (Processed, error) {
	proc := e.cfg.Processing
	target := proc.TargetLanguage

	// Pre-filter: too-short sources are rejected before any model cost.
	wc0 := textutil.CountWords(a.Content)
	if wc0 < proc.WordMin {
		e.log.Info("article rejected by word filter", "index", a.Index, "words", wc0, "min", proc.WordMin)
		return Processed{
			ID:                strconv.Itoa(a.Index),
			OriginalTitle:     a.Title,
			OriginalContent:   a.Content,
			AdjustedContent:   a.Content,
			AdjustedWordCount: wc0,
			TargetLanguage:    target,
			Timestamp:         e.timestamp(),
			URL:               a.URL,
			Success:           false,
			IsNews:            false,
			Error:             "word count below minimum",
		}, nil
	}

	// Initial cleaning and the news-likelihood check.
	cleanTitle := textutil.CleanTitle(a.Title)
	if cleanTitle == "" {
		cleanTitle = a.Title
	}
	baseClean, _, kinds0 := e.sanitize(a.Content)

	heuristic := textutil.NewsHeuristic{
		MinWords:      proc.News.MinWords,
		MinParagraphs: proc.News.MinParagraphs,
		MinTitleLen:   proc.News.MinTitleLen,
		MinScore:      proc.News.MinScore,
		Cues:          textutil.DefaultNewsHeuristic().Cues,
	}
	isNews := heuristic.IsProbablyNews(cleanTitle, baseClean)
	if proc.News.Strict && !isNews {
		e.log.Info("article rejected as non-news", "index", a.Index)
		return Processed{
			ID:                strconv.Itoa(a.Index),
			OriginalTitle:     cleanTitle,
			OriginalContent:   a.Content,
			AdjustedContent:   baseClean,
			AdjustedWordCount: textutil.CountWords(baseClean),
			TargetLanguage:    target,
			Timestamp:         e.timestamp(),
			URL:               a.URL,
			Success:           false,
			IsNews:            false,
			Error:             "content does not look like news",
		}, nil
	}

	// Pre-merge short paragraphs to reduce prompt fragmentation.
	baseClean = textutil.MergeShortParagraphs(baseClean, proc.MergeShortWords)

	// Length enforcement, then re-clean and re-merge: model edits can
	// reintroduce noise and fragmentation.
	adjustedRaw, _, lengthOK := e.EnforceMinWords(ctx, baseClean, proc.WordMin, 0)
	adjusted, rm1, kinds1 := e.sanitize(adjustedRaw)
	adjusted = textutil.MergeShortParagraphs(adjusted, proc.MergeShortWords)

	if textutil.CountWords(adjusted) < proc.WordMin {
		adjusted, _, lengthOK = e.EnforceMinWords(ctx, adjusted, proc.WordMin, 0)
	}
	if !lengthOK {
		e.log.Debug("article below target length after enforcement",
			"index", a.Index, "words", textutil.CountWords(adjusted))
	}

	// Translation of the body and, independently, the title.
	translatedRaw, err := e.Translate(ctx, adjusted, target)
	if err != nil {
		return Processed{}, err
	}
	translated, rm2, kinds2 := e.sanitize(translatedRaw)
	translatedTitle := e.TranslateTitle(ctx, cleanTitle, target)

	// If cleaning dropped the English below the post-clean minimum,
	// revert to the pre-sanitize edited text and retranslate so the
	// exported pair always refers to the same English body.
	if textutil.CountWords(adjusted) < proc.PostCleanMin {
		e.log.Info("post-clean fallback engaged", "index", a.Index)
		adjusted = adjustedRaw
		translatedRaw, err = e.Translate(ctx, adjusted, target)
		if err != nil {
			return Processed{}, err
		}
		var kinds2b []string
		translated, rm2, kinds2b = e.sanitize(translatedRaw)
		kinds2 = append(kinds2, kinds2b...)
	}

	rec := Processed{
		ID:                strconv.Itoa(a.Index),
		OriginalTitle:     cleanTitle,
		TranslatedTitle:   translatedTitle,
		OriginalContent:   a.Content,
		AdjustedContent:   adjusted,
		AdjustedWordCount: textutil.CountWords(adjusted),
		TranslatedContent: translated,
		TargetLanguage:    target,
		Timestamp:         e.timestamp(),
		URL:               a.URL,
		Success:           true,
		IsNews:            isNews,
		CleanRemovedEN:    rm1,
		CleanRemovedZH:    rm2,
		CleanRemovedKinds: mergeKinds(kinds0, kinds1, kinds2),
	}

	if e.checker != nil {
		if ok, detected := e.checker.Verify(translated, target); !ok {
			rec.DetectedLanguage = detected
			rec.LanguageMismatch = true
			e.log.Warn("translated text does not match target language",
				"index", a.Index, "detected", detected, "target", target)
		}
	}
	return rec, nil
}

// mergeKinds unions removal tags across pipeline stages, keeping first
// occurrence order.
func mergeKinds(groups ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range groups {
		for _, k := range g {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	if out == nil {
		out = []string{}
	}
	return out
}
