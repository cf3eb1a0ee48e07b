package engine

import (
	"context"

	"newsdocx/internal/textutil"
)

// defaultEnforceAttempts bounds the expansion loop; each attempt is one
// full model race, so the budget stays small.
const defaultEnforceAttempts = 2

// EnforceMinWords expands text until it reaches minWords. Text already
// at or above the minimum is sanitized without any model call. The
// third return value is false when the minimum was not reached after
// all attempts; the caller records that as a diagnostic, it is never an
// error.
func (e *Engine) EnforceMinWords(ctx context.Context, text string, minWords, maxAttempts int) (string, int, bool) {
	if maxAttempts <= 0 {
		maxAttempts = defaultEnforceAttempts
	}

	if wc := textutil.CountWords(text); wc >= minWords {
		cleaned, _, _ := e.sanitize(text)
		return cleaned, textutil.CountWords(cleaned), true
	}

	longEnough := func(s string) bool { return textutil.CountWords(s) >= minWords }
	models := e.catalog.FreeModels(ctx)

	current := text
	wc := textutil.CountWords(current)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		sys, usr := buildEditorPrompts(current, minWords)
		out, model, validated, err := e.disp.RaceValidated(ctx, sys, usr, models, 0, longEnough)
		if err != nil {
			e.log.Warn("length enforcement call failed", "attempt", attempt+1, "error", err)
			break
		}

		cleaned, _, _ := e.sanitize(out)
		wc = textutil.CountWords(cleaned)
		current = cleaned
		if validated && wc >= minWords {
			return current, wc, true
		}
		e.log.Debug("length enforcement below target", "attempt", attempt+1, "model", model, "words", wc)
	}
	return current, wc, wc >= minWords
}
