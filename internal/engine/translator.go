package engine

import (
	"context"
	"strings"
	"sync"

	"newsdocx/internal/textutil"
)

// Translate produces the target-language body for text with paragraph
// parity against the source. Mode comes from configuration: sequential
// sends the whole body in one race; parallel splits paragraphs across
// the available models.
func (e *Engine) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if e.cfg.Processing.Mode == "parallel" {
		return e.translateParallel(ctx, text, targetLang)
	}
	return e.translateSequential(ctx, text, targetLang)
}

func (e *Engine) translateSequential(ctx context.Context, text, targetLang string) (string, error) {
	sys, usr := buildTranslationPrompts(text, targetLang)
	out, err := e.disp.Call(ctx, sys, usr, "", 0)
	if err != nil {
		return "", err
	}
	return textutil.EnsureParity(out, text), nil
}

// translateParallel assigns contiguous paragraph chunks to dedicated
// models so a long article does not serialize on one backend. Chunk
// boundaries can cost cross-chunk terminology consistency; that is an
// accepted trade-off of this mode. A failed chunk retries once through
// the racing path and otherwise contributes nothing, because parity
// enforcement at the end still reconciles the remaining segments.
func (e *Engine) translateParallel(ctx context.Context, text, targetLang string) (string, error) {
	paras := textutil.SplitParagraphs(text)
	if len(paras) == 0 {
		return "", nil
	}

	models := e.catalog.FreeModels(ctx)
	if len(models) == 0 || len(paras) == 1 {
		return e.translateSequential(ctx, text, targetLang)
	}

	k := len(models)
	if k > len(paras) {
		k = len(paras)
	}
	spans := textutil.ChunkSpans(len(paras), k)

	results := make([]string, len(spans))
	var wg sync.WaitGroup
	for i, span := range spans {
		chunk := textutil.JoinParagraphs(paras[span[0]:span[1]])
		model := models[i]
		wg.Add(1)
		go func(idx int, model, chunk string) {
			defer wg.Done()
			sys, usr := buildTranslationPrompts(chunk, targetLang)
			out, err := e.disp.Call(ctx, sys, usr, model, 0)
			if err != nil {
				e.log.Warn("chunk translation failed, retrying on racing path",
					"chunk", idx, "model", model, "error", err)
				if out, err = e.disp.Call(ctx, sys, usr, "", 0); err != nil {
					e.log.Warn("chunk translation abandoned", "chunk", idx, "error", err)
					out = ""
				}
			}
			results[idx] = out
		}(i, model, chunk)
	}
	wg.Wait()

	combined := strings.TrimSpace(strings.Join(results, "\n\n"))
	return textutil.EnsureParity(combined, text), nil
}

// TranslateTitle translates a title with a minimal one-shot prompt. It
// never blocks the pipeline: any failure returns the original title.
func (e *Engine) TranslateTitle(ctx context.Context, title, targetLang string) string {
	if strings.TrimSpace(title) == "" {
		return ""
	}
	sys, usr := buildTitlePrompts(title, targetLang)
	out, err := e.disp.Call(ctx, sys, usr, "", 0)
	if err != nil || strings.TrimSpace(out) == "" {
		return title
	}
	return strings.TrimSpace(out)
}
