package engine

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// rateBudget is what one model-directory snapshot allows: the minimum
// spacing between any two requests and the worker cap by token volume.
type rateBudget struct {
	minInterval time.Duration
	workers     int
}

// computeBudget keeps aggregate throughput under the sum of per-model
// budgets: spacing so total requests/min <= models × perModelRPM, and a
// concurrency cap so in-flight token volume fits models × perModelTPM.
func computeBudget(models, perModelRPM, perModelTPM, estTokens, maxWorkers int) rateBudget {
	if models < 1 {
		models = 1
	}
	intervalMS := 60000 / (models * perModelRPM)
	if intervalMS < 1 {
		intervalMS = 1
	}
	byTokens := models * perModelTPM / estTokens
	if byTokens < 1 {
		byTokens = 1
	}
	workers := maxWorkers
	if byTokens < workers {
		workers = byTokens
	}
	if workers < 1 {
		workers = 1
	}
	return rateBudget{
		minInterval: time.Duration(intervalMS) * time.Millisecond,
		workers:     workers,
	}
}

// ProcessBatch discovers the run's model set, installs it as the
// run-scoped override, derives the rate budget, and fans articles out
// across a bounded worker pool. One article's failure never aborts the
// batch: hard errors become failure records that keep the original
// content so the export stage is never left empty-handed.
func (e *Engine) ProcessBatch(ctx context.Context, articles []Article) BatchResult {
	start := time.Now()

	models := e.cfg.Batch.Models
	if len(models) == 0 {
		models = e.catalog.FreeModels(ctx)
	}
	e.catalog.SetOverride(models)
	defer e.catalog.ClearOverride()

	budget := computeBudget(len(models),
		e.cfg.Batch.PerModelRPM, e.cfg.Batch.PerModelTPM,
		e.cfg.Batch.EstTokensPerRequest, e.cfg.Batch.Concurrency)
	e.disp.SetMinInterval(budget.minInterval)

	e.log.Info("batch started",
		"articles", len(articles), "models", len(models),
		"workers", budget.workers, "min_interval", budget.minInterval)

	var (
		mu     sync.Mutex
		out    []Processed
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(budget.workers)
	for _, a := range articles {
		g.Go(func() error {
			rec, err := e.ProcessArticle(gctx, a)
			if err != nil {
				e.log.Error("article processing failed", "index", a.Index, "error", err)
				rec = e.failureRecord(a, err)
			}
			mu.Lock()
			out = append(out, rec)
			if err != nil {
				failed++
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	e.log.Info("batch finished",
		"processed", len(out), "failed", failed, "elapsed", time.Since(start))

	return BatchResult{
		Articles: out,
		Metadata: BatchMetadata{Processed: len(out), Failed: failed},
	}
}

// failureRecord keeps the untranslated original so downstream export
// still has content to work with.
func (e *Engine) failureRecord(a Article, err error) Processed {
	return Processed{
		ID:                strconv.Itoa(a.Index),
		OriginalTitle:     a.Title,
		TranslatedTitle:   a.Title,
		OriginalContent:   a.Content,
		AdjustedContent:   a.Content,
		AdjustedWordCount: 0,
		TargetLanguage:    e.cfg.Processing.TargetLanguage,
		Timestamp:         e.timestamp(),
		URL:               a.URL,
		Success:           false,
		Error:             err.Error(),
	}
}
