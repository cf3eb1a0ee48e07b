package llm

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"newsdocx/internal/modeldir"
)

// raceJitterMax bounds the random extra delay added between rounds so
// simultaneous batches do not hammer the provider in lockstep.
const raceJitterMax = 400 * time.Millisecond

type raceResult struct {
	text  string
	model string
	err   error
}

// raceRound fires one cached request per candidate model and returns a
// channel the caller drains. The channel is buffered so abandoned losers
// never block after the caller stops reading; losers run to completion
// and still populate the completion cache.
func (c *Client) raceRound(ctx context.Context, systemPrompt, userPrompt string, models []string, maxTokens int) <-chan raceResult {
	ch := make(chan raceResult, len(models))
	for _, m := range models {
		go func(model string) {
			text, err := c.callCachedOnce(ctx, systemPrompt, userPrompt, model, maxTokens)
			ch <- raceResult{text: text, model: model, err: err}
		}(m)
	}
	return ch
}

// Race runs the candidate models in parallel rounds and returns the first
// non-empty completion along with the model that produced it. An empty
// candidate list resolves through the installed candidate source, so the
// default path races whatever the model directory currently reports
// (including a run-scoped override); the fixed list is the last resort.
// Free-tier models fail often and unpredictably, so a round fires every
// candidate at once instead of iterating; later rounds back off with
// jitter. When all rounds come up empty the client falls back to trying
// the first two long-lived fallback models sequentially with full retries.
func (c *Client) Race(ctx context.Context, systemPrompt, userPrompt string, models []string, maxTokens int) (string, string, error) {
	text, model, _, err := c.race(ctx, systemPrompt, userPrompt, models, maxTokens, nil)
	if err == nil {
		return text, model, nil
	}
	if !errors.Is(err, ErrAllModelsFailed) {
		return "", "", err
	}

	fallback := modeldir.FallbackModels
	if len(fallback) > 2 {
		fallback = fallback[:2]
	}
	for _, m := range fallback {
		text, ferr := c.callWithRetry(ctx, systemPrompt, userPrompt, m, maxTokens)
		if ferr == nil && strings.TrimSpace(text) != "" {
			return text, m, nil
		}
	}
	return "", "", err
}

// RaceValidated is Race with a per-completion acceptance check. The first
// completion that passes valid wins immediately; if no completion ever
// passes, the first non-empty one is returned with validated=false so the
// caller can decide whether a best-effort result is good enough.
func (c *Client) RaceValidated(ctx context.Context, systemPrompt, userPrompt string, models []string, maxTokens int, valid func(string) bool) (string, string, bool, error) {
	return c.race(ctx, systemPrompt, userPrompt, models, maxTokens, valid)
}

func (c *Client) race(ctx context.Context, systemPrompt, userPrompt string, models []string, maxTokens int, valid func(string) bool) (string, string, bool, error) {
	if err := c.checkConfig(); err != nil {
		return "", "", false, err
	}
	if len(models) == 0 {
		if c.candidates != nil {
			models = c.candidates(ctx)
		}
		if len(models) == 0 {
			models = append([]string(nil), modeldir.FallbackModels...)
		}
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var bestText, bestModel string
	for round := 1; round <= c.raceRounds; round++ {
		ch := c.raceRound(ctx, systemPrompt, userPrompt, models, maxTokens)

		// First acceptable result wins. Losers are abandoned, not
		// cancelled: their requests finish in the background and their
		// completions stay cacheable.
		for i := 0; i < len(models); i++ {
			r := <-ch
			if r.err != nil || strings.TrimSpace(r.text) == "" {
				if r.err != nil {
					c.log.Debug("race candidate failed", "model", r.model, "round", round, "error", r.err)
				}
				continue
			}
			if valid == nil || valid(r.text) {
				return r.text, r.model, true, nil
			}
			if bestText == "" {
				bestText, bestModel = r.text, r.model
			}
		}

		if round < c.raceRounds {
			c.sleep(backoffUnit*time.Duration(round) + time.Duration(rand.Int63n(int64(raceJitterMax))))
		}
	}

	if bestText != "" {
		return bestText, bestModel, false, nil
	}
	return "", "", false, ErrAllModelsFailed
}
