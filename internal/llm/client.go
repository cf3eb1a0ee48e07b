// Package llm is the chat-completion caller for the processing pipeline.
// It wraps an OpenAI-compatible endpoint with a read-through completion
// cache, retry with linear backoff, request pacing for shared rate
// budgets, and a multi-model race for the free tier.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"newsdocx/internal/postprocess"
	"newsdocx/internal/store"
)

const (
	// DefaultMaxTokens caps a completion when the caller passes 0.
	DefaultMaxTokens = 1200

	defaultTimeout = 20 * time.Second
	maxAttempts    = 3
	backoffUnit    = 1200 * time.Millisecond
	temperature    = 0.3
)

// Client calls a chat-completion endpoint. All methods are safe for
// concurrent use; pacing state is shared so that parallel workers honor
// a single request budget.
type Client struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	cache      *store.Store
	log        *slog.Logger
	requireTLS bool

	raceRounds int
	sleep      func(time.Duration)
	candidates func(context.Context) []string

	paceMu      sync.Mutex
	minInterval time.Duration
	lastRequest time.Time
}

// NewClient creates a Client. cache may be nil to disable the completion
// cache. raceRounds is clamped to [1,8]; pass 0 for the default of 4.
func NewClient(apiKey, baseURL string, timeout time.Duration, raceRounds int, cache *store.Store, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if raceRounds <= 0 {
		raceRounds = 4
	}
	if raceRounds > 8 {
		raceRounds = 8
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: timeout},
		cache:      cache,
		log:        log,
		requireTLS: true,
		raceRounds: raceRounds,
		sleep:      time.Sleep,
	}
}

// SetCandidateSource installs the model-directory lookup the racing path
// consults when a call names no model. The source sees the run-scoped
// override the batch orchestrator installs; without a source (or when it
// returns nothing) the race falls back to the fixed model list.
func (c *Client) SetCandidateSource(fn func(context.Context) []string) {
	c.candidates = fn
}

// SetMinInterval installs the minimum spacing between outbound requests.
// The batch orchestrator derives it from the per-model rate budget; zero
// disables pacing.
func (c *Client) SetMinInterval(d time.Duration) {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()
	c.minInterval = d
}

// Call sends one chat completion. An empty model delegates to Race over
// the client's configured rounds; a named model goes through the cache,
// pacing, and the retry loop. The returned text has provider artifacts
// stripped.
func (c *Client) Call(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (string, error) {
	if err := c.checkConfig(); err != nil {
		return "", err
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	key := store.Key(model, systemPrompt, userPrompt, maxTokens)
	if c.cache != nil {
		if text, found, err := c.cache.Get(ctx, key); err == nil && found {
			return text, nil
		}
	}

	var text string
	var err error
	if model == "" {
		text, _, err = c.Race(ctx, systemPrompt, userPrompt, nil, maxTokens)
	} else {
		text, err = c.callWithRetry(ctx, systemPrompt, userPrompt, model, maxTokens)
	}
	if err != nil {
		return "", err
	}

	if c.cache != nil && text != "" {
		if perr := c.cache.Put(ctx, key, model, userPrompt, text); perr != nil {
			c.log.Warn("completion cache write failed", "error", perr)
		}
	}
	return text, nil
}

func (c *Client) callWithRetry(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		text, err := c.callOnce(ctx, systemPrompt, userPrompt, model, maxTokens)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", err
		}
		if attempt < maxAttempts {
			c.log.Debug("retrying completion", "model", model, "attempt", attempt, "error", err)
			c.sleep(backoffUnit * time.Duration(attempt))
		}
	}
	return "", lastErr
}

// callCachedOnce is callOnce behind the completion cache, keyed by the
// concrete model. The racing path uses it so every candidate's work is
// reusable on the next identical prompt.
func (c *Client) callCachedOnce(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (string, error) {
	key := store.Key(model, systemPrompt, userPrompt, maxTokens)
	if c.cache != nil {
		if text, found, err := c.cache.Get(ctx, key); err == nil && found {
			return text, nil
		}
	}

	text, err := c.callOnce(ctx, systemPrompt, userPrompt, model, maxTokens)
	if err != nil {
		return "", err
	}
	if c.cache != nil && text != "" {
		if perr := c.cache.Put(ctx, key, model, userPrompt, text); perr != nil {
			c.log.Warn("completion cache write failed", "error", perr)
		}
	}
	return text, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) callOnce(ctx context.Context, systemPrompt, userPrompt, model string, maxTokens int) (string, error) {
	c.pace()

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerTransient, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return "", fmt.Errorf("%w: check the API key", ErrAuth)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w (model %s)", ErrRateLimited, model)
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", ErrServerTransient, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: status %d for model %q, it may be unavailable on the free tier", ErrProtocol, resp.StatusCode, model)
	default:
		return "", fmt.Errorf("%w: unexpected status %d", ErrProtocol, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: undecodable body: %v", ErrProtocol, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choice list", ErrProtocol)
	}

	return postprocess.Clean(parsed.Choices[0].Message.Content), nil
}

// pace blocks until the configured minimum interval since the previous
// request has elapsed. The wait happens under the mutex so concurrent
// callers are serialized onto the shared budget.
func (c *Client) pace() {
	c.paceMu.Lock()
	defer c.paceMu.Unlock()
	if c.minInterval <= 0 {
		return
	}
	if wait := c.minInterval - time.Since(c.lastRequest); wait > 0 {
		c.sleep(wait)
	}
	c.lastRequest = time.Now()
}

func (c *Client) checkConfig() error {
	if strings.TrimSpace(c.apiKey) == "" {
		return fmt.Errorf("%w: API key is empty", ErrConfig)
	}
	if c.requireTLS {
		u, err := url.Parse(c.baseURL)
		if err != nil || !strings.EqualFold(u.Scheme, "https") {
			return fmt.Errorf("%w: base URL must use https, got %q", ErrConfig, c.baseURL)
		}
	}
	return nil
}

func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServerTransient)
}
