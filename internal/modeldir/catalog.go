// Package modeldir discovers the current set of usable free-tier chat
// models from the provider catalog. The list is time-varying and fetched
// rather than hardcoded; on any failure discovery degrades to a pricing
// page scrape and finally to a fixed fallback list instead of aborting.
package modeldir

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultBaseURL is the OpenAI-compatible API root of the default provider.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// FallbackModels is the conservative default used when every discovery
// source fails. These identifiers are long-lived free-tier entries.
var FallbackModels = []string{
	"google/gemini-2.0-flash-exp:free",
	"qwen/qwen2.5-72b-instruct:free",
	"mistralai/mistral-nemo:free",
	"meta-llama/llama-3.1-8b-instruct:free",
}

// Catalog queries the provider for free-tier model identifiers and holds
// the run-scoped override the batch orchestrator installs before fan-out.
type Catalog struct {
	baseURL    string
	pricingURL string
	client     *http.Client
	log        *slog.Logger
	requireTLS bool

	mu       sync.RWMutex
	override []string
	cached   []string
}

// New creates a Catalog against the given API base URL. pricingURL is the
// optional HTML pricing page used as a secondary source; pass "" to skip
// the scrape fallback.
func New(baseURL, pricingURL string, timeout time.Duration, log *slog.Logger) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		baseURL:    baseURL,
		pricingURL: pricingURL,
		client:     &http.Client{Timeout: timeout},
		log:        log,
		requireTLS: true,
	}
}

// FreeModels returns the current candidate model list. Resolution order:
// run-scoped override, process-level cache, catalog endpoint, pricing page
// scrape, fixed fallback. It never fails; the worst case is the fallback
// list.
func (c *Catalog) FreeModels(ctx context.Context) []string {
	c.mu.RLock()
	if len(c.override) > 0 {
		out := append([]string(nil), c.override...)
		c.mu.RUnlock()
		return out
	}
	if len(c.cached) > 0 {
		out := append([]string(nil), c.cached...)
		c.mu.RUnlock()
		return out
	}
	c.mu.RUnlock()

	if models, err := c.fetchCatalog(ctx); err == nil && len(models) > 0 {
		c.remember(models)
		return models
	} else if err != nil {
		c.log.Warn("model catalog fetch failed", "error", err)
	}

	if c.pricingURL != "" {
		if models, err := c.fetchPricing(ctx); err == nil && len(models) > 0 {
			c.remember(models)
			return models
		} else if err != nil {
			c.log.Warn("pricing page scrape failed", "error", err)
		}
	}

	return append([]string(nil), FallbackModels...)
}

// SetOverride installs the run-scoped model list. The batch orchestrator
// sets it once before fan-out; workers only read it.
func (c *Catalog) SetOverride(models []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(models) == 0 {
		c.override = nil
		return
	}
	c.override = append([]string(nil), models...)
}

// ClearOverride removes the run-scoped model list.
func (c *Catalog) ClearOverride() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.override = nil
}

// Override returns a copy of the run-scoped model list, or nil.
func (c *Catalog) Override() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.override) == 0 {
		return nil
	}
	return append([]string(nil), c.override...)
}

func (c *Catalog) remember(models []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = append([]string(nil), models...)
}

type catalogResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Pricing struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

func (c *Catalog) fetchCatalog(ctx context.Context) ([]string, error) {
	endpoint := c.baseURL + "/models"
	if err := c.checkScheme(endpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var parsed catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	var models []string
	for _, m := range parsed.Data {
		if !isFreeTier(m.ID, m.Pricing.Prompt, m.Pricing.Completion) {
			continue
		}
		models = append(models, m.ID)
	}
	sort.Strings(models)
	return models, nil
}

func (c *Catalog) fetchPricing(ctx context.Context) ([]string, error) {
	if err := c.checkScheme(c.pricingURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pricingURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newsdocx/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pricing page returned status %d", resp.StatusCode)
	}

	return ParseFreeModelsHTML(resp.Body)
}

// isFreeTier reports whether a catalog entry is usable without a paid
// plan: either tagged with the ":free" variant suffix or priced at zero
// for both prompt and completion tokens. "Pro/"-prefixed entries are paid
// regardless of tag.
func isFreeTier(id, promptPrice, completionPrice string) bool {
	if strings.HasPrefix(id, "Pro/") {
		return false
	}
	if strings.HasSuffix(id, ":free") {
		return true
	}
	return isZeroPrice(promptPrice) && isZeroPrice(completionPrice)
}

func isZeroPrice(p string) bool {
	switch strings.TrimSpace(p) {
	case "0", "0.0", "0.00":
		return true
	}
	return false
}

func (c *Catalog) checkScheme(raw string) error {
	if !c.requireTLS {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid discovery URL %q: %w", raw, err)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("discovery requires https, got %q", raw)
	}
	return nil
}
