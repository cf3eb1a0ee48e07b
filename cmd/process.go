package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"newsdocx/internal/engine"
	"newsdocx/internal/langid"
	"newsdocx/internal/llm"
	"newsdocx/internal/logging"
	"newsdocx/internal/modeldir"
	"newsdocx/internal/store"
)

var (
	processOutput     string
	processTargetLang string
	processMode       string
	processModels     []string
	processStrictNews bool
	processNoCache    bool
)

var processCmd = &cobra.Command{
	Use:   "process <scraped.json>",
	Short: "Process a batch of scraped articles into bilingual pairs",
	Long: `Reads a scraped-articles JSON file, runs the cleaning, length
enforcement, and translation pipeline, and writes the processed payload
for document export.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if processTargetLang != "" {
		cfg.Processing.TargetLanguage = processTargetLang
	}
	if processMode != "" {
		cfg.Processing.Mode = processMode
	}
	if len(processModels) > 0 {
		cfg.Batch.Models = processModels
	}
	if processStrictNews {
		cfg.Processing.News.Strict = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.Logging.Level)

	articles, err := readArticles(args[0])
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		return fmt.Errorf("no articles in %s", args[0])
	}

	var cache *store.Store
	if !processNoCache {
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create cache directory: %w", err)
		}
		if cache, err = store.New(cfg.Cache.Path); err != nil {
			return fmt.Errorf("failed to open completion cache: %w", err)
		}
		defer cache.Close()
	}

	catalog := modeldir.New(cfg.API.BaseURL, cfg.API.PricingURL, cfg.API.Timeout, log)
	client := llm.NewClient(cfg.API.Key, cfg.API.BaseURL, cfg.API.Timeout, cfg.API.RaceRounds, cache, log)
	client.SetCandidateSource(catalog.FreeModels)
	eng := engine.New(cfg, client, catalog, langid.New(), log)

	runID := uuid.New().String()
	log.Info("run started", "run_id", runID, "articles", len(articles),
		"target", cfg.Processing.TargetLanguage, "mode", cfg.Processing.Mode)

	result := eng.ProcessBatch(cmd.Context(), articles)

	out := processOutput
	if out == "" {
		out = fmt.Sprintf("processed_%s.json", runID[:8])
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Printf("Processed %d articles (%d failed) -> %s\n",
		result.Metadata.Processed, result.Metadata.Failed, out)
	return nil
}

// readArticles accepts either a bare JSON array of articles or an
// object with an "articles" field, which is what the scraping
// collaborator emits.
func readArticles(path string) ([]engine.Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	var articles []engine.Article
	if err := json.Unmarshal(data, &articles); err == nil {
		return articles, nil
	}

	var wrapped struct {
		Articles []engine.Article `json:"articles"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	return wrapped.Articles, nil
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&processOutput, "output", "o", "", "output file (default processed_<run>.json)")
	processCmd.Flags().StringVar(&processTargetLang, "target-lang", "", "target language (default from config)")
	processCmd.Flags().StringVar(&processMode, "mode", "", "translation mode: sequential or parallel")
	processCmd.Flags().StringSliceVar(&processModels, "models", nil, "comma-separated model IDs, overrides discovery")
	processCmd.Flags().BoolVar(&processStrictNews, "strict-news", false, "reject articles that fail the news heuristic")
	processCmd.Flags().BoolVar(&processNoCache, "no-cache", false, "disable the completion cache")
}
