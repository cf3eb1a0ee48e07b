// Package config provides Viper-based configuration for newsdocx.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete newsdocx configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Batch      BatchConfig      `mapstructure:"batch"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// APIConfig configures the chat-completion backend.
type APIConfig struct {
	Key        string        `mapstructure:"key"`
	BaseURL    string        `mapstructure:"base_url"`
	PricingURL string        `mapstructure:"pricing_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RaceRounds int           `mapstructure:"race_rounds"`
}

// ProcessingConfig governs per-article text handling.
type ProcessingConfig struct {
	TargetLanguage    string     `mapstructure:"target_language"`
	WordMin           int        `mapstructure:"word_min"`
	PostCleanMin      int        `mapstructure:"post_clean_min"`
	MergeShortWords   int        `mapstructure:"merge_short_words"`
	ForbiddenPrefixes []string   `mapstructure:"forbidden_prefixes"`
	ForbiddenPatterns []string   `mapstructure:"forbidden_patterns"`
	Mode              string     `mapstructure:"mode"`
	News              NewsConfig `mapstructure:"news"`
}

// NewsConfig holds the news-likelihood heuristic knobs. The thresholds
// are empirically tuned, so they are configurable rather than fixed.
type NewsConfig struct {
	Strict        bool `mapstructure:"strict"`
	MinWords      int  `mapstructure:"min_words"`
	MinParagraphs int  `mapstructure:"min_paragraphs"`
	MinTitleLen   int  `mapstructure:"min_title_len"`
	MinScore      int  `mapstructure:"min_score"`
}

// BatchConfig bounds the batch orchestrator's shared rate budget.
type BatchConfig struct {
	Concurrency         int      `mapstructure:"concurrency"`
	PerModelRPM         int      `mapstructure:"per_model_rpm"`
	PerModelTPM         int      `mapstructure:"per_model_tpm"`
	EstTokensPerRequest int      `mapstructure:"est_tokens_per_request"`
	Models              []string `mapstructure:"models"`
}

// CacheConfig locates the completion cache database.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from an optional file plus NEWSDOCX_*
// environment variables. An empty cfgFile searches the usual locations;
// a missing file falls back to defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".newsdocx")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/newsdocx")
	}

	v.SetEnvPrefix("NEWSDOCX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// The provider's own key variable works as a fallback so users do not
	// have to set the key twice.
	if cfg.API.Key == "" {
		cfg.API.Key = os.Getenv("OPENROUTER_API_KEY")
	}

	if cfg.Cache.Path == "" {
		cfg.Cache.Path = defaultCachePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Empty defaults register the keys so environment overrides bind
	// during Unmarshal.
	v.SetDefault("api.key", "")
	v.SetDefault("api.pricing_url", "")
	v.SetDefault("cache.path", "")
	v.SetDefault("processing.forbidden_prefixes", []string{})
	v.SetDefault("processing.forbidden_patterns", []string{})
	v.SetDefault("processing.news.strict", false)
	v.SetDefault("batch.models", []string{})

	v.SetDefault("api.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("api.timeout", 20*time.Second)
	v.SetDefault("api.race_rounds", 4)

	v.SetDefault("processing.target_language", "Chinese")
	v.SetDefault("processing.word_min", 400)
	v.SetDefault("processing.post_clean_min", 200)
	v.SetDefault("processing.merge_short_words", 80)
	v.SetDefault("processing.mode", "sequential")
	v.SetDefault("processing.news.min_words", 80)
	v.SetDefault("processing.news.min_paragraphs", 2)
	v.SetDefault("processing.news.min_title_len", 10)
	v.SetDefault("processing.news.min_score", 1)

	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.per_model_rpm", 1000)
	v.SetDefault("batch.per_model_tpm", 20000)
	v.SetDefault("batch.est_tokens_per_request", 1500)

	v.SetDefault("logging.level", "info")
}

func defaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "newsdocx-cache.db"
	}
	return filepath.Join(home, ".newsdocx", "cache.db")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Processing.Mode != "sequential" && c.Processing.Mode != "parallel" {
		return fmt.Errorf("invalid processing mode: %q (must be sequential or parallel)", c.Processing.Mode)
	}
	if c.Processing.WordMin <= 0 {
		return fmt.Errorf("processing.word_min must be positive, got %d", c.Processing.WordMin)
	}
	if c.Processing.PostCleanMin < 0 {
		return fmt.Errorf("processing.post_clean_min must not be negative, got %d", c.Processing.PostCleanMin)
	}
	if c.API.RaceRounds < 1 || c.API.RaceRounds > 8 {
		return fmt.Errorf("api.race_rounds must be in [1,8], got %d", c.API.RaceRounds)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.PerModelRPM < 1 || c.Batch.PerModelTPM < 1 || c.Batch.EstTokensPerRequest < 1 {
		return fmt.Errorf("batch rate budget fields must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	return nil
}
