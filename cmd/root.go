package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"newsdocx/internal/config"
)

var version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "newsdocx",
	Short: "Bilingual news processing engine",
	Long: `newsdocx turns scraped news articles into bilingual article pairs.

It cleans noisy scraped text, enforces a minimum content length with
model-assisted editing, and translates paragraph-for-paragraph across a
pool of free-tier language models.

Use "newsdocx process --help" for processing options.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches .newsdocx.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}
