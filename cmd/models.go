package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsdocx/internal/logging"
	"newsdocx/internal/modeldir"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the currently discovered free-tier models",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logging.New(cfg.Logging.Level)

		catalog := modeldir.New(cfg.API.BaseURL, cfg.API.PricingURL, cfg.API.Timeout, log)
		models := catalog.FreeModels(cmd.Context())

		for _, m := range models {
			fmt.Println(m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
