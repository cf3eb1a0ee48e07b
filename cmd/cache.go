package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"newsdocx/internal/store"
)

var cacheDBPath string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the completion cache",
	Long:  `List, inspect, and clear the SQLite completion cache.`,
}

func openCache() (*store.Store, error) {
	path := cacheDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Cache.Path
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cached completions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := db.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries in the completion cache.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tMODEL\tUSED\tLAST USED\tPROMPT")
		for _, e := range entries {
			snippet := e.UserPrompt
			if len(snippet) > 40 {
				snippet = snippet[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
				e.Key[:12], e.Model, e.UsageCount,
				e.LastUsed.Format("2006-01-02 15:04"), snippet)
		}
		return w.Flush()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show completion cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.CacheStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Total entries: %d\n", stats.TotalEntries)
		fmt.Printf("Total hits:    %d\n", stats.TotalHits)
		fmt.Printf("Models:        %d\n", stats.Models)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a cached completion by key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Printf("Deleted entry: %s\n", args[0])
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached completions",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openCache()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.Clear(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Printf("Cleared %d entries from the completion cache.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.PersistentFlags().StringVar(&cacheDBPath, "db", "", "database path (default from config)")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
